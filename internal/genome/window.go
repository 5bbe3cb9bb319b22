package genome

import (
	"context"
	"fmt"
	"strings"

	"github.com/inodb/vibe-crispr/internal/sequence"
)

// WindowPolicy gives the offsets of a window relative to the exon's 3' end,
// expressed in gene orientation.
type WindowPolicy struct {
	Name       string
	Upstream   int64
	Downstream int64
}

// Window policies used by the design pipeline.
var (
	// LocalWindow is the context used for the frame check and donor arms.
	LocalWindow = WindowPolicy{Name: "local", Upstream: 500, Downstream: 350}
	// ExtendedWindow is the guide-discovery search space.
	ExtendedWindow = WindowPolicy{Name: "extended", Upstream: 800, Downstream: 800}
	// PrimerWindow is the legacy narrow window around the boundary.
	PrimerWindow = WindowPolicy{Name: "primer", Upstream: 50, Downstream: 32}
)

// GenomicWindow is a DNA window oriented 5'->3' relative to the gene.
type GenomicWindow struct {
	Policy          string
	Chromosome      string
	Lo, Hi          int64  // reference coordinates, 1-based inclusive
	Sequence        string // gene-oriented sequence
	Raw             string // bases as fetched from the reference strand
	StrandCorrected bool   // true if Sequence is the reverse complement of Raw
}

// Len returns the window length in bases.
func (w GenomicWindow) Len() int {
	return len(w.Sequence)
}

// Span returns the reference coordinates of the window for policy p around
// the exon's 3' end. Upstream and downstream swap sides on the reverse strand.
func Span(r ResolvedExon, p WindowPolicy) (lo, hi int64) {
	up, down := p.Upstream, p.Downstream
	if r.IsReverse() {
		up, down = down, up
	}
	anchor := r.Anchor()
	return anchor - up, anchor + down
}

// ExtractWindow fetches the window described by p and strand-corrects it.
// A window starting at or below position zero fails with
// ErrOutOfRangeCoordinate; it is never clamped.
func ExtractWindow(ctx context.Context, provider SequenceProvider, r ResolvedExon, p WindowPolicy) (GenomicWindow, error) {
	lo, hi := Span(r, p)
	w, err := fetchOriented(ctx, provider, r, lo, hi)
	if err != nil {
		return GenomicWindow{}, fmt.Errorf("%s window: %w", p.Name, err)
	}
	w.Policy = p.Name
	return w, nil
}

// ExtractExon fetches the exon itself over its normalized coordinates,
// strand-corrected like the windows.
func ExtractExon(ctx context.Context, provider SequenceProvider, r ResolvedExon) (GenomicWindow, error) {
	w, err := fetchOriented(ctx, provider, r, r.Lo, r.Hi)
	if err != nil {
		return GenomicWindow{}, fmt.Errorf("exon %s: %w", r.Exon.ID, err)
	}
	w.Policy = "exon"
	return w, nil
}

func fetchOriented(ctx context.Context, provider SequenceProvider, r ResolvedExon, lo, hi int64) (GenomicWindow, error) {
	chrom := r.Exon.Chromosome
	if lo <= 0 {
		return GenomicWindow{}, fmt.Errorf("%s:%d-%d: %w", chrom, lo, hi, ErrOutOfRangeCoordinate)
	}

	raw, err := provider.FetchSequence(ctx, chrom, lo, hi)
	if err != nil {
		return GenomicWindow{}, err
	}
	raw = strings.ToUpper(raw)

	w := GenomicWindow{
		Chromosome: chrom,
		Lo:         lo,
		Hi:         hi,
		Sequence:   raw,
		Raw:        raw,
	}
	if r.IsReverse() {
		w.Sequence = sequence.ReverseComplement(raw)
		w.StrandCorrected = true
	}
	return w, nil
}
