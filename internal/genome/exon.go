// Package genome resolves gene identifiers to exon coordinates and extracts
// strand-corrected genomic DNA windows around a terminal exon.
package genome

import "fmt"

// Orientation is the strand of a gene relative to the reference.
type Orientation int8

const (
	Forward Orientation = 1
	Reverse Orientation = -1
)

// String returns "+" or "-".
func (o Orientation) String() string {
	if o == Reverse {
		return "-"
	}
	return "+"
}

// ExonLocation is an exon as reported by the coordinate service.
// End < Start encodes a reverse-strand exon; it is never treated as invalid.
type ExonLocation struct {
	ID         string `json:"exon_id"`
	GeneID     string `json:"ensembl_gene_id"`
	Chromosome string `json:"chromosome"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
}

// Orientation returns Forward iff End >= Start.
func (e ExonLocation) Orientation() Orientation {
	if e.End < e.Start {
		return Reverse
	}
	return Forward
}

// ResolvedExon is an exon with its orientation computed once and its
// coordinates normalized to ascending order. Every window and distance
// computation takes a ResolvedExon instead of re-deriving the strand.
type ResolvedExon struct {
	Exon        ExonLocation
	Orientation Orientation
	Lo          int64 // normalized start, Lo <= Hi
	Hi          int64 // normalized end
}

// Resolve determines the strand of e and normalizes its coordinates.
func Resolve(e ExonLocation) ResolvedExon {
	r := ResolvedExon{
		Exon:        e,
		Orientation: e.Orientation(),
		Lo:          e.Start,
		Hi:          e.End,
	}
	if r.Orientation == Reverse {
		r.Lo, r.Hi = e.End, e.Start
	}
	return r
}

// Anchor returns the exon's 3' end, the coordinate every window is built around.
// On the reverse strand this is the lower coordinate.
func (r ResolvedExon) Anchor() int64 {
	return r.Exon.End
}

// IsReverse returns true if the exon is on the reverse strand.
func (r ResolvedExon) IsReverse() bool {
	return r.Orientation == Reverse
}

// String formats the exon as chrom:lo-hi(strand).
func (r ResolvedExon) String() string {
	return fmt.Sprintf("%s:%d-%d(%s)", r.Exon.Chromosome, r.Lo, r.Hi, r.Orientation)
}

// LastExon returns the exon with the largest Start coordinate.
// On ties the first one encountered wins.
func LastExon(exons []ExonLocation) (ExonLocation, error) {
	if len(exons) == 0 {
		return ExonLocation{}, ErrNoExons
	}
	last := exons[0]
	for _, e := range exons[1:] {
		if e.Start > last.Start {
			last = e
		}
	}
	return last, nil
}
