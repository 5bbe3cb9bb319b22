package genome

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-crispr/internal/sequence"
)

// chromProvider serves a single synthetic chromosome and records requests.
type chromProvider struct {
	chrom string
	seq   string
	calls []string
	err   error
}

func newChromProvider(length int) *chromProvider {
	bases := "ACGGTCATTGCA"
	var b strings.Builder
	for b.Len() < length {
		b.WriteString(bases)
	}
	return &chromProvider{chrom: "1", seq: b.String()[:length]}
}

func (p *chromProvider) FetchSequence(_ context.Context, chrom string, start, end int64) (string, error) {
	p.calls = append(p.calls, chrom)
	if p.err != nil {
		return "", p.err
	}
	if chrom != p.chrom || start <= 0 || end > int64(len(p.seq)) {
		return "", ErrOutOfRangeCoordinate
	}
	return p.seq[start-1 : end], nil
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		exon    ExonLocation
		want    Orientation
		lo, hi  int64
		reverse bool
	}{
		{"forward", ExonLocation{Chromosome: "1", Start: 1000, End: 2000}, Forward, 1000, 2000, false},
		{"reverse swaps", ExonLocation{Chromosome: "1", Start: 2000, End: 1000}, Reverse, 1000, 2000, true},
		{"single base is forward", ExonLocation{Chromosome: "1", Start: 1500, End: 1500}, Forward, 1500, 1500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.exon)
			assert.Equal(t, tt.want, r.Orientation)
			assert.Equal(t, tt.lo, r.Lo)
			assert.Equal(t, tt.hi, r.Hi)
			assert.LessOrEqual(t, r.Lo, r.Hi)
			assert.Equal(t, tt.reverse, r.IsReverse())
			assert.Equal(t, tt.exon, r.Exon, "input exon must not be modified")
		})
	}
}

func TestResolve_NormalizedAscendingForAllInputs(t *testing.T) {
	for start := int64(1); start < 40; start += 7 {
		for end := int64(1); end < 40; end += 5 {
			r := Resolve(ExonLocation{Start: start, End: end})
			assert.LessOrEqual(t, r.Lo, r.Hi)
			if end < start {
				assert.Equal(t, Reverse, r.Orientation)
			} else {
				assert.Equal(t, Forward, r.Orientation)
				assert.Equal(t, start, r.Lo)
				assert.Equal(t, end, r.Hi)
			}
		}
	}
}

func TestLastExon(t *testing.T) {
	exons := []ExonLocation{
		{ID: "E1", Start: 100, End: 200},
		{ID: "E3", Start: 900, End: 950},
		{ID: "E2", Start: 500, End: 600},
		{ID: "E3b", Start: 900, End: 990},
	}
	last, err := LastExon(exons)
	require.NoError(t, err)
	assert.Equal(t, "E3", last.ID, "first exon wins ties")

	_, err = LastExon(nil)
	assert.ErrorIs(t, err, ErrNoExons)
}

func TestSpan(t *testing.T) {
	fwd := Resolve(ExonLocation{Chromosome: "1", Start: 1000, End: 2000})
	rev := Resolve(ExonLocation{Chromosome: "1", Start: 2000, End: 1000})

	tests := []struct {
		name   string
		exon   ResolvedExon
		policy WindowPolicy
		lo, hi int64
	}{
		{"forward local", fwd, LocalWindow, 1500, 2350},
		{"forward extended", fwd, ExtendedWindow, 1200, 2800},
		{"forward primer", fwd, PrimerWindow, 1950, 2032},
		{"reverse local", rev, LocalWindow, 650, 1500},
		{"reverse extended", rev, ExtendedWindow, 200, 1800},
		{"reverse primer", rev, PrimerWindow, 968, 1050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := Span(tt.exon, tt.policy)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestExtractWindow_Forward(t *testing.T) {
	p := newChromProvider(5000)
	r := Resolve(ExonLocation{Chromosome: "1", Start: 1000, End: 2000})

	w, err := ExtractWindow(context.Background(), p, r, ExtendedWindow)
	require.NoError(t, err)

	assert.Equal(t, "extended", w.Policy)
	assert.Equal(t, int64(1200), w.Lo)
	assert.Equal(t, int64(2800), w.Hi)
	assert.Equal(t, 1601, w.Len())
	assert.Equal(t, p.seq[1199:2800], w.Sequence)
	assert.Equal(t, w.Raw, w.Sequence)
	assert.False(t, w.StrandCorrected)
}

func TestExtractWindow_ReverseIsComplemented(t *testing.T) {
	p := newChromProvider(5000)
	r := Resolve(ExonLocation{Chromosome: "1", Start: 2000, End: 1000})

	w, err := ExtractWindow(context.Background(), p, r, LocalWindow)
	require.NoError(t, err)

	assert.Equal(t, int64(650), w.Lo)
	assert.Equal(t, int64(1500), w.Hi)
	assert.True(t, w.StrandCorrected)
	assert.Equal(t, p.seq[649:1500], w.Raw)
	assert.Equal(t, sequence.ReverseComplement(w.Raw), w.Sequence)
	assert.Equal(t, w.Raw, sequence.ReverseComplement(w.Sequence), "double complement restores the raw bases")
}

func TestExtractWindow_OutOfRangeIsNotClamped(t *testing.T) {
	p := newChromProvider(5000)
	r := Resolve(ExonLocation{Chromosome: "1", Start: 100, End: 300})

	_, err := ExtractWindow(context.Background(), p, r, ExtendedWindow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRangeCoordinate)
	assert.Empty(t, p.calls, "provider must not be called for a non-positive start")
}

func TestExtractWindow_ProviderErrorPropagates(t *testing.T) {
	p := newChromProvider(5000)
	p.err = errors.Join(ErrProviderUnavailable, errors.New("connection refused"))
	r := Resolve(ExonLocation{Chromosome: "1", Start: 1000, End: 2000})

	_, err := ExtractWindow(context.Background(), p, r, LocalWindow)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "local window")
}

func TestExtractExon(t *testing.T) {
	p := newChromProvider(5000)

	fwd, err := ExtractExon(context.Background(), p, Resolve(ExonLocation{Chromosome: "1", Start: 1000, End: 1030}))
	require.NoError(t, err)
	assert.Equal(t, p.seq[999:1030], fwd.Sequence)

	rev, err := ExtractExon(context.Background(), p, Resolve(ExonLocation{Chromosome: "1", Start: 1030, End: 1000}))
	require.NoError(t, err)
	assert.Equal(t, sequence.ReverseComplement(p.seq[999:1030]), rev.Sequence)
}
