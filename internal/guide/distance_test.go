package guide

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Layout of testWindow:
//
//	 0..22  reverse complement of the RVS guide target
//	23..37  exon anchor tag (last letter at 37)
//	38..42  spacer
//	43..65  FWD guide target
const (
	rvsTarget  = "GTTGTTGTTGTTGTTGTTGTAGG"
	fwdTarget  = "GACTGACTGACTGACTGACTTGG"
	exonTail   = "GATTACAGATTACAG"
	testExon   = "ATGAAA" + exonTail
	testWindow = "CCTACAACAACAACAACAACAAC" + exonTail + "AAAAA" + fwdTarget + "CCCCC"
)

func TestAnchorTag(t *testing.T) {
	assert.Equal(t, exonTail, AnchorTag(testExon))
	assert.Equal(t, "ACGT", AnchorTag("acgt"), "short exons use the whole sequence")
}

func TestLastLetter(t *testing.T) {
	last, err := LastLetter(testWindow, exonTail)
	require.NoError(t, err)
	assert.Equal(t, 37, last)

	last, err = LastLetter("ACGTTTACGTTT", "ACG")
	require.NoError(t, err)
	assert.Equal(t, 8, last, "last occurrence wins")

	_, err = LastLetter(testWindow, "TTTTTTTTTTTTTTT")
	assert.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestSignedDistance(t *testing.T) {
	tests := []struct {
		name   string
		window string
		last   int
		guide  ScoredGuide
		want   int
	}{
		{"forward downstream", testWindow, 37, ScoredGuide{Target: fwdTarget, Orientation: FWD}, 43 - 37 + 16},
		{"reverse upstream", testWindow, 37, ScoredGuide{Target: rvsTarget, Orientation: RVS}, 0 - 37 + 5},
		{"forward literal", "NNNNNNNNNNAC", 100, ScoredGuide{Target: "AC", Orientation: FWD}, 10 - 100 + 16},
		{"reverse literal", "NNNNNNNNNNAC", 100, ScoredGuide{Target: "GT", Orientation: RVS}, 10 - 100 + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedDistance(tt.window, tt.last, tt.guide)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistance(t *testing.T) {
	d, err := Distance(testWindow, exonTail, ScoredGuide{Target: rvsTarget, Orientation: RVS})
	require.NoError(t, err)
	assert.Equal(t, 32, d, "distance is absolute")

	_, err = Distance(testWindow, exonTail, ScoredGuide{Target: "TTTTTTTTTTTTTTTTTTTTTGG", Orientation: FWD})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = Distance(testWindow, "GGGGGGGGGGGGGGG", ScoredGuide{Target: fwdTarget, Orientation: FWD})
	assert.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestAnnotator_AnnotateAll(t *testing.T) {
	a := NewAnnotator(testWindow, testExon)
	require.NoError(t, a.AnchorErr())
	assert.Equal(t, 37, a.LastLetter())

	core, logs := observer.New(zap.WarnLevel)
	a.SetLogger(zap.New(core))

	guides := []ScoredGuide{
		{Target: fwdTarget, Orientation: FWD, Hsu2013: 1},
		{Target: "TTTTTTTTTTTTTTTTTTTTTGG", Orientation: FWD, Hsu2013: 2},
		{Target: rvsTarget, Orientation: RVS, Hsu2013: 3},
	}
	for _, workers := range []int{1, 4} {
		annotated, skipped, err := a.AnnotateAll(context.Background(), guides, workers)
		require.NoError(t, err)
		require.Len(t, annotated, 2)
		assert.Equal(t, 22, annotated[0].Distance)
		assert.Equal(t, 32, annotated[1].Distance)
		assert.Equal(t, 3.0, annotated[1].Hsu2013, "input order is kept")

		require.Len(t, skipped, 1)
		assert.ErrorIs(t, skipped[0].Err, ErrTargetNotFound)
	}
	assert.Equal(t, 2, logs.FilterMessage("skipping guide").Len())
	assert.Zero(t, guides[0].Distance, "input guides are not modified")
}

func TestAnnotator_AnchorMissingSkipsEveryGuide(t *testing.T) {
	a := NewAnnotator(testWindow, "NNNNNNNNNNNNNNNNNNNN")
	assert.ErrorIs(t, a.AnchorErr(), ErrAnchorNotFound)

	core, logs := observer.New(zap.WarnLevel)
	a.SetLogger(zap.New(core))

	guides := []ScoredGuide{
		{Target: fwdTarget, Orientation: FWD},
		{Target: rvsTarget, Orientation: RVS},
	}
	annotated, skipped, err := a.AnnotateAll(context.Background(), guides, 2)
	require.NoError(t, err)
	assert.Empty(t, annotated)
	require.Len(t, skipped, 2)
	for i, sg := range skipped {
		assert.ErrorIs(t, sg.Err, ErrAnchorNotFound)
		assert.Equal(t, guides[i].Target, sg.Guide.Target)
	}
	assert.Equal(t, 2, logs.FilterMessage("skipping guide").Len())
}

func TestAnnotator_AnnotateAllCancelled(t *testing.T) {
	a := NewAnnotator(testWindow, testExon)
	guides := make([]ScoredGuide, 500)
	for i := range guides {
		guides[i] = ScoredGuide{Target: fwdTarget, Orientation: FWD}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	annotated, skipped, err := a.AnnotateAll(ctx, guides, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, annotated)
	assert.Nil(t, skipped)
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	results := make(chan WorkResult, 4)
	for _, seq := range []int{1, 0, 3, 2} {
		results <- WorkResult{Seq: seq}
	}
	close(results)

	errStop := errors.New("stop")
	var seen []int
	err := OrderedCollect(results, func(r WorkResult) error {
		seen = append(seen, r.Seq)
		if r.Seq == 1 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []int{0, 1}, seen)
}
