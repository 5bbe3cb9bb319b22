package donor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-crispr/internal/guide"
	"github.com/inodb/vibe-crispr/internal/sequence"
)

const (
	exonTail  = "TTGCATGCCATGGTACCTAG"
	testExon  = "ATGAAACCC" + exonTail
	fwdTarget = "GACTGACTGACTGACTGACTTGG"
	rvsTarget = "GTTGTTGTTGTTGTTGTTGTAGG"
	// reverse complement of rvsTarget
	rvsWorking = "CCTACAACAACAACAACAACAAC"
)

func genomicWith(site string, downstream int) string {
	return strings.Repeat("A", 450) + exonTail + site + strings.Repeat("C", downstream)
}

func expectedRight(arm, original string) string {
	return "CCTGCGGTGTCTTTGCTT" + arm + original +
		"catgtGGTTCCATGGTGTAATGGTTAGCACTCTGGACTCTGAATCCAGCGATCCGAGTTCAAATCTCGGTGGAACCT" +
		original[:20] + "GTTTTAGAGCTAGAAATAGCAA"
}

func TestAssemble_Forward(t *testing.T) {
	genomic := genomicWith(fwdTarget, 400)
	g := guide.ScoredGuide{Target: fwdTarget, Orientation: guide.FWD}

	d, err := Assemble(g, genomic, testExon)
	require.NoError(t, err)
	assert.False(t, d.Inverted)

	assert.Equal(t, strings.Repeat("A", 397)+exonTail, d.LeftArm)
	assert.Len(t, d.LeftArm, LeftArmLength)

	// The right arm starts on the last base of the 18-base anchor.
	assert.Equal(t, "ACTTGG"+strings.Repeat("C", 315), d.RightArm)
	assert.Len(t, d.RightArm, RightArmLength)

	assert.Equal(t,
		"tgctggccttttgctcaggatcc"+sequence.ReverseComplement(fwdTarget)+d.LeftArm+"ggatccCaaggcggtggaCTCGA",
		d.LeftFragment)
	assert.Equal(t, expectedRight(d.RightArm, fwdTarget), d.RightFragment)
}

func TestAssemble_Inverted(t *testing.T) {
	genomic := genomicWith(rvsWorking, 400)
	g := guide.ScoredGuide{Target: rvsTarget, Orientation: guide.RVS}

	d, err := Assemble(g, genomic, testExon)
	require.NoError(t, err)
	assert.True(t, d.Inverted)
	assert.Equal(t, rvsTarget, d.Guide)

	// The inverted anchor is the first 7 bases of the reverse complement.
	assert.Equal(t, rvsWorking[6:]+strings.Repeat("C", 304), d.RightArm)

	assert.Equal(t,
		"tgctggccttttgctcaggatcc"+rvsTarget+d.LeftArm+"ggatccCaaggcggtggaCTCGA",
		d.LeftFragment, "inverted guides are inserted on the left as scored")

	// The right fragment uses the scored guide in both orientations.
	assert.Equal(t, expectedRight(d.RightArm, rvsTarget), d.RightFragment)
}

func TestAssemble_TokensSubstitutedOnce(t *testing.T) {
	for _, g := range []guide.ScoredGuide{
		{Target: fwdTarget, Orientation: guide.FWD},
		{Target: rvsTarget, Orientation: guide.RVS},
	} {
		genomic := genomicWith(fwdTarget+rvsWorking, 400)
		d, err := Assemble(g, genomic, testExon)
		require.NoError(t, err)

		assert.False(t, strings.ContainsAny(d.LeftFragment, "snryx"), "no residual tokens")
		assert.False(t, strings.ContainsAny(d.RightFragment, "snryx"), "no residual tokens")
		assert.Equal(t, len(LeftAI1)-2+len(g.Target)+len(d.LeftArm), len(d.LeftFragment))
		assert.Equal(t, len(RightAI1)-3+len(d.RightArm)+len(g.Target)+SpacerLength, len(d.RightFragment))
	}
}

func TestAssemble_ShortGenomic(t *testing.T) {
	genomic := "GGG" + exonTail + fwdTarget + "CCCCC"
	d, err := Assemble(guide.ScoredGuide{Target: fwdTarget, Orientation: guide.FWD}, genomic, testExon)
	require.NoError(t, err)

	assert.Equal(t, "GGG"+exonTail, d.LeftArm, "left arm is clipped at the window start")
	assert.Equal(t, "ACTTGGCCCCC", d.RightArm, "right arm is clipped at the window end")
}

func TestAssemble_AnchorsMissing(t *testing.T) {
	genomic := genomicWith(fwdTarget, 400)

	_, err := Assemble(guide.ScoredGuide{Target: fwdTarget, Orientation: guide.FWD}, genomic, "ATGGGGGGGGGGGGGGGGGGGGGGG")
	assert.ErrorIs(t, err, ErrHomologyAnchorNotFound)

	_, err = Assemble(guide.ScoredGuide{Target: "TGTGTGTGTGTGTGTGTGTGAGG", Orientation: guide.FWD}, genomic, testExon)
	assert.ErrorIs(t, err, ErrHomologyAnchorNotFound)

	_, err = Assemble(guide.ScoredGuide{Target: fwdTarget, Orientation: guide.RVS}, genomic, testExon)
	assert.ErrorIs(t, err, ErrHomologyAnchorNotFound)
}

func TestLeftArm_FirstOccurrence(t *testing.T) {
	genomic := "TT" + exonTail + "GG" + exonTail
	arm, err := LeftArm(genomic, exonTail)
	require.NoError(t, err)
	assert.Equal(t, "TT"+exonTail, arm)
}
