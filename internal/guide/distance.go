package guide

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-crispr/internal/sequence"
)

// AnchorTagLength is the number of terminal exon bases used to locate the
// exon boundary in a search window.
const AnchorTagLength = 15

// Offsets from a guide's start to its cut-site reference point.
const (
	forwardCutOffset = 16
	reverseCutOffset = 5
)

// AnchorTag returns the last 15 bases of the exon sequence, or the whole
// sequence when it is shorter.
func AnchorTag(exonSeq string) string {
	exonSeq = strings.ToUpper(exonSeq)
	if len(exonSeq) <= AnchorTagLength {
		return exonSeq
	}
	return exonSeq[len(exonSeq)-AnchorTagLength:]
}

// LastLetter returns the index of the exon's final base within window: the
// last occurrence of tag plus its length minus one.
func LastLetter(window, tag string) (int, error) {
	if tag == "" {
		return 0, fmt.Errorf("%w: empty anchor", ErrAnchorNotFound)
	}
	i := strings.LastIndex(strings.ToUpper(window), tag)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrAnchorNotFound, tag)
	}
	return i + len(tag) - 1, nil
}

// SignedDistance returns the signed offset of g's cut-site reference point
// from the base at lastLetter. Reverse-strand guides are located by the
// reverse complement of their target.
func SignedDistance(window string, lastLetter int, g ScoredGuide) (int, error) {
	segment := strings.ToUpper(g.Target)
	offset := forwardCutOffset
	if g.IsInverted() {
		segment = sequence.ReverseComplement(segment)
		offset = reverseCutOffset
	}
	pos := strings.Index(strings.ToUpper(window), segment)
	if pos < 0 {
		return 0, fmt.Errorf("%w: %s", ErrTargetNotFound, g.Target)
	}
	return pos - lastLetter + offset, nil
}

// Distance returns the absolute distance of g from the exon boundary
// identified by anchorTag in window.
func Distance(window, anchorTag string, g ScoredGuide) (int, error) {
	last, err := LastLetter(window, anchorTag)
	if err != nil {
		return 0, err
	}
	d, err := SignedDistance(window, last, g)
	if err != nil {
		return 0, err
	}
	return abs(d), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
