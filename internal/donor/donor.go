// Package donor assembles allele-insertion donor fragments from a chosen
// guide and the genomic sequence around the terminal exon.
package donor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/vibe-crispr/internal/guide"
	"github.com/inodb/vibe-crispr/internal/sequence"
)

// ErrHomologyAnchorNotFound is returned when an arm's anchor sequence does
// not occur in the genomic sequence.
var ErrHomologyAnchorNotFound = errors.New("homology arm anchor not found")

// Donor templates. Lower-case s, n, r, y and x are substitution tokens; the
// remaining lower-case letters are literal bases.
const (
	// LeftAI1 takes the guide (s) and the left homology arm (n).
	LeftAI1 = "tgctggccttttgctcaggatccsnggatccCaaggcggtggaCTCGA"
	// RightAI1 takes the right homology arm (r), the guide (y) and the
	// guide's 20-base spacer (x).
	RightAI1 = "CCTGCGGTGTCTTTGCTTrycatgtGGTTCCATGGTGTAATGGTTAGCACTCTGGACTCTGAATCCAGCGATCCGAGTTCAAATCTCGGTGGAACCTxGTTTTAGAGCTAGAAATAGCAA"
)

// Arm geometry.
const (
	ExonTailLength       = 20
	LeftArmLength        = 417
	RightArmLength       = 321
	ForwardAnchorLength  = 18
	InvertedAnchorLength = 7
	SpacerLength         = 20
)

// AssembledDonor holds both donor fragments and the pieces spliced into them.
type AssembledDonor struct {
	LeftFragment  string
	RightFragment string
	LeftArm       string
	RightArm      string
	Guide         string // target as scored
	Inverted      bool
}

// Assemble builds the Left-AI1 and Right-AI1 fragments for g. genomic is the
// strand-corrected local window and exonSeq the strand-corrected exon.
func Assemble(g guide.ScoredGuide, genomic, exonSeq string) (*AssembledDonor, error) {
	genomic = strings.ToUpper(genomic)
	original := strings.ToUpper(g.Target)
	inverted := g.IsInverted()

	working := original
	if inverted {
		working = sequence.ReverseComplement(original)
	}

	leftArm, err := LeftArm(genomic, exonSeq)
	if err != nil {
		return nil, err
	}
	rightArm, err := RightArm(genomic, working, inverted)
	if err != nil {
		return nil, err
	}

	leftGuide := sequence.ReverseComplement(original)
	if inverted {
		leftGuide = original
	}

	return &AssembledDonor{
		LeftFragment:  strings.NewReplacer("s", leftGuide, "n", leftArm).Replace(LeftAI1),
		RightFragment: strings.NewReplacer("r", rightArm, "y", original, "x", prefix(original, SpacerLength)).Replace(RightAI1),
		LeftArm:       leftArm,
		RightArm:      rightArm,
		Guide:         original,
		Inverted:      inverted,
	}, nil
}

// LeftArm returns up to 417 bases of genomic ending with the last 20 bases of
// the exon, located at their first occurrence.
func LeftArm(genomic, exonSeq string) (string, error) {
	exonSeq = strings.ToUpper(exonSeq)
	tail := exonSeq
	if len(tail) > ExonTailLength {
		tail = tail[len(tail)-ExonTailLength:]
	}
	if tail == "" {
		return "", fmt.Errorf("%w: empty exon", ErrHomologyAnchorNotFound)
	}
	i := strings.Index(genomic, tail)
	if i < 0 {
		return "", fmt.Errorf("%w: exon tail %s", ErrHomologyAnchorNotFound, tail)
	}
	end := i + len(tail)
	return genomic[max(0, end-LeftArmLength):end], nil
}

// RightArm returns up to 321 bases of genomic starting at the last base of
// the guide anchor: the first 7 bases of the working guide when inverted,
// otherwise the first 18.
func RightArm(genomic, working string, inverted bool) (string, error) {
	n := ForwardAnchorLength
	if inverted {
		n = InvertedAnchorLength
	}
	anchor := prefix(working, n)
	if anchor == "" {
		return "", fmt.Errorf("%w: empty guide", ErrHomologyAnchorNotFound)
	}
	i := strings.Index(genomic, anchor)
	if i < 0 {
		return "", fmt.Errorf("%w: guide anchor %s", ErrHomologyAnchorNotFound, anchor)
	}
	start := i + len(anchor) - 1
	return genomic[start:min(len(genomic), start+RightArmLength)], nil
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
