// Package guide reads scored CRISPR guides, measures their distance from the
// terminal exon boundary and ranks them.
package guide

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorNotFound is returned when the exon's final 15-mer does not
	// occur in the search window.
	ErrAnchorNotFound = errors.New("exon anchor not found in window")

	// ErrTargetNotFound is returned when a guide's protospacer does not
	// occur in the search window.
	ErrTargetNotFound = errors.New("guide target not found in window")

	// ErrMissingScoreTable is returned when the scorer produced no usable table.
	ErrMissingScoreTable = errors.New("score table missing or empty")

	// ErrSchemaMismatch is returned when expected columns are absent.
	ErrSchemaMismatch = errors.New("score table schema mismatch")

	// ErrRowNotFound is returned when a selected row is outside the ranked set.
	ErrRowNotFound = errors.New("selected row not found")
)

// Strand is a guide's orientation relative to the reference strand,
// as labelled by the scorer.
type Strand string

const (
	FWD Strand = "FWD"
	RVS Strand = "RVS"
)

// ParseStrand parses a FWD/RVS label.
func ParseStrand(s string) (Strand, error) {
	switch Strand(s) {
	case FWD:
		return FWD, nil
	case RVS:
		return RVS, nil
	}
	return "", fmt.Errorf("unknown guide orientation %q", s)
}

// ScoredGuide is one row of the scorer's output. Distance is filled in by
// the distance annotator and is always the absolute offset from the exon
// boundary.
type ScoredGuide struct {
	Contig      string
	Start       int64
	Stop        int64
	Target      string
	Context     string
	Orientation Strand

	Doench2014OnTarget float64
	DoenchCFDMaxOT     float64
	DoenchCFDSpecScore float64
	Hsu2013            float64
	MorenoMateos2015   float64

	Distance int

	Line int // line in the score table, 0 if not read from a file
}

// IsInverted returns true for guides on the reverse reference strand.
func (g ScoredGuide) IsInverted() bool {
	return g.Orientation == RVS
}

// SchemaError reports columns missing from a table header.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing columns %v", e.Source, e.Missing)
}

// Unwrap lets errors.Is match ErrSchemaMismatch.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// RowError reports a score-table row that could not be used.
type RowError struct {
	Line   int
	Target string
	Err    error
}

func (e *RowError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Target, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
