package genome

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable is returned when a remote collaborator cannot be
	// reached or answers with an unexpected status.
	ErrProviderUnavailable = errors.New("genome data provider unavailable")

	// ErrOutOfRangeCoordinate is returned for regions that start at or below
	// zero or that the provider rejects as outside the assembly.
	ErrOutOfRangeCoordinate = errors.New("coordinate out of range")

	// ErrUnknownGene is returned when a gene identifier maps to no accession.
	ErrUnknownGene = errors.New("gene identifier not recognized")

	// ErrNoExons is returned when no exon coordinates are known for a gene.
	ErrNoExons = errors.New("no exon coordinates found")
)

// SequenceProvider fetches reference-strand DNA for a 1-based inclusive region.
type SequenceProvider interface {
	FetchSequence(ctx context.Context, chrom string, start, end int64) (string, error)
}

// GeneResolver maps a gene identifier to its exon coordinates.
type GeneResolver interface {
	ResolveToAccession(ctx context.Context, geneID string) (string, error)
	FetchExonCoordinates(ctx context.Context, accession string) ([]ExonLocation, error)
}
