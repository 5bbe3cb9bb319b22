package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inodb/vibe-crispr/internal/genome"
)

// RegionCache persists reference sequence fetched by a SequenceProvider, so a
// repeated design of the same gene does not hit the remote provider again.
// Regions are keyed by species, assembly, chromosome and 1-based inclusive
// bounds.
type RegionCache struct {
	store    *Store
	provider genome.SequenceProvider
	species  string
	assembly string
}

// RegionCache wraps p with a region cache stored in s.
func (s *Store) RegionCache(p genome.SequenceProvider, species, assembly string) *RegionCache {
	return &RegionCache{store: s, provider: p, species: species, assembly: assembly}
}

// FetchSequence returns the stored region or fetches and stores it.
// Failed fetches are not stored.
func (rc *RegionCache) FetchSequence(ctx context.Context, chrom string, start, end int64) (string, error) {
	var seq string
	err := rc.store.db.QueryRowContext(ctx,
		`SELECT seq FROM reference_regions
		WHERE species = ? AND assembly = ? AND chrom = ? AND start_pos = ? AND end_pos = ?`,
		rc.species, rc.assembly, chrom, start, end).Scan(&seq)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query region cache: %w", err)
	}

	seq, err = rc.provider.FetchSequence(ctx, chrom, start, end)
	if err != nil {
		return "", err
	}

	if _, err := rc.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reference_regions VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.species, rc.assembly, chrom, start, end, seq, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("store region: %w", err)
	}
	return seq, nil
}

// RegionCount returns the number of stored regions across all species and assemblies.
func (s *Store) RegionCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reference_regions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count regions: %w", err)
	}
	return n, nil
}

// ClearRegions removes every stored region.
func (s *Store) ClearRegions() error {
	if _, err := s.db.Exec(`DELETE FROM reference_regions`); err != nil {
		return fmt.Errorf("clear regions: %w", err)
	}
	return nil
}
