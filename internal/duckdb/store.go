// Package duckdb persists design runs so guide selection and donor assembly
// can happen in a later invocation than guide ranking.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding design runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		gene VARCHAR PRIMARY KEY,
		gene_id VARCHAR,
		exon_id VARCHAR,
		chrom VARCHAR,
		exon_start BIGINT,
		exon_end BIGINT,
		orientation BIGINT,
		exon_seq VARCHAR,
		local_seq VARCHAR,
		score_table VARCHAR,
		score_table_size BIGINT,
		score_table_mtime TIMESTAMP,
		created_at TIMESTAMP
	)`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS guides (
		gene VARCHAR,
		rank BIGINT,
		target VARCHAR,
		orientation VARCHAR,
		contig VARCHAR,
		start_pos BIGINT,
		stop_pos BIGINT,
		doench2014_on_target DOUBLE,
		cfd_max_ot DOUBLE,
		cfd_specificity DOUBLE,
		hsu2013 DOUBLE,
		moreno_mateos2015 DOUBLE,
		distance BIGINT,
		PRIMARY KEY (gene, rank)
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS reference_regions (
		species VARCHAR,
		assembly VARCHAR,
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT,
		seq VARCHAR,
		fetched_at TIMESTAMP,
		PRIMARY KEY (species, assembly, chrom, start_pos, end_pos)
	)`)
	return err
}
