package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-crispr/internal/genome"
	"github.com/inodb/vibe-crispr/internal/guide"
)

// ErrRunNotFound is returned when no run is stored for a gene.
var ErrRunNotFound = errors.New("no stored run for gene")

// Run is the persisted context of one design: what donor assembly needs
// besides the chosen guide, plus the ranked guides themselves.
type Run struct {
	Gene          string
	Exon          genome.ExonLocation
	Orientation   genome.Orientation
	ExonSequence  string
	LocalSequence string
	ScoreTable    FileFingerprint
	CreatedAt     time.Time
	Guides        []guide.ScoredGuide // rank order
}

// RunSummary is a short listing entry for a stored run.
type RunSummary struct {
	Gene      string
	GeneID    string
	Locus     string
	Guides    int
	CreatedAt time.Time
}

// SaveRun stores run, replacing any earlier run for the same gene.
func (s *Store) SaveRun(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	// Deletes are committed before the insert: DuckDB rejects re-inserting
	// a deleted primary key within one transaction.
	if err := s.DeleteRun(run.Gene); err != nil {
		return err
	}

	var mtime any
	if !run.ScoreTable.ModTime.IsZero() {
		mtime = run.ScoreTable.ModTime
	}
	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Gene, run.Exon.GeneID, run.Exon.ID, run.Exon.Chromosome,
		run.Exon.Start, run.Exon.End, int64(run.Orientation),
		run.ExonSequence, run.LocalSequence,
		run.ScoreTable.Path, run.ScoreTable.Size, mtime,
		run.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return s.writeGuides(run.Gene, run.Guides)
}

// writeGuides batch-inserts ranked guides using the Appender API.
func (s *Store) writeGuides(gene string, guides []guide.ScoredGuide) error {
	if len(guides) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "guides")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, g := range guides {
		if err := appender.AppendRow(
			gene, int64(i), g.Target, string(g.Orientation),
			g.Contig, g.Start, g.Stop,
			g.Doench2014OnTarget, g.DoenchCFDMaxOT, g.DoenchCFDSpecScore,
			g.Hsu2013, g.MorenoMateos2015, int64(g.Distance),
		); err != nil {
			return fmt.Errorf("append guide: %w", err)
		}
	}

	return appender.Flush()
}

// LoadRun returns the stored run for gene with its guides in rank order.
func (s *Store) LoadRun(gene string) (*Run, error) {
	run := &Run{Gene: gene}
	var orientation int64
	var mtime sql.NullTime
	err := s.db.QueryRow(`SELECT
		gene_id, exon_id, chrom, exon_start, exon_end, orientation,
		exon_seq, local_seq, score_table, score_table_size, score_table_mtime,
		created_at
		FROM runs WHERE gene=?`, gene).Scan(
		&run.Exon.GeneID, &run.Exon.ID, &run.Exon.Chromosome,
		&run.Exon.Start, &run.Exon.End, &orientation,
		&run.ExonSequence, &run.LocalSequence,
		&run.ScoreTable.Path, &run.ScoreTable.Size, &mtime,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, gene)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	run.Orientation = genome.Orientation(orientation)
	if mtime.Valid {
		run.ScoreTable.ModTime = mtime.Time
	}

	run.Guides, err = s.loadGuides(gene)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadGuides(gene string) ([]guide.ScoredGuide, error) {
	rows, err := s.db.Query(`SELECT
		target, orientation, contig, start_pos, stop_pos,
		doench2014_on_target, cfd_max_ot, cfd_specificity,
		hsu2013, moreno_mateos2015, distance
		FROM guides WHERE gene=? ORDER BY rank`, gene)
	if err != nil {
		return nil, fmt.Errorf("query guides: %w", err)
	}
	defer rows.Close()

	var guides []guide.ScoredGuide
	for rows.Next() {
		var g guide.ScoredGuide
		var orientation string
		var distance int64
		if err := rows.Scan(
			&g.Target, &orientation, &g.Contig, &g.Start, &g.Stop,
			&g.Doench2014OnTarget, &g.DoenchCFDMaxOT, &g.DoenchCFDSpecScore,
			&g.Hsu2013, &g.MorenoMateos2015, &distance,
		); err != nil {
			return nil, fmt.Errorf("scan guide: %w", err)
		}
		g.Orientation = guide.Strand(orientation)
		g.Distance = int(distance)
		guides = append(guides, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guides: %w", err)
	}
	return guides, nil
}

// ListRuns returns a summary of every stored run, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT
		r.gene, r.gene_id, r.chrom, r.exon_start, r.exon_end, r.created_at,
		(SELECT count(*) FROM guides g WHERE g.gene = r.gene)
		FROM runs r ORDER BY r.created_at DESC, r.gene`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var chrom string
		var start, end, count int64
		if err := rows.Scan(&rs.Gene, &rs.GeneID, &chrom, &start, &end, &rs.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Locus = fmt.Sprintf("%s:%d-%d", chrom, start, end)
		rs.Guides = int(count)
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// DeleteRun removes the stored run for gene.
func (s *Store) DeleteRun(gene string) error {
	if _, err := s.db.Exec("DELETE FROM guides WHERE gene=?", gene); err != nil {
		return fmt.Errorf("delete guides: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE gene=?", gene); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
