// Package output writes ranked guide tables and donor reports, and reads a
// selected guide back from a ranked table.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inodb/vibe-crispr/internal/guide"
)

// ErrRowNotFound is returned when a selected row index is outside the table.
var ErrRowNotFound = guide.ErrRowNotFound

// GuideTablePath returns the ranked-guide table path for gene in dir.
func GuideTablePath(dir, gene string) string {
	return filepath.Join(dir, gene+"_CRISPR_tgts.csv")
}

// GuideWriter writes ranked guides as comma-separated display rows.
type GuideWriter struct {
	w       *csv.Writer
	columns []string
}

// NewGuideWriter creates a ranked-guide table writer.
func NewGuideWriter(w io.Writer) *GuideWriter {
	return &GuideWriter{
		w:       csv.NewWriter(w),
		columns: guide.OutputColumns,
	}
}

// WriteHeader writes the header line.
func (gw *GuideWriter) WriteHeader() error {
	return gw.w.Write(gw.columns)
}

// Write writes a single display row.
func (gw *GuideWriter) Write(r guide.DisplayRow) error {
	return gw.w.Write([]string{
		r.Target,
		string(r.Orientation),
		formatScore(r.Doench2014OnTarget),
		formatScore(r.DoenchCFDMaxOT),
		formatScore(r.DoenchCFDSpecScore),
		formatScore(r.Hsu2013),
		formatScore(r.MorenoMateos2015),
		strconv.Itoa(r.Distance),
	})
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GuideWriter) Flush() error {
	gw.w.Flush()
	return gw.w.Error()
}

// WriteGuideTable writes a header and every row to path.
func WriteGuideTable(path string, rows []guide.DisplayRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create guide table: %w", err)
	}

	gw := NewGuideWriter(f)
	if err := gw.WriteHeader(); err != nil {
		f.Close()
		return fmt.Errorf("write guide table header: %w", err)
	}
	for _, r := range rows {
		if err := gw.Write(r); err != nil {
			f.Close()
			return fmt.Errorf("write guide %s: %w", r.Target, err)
		}
	}
	if err := gw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush guide table: %w", err)
	}
	return f.Close()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// SelectedRow is the part of a ranked-guide row that donor assembly needs.
type SelectedRow struct {
	Target      string
	Orientation guide.Strand
	Distance    string
}

// NewSelectedRow describes a ranked guide for the donor report.
func NewSelectedRow(g guide.ScoredGuide) SelectedRow {
	return SelectedRow{
		Target:      g.Target,
		Orientation: g.Orientation,
		Distance:    strconv.Itoa(g.Distance),
	}
}

// Guide returns the row as a scored guide for assembly.
func (s SelectedRow) Guide() guide.ScoredGuide {
	return guide.ScoredGuide{Target: s.Target, Orientation: s.Orientation}
}

// selectedColumns must be present to read a selected row.
var selectedColumns = []string{guide.ColTarget, guide.ColOrientation, guide.ColDistance}

// ReadSelectedRow reads data row index (0-based) of a ranked-guide table.
// The table must carry target, orientation and distance columns; other
// columns are ignored.
func ReadSelectedRow(r io.Reader, index int) (*SelectedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &guide.SchemaError{Source: "selected row", Missing: selectedColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range selectedColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &guide.SchemaError{Source: "selected row", Missing: missing}
	}

	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: row %d of %d", ErrRowNotFound, index, i)
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		if i != index {
			continue
		}

		get := func(col string) string {
			if j := idx[col]; j < len(rec) {
				return strings.TrimSpace(rec[j])
			}
			return ""
		}
		strand, err := guide.ParseStrand(get(guide.ColOrientation))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", index, err)
		}
		return &SelectedRow{
			Target:      strings.ToUpper(get(guide.ColTarget)),
			Orientation: strand,
			Distance:    get(guide.ColDistance),
		}, nil
	}
}

// ReadSelectedRowFile reads data row index of the table at path.
func ReadSelectedRowFile(path string, index int) (*SelectedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open guide table: %w", err)
	}
	defer f.Close()
	return ReadSelectedRow(f, index)
}
