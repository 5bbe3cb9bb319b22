package guide

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// columnIndices holds the positions of the score-table columns, -1 if absent.
type columnIndices struct {
	Contig         int
	Start          int
	Stop           int
	Target         int
	Context        int
	Orientation    int
	DoenchOnTarget int
	CFDMaxOT       int
	CFDSpecificity int
	Hsu2013        int
	MorenoMateos   int
}

// Parser reads scored guides from a FlashFry tab-separated score table.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	source     string
	lineNumber int
	columns    columnIndices
	nColumns   int
}

// NewParser opens a score table. Plain and gzipped files are supported.
// A missing or empty file yields ErrMissingScoreTable.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingScoreTable, path)
		}
		return nil, fmt.Errorf("open score table: %w", err)
	}

	p := &Parser{file: file, source: path}

	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && n == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrMissingScoreTable, path)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek score table: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser over an already-open table.
func NewParserFromReader(r io.Reader, source string) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r), source: source}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader finds the header line, skipping blank and '#' lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return fmt.Errorf("%w: %s has no header", ErrMissingScoreTable, p.source)
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseColumnIndices(line)
	}
}

func (p *Parser) parseColumnIndices(header string) error {
	p.columns = columnIndices{
		Contig: -1, Start: -1, Stop: -1, Target: -1, Context: -1, Orientation: -1,
		DoenchOnTarget: -1, CFDMaxOT: -1, CFDSpecificity: -1, Hsu2013: -1, MorenoMateos: -1,
	}

	fields := strings.Split(header, "\t")
	p.nColumns = len(fields)
	for i, name := range fields {
		switch strings.TrimSpace(name) {
		case ColContig:
			p.columns.Contig = i
		case ColStart:
			p.columns.Start = i
		case ColStop:
			p.columns.Stop = i
		case ColTarget:
			p.columns.Target = i
		case ColContext:
			p.columns.Context = i
		case ColOrientation:
			p.columns.Orientation = i
		case ColDoenchOnTarget:
			p.columns.DoenchOnTarget = i
		case ColCFDMaxOT:
			p.columns.CFDMaxOT = i
		case ColCFDSpecificity:
			p.columns.CFDSpecificity = i
		case ColHsu2013:
			p.columns.Hsu2013 = i
		case ColMorenoMateos:
			p.columns.MorenoMateos = i
		}
	}

	present := map[string]int{
		ColTarget:         p.columns.Target,
		ColOrientation:    p.columns.Orientation,
		ColDoenchOnTarget: p.columns.DoenchOnTarget,
		ColCFDMaxOT:       p.columns.CFDMaxOT,
		ColCFDSpecificity: p.columns.CFDSpecificity,
		ColHsu2013:        p.columns.Hsu2013,
		ColMorenoMateos:   p.columns.MorenoMateos,
	}
	var missing []string
	for _, col := range RequiredColumns {
		if present[col.Name] < 0 {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: p.source, Missing: missing}
	}
	return nil
}

// Next returns the next guide. A row that cannot be parsed is reported as a
// *RowError and the caller may keep reading. Returns nil, io.EOF at the end.
func (p *Parser) Next() (*ScoredGuide, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line %d: %w", p.lineNumber+1, err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseRow(line)
	}
}

func (p *Parser) parseRow(line string) (*ScoredGuide, error) {
	fields := strings.Split(line, "\t")
	get := func(idx int) string {
		if idx >= 0 && idx < len(fields) {
			return strings.TrimSpace(fields[idx])
		}
		return ""
	}

	g := &ScoredGuide{
		Contig:  get(p.columns.Contig),
		Target:  strings.ToUpper(get(p.columns.Target)),
		Context: get(p.columns.Context),
		Line:    p.lineNumber,
	}
	rowErr := func(err error) (*ScoredGuide, error) {
		return nil, &RowError{Line: p.lineNumber, Target: g.Target, Err: err}
	}

	if g.Target == "" {
		return rowErr(errors.New("empty target"))
	}
	strand, err := ParseStrand(get(p.columns.Orientation))
	if err != nil {
		return rowErr(err)
	}
	g.Orientation = strand

	scores := []struct {
		col  string
		idx  int
		dest *float64
	}{
		{ColDoenchOnTarget, p.columns.DoenchOnTarget, &g.Doench2014OnTarget},
		{ColCFDMaxOT, p.columns.CFDMaxOT, &g.DoenchCFDMaxOT},
		{ColCFDSpecificity, p.columns.CFDSpecificity, &g.DoenchCFDSpecScore},
		{ColHsu2013, p.columns.Hsu2013, &g.Hsu2013},
		{ColMorenoMateos, p.columns.MorenoMateos, &g.MorenoMateos2015},
	}
	for _, s := range scores {
		v, err := parseScore(get(s.idx))
		if err != nil {
			return rowErr(fmt.Errorf("%s: %w", s.col, err))
		}
		*s.dest = v
	}

	if v := get(p.columns.Start); v != "" {
		if g.Start, err = strconv.ParseInt(v, 10, 64); err != nil {
			return rowErr(fmt.Errorf("%s: %w", ColStart, err))
		}
	}
	if v := get(p.columns.Stop); v != "" {
		if g.Stop, err = strconv.ParseInt(v, 10, 64); err != nil {
			return rowErr(fmt.Errorf("%s: %w", ColStop, err))
		}
	}
	return g, nil
}

func parseScore(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty score")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid score %q", s)
	}
	return v, nil
}

// LineNumber returns the current line number.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close releases the underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ScoreTable is a fully read score table.
type ScoreTable struct {
	Guides  []ScoredGuide
	Skipped []*RowError
}

// ReadScoreTable reads every row of a score table. Unparsable rows are
// collected in Skipped rather than failing the read.
func ReadScoreTable(path string) (*ScoreTable, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return readAll(p)
}

func readAll(p *Parser) (*ScoreTable, error) {
	t := &ScoreTable{}
	for {
		g, err := p.Next()
		if err == io.EOF {
			return t, nil
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			t.Skipped = append(t.Skipped, rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}
		t.Guides = append(t.Guides, *g)
	}
}
