package genome

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// FASTAProvider serves sequences from a local reference FASTA file (plain or
// gzipped). A chromosome is read from the file the first time it is asked
// for; other records are skipped while streaming and never held in memory.
type FASTAProvider struct {
	path string

	mu        sync.Mutex
	sequences map[string]string   // normalized chromosome -> sequence
	absent    map[string]struct{} // chromosomes looked for and not found
}

// NewFASTAProvider creates a provider for the FASTA file at path.
func NewFASTAProvider(path string) *FASTAProvider {
	return &FASTAProvider{
		path:      path,
		sequences: make(map[string]string),
		absent:    make(map[string]struct{}),
	}
}

// Check verifies that the reference file can be opened.
func (p *FASTAProvider) Check() error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open FASTA file: %w", err)
	}
	return f.Close()
}

// FetchSequence returns bases start..end (1-based, inclusive) of chrom.
func (p *FASTAProvider) FetchSequence(ctx context.Context, chrom string, start, end int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	seq, ok, err := p.chromosome(ctx, normalizeChrom(chrom))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("chromosome %s not in %s: %w", chrom, p.path, ErrOutOfRangeCoordinate)
	}
	if start <= 0 || end < start || end > int64(len(seq)) {
		return "", fmt.Errorf("%s:%d..%d (length %d): %w", chrom, start, end, len(seq), ErrOutOfRangeCoordinate)
	}
	return seq[start-1 : end], nil
}

// chromosome returns the sequence of a normalized chromosome name, reading
// it from the file on first use.
func (p *FASTAProvider) chromosome(ctx context.Context, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq, ok := p.sequences[name]; ok {
		return seq, true, nil
	}
	if _, ok := p.absent[name]; ok {
		return "", false, nil
	}

	seq, found, err := p.readRecord(ctx, name)
	if err != nil {
		return "", false, err
	}
	if !found {
		p.absent[name] = struct{}{}
		return "", false, nil
	}
	p.sequences[name] = seq
	return seq, true, nil
}

func (p *FASTAProvider) readRecord(ctx context.Context, name string) (string, bool, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return "", false, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(p.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", false, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return scanRecord(ctx, reader, name)
}

// scanRecord streams FASTA content and returns the record whose normalized
// name matches. Ensembl headers look like
// ">1 dna:chromosome chromosome:GRCh38:1:1:248956422:1 REF"; the first word
// is the chromosome name. Scanning stops at the end of the matching record.
func scanRecord(ctx context.Context, reader io.Reader, name string) (string, bool, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		seq     strings.Builder
		inside  bool
		found   bool
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		if lineNum%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return "", false, err
			}
		}

		line := scanner.Bytes()
		if len(line) > 0 && line[0] == '>' {
			if inside {
				break
			}
			header := strings.Fields(string(line[1:]))
			inside = len(header) > 0 && normalizeChrom(header[0]) == name
			found = found || inside
			continue
		}
		if inside {
			seq.WriteString(strings.ToUpper(strings.TrimSpace(string(line))))
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("scan FASTA: %w", err)
	}
	return seq.String(), found, nil
}

// SequenceCount returns the number of chromosomes held in memory.
func (p *FASTAProvider) SequenceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sequences)
}

// normalizeChrom strips a leading "chr" so UCSC and Ensembl names match.
func normalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}
