package genome

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// GTFResolver resolves genes offline from a GENCODE GTF file. A gene symbol
// or Ensembl gene ID resolves to the gene's canonical coding transcript, and
// that transcript's coding exons are reported the way the EBI coordinates
// service reports them: minus-strand exons have End < Start.
//
// The file is streamed once per lookup and only the requested gene's
// features are kept.
type GTFResolver struct {
	path      string
	overrides CanonicalOverrides
	logger    *zap.Logger

	mu       sync.Mutex
	resolved map[string]*gtfTranscript // transcript ID -> transcript
}

// NewGTFResolver creates a resolver for the GTF file at path (plain or gzipped).
func NewGTFResolver(path string) *GTFResolver {
	return &GTFResolver{
		path:     path,
		logger:   zap.NewNop(),
		resolved: make(map[string]*gtfTranscript),
	}
}

// SetCanonicalOverrides sets gene symbol -> transcript overrides that take
// precedence over the GTF's own canonical tags.
func (r *GTFResolver) SetCanonicalOverrides(o CanonicalOverrides) {
	r.overrides = o
}

// SetLogger sets the logger for transcript selection messages.
func (r *GTFResolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

type gtfCDS struct {
	exonID     string
	exonNumber int
	start, end int64
}

type gtfTranscript struct {
	id     string
	geneID string
	chrom  string
	strand int8
	tags   []string
	cds    []gtfCDS
}

func (t *gtfTranscript) hasTag(tag string) bool {
	return slices.Contains(t.tags, tag)
}

func (t *gtfTranscript) cdsLength() int64 {
	var n int64
	for _, c := range t.cds {
		n += c.end - c.start + 1
	}
	return n
}

// ResolveToAccession returns the canonical coding transcript ID of geneID.
func (r *GTFResolver) ResolveToAccession(ctx context.Context, geneID string) (string, error) {
	transcripts, err := r.scan(ctx, func(attrs map[string]string) bool {
		return attrs["gene_name"] == geneID || stripVersion(attrs["gene_id"]) == geneID
	})
	if err != nil {
		return "", err
	}
	if len(transcripts) == 0 {
		return "", fmt.Errorf("gene %s not in %s: %w", geneID, r.path, ErrUnknownGene)
	}

	t, reason := r.canonical(geneID, transcripts)
	if t == nil {
		return "", fmt.Errorf("gene %s has no coding transcript: %w", geneID, ErrNoExons)
	}
	r.logger.Debug("selected transcript",
		zap.String("gene", geneID),
		zap.String("transcript", t.id),
		zap.String("reason", reason))

	r.mu.Lock()
	r.resolved[t.id] = t
	r.mu.Unlock()
	return t.id, nil
}

// FetchExonCoordinates returns the coding exons of transcript accession in
// transcript order.
func (r *GTFResolver) FetchExonCoordinates(ctx context.Context, accession string) ([]ExonLocation, error) {
	id := stripVersion(accession)

	r.mu.Lock()
	t, ok := r.resolved[id]
	r.mu.Unlock()
	if !ok {
		transcripts, err := r.scan(ctx, func(attrs map[string]string) bool {
			return stripVersion(attrs["transcript_id"]) == id
		})
		if err != nil {
			return nil, err
		}
		t = transcripts[id]
	}
	if t == nil || len(t.cds) == 0 {
		return nil, fmt.Errorf("transcript %s: %w", accession, ErrNoExons)
	}

	cds := slices.Clone(t.cds)
	sort.SliceStable(cds, func(i, j int) bool {
		if cds[i].exonNumber != cds[j].exonNumber {
			return cds[i].exonNumber < cds[j].exonNumber
		}
		return cds[i].start < cds[j].start
	})

	exons := make([]ExonLocation, len(cds))
	for i, c := range cds {
		e := ExonLocation{
			ID:         c.exonID,
			GeneID:     t.geneID,
			Chromosome: t.chrom,
			Start:      c.start,
			End:        c.end,
		}
		if t.strand < 0 {
			e.Start, e.End = c.end, c.start
		}
		exons[i] = e
	}
	return exons, nil
}

// canonical picks the transcript to design against: an override for the
// gene, then Ensembl_canonical, then MANE_Select, then the longest CDS.
// Transcripts without CDS are never picked.
func (r *GTFResolver) canonical(geneID string, transcripts map[string]*gtfTranscript) (*gtfTranscript, string) {
	var coding []*gtfTranscript
	for _, t := range transcripts {
		if len(t.cds) > 0 {
			coding = append(coding, t)
		}
	}
	if len(coding) == 0 {
		return nil, ""
	}
	sort.Slice(coding, func(i, j int) bool { return coding[i].id < coding[j].id })

	if id, ok := r.overrides[geneID]; ok {
		for _, t := range coding {
			if t.id == id {
				return t, "override"
			}
		}
	}
	for _, tag := range []string{"Ensembl_canonical", "MANE_Select"} {
		for _, t := range coding {
			if t.hasTag(tag) {
				return t, tag
			}
		}
	}
	longest := coding[0]
	for _, t := range coding[1:] {
		if t.cdsLength() > longest.cdsLength() {
			longest = t
		}
	}
	return longest, "longest CDS"
}

// scan streams the GTF and returns transcripts whose attributes satisfy
// match, with their CDS features.
func (r *GTFResolver) scan(ctx context.Context, match func(map[string]string) bool) (map[string]*gtfTranscript, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(r.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return parseGTF(ctx, reader, match)
}

func parseGTF(ctx context.Context, reader io.Reader, match func(map[string]string) bool) (map[string]*gtfTranscript, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	transcripts := make(map[string]*gtfTranscript)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 9 || (fields[2] != "transcript" && fields[2] != "CDS") {
			continue
		}
		attrs, tags := parseAttributes(fields[8])
		if !match(attrs) {
			continue
		}
		id := stripVersion(attrs["transcript_id"])
		if id == "" {
			continue
		}
		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}

		t, ok := transcripts[id]
		if !ok {
			t = &gtfTranscript{
				id:     id,
				geneID: stripVersion(attrs["gene_id"]),
				chrom:  normalizeChrom(fields[0]),
				strand: parseStrand(fields[6]),
			}
			transcripts[id] = t
		}
		switch fields[2] {
		case "transcript":
			t.tags = tags
		case "CDS":
			n, _ := strconv.Atoi(attrs["exon_number"])
			t.cds = append(t.cds, gtfCDS{
				exonID:     stripVersion(attrs["exon_id"]),
				exonNumber: n,
				start:      start,
				end:        end,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return transcripts, nil
}

// parseAttributes parses a GTF attribute column of the form
// `key "value"; key "value";`. Repeated tag attributes are returned
// separately since a transcript can carry several.
func parseAttributes(attrStr string) (map[string]string, []string) {
	attrs := make(map[string]string)
	var tags []string
	for _, part := range strings.Split(attrStr, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if key == "tag" {
			tags = append(tags, value)
			continue
		}
		attrs[key] = value
	}
	return attrs, tags
}

func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// stripVersion removes the version suffix from an Ensembl ID,
// e.g. "ENST00000456328.2" -> "ENST00000456328".
func stripVersion(id string) string {
	if i := strings.LastIndex(id, "."); i != -1 {
		return id[:i]
	}
	return id
}
