// Package pipeline runs a guide design for one gene: coordinate resolution,
// window extraction, scoring, distance annotation and ranking, followed on
// request by donor assembly for a chosen guide.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-crispr/internal/donor"
	"github.com/inodb/vibe-crispr/internal/duckdb"
	"github.com/inodb/vibe-crispr/internal/genome"
	"github.com/inodb/vibe-crispr/internal/guide"
	"github.com/inodb/vibe-crispr/internal/scorer"
	"github.com/inodb/vibe-crispr/internal/sequence"
)

// Stage names a step of the design pipeline.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageFetch    Stage = "fetch"
	StageScore    Stage = "score"
	StageParse    Stage = "parse"
	StageDistance Stage = "distance"
	StageAssemble Stage = "assemble"
)

// StageError reports which stage failed for which gene.
type StageError struct {
	Gene  string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Gene, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ProgressFunc receives coarse progress as a percentage and a short message.
type ProgressFunc func(percent int, message string)

// DesignResult carries everything ranking produced that donor assembly and
// reporting need.
type DesignResult struct {
	Gene         string
	Accession    string
	Exon         genome.ResolvedExon
	ExonSequence string // strand-corrected
	TrimmedExon  string // in frame
	AminoAcids   string // up to the first stop

	Local    genome.GenomicWindow
	Extended genome.GenomicWindow
	Primer   genome.GenomicWindow

	ScoreTable duckdb.FileFingerprint
	Guides     []guide.ScoredGuide // ranked, at most guide.MaxRanked
	Skipped    []guide.SkippedGuide
	BadRows    []*guide.RowError
}

// Display returns the ranked guides as presentation rows.
func (r *DesignResult) Display() []guide.DisplayRow {
	return guide.DisplayAll(r.Guides)
}

// Run converts the result into its persisted form.
func (r *DesignResult) Run() *duckdb.Run {
	return &duckdb.Run{
		Gene:          r.Gene,
		Exon:          r.Exon.Exon,
		Orientation:   r.Exon.Orientation,
		ExonSequence:  r.ExonSequence,
		LocalSequence: r.Local.Sequence,
		ScoreTable:    r.ScoreTable,
		Guides:        r.Guides,
	}
}

// Designer runs the design pipeline against its collaborators.
type Designer struct {
	resolver genome.GeneResolver
	provider genome.SequenceProvider
	scorer   scorer.Scorer
	workDir  string
	workers  int
	logger   *zap.Logger
	progress ProgressFunc
}

// NewDesigner creates a designer writing scorer hand-off files under workDir.
func NewDesigner(resolver genome.GeneResolver, provider genome.SequenceProvider, sc scorer.Scorer, workDir string) *Designer {
	return &Designer{
		resolver: resolver,
		provider: provider,
		scorer:   sc,
		workDir:  workDir,
		logger:   zap.NewNop(),
		progress: func(int, string) {},
	}
}

// SetLogger sets the logger for stage messages.
func (d *Designer) SetLogger(l *zap.Logger) {
	d.logger = l
}

// SetProgress sets the progress callback.
func (d *Designer) SetProgress(fn ProgressFunc) {
	if fn == nil {
		fn = func(int, string) {}
	}
	d.progress = fn
}

// SetWorkers sets the distance annotation worker count; 0 uses all CPUs.
func (d *Designer) SetWorkers(n int) {
	d.workers = n
}

// Design ranks guides for the terminal exon of gene.
func (d *Designer) Design(ctx context.Context, gene string) (*DesignResult, error) {
	log := d.logger.With(zap.String("gene", gene))
	fail := func(stage Stage, err error) (*DesignResult, error) {
		log.Error("design failed", zap.String("stage", string(stage)), zap.Error(err))
		return nil, &StageError{Gene: gene, Stage: stage, Err: err}
	}
	res := &DesignResult{Gene: gene}

	d.progress(10, "resolving gene")
	acc, err := d.resolver.ResolveToAccession(ctx, gene)
	if err != nil {
		return fail(StageResolve, err)
	}
	res.Accession = acc
	exons, err := d.resolver.FetchExonCoordinates(ctx, acc)
	if err != nil {
		return fail(StageResolve, err)
	}
	last, err := genome.LastExon(exons)
	if err != nil {
		return fail(StageResolve, err)
	}
	res.Exon = genome.Resolve(last)
	log.Info("resolved terminal exon",
		zap.String("accession", acc),
		zap.String("exon", last.ID),
		zap.String("locus", res.Exon.String()))

	d.progress(20, "fetching genomic sequence")
	exon, err := genome.ExtractExon(ctx, d.provider, res.Exon)
	if err != nil {
		return fail(StageFetch, err)
	}
	res.ExonSequence = exon.Sequence
	windows := []struct {
		policy genome.WindowPolicy
		dest   *genome.GenomicWindow
	}{
		{genome.LocalWindow, &res.Local},
		{genome.ExtendedWindow, &res.Extended},
		{genome.PrimerWindow, &res.Primer},
	}
	for _, w := range windows {
		if *w.dest, err = genome.ExtractWindow(ctx, d.provider, res.Exon, w.policy); err != nil {
			return fail(StageFetch, err)
		}
	}

	res.TrimmedExon, res.AminoAcids = sequence.NormalizeFrame(res.ExonSequence)
	log.Debug("normalized exon frame",
		zap.Int("exon_len", len(res.ExonSequence)),
		zap.String("protein", res.AminoAcids))

	d.progress(40, "writing search window")
	fasta, err := scorer.WriteFASTA(d.workDir, gene, res.Extended.Sequence)
	if err != nil {
		return fail(StageScore, err)
	}

	d.progress(50, "scoring guides")
	tablePath, err := d.scorer.Score(ctx, fasta)
	if err != nil {
		return fail(StageScore, err)
	}

	d.progress(70, "reading score table")
	table, err := guide.ReadScoreTable(tablePath)
	if err != nil {
		return fail(StageParse, err)
	}
	for _, re := range table.Skipped {
		log.Warn("skipping score table row", zap.Error(re))
	}
	res.BadRows = table.Skipped
	if fp, err := duckdb.StatFile(tablePath); err == nil {
		res.ScoreTable = fp
	}

	d.progress(80, "measuring distance from exon")
	ann := guide.NewAnnotator(res.Extended.Sequence, res.ExonSequence)
	ann.SetLogger(log)
	if err := ann.AnchorErr(); err != nil {
		log.Warn("exon anchor not in search window, no guide can be measured", zap.Error(err))
	}
	measured, skipped, err := ann.AnnotateAll(ctx, table.Guides, d.workers)
	if err != nil {
		return fail(StageDistance, err)
	}
	res.Skipped = skipped

	d.progress(90, "ranking guides")
	res.Guides = guide.Rank(measured)
	log.Info("ranked guides",
		zap.Int("scored", len(table.Guides)),
		zap.Int("measured", len(measured)),
		zap.Int("ranked", len(res.Guides)))

	d.progress(100, "done")
	return res, nil
}

// Assemble builds the donor fragments for g from a design result.
func Assemble(res *DesignResult, g guide.ScoredGuide) (*donor.AssembledDonor, error) {
	return assemble(res.Gene, g, res.Local.Sequence, res.ExonSequence)
}

// AssembleFromRun builds the donor fragments for g from a stored run.
func AssembleFromRun(run *duckdb.Run, g guide.ScoredGuide) (*donor.AssembledDonor, error) {
	return assemble(run.Gene, g, run.LocalSequence, run.ExonSequence)
}

// AssembleRow builds the donor fragments for ranked row (0-based) of a
// stored run. Rows outside the ranked set fail with guide.ErrRowNotFound.
func AssembleRow(run *duckdb.Run, row int) (guide.ScoredGuide, *donor.AssembledDonor, error) {
	g, err := guide.Select(run.Guides, row)
	if err != nil {
		return guide.ScoredGuide{}, nil, err
	}
	d, err := AssembleFromRun(run, g)
	if err != nil {
		return guide.ScoredGuide{}, nil, err
	}
	return g, d, nil
}

func assemble(gene string, g guide.ScoredGuide, local, exonSeq string) (*donor.AssembledDonor, error) {
	d, err := donor.Assemble(g, local, exonSeq)
	if err != nil {
		return nil, &StageError{Gene: gene, Stage: StageAssemble, Err: err}
	}
	return d, nil
}
