package guide

import (
	"context"

	"go.uber.org/zap"
)

// Annotator fills in the exon-boundary distance of scored guides against a
// single search window.
type Annotator struct {
	window     string
	tag        string
	lastLetter int
	anchorErr  error
	logger     *zap.Logger
}

// NewAnnotator locates the exon anchor in window once. When the anchor is
// absent every guide fails with ErrAnchorNotFound; see AnchorErr.
func NewAnnotator(window, exonSeq string) *Annotator {
	tag := AnchorTag(exonSeq)
	last, err := LastLetter(window, tag)
	return &Annotator{
		window:     window,
		tag:        tag,
		lastLetter: last,
		anchorErr:  err,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for skipped-guide warnings.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// AnchorTag returns the exon tag used to find the boundary.
func (a *Annotator) AnchorTag() string {
	return a.tag
}

// LastLetter returns the window index of the exon's final base.
func (a *Annotator) LastLetter() int {
	return a.lastLetter
}

// AnchorErr returns the error from locating the anchor, nil if it was found.
func (a *Annotator) AnchorErr() error {
	return a.anchorErr
}

// Annotate returns a copy of g with Distance set.
func (a *Annotator) Annotate(g ScoredGuide) (ScoredGuide, error) {
	if a.anchorErr != nil {
		return g, a.anchorErr
	}
	d, err := SignedDistance(a.window, a.lastLetter, g)
	if err != nil {
		return g, err
	}
	g.Distance = abs(d)
	return g, nil
}

// SkippedGuide records a guide left out of ranking and why.
type SkippedGuide struct {
	Guide ScoredGuide
	Err   error
}

// AnnotateAll measures every guide using the worker pool. Guides that cannot
// be measured are skipped and logged; the rest keep their input order.
// Cancelling ctx stops the batch and returns ctx.Err().
func (a *Annotator) AnnotateAll(ctx context.Context, guides []ScoredGuide, workers int) ([]ScoredGuide, []SkippedGuide, error) {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, g := range guides {
			select {
			case items <- WorkItem{Seq: i, Guide: g}:
			case <-ctx.Done():
				return
			}
		}
	}()

	annotated := make([]ScoredGuide, 0, len(guides))
	var skipped []SkippedGuide
	err := OrderedCollect(a.ParallelAnnotate(items, workers), func(r WorkResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Err != nil {
			a.logger.Warn("skipping guide",
				zap.String("target", r.Guide.Target),
				zap.String("orientation", string(r.Guide.Orientation)),
				zap.Error(r.Err))
			skipped = append(skipped, SkippedGuide{Guide: r.Guide, Err: r.Err})
			return nil
		}
		annotated = append(annotated, r.Guide)
		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, nil, err
	}
	return annotated, skipped, nil
}
