package guide

import (
	"fmt"
	"math"
	"sort"
)

// MaxRanked is the number of guides kept after ranking.
const MaxRanked = 20

// Select returns row (0-based) of a ranked set.
func Select(ranked []ScoredGuide, row int) (ScoredGuide, error) {
	if row < 0 || row >= len(ranked) {
		return ScoredGuide{}, fmt.Errorf("%w: row %d of %d", ErrRowNotFound, row, len(ranked))
	}
	return ranked[row], nil
}

// Better reports whether a ranks above b. Keys are compared in order:
// Hsu2013 (higher first), CFD max off-target (lower first), CFD specificity
// (higher first), Moreno-Mateos 2015 (higher first), Doench 2014 (higher
// first), distance (lower first).
func Better(a, b ScoredGuide) bool {
	switch {
	case a.Hsu2013 != b.Hsu2013:
		return a.Hsu2013 > b.Hsu2013
	case a.DoenchCFDMaxOT != b.DoenchCFDMaxOT:
		return a.DoenchCFDMaxOT < b.DoenchCFDMaxOT
	case a.DoenchCFDSpecScore != b.DoenchCFDSpecScore:
		return a.DoenchCFDSpecScore > b.DoenchCFDSpecScore
	case a.MorenoMateos2015 != b.MorenoMateos2015:
		return a.MorenoMateos2015 > b.MorenoMateos2015
	case a.Doench2014OnTarget != b.Doench2014OnTarget:
		return a.Doench2014OnTarget > b.Doench2014OnTarget
	}
	return a.Distance < b.Distance
}

// Rank sorts guides by score, keeps the best MaxRanked and presents them
// ordered by distance from the exon boundary. Both sorts are stable, so
// ties keep their input order. The input slice is not modified.
func Rank(guides []ScoredGuide) []ScoredGuide {
	ranked := make([]ScoredGuide, len(guides))
	copy(ranked, guides)

	sort.SliceStable(ranked, func(i, j int) bool {
		return Better(ranked[i], ranked[j])
	})
	if len(ranked) > MaxRanked {
		ranked = ranked[:MaxRanked]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked
}

// DisplayRow is a ranked guide as presented for selection. The Doench and
// Moreno-Mateos scores are percentages; every score is rounded to one
// decimal place.
type DisplayRow struct {
	Target             string
	Orientation        Strand
	Doench2014OnTarget float64
	DoenchCFDMaxOT     float64
	DoenchCFDSpecScore float64
	Hsu2013            float64
	MorenoMateos2015   float64
	Distance           int
}

// Display converts a ranked guide for presentation.
func Display(g ScoredGuide) DisplayRow {
	return DisplayRow{
		Target:             g.Target,
		Orientation:        g.Orientation,
		Doench2014OnTarget: round1(g.Doench2014OnTarget * 100),
		DoenchCFDMaxOT:     round1(g.DoenchCFDMaxOT * 100),
		DoenchCFDSpecScore: round1(g.DoenchCFDSpecScore * 100),
		Hsu2013:            round1(g.Hsu2013),
		MorenoMateos2015:   round1(g.MorenoMateos2015 * 100),
		Distance:           g.Distance,
	}
}

// DisplayAll converts every guide in order.
func DisplayAll(guides []ScoredGuide) []DisplayRow {
	rows := make([]DisplayRow, len(guides))
	for i, g := range guides {
		rows[i] = Display(g)
	}
	return rows
}

// round1 rounds half to even, matching the usual dataframe rounding.
func round1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}
