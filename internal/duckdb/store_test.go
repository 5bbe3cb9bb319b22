package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-crispr/internal/genome"
	"github.com/inodb/vibe-crispr/internal/guide"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun() *Run {
	return &Run{
		Gene: "TP53",
		Exon: genome.ExonLocation{
			ID: "ENSE00003625790", GeneID: "ENSG00000141510", Chromosome: "17",
			Start: 7669690, End: 7669609,
		},
		Orientation:   genome.Reverse,
		ExonSequence:  "ATGGAGGAGCCGCAGTCAGATCC",
		LocalSequence: "CCCCATGGAGGAGCCGCAGTCAGATCCTAGCGTCGAGCCCCC",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Guides: []guide.ScoredGuide{
			{
				Target: "GACTGACTGACTGACTGACTTGG", Orientation: guide.FWD, Contig: "TP53_whole",
				Start: 12, Stop: 35, Doench2014OnTarget: 0.51, DoenchCFDMaxOT: 0.13,
				DoenchCFDSpecScore: 0.87, Hsu2013: 91.2, MorenoMateos2015: 0.44, Distance: 3,
			},
			{
				Target: "GTTGTTGTTGTTGTTGTTGTAGG", Orientation: guide.RVS, Contig: "TP53_whole",
				Start: 40, Stop: 63, Doench2014OnTarget: 0.2, DoenchCFDMaxOT: 0.05,
				DoenchCFDSpecScore: 0.95, Hsu2013: 99, MorenoMateos2015: 0.61, Distance: 17,
			},
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openInMemory(t)
	run := testRun()
	require.NoError(t, s.SaveRun(run))

	got, err := s.LoadRun("TP53")
	require.NoError(t, err)

	assert.Equal(t, run.Exon, got.Exon)
	assert.Equal(t, genome.Reverse, got.Orientation)
	assert.Equal(t, run.ExonSequence, got.ExonSequence)
	assert.Equal(t, run.LocalSequence, got.LocalSequence)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Guides, got.Guides, "guides come back in rank order")
}

func TestSaveRun_Replaces(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.SaveRun(testRun()))

	second := testRun()
	second.Guides = second.Guides[1:]
	second.LocalSequence = "ACGT"
	require.NoError(t, s.SaveRun(second))

	got, err := s.LoadRun("TP53")
	require.NoError(t, err)
	assert.Equal(t, "ACGT", got.LocalSequence)
	require.Len(t, got.Guides, 1)
	assert.Equal(t, guide.RVS, got.Guides[0].Orientation)
}

func TestSaveRun_NoGuides(t *testing.T) {
	s := openInMemory(t)
	run := testRun()
	run.Guides = nil
	require.NoError(t, s.SaveRun(run))

	got, err := s.LoadRun("TP53")
	require.NoError(t, err)
	assert.Empty(t, got.Guides)
}

func TestLoadRun_NotFound(t *testing.T) {
	s := openInMemory(t)
	_, err := s.LoadRun("BRCA2")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListAndDeleteRuns(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.SaveRun(testRun()))

	other := testRun()
	other.Gene = "KRAS"
	other.Exon = genome.ExonLocation{ID: "E1", GeneID: "ENSG00000133703", Chromosome: "12", Start: 100, End: 200}
	other.Orientation = genome.Forward
	other.CreatedAt = other.CreatedAt.Add(time.Hour)
	require.NoError(t, s.SaveRun(other))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "KRAS", runs[0].Gene, "newest first")
	assert.Equal(t, "12:100-200", runs[0].Locus)
	assert.Equal(t, 2, runs[1].Guides)

	require.NoError(t, s.DeleteRun("KRAS"))
	runs, err = s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "TP53", runs[0].Gene)
}

func TestScoreTableFingerprint(t *testing.T) {
	s := openInMemory(t)
	path := filepath.Join(t.TempDir(), "TP53_whole.scored.tsv")
	require.NoError(t, os.WriteFile(path, []byte("target\torientation\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.True(t, fp.Matches())

	run := testRun()
	run.ScoreTable = fp
	require.NoError(t, s.SaveRun(run))

	got, err := s.LoadRun("TP53")
	require.NoError(t, err)
	assert.Equal(t, path, got.ScoreTable.Path)
	assert.Equal(t, fp.Size, got.ScoreTable.Size)
	assert.True(t, got.ScoreTable.Matches())

	require.NoError(t, os.WriteFile(path, []byte("changed contents\n"), 0644))
	assert.False(t, got.ScoreTable.Matches())

	assert.False(t, FileFingerprint{}.Matches())
}

func TestOpen_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(testRun()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadRun("TP53")
	require.NoError(t, err)
	assert.Len(t, got.Guides, 2)
}
