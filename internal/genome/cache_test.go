package genome

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProvider(t *testing.T) {
	inner := newChromProvider(3000)
	c := NewCachedProvider(inner)
	ctx := context.Background()

	first, err := c.FetchSequence(ctx, "1", 100, 200)
	require.NoError(t, err)
	second, err := c.FetchSequence(ctx, "1", 100, 200)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.calls, 1)
	assert.Equal(t, 1, c.RegionCount())

	_, err = c.FetchSequence(ctx, "1", 100, 201)
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := newChromProvider(3000)
	c := NewCachedProvider(inner)

	_, err := c.FetchSequence(context.Background(), "1", 2900, 3100)
	assert.ErrorIs(t, err, ErrOutOfRangeCoordinate)
	assert.Zero(t, c.RegionCount())
}

func TestExonFileResolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exons.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"TESTGENE": [
			{"exon_id": "E1", "ensembl_gene_id": "ENSG0001", "chromosome": "1", "start": 100, "end": 300},
			{"exon_id": "E2", "ensembl_gene_id": "ENSG0001", "chromosome": "1", "start": 1000, "end": 2000}
		]
	}`), 0644))

	r, err := LoadExonFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	acc, err := r.ResolveToAccession(ctx, "TESTGENE")
	require.NoError(t, err)
	assert.Equal(t, "TESTGENE", acc)

	exons, err := r.FetchExonCoordinates(ctx, acc)
	require.NoError(t, err)
	require.Len(t, exons, 2)
	assert.Equal(t, int64(2000), exons[1].End)
	assert.Equal(t, "ENSG0001", exons[1].GeneID)

	_, err = r.ResolveToAccession(ctx, "OTHER")
	assert.ErrorIs(t, err, ErrUnknownGene)

	_, err = r.FetchExonCoordinates(ctx, "OTHER")
	assert.ErrorIs(t, err, ErrNoExons)
}

func TestLoadExonFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[not json`), 0644))

	_, err := LoadExonFile(path)
	assert.Error(t, err)

	_, err = LoadExonFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
