package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"design", "donor", "runs", "download", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestParseConfigValue(t *testing.T) {
	v, err := parseConfigValue("workers", "8")
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	v, err = parseConfigValue("uniprot.poll_interval", "1500ms")
	require.NoError(t, err)
	assert.Equal(t, "1.5s", v)

	v, err = parseConfigValue("assembly", "grch37")
	require.NoError(t, err)
	assert.Equal(t, "grch37", v)

	var usage usageError
	for _, tt := range []struct{ key, value string }{
		{"workers", "-1"},
		{"workers", "many"},
		{"uniprot.poll_interval", "soon"},
		{"assembly", "hg19"},
		{"no.such.key", "x"},
	} {
		_, err := parseConfigValue(tt.key, tt.value)
		assert.True(t, errors.As(err, &usage), "%s=%s", tt.key, tt.value)
	}
}

func TestGetReferenceURL(t *testing.T) {
	assert.Contains(t, getReferenceURL("GRCh38"), "/release-112/")
	assert.Contains(t, getReferenceURL("GRCh38"), "Homo_sapiens.GRCh38.dna.primary_assembly.fa.gz")
	assert.Contains(t, getReferenceURL("grch37"), "/grch37/current/")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "3.0 GB", formatSize(3<<30))
}

func TestFindReference(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, found := FindReference("GRCh38")
	assert.False(t, found)

	dir := filepath.Join(home, ".vibe-crispr", "grch38")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Homo_sapiens.GRCh38.dna.primary_assembly.fa.gz.tmp"), nil, 0644))
	_, found = FindReference("GRCh38")
	assert.False(t, found, "partial downloads are ignored")

	ref := filepath.Join(dir, "Homo_sapiens.GRCh38.dna.primary_assembly.fa.gz")
	require.NoError(t, os.WriteFile(ref, nil, 0644))
	path, found := FindReference("GRCh38")
	assert.True(t, found)
	assert.Equal(t, ref, path)
}

func TestGetGTFURL(t *testing.T) {
	assert.Equal(t, "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46/gencode.v46.annotation.gtf.gz", getGTFURL("GRCh38"))
	assert.Contains(t, getGTFURL("grch37"), "/GRCh37_mapping/gencode.v46lift37.annotation.gtf.gz")
}

func TestFindGTF(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, _, found := FindGTF("GRCh38")
	assert.False(t, found)

	dir := filepath.Join(home, ".vibe-crispr", "grch38")
	require.NoError(t, os.MkdirAll(dir, 0755))
	gtf := filepath.Join(dir, "gencode.v46.annotation.gtf.gz")
	require.NoError(t, os.WriteFile(gtf, nil, 0644))

	path, canonical, found := FindGTF("GRCh38")
	assert.True(t, found)
	assert.Equal(t, gtf, path)
	assert.Empty(t, canonical)

	list := filepath.Join(dir, "ensembl_biomart_canonical_transcripts_per_hgnc.txt")
	require.NoError(t, os.WriteFile(list, nil, 0644))
	_, canonical, _ = FindGTF("GRCh38")
	assert.Equal(t, list, canonical)
}

func TestNewGeneResolver_GTF(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var usage usageError
	_, err := newGeneResolver("exons.json", "annotation.gtf", "", "GRCh38")
	assert.True(t, errors.As(err, &usage), "--exons and --gtf together")

	_, err = newGeneResolver("", "auto", "", "GRCh38")
	assert.True(t, errors.As(err, &usage), "auto without a download")

	dir := filepath.Join(home, ".vibe-crispr", "grch38")
	require.NoError(t, os.MkdirAll(dir, 0755))
	gtf := `chr1	HAVANA	transcript	100	200	.	+	.	gene_id "ENSGA.1"; gene_name "GENEA"; transcript_id "ENST1.1";
chr1	HAVANA	CDS	100	200	.	+	.	gene_id "ENSGA.1"; gene_name "GENEA"; transcript_id "ENST1.1"; exon_number 1; exon_id "ENSE1.1";
chr1	HAVANA	transcript	100	150	.	+	.	gene_id "ENSGA.1"; gene_name "GENEA"; transcript_id "ENST2.1";
chr1	HAVANA	CDS	100	150	.	+	.	gene_id "ENSGA.1"; gene_name "GENEA"; transcript_id "ENST2.1"; exon_number 1; exon_id "ENSE2.1";
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gencode.v46.annotation.gtf"), []byte(gtf), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gencode.v46.annotation.gtf.gz"), nil, 0644))
	canonical := "hgnc_symbol\ta\tb\tc\tgenome_nexus_canonical_transcript\nGENEA\tx\tx\tx\tENST2.1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ensembl_biomart_canonical_transcripts_per_hgnc.txt"), []byte(canonical), 0644))

	r, err := newGeneResolver("", filepath.Join(dir, "gencode.v46.annotation.gtf"), "", "GRCh38")
	require.NoError(t, err)
	acc, err := r.ResolveToAccession(context.Background(), "GENEA")
	require.NoError(t, err)
	assert.Equal(t, "ENST1", acc, "longest CDS without overrides")

	r, err = newGeneResolver("", filepath.Join(dir, "gencode.v46.annotation.gtf"),
		filepath.Join(dir, "ensembl_biomart_canonical_transcripts_per_hgnc.txt"), "GRCh38")
	require.NoError(t, err)
	acc, err = r.ResolveToAccession(context.Background(), "GENEA")
	require.NoError(t, err)
	assert.Equal(t, "ENST2", acc, "canonical list overrides")

	_, err = newGeneResolver("", filepath.Join(dir, "missing.gtf"), "", "GRCh38")
	assert.Error(t, err)

	_, err = newGeneResolver("", "auto", "", "GRCh38")
	require.NoError(t, err, "auto finds the downloaded GTF and list")
}
