package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-crispr/internal/genome"
)

// Download sources.
const (
	ensemblFTPBaseURL = "https://ftp.ensembl.org/pub"
	ensemblRelease    = "112"
	flashFryURL       = "https://github.com/mckennalab/FlashFry/releases/download/1.15/FlashFry-assembly-1.15.jar"
	gencodeBaseURL    = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeRelease    = "46"
)

// getReferenceURL returns the primary-assembly FASTA URL for the given assembly.
func getReferenceURL(assembly string) string {
	switch strings.ToUpper(assembly) {
	case "GRCH37":
		return fmt.Sprintf("%s/grch37/current/fasta/homo_sapiens/dna/Homo_sapiens.GRCh37.dna.primary_assembly.fa.gz", ensemblFTPBaseURL)
	default:
		return fmt.Sprintf("%s/release-%s/fasta/homo_sapiens/dna/Homo_sapiens.GRCh38.dna.primary_assembly.fa.gz", ensemblFTPBaseURL, ensemblRelease)
	}
}

// getGTFURL returns the GENCODE annotation URL for the given assembly.
func getGTFURL(assembly string) string {
	switch strings.ToUpper(assembly) {
	case "GRCH37":
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.v%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeRelease)
	default:
		return fmt.Sprintf("%s/gencode.v%s.annotation.gtf.gz", gencodeBaseURL, gencodeRelease)
	}
}

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		flashfry  bool
		gtf       bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a reference genome FASTA and optionally FlashFry",
		Long: `Download the Ensembl primary-assembly FASTA so designs can run without the
Ensembl REST API (design --reference auto). With --flashfry the FlashFry jar
is downloaded as well. With --gtf the GENCODE annotation and the Genome Nexus
canonical transcript list are downloaded for offline gene lookups
(design --gtf auto).`,
		Example: `  vibe-crispr download
  vibe-crispr download --assembly GRCh37
  vibe-crispr download --gtf --flashfry --output /data/vibe-crispr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), viper.GetString("assembly"), outputDir, flashfry, gtf)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.vibe-crispr/)")
	cmd.Flags().BoolVar(&flashfry, "flashfry", false, "Also download the FlashFry jar")
	cmd.Flags().BoolVar(&gtf, "gtf", false, "Also download the GENCODE GTF and canonical transcript list")

	return cmd
}

func runDownload(ctx context.Context, assembly, outputDir string, flashfry, gtf bool) error {
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		outputDir = filepath.Join(home, ".vibe-crispr")
	}

	destDir := filepath.Join(outputDir, strings.ToLower(assembly))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", destDir, err)
	}

	refURL := getReferenceURL(assembly)
	fmt.Printf("Downloading %s reference genome...\n", assembly)
	fmt.Printf("Destination: %s\n\n", destDir)

	if err := downloadFile(ctx, refURL, filepath.Join(destDir, filepath.Base(refURL))); err != nil {
		return fmt.Errorf("downloading reference: %w", err)
	}

	if gtf {
		gtfURL := getGTFURL(assembly)
		if err := downloadFile(ctx, gtfURL, filepath.Join(destDir, filepath.Base(gtfURL))); err != nil {
			return fmt.Errorf("downloading GTF: %w", err)
		}
		canonicalURL := genome.CanonicalFileURL(assembly)
		if err := downloadFile(ctx, canonicalURL, filepath.Join(destDir, filepath.Base(canonicalURL))); err != nil {
			return fmt.Errorf("downloading canonical transcripts: %w", err)
		}
	}

	if flashfry {
		jar := filepath.Join(outputDir, filepath.Base(flashFryURL))
		if err := downloadFile(ctx, flashFryURL, jar); err != nil {
			return fmt.Errorf("downloading FlashFry: %w", err)
		}
		fmt.Printf("\nPoint the scorer at it with:\n  vibe-crispr config set flashfry.jar %s\n", jar)
	}

	fmt.Printf("\nDownload complete!\n")
	fmt.Printf("To design against the local reference, run:\n")
	fmt.Printf("  vibe-crispr design --reference auto <gene>\n")
	return nil
}

// downloadFile streams url into destPath through a temporary file, reporting
// progress on stdout. Existing files are kept.
func downloadFile(ctx context.Context, url, destPath string) error {
	name := filepath.Base(destPath)
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", name, formatSize(info.Size()))
		return nil
	}
	fmt.Printf("  Downloading %s...\n", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{total: resp.ContentLength, every: time.Second}
	_, err = io.Copy(io.MultiWriter(f, pw), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpPath, destPath)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download %s: %w", name, err)
	}

	fmt.Printf("\r    Done: %s%s\n", formatSize(pw.written), strings.Repeat(" ", 24))
	return nil
}

// progressWriter counts bytes and prints a progress line at most once per interval.
type progressWriter struct {
	total   int64
	written int64
	every   time.Duration
	last    time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if time.Since(pw.last) < pw.every {
		return len(p), nil
	}
	pw.last = time.Now()
	if pw.total > 0 {
		fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
			formatSize(pw.written), formatSize(pw.total), 100*float64(pw.written)/float64(pw.total))
	} else {
		fmt.Printf("\r    Progress: %s  ", formatSize(pw.written))
	}
	return len(p), nil
}

// formatSize formats bytes with binary unit prefixes.
func formatSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}

// DefaultReferencePath returns the default directory for downloaded references.
func DefaultReferencePath(assembly string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vibe-crispr", strings.ToLower(assembly))
}

// FindReference looks for a downloaded reference FASTA in the default location.
func FindReference(assembly string) (string, bool) {
	dir := DefaultReferencePath(assembly)
	if dir == "" {
		return "", false
	}
	pattern := fmt.Sprintf("Homo_sapiens.%s.dna.primary_assembly.fa*", canonicalAssembly(assembly))
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", false
	}
	for _, m := range matches {
		if !strings.HasSuffix(m, ".tmp") {
			return m, true
		}
	}
	return "", false
}

// FindGTF looks for a downloaded GENCODE GTF and, next to it, the canonical
// transcript list. canonical is empty when the list was not downloaded.
func FindGTF(assembly string) (gtf, canonical string, found bool) {
	dir := DefaultReferencePath(assembly)
	if dir == "" {
		return "", "", false
	}
	gtf = filepath.Join(dir, filepath.Base(getGTFURL(assembly)))
	if _, err := os.Stat(gtf); err != nil {
		return "", "", false
	}
	canonical = filepath.Join(dir, filepath.Base(genome.CanonicalFileURL(assembly)))
	if _, err := os.Stat(canonical); err != nil {
		canonical = ""
	}
	return gtf, canonical, true
}

func canonicalAssembly(assembly string) string {
	if strings.EqualFold(assembly, "GRCh37") {
		return "GRCh37"
	}
	return "GRCh38"
}
