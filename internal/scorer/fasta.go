package scorer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// RecordName returns the FASTA record name used for a gene's search window.
func RecordName(gene string) string {
	return gene + "_whole"
}

// FASTAPath returns the path of the hand-off FASTA for gene in dir.
func FASTAPath(dir, gene string) string {
	return filepath.Join(dir, RecordName(gene)+".fa")
}

// WriteFASTA writes a single-record FASTA of seq for gene into dir and
// returns its path.
func WriteFASTA(dir, gene, seq string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	path := FASTAPath(dir, gene)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create FASTA file: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, ">%s\n%s\n", RecordName(gene), seq)
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("write FASTA file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close FASTA file: %w", err)
	}
	return path, nil
}
