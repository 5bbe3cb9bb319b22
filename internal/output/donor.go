package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/inodb/vibe-crispr/internal/donor"
)

// DonorReportPath returns the donor report path for gene in dir.
func DonorReportPath(dir, gene string) string {
	return filepath.Join(dir, gene+"_donor.txt")
}

// WriteDonorReport writes the selected guide, both donor fragments and the
// homology arms.
func WriteDonorReport(w io.Writer, gene string, sel SelectedRow, d *donor.AssembledDonor) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Target: %s\n", sel.Target)
	fmt.Fprintf(bw, "Orientation: %s\n", sel.Orientation)
	fmt.Fprintf(bw, "Distance from Exon: %s\n", sel.Distance)
	fmt.Fprintf(bw, ">>%s-Left-AI1\n%s\n\n", gene, d.LeftFragment)
	fmt.Fprintf(bw, ">>%s-Right-AI1\n%s\n\n", gene, d.RightFragment)
	fmt.Fprintf(bw, "Left_arm sequence:\n%s\n", d.LeftArm)
	fmt.Fprintf(bw, "Right_arm sequence:\n%s\n", d.RightArm)
	return bw.Flush()
}

// WriteDonorReportFile writes the donor report to path.
func WriteDonorReportFile(path, gene string, sel SelectedRow, d *donor.AssembledDonor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create donor report: %w", err)
	}
	if err := WriteDonorReport(f, gene, sel, d); err != nil {
		f.Close()
		return fmt.Errorf("write donor report: %w", err)
	}
	return f.Close()
}
