package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-crispr/internal/donor"
	"github.com/inodb/vibe-crispr/internal/duckdb"
	"github.com/inodb/vibe-crispr/internal/output"
	"github.com/inodb/vibe-crispr/internal/pipeline"
)

func newDonorCmd() *cobra.Command {
	var (
		row   int
		table string
	)

	cmd := &cobra.Command{
		Use:   "donor <gene>",
		Short: "Assemble donor fragments for a selected guide",
		Long: `Take the selected row of the gene's stored ranked guides, assemble the
Left-AI1 and Right-AI1 donor fragments and write {gene}_donor.txt.

Rows are numbered as printed by the design command. With --table the guide
is read from a ranked-guide CSV instead, for example an edited copy.`,
		Example: `  vibe-crispr donor TP53 --row 0
  vibe-crispr donor TP53 --table picked.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDonor(args[0], row, table)
		},
	}

	cmd.Flags().IntVar(&row, "row", 0, "Row of the ranked guides to use (0-based)")
	cmd.Flags().StringVar(&table, "table", "", "Read the guide from this ranked-guide CSV instead of the run store")

	return cmd
}

func runDonor(gene string, row int, table string) error {
	if row < 0 {
		return usageError{fmt.Errorf("--row must not be negative")}
	}

	store, err := duckdb.Open(viper.GetString("store"))
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LoadRun(gene)
	if errors.Is(err, duckdb.ErrRunNotFound) {
		return fmt.Errorf("%w; run: vibe-crispr design %s", err, gene)
	}
	if err != nil {
		return err
	}

	var (
		sel output.SelectedRow
		d   *donor.AssembledDonor
	)
	if table == "" {
		g, assembled, err := pipeline.AssembleRow(run, row)
		if err != nil {
			return err
		}
		sel, d = output.NewSelectedRow(g), assembled
	} else {
		if run.ScoreTable.Path != "" && !run.ScoreTable.Matches() {
			logger.Warn("score table changed since the run was stored",
				zap.String("gene", gene),
				zap.String("path", run.ScoreTable.Path))
		}
		picked, err := output.ReadSelectedRowFile(table, row)
		if err != nil {
			return err
		}
		if d, err = pipeline.AssembleFromRun(run, picked.Guide()); err != nil {
			return err
		}
		sel = *picked
	}

	reportPath := output.DonorReportPath(viper.GetString("workdir"), gene)
	if err := output.WriteDonorReportFile(reportPath, gene, sel, d); err != nil {
		return err
	}
	if err := output.WriteDonorReport(os.Stdout, gene, sel, d); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Donor report written to %s\n", reportPath)
	return nil
}
