package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-crispr/internal/duckdb"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored design runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <gene>",
		Short: "Delete the stored run for a gene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(viper.GetString("store"))
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteRun(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run for %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-regions",
		Short: "Drop reference regions cached from Ensembl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(viper.GetString("store"))
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.RegionCount()
			if err != nil {
				return err
			}
			if err := store.ClearRegions(); err != nil {
				return err
			}
			fmt.Printf("Cleared %d cached regions\n", n)
			return nil
		},
	})

	return cmd
}

func runRunsList() error {
	store, err := duckdb.Open(viper.GetString("store"))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("# No stored runs in %s\n", store.Path())
		return nil
	}
	fmt.Printf("%-12s %-18s %-28s %6s  %s\n", "gene", "gene_id", "locus", "guides", "created")
	for _, r := range runs {
		fmt.Printf("%-12s %-18s %-28s %6d  %s\n",
			r.Gene, r.GeneID, r.Locus, r.Guides, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
