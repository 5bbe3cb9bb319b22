package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-crispr/internal/duckdb"
	"github.com/inodb/vibe-crispr/internal/genome"
	"github.com/inodb/vibe-crispr/internal/output"
	"github.com/inodb/vibe-crispr/internal/pipeline"
	"github.com/inodb/vibe-crispr/internal/scorer"
)

func newDesignCmd() *cobra.Command {
	var (
		reference string
		exonFile  string
		noStore   bool
	)

	cmd := &cobra.Command{
		Use:   "design <gene>",
		Short: "Rank guide candidates around a gene's terminal exon",
		Long: `Resolve the gene's last exon, extract the surrounding genomic windows, score
candidate guides with FlashFry and rank them. The top guides are written to
{gene}_CRISPR_tgts.csv in the work directory and the run is kept in the run
store for the donor command.`,
		Example: `  vibe-crispr design TP53
  vibe-crispr design --reference auto TP53                 # use a downloaded reference FASTA
  vibe-crispr design --gtf auto --reference auto TP53      # fully offline
  vibe-crispr design --exons exons.json --reference ref.fa TESTGENE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesign(cmd, args[0], reference, exonFile, noStore)
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", `Local reference FASTA instead of Ensembl REST ("auto" for the downloaded one)`)
	cmd.Flags().StringVar(&exonFile, "exons", "", "JSON exon file instead of UniProt/EBI lookups")
	cmd.Flags().String("gtf", "", `GENCODE GTF instead of UniProt/EBI lookups ("auto" for the downloaded one)`)
	cmd.Flags().String("canonical", "", "Genome Nexus canonical transcript TSV used with --gtf")
	viper.BindPFlag("gtf", cmd.Flags().Lookup("gtf"))
	viper.BindPFlag("canonical", cmd.Flags().Lookup("canonical"))
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not use the run store for this run or for cached Ensembl regions")
	cmd.Flags().Int("workers", 0, "Distance annotation workers (0 = all CPUs)")
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runDesign(cmd *cobra.Command, gene, reference, exonFile string, noStore bool) error {
	ctx := cmd.Context()
	assembly := viper.GetString("assembly")

	provider, err := newSequenceProvider(reference, assembly)
	if err != nil {
		return err
	}

	var store *duckdb.Store
	if !noStore {
		store, err = duckdb.Open(viper.GetString("store"))
		if err != nil {
			return err
		}
		defer store.Close()
		if reference == "" {
			provider = store.RegionCache(provider, viper.GetString("species"), assembly)
		}
	}
	resolver, err := newGeneResolver(exonFile, viper.GetString("gtf"), viper.GetString("canonical"), assembly)
	if err != nil {
		return err
	}

	ff := scorer.NewFlashFry(scorer.Config{
		Java:     viper.GetString("flashfry.java"),
		Jar:      viper.GetString("flashfry.jar"),
		Database: viper.GetString("flashfry.database"),
		Memory:   viper.GetString("flashfry.memory"),
	})
	ff.SetLogger(logger)

	workDir := viper.GetString("workdir")
	d := pipeline.NewDesigner(resolver, genome.NewCachedProvider(provider), ff, workDir)
	d.SetLogger(logger)
	d.SetWorkers(viper.GetInt("workers"))
	d.SetProgress(func(pct int, msg string) {
		fmt.Fprintf(os.Stderr, "Progress: %3d%% %s\n", pct, msg)
	})

	res, err := d.Design(ctx, gene)
	if err != nil {
		return err
	}

	tablePath := output.GuideTablePath(workDir, gene)
	if err := output.WriteGuideTable(tablePath, res.Display()); err != nil {
		return err
	}

	if store != nil {
		if err := store.SaveRun(res.Run()); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	printDesign(res, tablePath)
	return nil
}

func printDesign(res *pipeline.DesignResult, tablePath string) {
	fmt.Printf("Gene:      %s (%s)\n", res.Gene, res.Accession)
	fmt.Printf("Last exon: %s %s\n", res.Exon.Exon.ID, res.Exon)
	fmt.Printf("Protein:   %s\n", res.AminoAcids)
	if len(res.BadRows) > 0 || len(res.Skipped) > 0 {
		fmt.Printf("Skipped:   %d unreadable rows, %d guides not found in the search window\n",
			len(res.BadRows), len(res.Skipped))
	}
	fmt.Println()

	if len(res.Guides) == 0 {
		fmt.Println("No guides ranked.")
		return
	}
	fmt.Printf("%-4s %-25s %-4s %7s %7s %7s %7s %7s %8s\n",
		"row", "target", "ori", "Doench", "CFDmax", "CFDspec", "Hsu", "Moreno", "distance")
	for i, r := range res.Display() {
		fmt.Printf("%-4d %-25s %-4s %7.1f %7.1f %7.1f %7.1f %7.1f %8d\n",
			i, r.Target, r.Orientation, r.Doench2014OnTarget, r.DoenchCFDMaxOT,
			r.DoenchCFDSpecScore, r.Hsu2013, r.MorenoMateos2015, r.Distance)
	}
	fmt.Printf("\nRanked guides written to %s\n", tablePath)
	fmt.Printf("Assemble donors with: vibe-crispr donor %s --row <row>\n", res.Gene)
}

// newSequenceProvider returns Ensembl REST or a local FASTA reference.
func newSequenceProvider(reference, assembly string) (genome.SequenceProvider, error) {
	if reference == "" {
		p := genome.NewEnsemblProvider(viper.GetString("ensembl.url"), viper.GetString("species"), assembly)
		return p, nil
	}

	if reference == "auto" {
		path, found := FindReference(assembly)
		if !found {
			return nil, usageError{fmt.Errorf("no downloaded reference for %s; run: vibe-crispr download --assembly %s", assembly, assembly)}
		}
		reference = path
	}

	logger.Info("using reference FASTA", zap.String("path", reference))
	p := genome.NewFASTAProvider(reference)
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("reference %s: %w", filepath.Base(reference), err)
	}
	return p, nil
}

// newGeneResolver returns the UniProt/EBI resolver, an exon-file resolver or
// a GTF resolver.
func newGeneResolver(exonFile, gtf, canonical, assembly string) (genome.GeneResolver, error) {
	if exonFile != "" && gtf != "" {
		return nil, usageError{fmt.Errorf("--exons and --gtf cannot be used together")}
	}
	if exonFile != "" {
		return genome.LoadExonFile(exonFile)
	}
	if gtf != "" {
		return newGTFResolver(gtf, canonical, assembly)
	}
	r := genome.NewUniProtResolver(viper.GetString("uniprot.url"), viper.GetString("ebi.url"))
	r.SetPollInterval(viper.GetDuration("uniprot.poll_interval"))
	r.SetLogger(logger)
	return r, nil
}

func newGTFResolver(gtf, canonical, assembly string) (*genome.GTFResolver, error) {
	if gtf == "auto" {
		path, found, ok := FindGTF(assembly)
		if !ok {
			return nil, usageError{fmt.Errorf("no downloaded GTF for %s; run: vibe-crispr download --gtf --assembly %s", assembly, assembly)}
		}
		gtf = path
		if canonical == "" {
			canonical = found
		}
	}
	if _, err := os.Stat(gtf); err != nil {
		return nil, fmt.Errorf("GTF %s: %w", filepath.Base(gtf), err)
	}

	logger.Info("using GTF annotation", zap.String("path", gtf))
	r := genome.NewGTFResolver(gtf)
	r.SetLogger(logger)
	if canonical != "" {
		overrides, err := genome.LoadCanonicalOverrides(canonical)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded canonical transcript overrides",
			zap.String("path", canonical), zap.Int("genes", len(overrides)))
		r.SetCanonicalOverrides(overrides)
	}
	return r, nil
}
