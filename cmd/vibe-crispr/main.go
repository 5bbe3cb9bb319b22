// Package main provides the vibe-crispr command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-crispr/internal/pipeline"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(os.Stderr, "Hint: the %s stage failed; rerun with --verbose for details\n", stageErr.Stage)
		}
		var usageErr usageError
		if errors.As(err, &usageErr) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by invalid arguments.
type usageError struct{ error }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-crispr",
		Short: "Design CRISPR guides and donor templates for a gene's terminal exon",
		Long: `vibe-crispr ranks CRISPR guide candidates around the 3' end of a gene's
last coding exon and assembles allele-insertion donor fragments for a chosen guide.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-crispr.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().String("workdir", "", "Directory for FlashFry hand-off files and reports (default: current directory)")
	cmd.PersistentFlags().String("store", "", "DuckDB run store (default: ~/.vibe-crispr/runs.duckdb)")
	cmd.PersistentFlags().String("assembly", "", "Genome assembly: GRCh37 or GRCh38")
	viper.BindPFlag("workdir", cmd.PersistentFlags().Lookup("workdir"))
	viper.BindPFlag("store", cmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("assembly", cmd.PersistentFlags().Lookup("assembly"))

	cmd.AddCommand(newDesignCmd())
	cmd.AddCommand(newDonorCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func setDefaults() {
	viper.SetDefault("assembly", "GRCh38")
	viper.SetDefault("species", "homo_sapiens")
	viper.SetDefault("ensembl.url", "")
	viper.SetDefault("uniprot.url", "https://rest.uniprot.org")
	viper.SetDefault("ebi.url", "https://www.ebi.ac.uk")
	viper.SetDefault("uniprot.poll_interval", 5*time.Second)
	viper.SetDefault("flashfry.java", "java")
	viper.SetDefault("flashfry.jar", "FlashFry-assembly-1.15.jar")
	viper.SetDefault("flashfry.database", "GRCh38_cas9ngg_database")
	viper.SetDefault("flashfry.memory", "4g")
	viper.SetDefault("workdir", ".")
	viper.SetDefault("store", defaultStorePath())
	viper.SetDefault("workers", 0)
	viper.SetDefault("gtf", "")
	viper.SetDefault("canonical", "")
}

// initConfig reads the config file and environment.
func initConfig() error {
	setDefaults()
	viper.SetEnvPrefix("VIBE_CRISPR")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".vibe-crispr")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vibe-crispr.duckdb"
	}
	return filepath.Join(home, ".vibe-crispr", "runs.duckdb")
}

// newLogger builds a console logger on stderr; verbose enables debug output.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
