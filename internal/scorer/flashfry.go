// Package scorer hands guide discovery and scoring to FlashFry, run as an
// external Java process.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrScorerFailed is returned when a FlashFry step exits unsuccessfully.
var ErrScorerFailed = errors.New("guide scorer failed")

// ScoringMetrics are the FlashFry metrics the ranking needs.
const ScoringMetrics = "doench2014ontarget,doench2016cfd,dangerous,hsu2013,minot,moreno2015"

// Scorer discovers and scores guides in a FASTA file and returns the path of
// the resulting score table.
type Scorer interface {
	Score(ctx context.Context, fastaPath string) (string, error)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config locates the FlashFry installation.
type Config struct {
	Java     string // java executable
	Jar      string // FlashFry assembly jar
	Database string // off-target database built with FlashFry index
	Memory   string // JVM heap, e.g. "4g"
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Java:     "java",
		Jar:      "FlashFry-assembly-1.15.jar",
		Database: "GRCh38_cas9ngg_database",
		Memory:   "4g",
	}
}

// FlashFry runs the discover and score steps.
type FlashFry struct {
	cfg    Config
	run    Runner
	logger *zap.Logger
}

// NewFlashFry creates a FlashFry scorer. Empty fields fall back to DefaultConfig.
func NewFlashFry(cfg Config) *FlashFry {
	def := DefaultConfig()
	if cfg.Java == "" {
		cfg.Java = def.Java
	}
	if cfg.Jar == "" {
		cfg.Jar = def.Jar
	}
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.Memory == "" {
		cfg.Memory = def.Memory
	}
	return &FlashFry{cfg: cfg, run: ExecRunner, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (f *FlashFry) SetLogger(l *zap.Logger) {
	f.logger = l
}

// SetRunner replaces the command runner.
func (f *FlashFry) SetRunner(r Runner) {
	f.run = r
}

// OutputPaths returns the discover output and score table paths for a FASTA file.
func OutputPaths(fastaPath string) (discovered, scored string) {
	discovered = strings.TrimSuffix(fastaPath, filepath.Ext(fastaPath)) + ".output"
	return discovered, discovered + ".scored.tsv"
}

// DiscoverArgs returns the java arguments of the discover step.
func (f *FlashFry) DiscoverArgs(fastaPath, output string) []string {
	return []string{
		"-Xmx" + f.cfg.Memory, "-jar", f.cfg.Jar,
		"discover",
		"--database", f.cfg.Database,
		"--fasta", fastaPath,
		"--output", output,
	}
}

// ScoreArgs returns the java arguments of the score step.
func (f *FlashFry) ScoreArgs(input, output string) []string {
	return []string{
		"-Xmx" + f.cfg.Memory, "-jar", f.cfg.Jar,
		"score",
		"--input", input,
		"--output", output,
		"--scoringMetrics", ScoringMetrics,
		"--database", f.cfg.Database,
	}
}

// Score runs discover then score on fastaPath. Any score table left by an
// earlier run is removed first.
func (f *FlashFry) Score(ctx context.Context, fastaPath string) (string, error) {
	discovered, scored := OutputPaths(fastaPath)
	if err := os.Remove(scored); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale score table: %w", err)
	}

	if err := f.step(ctx, "discover", f.DiscoverArgs(fastaPath, discovered)); err != nil {
		return "", err
	}
	if err := f.step(ctx, "score", f.ScoreArgs(discovered, scored)); err != nil {
		return "", err
	}
	return scored, nil
}

func (f *FlashFry) step(ctx context.Context, name string, args []string) error {
	f.logger.Info("running FlashFry", zap.String("step", name), zap.Strings("args", args))
	start := time.Now()

	out, err := f.run(ctx, f.cfg.Java, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("FlashFry %s: %w", name, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v: %s", ErrScorerFailed, name, err, lastLines(string(out), 5))
	}

	f.logger.Info("FlashFry step finished",
		zap.String("step", name),
		zap.Duration("elapsed", time.Since(start)))
	f.logger.Debug("FlashFry output", zap.String("step", name), zap.String("output", string(out)))
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
