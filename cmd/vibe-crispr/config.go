package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindDuration
)

// configKeys lists the settable keys and how their values are parsed.
var configKeys = map[string]keyKind{
	"assembly":              kindString,
	"species":               kindString,
	"workdir":               kindString,
	"store":                 kindString,
	"workers":               kindInt,
	"gtf":                   kindString,
	"canonical":             kindString,
	"ensembl.url":           kindString,
	"uniprot.url":           kindString,
	"ebi.url":               kindString,
	"uniprot.poll_interval": kindDuration,
	"flashfry.java":         kindString,
	"flashfry.jar":          kindString,
	"flashfry.database":     kindString,
	"flashfry.memory":       kindString,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-crispr configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/.vibe-crispr.yaml
and can be overridden per run with VIBE_CRISPR_* environment variables.`,
		Example: `  vibe-crispr config                                                  # show effective config
  vibe-crispr config set flashfry.jar /opt/FlashFry-assembly-1.15.jar  # locate FlashFry
  vibe-crispr config set uniprot.poll_interval 2s
  vibe-crispr config get flashfry.database`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})

	return cmd
}

func runConfigShow() error {
	settings := make(map[string]any, len(configKeys))
	for key, kind := range configKeys {
		if kind == kindDuration {
			settings[key] = viper.GetDuration(key).String()
			continue
		}
		settings[key] = viper.Get(key)
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

// parseConfigValue converts value to the type registered for key.
func parseConfigValue(key, value string) (any, error) {
	kind, ok := configKeys[key]
	if !ok {
		return nil, usageError{fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(knownKeys(), ", "))}
	}
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, usageError{fmt.Errorf("%s must be a non-negative integer, got %q", key, value)}
		}
		return n, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, usageError{fmt.Errorf("%s must be a positive duration such as 5s, got %q", key, value)}
		}
		return d.String(), nil
	}
	if key == "assembly" && !strings.EqualFold(value, "GRCh37") && !strings.EqualFold(value, "GRCh38") {
		return nil, usageError{fmt.Errorf("assembly must be GRCh37 or GRCh38, got %q", value)}
	}
	return value, nil
}

func runConfigSet(key, value string) error {
	parsed, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}
	viper.Set(key, parsed)

	cfgFile, err := configFilePath()
	if err != nil {
		return err
	}
	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %v in %s\n", key, parsed, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	if _, ok := configKeys[key]; !ok {
		return usageError{fmt.Errorf("unknown config key %q", key)}
	}
	fmt.Println(viper.Get(key))
	return nil
}

func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-crispr.yaml"), nil
}

func knownKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
