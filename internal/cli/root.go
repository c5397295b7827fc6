// Package cli implements finsearchctl's commands: build, stats,
// search, and inspect-shard.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-mizu/finsearch/internal/config"
)

var cfgPath string

// Execute runs the finsearchctl CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:     "finsearchctl",
		Short:   "Administrative tooling for the finsearch index engine",
		Version: "0.1.0",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file (overrides defaults)")

	root.AddCommand(
		newBuildCmd(),
		newStatsCmd(),
		newSearchCmd(),
		newInspectShardCmd(),
	)

	return root.ExecuteContext(ctx)
}

// loadConfig returns config.Defaults() overlaid with cfgPath's
// contents, if set.
func loadConfig() (config.Config, error) {
	cfg := config.Defaults()
	if cfgPath == "" {
		return cfg, nil
	}
	f, err := os.Open(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("open config %q: %w", cfgPath, err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config %q: %w", cfgPath, err)
	}
	return cfg, nil
}
