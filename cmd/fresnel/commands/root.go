package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	rootDir    string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fresnel",
		Short: "Fresnel - Frontend build tool and dev server",
		Long: `Fresnel serves, tests, and previews frontend projects from a single
declarative configuration.

Features:
  - Typed configs via CUE (YAML also accepted)
  - Light procedural configuration via Starlark
  - Dev server with a pluggable transform pipeline
  - Filesystem access control for served files
  - Test runner with simulated node and dom environments
  - Coverage output in text, json, lcov, and html formats`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "project root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newTestCommand())

	return rootCmd
}
