package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/testrunner"
)

func newTestCommand() *cobra.Command {
	var (
		workers     int
		coverageDir string
	)

	cmd := &cobra.Command{
		Use:   "test [files...]",
		Short: "Run the project's test files",
		Long: `Discover and run test files in the configured environment.

Files matching *.test.js, *.test.ts, *.spec.js, or *.spec.ts are
discovered under the project root unless explicit files are given.
Coverage, when enabled in the configuration, is emitted through every
configured reporter in order.`,
		Example: `  # Run all discovered test files
  fresnel test

  # Run specific files
  fresnel test src/app.test.js src/util.spec.ts

  # Run with a wider worker pool
  fresnel test --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, root, err := resolveProject(ctx, "test")
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				files, err = testrunner.DiscoverTestFiles(root)
				if err != nil {
					return err
				}
			}
			if len(files) == 0 {
				fmt.Println("no test files found")
				return nil
			}

			log.Info().
				Str("root", root).
				Str("environment", string(cfg.Test.Environment)).
				Int("files", len(files)).
				Msg("Running tests")

			tel, err := newTelemetry("")
			if err != nil {
				return fmt.Errorf("initializing telemetry: %w", err)
			}
			defer tel.Shutdown(ctx)

			store, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer store.Close()

			runner := testrunner.NewRunner(cfg, root, store, tel, nil, workers)
			result, err := runner.Run(ctx, files)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d files, %d passed, %d failed (%s)\n",
				result.FilesTotal, result.FilesPassed, result.FilesFailed, result.Duration.Round(time.Millisecond))

			if result.Coverage != nil {
				dir := coverageDir
				if dir == "" {
					dir = filepath.Join(root, "coverage")
				}
				if err := runner.Report(result, os.Stdout, dir); err != nil {
					return err
				}
			}

			if result.Status == stores.TestRunStatusFailed {
				return fmt.Errorf("%d test file(s) failed", result.FilesFailed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = default)")
	cmd.Flags().StringVar(&coverageDir, "coverage-dir", "", "coverage output directory (default <root>/coverage)")

	return cmd
}
