package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fresnel-build/fresnel/pkg/devserver"
	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

func newDevCommand() *cobra.Command {
	var (
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server for the project root.

The server transforms modules through the configured plugin pipeline,
caches transform output locally, watches the project tree for changes,
and restricts file serving to the configured allow list.`,
		Example: `  # Serve the current directory
  fresnel dev

  # Serve a specific project root
  fresnel dev --root ./web

  # Expose prometheus metrics while serving
  fresnel dev --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, root, err := resolveProject(ctx, "development")
			if err != nil {
				return err
			}

			log.Info().
				Str("root", root).
				Int("port", cfg.Server.Port).
				Int("plugins", len(cfg.Plugins)).
				Msg("Starting dev server")

			tel, err := newTelemetry(metricsAddr)
			if err != nil {
				return fmt.Errorf("initializing telemetry: %w", err)
			}
			defer tel.Shutdown(ctx)

			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("starting metrics server: %w", err)
				}
			}

			store, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := devserver.NewServer(cfg, root, store, tel)
			if err != nil {
				return fmt.Errorf("creating dev server: %w", err)
			}

			fmt.Printf("fresnel dev server listening on http://localhost:%d\n", cfg.Server.Port)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose prometheus metrics on this address")

	return cmd
}

// newTelemetry builds the telemetry stack for a server command. Verbose
// mode selects the development profile with debug logging.
func newTelemetry(metricsAddr string) (*telemetry.Telemetry, error) {
	var cfg *telemetry.Config
	if verbose {
		cfg = telemetry.DevelopmentConfig()
	} else {
		cfg = telemetry.DefaultConfig()
	}
	if jsonOutput {
		cfg.Logging.Format = "json"
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsAddr
	}
	return telemetry.NewTelemetry(cfg)
}

// openStore opens the project-local state database under .fresnel/,
// creating and migrating it on first use.
func openStore(ctx context.Context, root string) (stores.Store, error) {
	dataDir := filepath.Join(root, ".fresnel")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{
		Path: filepath.Join(dataDir, "fresnel.db"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return store, nil
}
