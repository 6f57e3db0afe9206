package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fresnel-build/fresnel/pkg/preview"
)

func newPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the built project output",
		Long: `Serve the production build output directory for local preview.

The preview server serves static files only, with single-page-app
fallback for extensionless routes. No plugin pipeline or file watching
is involved.`,
		Example: `  # Preview the build output of the current directory
  fresnel preview

  # Preview a specific project root
  fresnel preview --root ./web`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, root, err := resolveProject(ctx, "preview")
			if err != nil {
				return err
			}

			log.Info().
				Str("root", root).
				Int("port", cfg.Preview.Port).
				Msg("Starting preview server")

			tel, err := newTelemetry("")
			if err != nil {
				return fmt.Errorf("initializing telemetry: %w", err)
			}
			defer tel.Shutdown(ctx)

			srv := preview.NewServer(cfg, root, tel)

			fmt.Printf("fresnel preview server listening on http://localhost:%d\n", cfg.Preview.Port)
			return srv.Run(ctx)
		},
	}

	return cmd
}
