package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the project configuration",
		Long: `Load and resolve the project configuration, reporting the first
validation failure with its field path and reason.

This command checks:
  - Config file syntax (CUE or YAML)
  - Starlark script evaluation when fresnel.star is present
  - Field domains: ports, environments, coverage reporters
  - Plugin declarations and filesystem allow list entries`,
		Example: `  # Validate the current directory's configuration
  fresnel validate

  # Validate a specific config file
  fresnel validate --config ./fresnel.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, root, err := resolveProject(cmd.Context(), "validate")
			if err != nil {
				return err
			}

			log.Debug().Str("root", root).Msg("Configuration resolved")

			if jsonOutput {
				encoded, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(encoded))
				return nil
			}

			fmt.Println("configuration OK")
			fmt.Printf("  server port:   %d\n", cfg.Server.Port)
			fmt.Printf("  preview port:  %d\n", cfg.Preview.Port)
			fmt.Printf("  environment:   %s\n", cfg.Test.Environment)
			fmt.Printf("  plugins:       %d\n", len(cfg.Plugins))
			fmt.Printf("  fs allow list: %d entries\n", len(cfg.Server.FS.Allow))
			return nil
		},
	}

	return cmd
}
