package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fresnel-build/fresnel/pkg/config"
)

const starterConfig = `// Fresnel project configuration.
// See https://fresnel.build/config for the full reference.

server: {
	port: %d
	fs: {
		// Directories the dev server may serve files from, relative to
		// the project root.
		allow: ["src", "public"]
	}
}

preview: {
	port: %d
}

test: {
	environment: "node"
	css:         false
	coverage: {
		enabled:  false
		reporter: ["text"]
	}
}

plugins: [
	{
		name: "images"
		kind: "asset"
		asset: {
			extensions: [".png", ".jpg", ".svg"]
		}
	},
]
`

func newInitCommand() *cobra.Command {
	var (
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a starter configuration",
		Long: `Create a starter fresnel.cue in the project root.

The generated file declares the dev and preview server ports, the
filesystem allow list, the test environment, and an example asset
plugin. Existing config files are left alone unless --force is given.`,
		Example: `  # Scaffold fresnel.cue in the current directory
  fresnel init

  # Overwrite an existing config
  fresnel init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(rootDir)
			if err != nil {
				return fmt.Errorf("resolving project root: %w", err)
			}

			if existing, err := config.FindConfig(root); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", existing)
			}

			path := filepath.Join(root, "fresnel.cue")
			content := fmt.Sprintf(starterConfig, config.DefaultPort, config.DefaultPort)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			log.Info().Str("path", path).Msg("Created configuration")
			fmt.Printf("✓ Created %s\n", path)
			fmt.Println("\nNext steps:")
			fmt.Println("  fresnel validate   # check the configuration")
			fmt.Println("  fresnel dev        # start the dev server")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
