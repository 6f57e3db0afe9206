package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/rs/zerolog/log"

	"github.com/fresnel-build/fresnel/pkg/config"
)

// resolveProject loads the declared configuration for the project root
// and resolves it into the immutable record every command consumes.
// Resolution failures are reported before any consumer starts. The mode
// string is exposed to a fresnel.star script when one is present.
func resolveProject(ctx context.Context, mode string) (*config.Config, string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving project root: %w", err)
	}

	raw, err := loadDeclared(ctx, root, mode)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Resolve(raw, root)
	if err != nil {
		return nil, "", reportConfigError(err)
	}

	return cfg, root, nil
}

// loadDeclared reads the config file and layers a fresnel.star overlay
// on top when one exists. A project without any config file runs on
// defaults.
func loadDeclared(ctx context.Context, root, mode string) (config.RawOptions, error) {
	var raw config.RawOptions

	path := configPath
	if path == "" {
		found, err := config.FindConfig(root)
		if err != nil {
			log.Debug().Str("root", root).Msg("No config file found, using defaults")
		} else {
			path = found
		}
	}

	if path != "" {
		loader := config.NewLoader()
		loaded, err := loader.Load(path)
		if err != nil {
			return config.RawOptions{}, fmt.Errorf("loading %s: %w", path, err)
		}
		raw = loaded
		log.Debug().Str("config", path).Msg("Loaded configuration")
	}

	starPath := filepath.Join(root, config.StarlarkFileName)
	if _, err := os.Stat(starPath); err == nil {
		evaluator := config.NewStarlarkEvaluator(0)
		overlay, err := evaluator.LoadOptions(ctx, starPath, map[string]interface{}{
			"mode": mode,
		})
		if err != nil {
			return config.RawOptions{}, fmt.Errorf("evaluating %s: %w", starPath, err)
		}
		// Declared script values win over file values; omissions fall
		// through to the file layer.
		if err := mergo.Merge(&raw, overlay, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return config.RawOptions{}, fmt.Errorf("merging script configuration: %w", err)
		}
		log.Debug().Str("script", starPath).Str("mode", mode).Msg("Applied script configuration")
	}

	return raw, nil
}

// reportConfigError prints a resolution failure in the selected output
// format and returns the error for the command exit path.
func reportConfigError(err error) error {
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		return err
	}

	if jsonOutput {
		encoded, encErr := json.Marshal(cfgErr)
		if encErr == nil {
			fmt.Fprintln(os.Stderr, string(encoded))
		}
	} else {
		fmt.Fprintf(os.Stderr, "configuration error in %s: %s\n", cfgErr.Field, cfgErr.Reason)
		if cfgErr.Detail != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", cfgErr.Detail)
		}
	}

	return fmt.Errorf("configuration invalid: %w", cfgErr)
}
