package main

import (
	"fmt"
	"os"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/internal/config"
	"github.com/mlsorensen/gobodyscale/internal/store"
	"github.com/spf13/cobra"
)

// loadConfig reads --config, the default config file if it exists, or
// falls back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.Load(path)
	default:
		path = config.DefaultConfigPath()
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err = config.Load(path)
			if err != nil {
				err = fmt.Errorf("loading %s: %w", path, err)
			}
		} else {
			path = ""
			cfg = config.Default()
		}
	}
	if err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config validation: %w", err)
	}
	return cfg, path, nil
}

// profileStore returns the profiles file store when one is configured,
// otherwise the inline user.
func profileStore(cfg *config.Config) gobodyscale.ProfileStore {
	if cfg.Profile.File != "" {
		return store.YAMLProfiles{Path: cfg.Profile.File}
	}
	return store.Static{User: cfg.Profile.User}
}
