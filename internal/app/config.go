package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/apifetch/internal/config"
	"github.com/oshokin/apifetch/internal/logger"
)

// ExecuteConfigSetCommand stores one setting in the configuration file.
func ExecuteConfigSetCommand(ctx context.Context, configPath, key, value string) {
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	if err := config.SaveConfigValue(configPath, key, value); err != nil {
		logger.Fatalf(ctx, "Failed to save configuration: %v", err)
	}

	logger.Infof(ctx, "Set %s in %s", key, configPath)
}

// ExecuteConfigShowCommand prints the effective configuration.
func ExecuteConfigShowCommand(ctx context.Context, cfg *config.Config) {
	if err := ShowConfig(cfg, os.Stdout); err != nil {
		logger.Fatalf(ctx, "Failed to show configuration: %v", err)
	}
}

// ShowConfig writes the effective configuration as YAML, preceded by its source.
func ShowConfig(cfg *config.Config, w io.Writer) error {
	source := cfg.ConfigPath
	if source == "" {
		source = "defaults"
	}

	data, err := cfg.Render()
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(w, "# source: %s\n%s", source, data); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}
