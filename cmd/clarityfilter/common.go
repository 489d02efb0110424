package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/database"
	"github.com/nao1215/clarityfilter/internal/log"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// buildConfig reads the global flags and the configuration file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.JSONLog, err = cmd.Flags().GetBool("json-log")
	if err != nil {
		return nil, err
	}
	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	cfg.RegexpEngine, err = cmd.Flags().GetString("engine")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.File = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	if cfg.File.Engine != "" && !cmd.Flags().Changed("engine") {
		cfg.RegexpEngine = cfg.File.Engine
	}
	return cfg, nil
}

// setupLogger creates the secure logger selected by the flags and makes it
// the default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if cfg.JSONLog {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// openDB opens the settings and history database.
func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// storedSettings returns the latest stored snapshot and keeps its terms out
// of the log.
func storedSettings(ctx context.Context, db *database.DB, logger *slog.Logger) (settings.Settings, error) {
	s, err := db.Get(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	log.SetTerms(logger, s.Terms)
	return s, nil
}

// signalContext returns a context cancelled on interrupt or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// isCancelled reports whether err only says the run was interrupted.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
