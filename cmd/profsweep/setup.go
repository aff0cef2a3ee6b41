package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/profsweep/internal/config"
	"github.com/aatumaykin/profsweep/internal/constants"
	"github.com/aatumaykin/profsweep/internal/lock"
	"github.com/aatumaykin/profsweep/internal/logger"
)

// loadConfig reads the .env file and the configuration. A missing
// configuration file is fine when it was not named explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvOptional(envPath); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOptional(configPath)
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// validate joins every validation problem into one error.
func validate(cfg *config.Config) error {
	errs := cfg.Validate()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// fatal prints err the way run errors are reported and returns it.
func fatal(w io.Writer, err error) error {
	fmt.Fprintf(w, "%s %v\n", constants.TagError, err)
	return err
}

// withLock runs fn while holding the configured run lock, if any.
func withLock(cfg *config.Config, log *logger.Logger, fn func() error) error {
	if cfg.Run.LockFile == "" {
		return fn()
	}
	l, err := lock.Acquire(cfg.Run.LockFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("failed to release run lock",
				logger.Field{Key: "path", Value: l.Path()},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}()
	return fn()
}
