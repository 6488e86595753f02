package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) configTarget(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	if r.configPath != "" {
		return r.configPath
	}
	return shared.DefaultConfigPath()
}

// SetupConfig writes the embedded example config to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configTarget(cmd)
	if cmd.Bool("force") {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove existing config: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("Config written to %s\nSet spotify.client_id (or %s) before running 'encore auth login'.\n", path, shared.EnvClientID)
}

// SetupDatabase creates the SQLite credential store and applies migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if config.Store.Backend != shared.BackendSQLite {
		r.logger.Warn("store backend is not sqlite; the database will not be used", "backend", config.Store.Backend)
	}

	path := shared.ExpandPath(config.Store.Path)
	r.logger.Info("initializing database", "path", path)

	db, err := shared.OpenStore(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("Database ready at %s (schema version %d)\n", path, version)
}
