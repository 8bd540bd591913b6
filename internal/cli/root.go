// Package cli is the task-manager command line: the HTTP server plus the
// maintenance commands that seed and inspect its database.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TWRT/task-manager/internal/config"
	"github.com/TWRT/task-manager/internal/repository"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	envFiles []string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "task-manager",
		Short:         "Task lifecycle API with staged approval",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load before reading configuration (default .env)")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newUsersCommand(opts),
	)
	return cmd
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Logger(), nil
}

// openDB loads configuration and opens the database with its schema applied.
func (o *rootOptions) openDB(ctx context.Context) (*sql.DB, *config.Config, *slog.Logger, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := repository.InitDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return db, cfg, logger, nil
}
