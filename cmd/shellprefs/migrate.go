package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/shellprefs"
	"github.com/CreativeUnicorns/shellprefs/config"
	"github.com/CreativeUnicorns/shellprefs/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateStepCmd("up", "Apply all pending migrations", storage.MigrateUp),
		migrateStepCmd("down", "Roll back every migration", storage.MigrateDown),
		&cobra.Command{
			Use:   "status",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, db *sql.DB, dialect string) error {
					version, err := storage.MigrationVersion(ctx, db, dialect)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s schema version: %d\n", dialect, version)
					return nil
				})
			},
		},
	)
	return cmd
}

func migrateStepCmd(use, short string, step func(context.Context, *sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), step)
		},
	}
}

// withDatabase opens the configured SQL database for fn. The memory driver has no schema.
func withDatabase(ctx context.Context, fn func(context.Context, *sql.DB, string) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	dialect, err := dialectFor(cfg.Storage.Driver)
	if err != nil {
		return err
	}
	db, err := sql.Open(dialect, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	defer db.Close()

	if err := fn(ctx, db, dialect); err != nil {
		logger.Error("Migration command failed", "dialect", dialect, "error", err)
		return err
	}
	logger.Info("Migration command finished", "dialect", dialect)
	return nil
}

// dialectFor maps a storage driver to its database/sql driver name, which is also the goose dialect.
func dialectFor(driver string) (string, error) {
	switch driver {
	case config.StoragePostgres:
		return storage.DialectPostgres, nil
	case config.StorageSQLite:
		return storage.DialectSQLite, nil
	}
	return "", fmt.Errorf("%w: storage driver %q has no schema to migrate", shellprefs.ErrInvalidInput, driver)
}
