package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Dialects understood by MigrateUp and MigrateDown.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func migrationsDir(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "migrations/postgres", nil
	case DialectSQLite:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// MigrateUp applies every pending embedded migration for dialect.
func MigrateUp(ctx context.Context, db *sql.DB, dialect string) error {
	return withGoose(dialect, func(dir string) error {
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("%s: apply migrations: %w", dialect, err)
		}
		return nil
	})
}

// MigrateDown rolls every embedded migration back, leaving the schema at version 0.
func MigrateDown(ctx context.Context, db *sql.DB, dialect string) error {
	return withGoose(dialect, func(dir string) error {
		if err := goose.DownToContext(ctx, db, dir, 0); err != nil {
			return fmt.Errorf("%s: roll back migrations: %w", dialect, err)
		}
		return nil
	})
}

// MigrationVersion reports the current schema version recorded by goose.
func MigrationVersion(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	var version int64
	err := withGoose(dialect, func(_ string) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("%s: read migration version: %w", dialect, err)
		}
		version = v
		return nil
	})
	return version, err
}

func withGoose(dialect string, fn func(dir string) error) error {
	dir, err := migrationsDir(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("%s: set goose dialect: %w", dialect, err)
	}
	return fn(dir)
}
