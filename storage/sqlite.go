package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements shellprefs.Storage using SQLite.
type SQLiteStorage struct {
	sqlStore
}

// NewSQLiteStorage opens the SQLite database at dbPath and applies pending migrations.
func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	if err := MigrateUp(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	return &SQLiteStorage{sqlStore{
		db:          db,
		name:        "sqlite",
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		isDuplicate: isSQLiteConstraintViolation,
	}}, nil
}

func isSQLiteConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
