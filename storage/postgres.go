package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq" // PostgreSQL driver
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

// migrateFunc applies schema migrations on construction; tests replace it.
var migrateFunc = MigrateUp

const pqUniqueViolation = "23505"

// PostgresStorage implements shellprefs.Storage using PostgreSQL.
type PostgresStorage struct {
	sqlStore
}

// NewPostgresStorage connects to PostgreSQL using connString and applies pending migrations.
func NewPostgresStorage(ctx context.Context, connString string) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	if err := migrateFunc(ctx, db, DialectPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return newPostgresStorage(db), nil
}

func newPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{sqlStore{
		db:          db,
		name:        "postgres",
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		isDuplicate: isPostgresUniqueViolation,
		returning:   true,
	}}
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
