package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/CreativeUnicorns/shellprefs"
)

var (
	userColumns      = []string{"id", "frontend_preference", "created_at", "updated_at"}
	workspaceColumns = []string{"id", "frontend_policy", "created_at", "updated_at"}
)

// sqlStore holds the queries shared by the Postgres and SQLite backends.
// The two differ in placeholder style, duplicate-key detection and RETURNING support.
type sqlStore struct {
	db          *sql.DB
	name        string
	builder     squirrel.StatementBuilderType
	isDuplicate func(error) bool
	returning   bool
}

func (s *sqlStore) CreateUser(ctx context.Context, user *shellprefs.User) error {
	query, args, err := s.builder.Insert("users").
		Columns(userColumns...).
		Values(user.ID, string(user.FrontendPreference), user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build insert user query: %w", s.name, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if s.isDuplicate(err) {
			return fmt.Errorf("%w: user '%s'", shellprefs.ErrAlreadyExists, user.ID)
		}
		return fmt.Errorf("%s: insert user '%s': %w", s.name, user.ID, classify(err))
	}
	return nil
}

func (s *sqlStore) GetUser(ctx context.Context, userID string) (*shellprefs.User, error) {
	query, args, err := s.builder.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build select user query: %w", s.name, err)
	}
	var user shellprefs.User
	if err := sqlscan.Get(ctx, s.db, &user, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, shellprefs.ErrNotFound
		}
		return nil, fmt.Errorf("%s: scan user '%s': %w", s.name, userID, classify(err))
	}
	return &user, nil
}

func (s *sqlStore) SetUserPreference(ctx context.Context, userID string, pref shellprefs.FrontendPreference, at time.Time) error {
	query, args, err := s.builder.Update("users").
		Set("frontend_preference", string(pref)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build update user query: %w", s.name, err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: update preference for user '%s': %w", s.name, userID, classify(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: affected rows for user '%s': %w", s.name, userID, err)
	}
	if rows == 0 {
		return shellprefs.ErrNotFound
	}
	return nil
}

func (s *sqlStore) CreateWorkspace(ctx context.Context, ws *shellprefs.Workspace) error {
	query, args, err := s.builder.Insert("workspaces").
		Columns(workspaceColumns...).
		Values(ws.ID, string(ws.FrontendPolicy), ws.CreatedAt, ws.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build insert workspace query: %w", s.name, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if s.isDuplicate(err) {
			return fmt.Errorf("%w: workspace '%s'", shellprefs.ErrAlreadyExists, ws.ID)
		}
		return fmt.Errorf("%s: insert workspace '%s': %w", s.name, ws.ID, classify(err))
	}
	return nil
}

func (s *sqlStore) GetWorkspace(ctx context.Context, workspaceID string) (*shellprefs.Workspace, error) {
	query, args, err := s.builder.Select(workspaceColumns...).
		From("workspaces").
		Where(squirrel.Eq{"id": workspaceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build select workspace query: %w", s.name, err)
	}
	var ws shellprefs.Workspace
	if err := sqlscan.Get(ctx, s.db, &ws, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, shellprefs.ErrNotFound
		}
		return nil, fmt.Errorf("%s: scan workspace '%s': %w", s.name, workspaceID, classify(err))
	}
	return &ws, nil
}

// SetWorkspacePolicy updates the policy and returns the row as written.
// Backends with RETURNING do it in a single statement.
func (s *sqlStore) SetWorkspacePolicy(ctx context.Context, workspaceID string, policy shellprefs.FrontendPolicy, at time.Time) (*shellprefs.Workspace, error) {
	update := s.builder.Update("workspaces").
		Set("frontend_policy", string(policy)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": workspaceID})

	if !s.returning {
		query, args, err := update.ToSql()
		if err != nil {
			return nil, fmt.Errorf("%s: build update workspace query: %w", s.name, err)
		}
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%s: update policy for workspace '%s': %w", s.name, workspaceID, classify(err))
		}
		if rows, err := result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("%s: affected rows for workspace '%s': %w", s.name, workspaceID, err)
		} else if rows == 0 {
			return nil, shellprefs.ErrNotFound
		}
		return s.GetWorkspace(ctx, workspaceID)
	}

	query, args, err := update.
		Suffix("RETURNING " + strings.Join(workspaceColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build update workspace query: %w", s.name, err)
	}
	var ws shellprefs.Workspace
	if err := sqlscan.Get(ctx, s.db, &ws, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, shellprefs.ErrNotFound
		}
		return nil, fmt.Errorf("%s: update policy for workspace '%s': %w", s.name, workspaceID, classify(err))
	}
	return &ws, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need schema introspection.
func (s *sqlStore) DB() *sql.DB {
	return s.db
}

// classify tags connection-level failures with ErrStorageUnavailable.
func classify(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", shellprefs.ErrStorageUnavailable, err)
	}
	return err
}
