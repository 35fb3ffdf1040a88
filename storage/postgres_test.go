package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/shellprefs"
)

const (
	testInsertUserSQL      = `INSERT INTO users \(id,frontend_preference,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4\)`
	testSelectUserSQL      = `SELECT id, frontend_preference, created_at, updated_at FROM users WHERE id = \$1`
	testUpdateUserSQL      = `UPDATE users SET frontend_preference = \$1, updated_at = \$2 WHERE id = \$3`
	testInsertWorkspaceSQL = `INSERT INTO workspaces \(id,frontend_policy,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4\)`
	testSelectWorkspaceSQL = `SELECT id, frontend_policy, created_at, updated_at FROM workspaces WHERE id = \$1`
	testUpdatePolicySQL    = `UPDATE workspaces SET frontend_policy = \$1, updated_at = \$2 WHERE id = \$3 RETURNING id, frontend_policy, created_at, updated_at`
)

func newTestPostgresStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newPostgresStorage(db), mock
}

func stubOpen(t *testing.T, db *sql.DB, openErr error) {
	t.Helper()
	originalOpen := sqlOpenFunc
	sqlOpenFunc = func(driverName, dataSourceName string) (*sql.DB, error) {
		return db, openErr
	}
	t.Cleanup(func() { sqlOpenFunc = originalOpen })
}

func stubMigrate(t *testing.T, migrateErr error) *[]string {
	t.Helper()
	var dialects []string
	originalMigrate := migrateFunc
	migrateFunc = func(_ context.Context, _ *sql.DB, dialect string) error {
		dialects = append(dialects, dialect)
		return migrateErr
	}
	t.Cleanup(func() { migrateFunc = originalMigrate })
	return &dialects
}

func TestNewPostgresStorage(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		stubOpen(t, db, nil)
		dialects := stubMigrate(t, nil)

		store, err := NewPostgresStorage(context.Background(), "dummy_conn_string")
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.Equal(t, []string{DialectPostgres}, *dialects)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sql open error", func(t *testing.T) {
		expectedErr := errors.New("failed to open database")
		stubOpen(t, nil, expectedErr)

		_, err := NewPostgresStorage(context.Background(), "dummy_conn_string")
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()
		stubOpen(t, db, nil)
		dialects := stubMigrate(t, nil)

		_, err = NewPostgresStorage(context.Background(), "dummy_conn_string")
		assert.ErrorContains(t, err, "postgres: failed to ping database")
		assert.Empty(t, *dialects, "migrations must not run without a connection")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("migration error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		mock.ExpectPing()
		mock.ExpectClose()
		stubOpen(t, db, nil)
		stubMigrate(t, errors.New("bad migration"))

		_, err = NewPostgresStorage(context.Background(), "dummy_conn_string")
		assert.ErrorContains(t, err, "postgres: failed to run migrations")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStorage_CreateUser(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &shellprefs.User{ID: "u1", FrontendPreference: shellprefs.PreferenceTwenty, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(testInsertUserSQL).
		WithArgs("u1", "TWENTY", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.CreateUser(ctx, user))

	mock.ExpectExec(testInsertUserSQL).
		WithArgs("u1", "TWENTY", now, now).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	assert.ErrorIs(t, store.CreateUser(ctx, user), shellprefs.ErrAlreadyExists)

	mock.ExpectExec(testInsertUserSQL).
		WillReturnError(errors.New("connection refused"))
	err := store.CreateUser(ctx, user)
	assert.ErrorContains(t, err, "postgres: insert user 'u1'")
	assert.NotErrorIs(t, err, shellprefs.ErrAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetUser(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userColumns).AddRow("u1", "SFDS2", now, now)
	mock.ExpectQuery(testSelectUserSQL).WithArgs("u1").WillReturnRows(rows)

	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, shellprefs.PreferenceSFDS2, user.FrontendPreference)
	assert.Equal(t, now, user.UpdatedAt)

	mock.ExpectQuery(testSelectUserSQL).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userColumns))
	_, err = store.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, shellprefs.ErrNotFound)

	mock.ExpectQuery(testSelectUserSQL).WithArgs("u1").WillReturnError(errors.New("boom"))
	_, err = store.GetUser(ctx, "u1")
	assert.ErrorContains(t, err, "postgres: scan user 'u1'")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_SetUserPreference(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(testUpdateUserSQL).
		WithArgs("SFDS2", at, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SetUserPreference(ctx, "u1", shellprefs.PreferenceSFDS2, at))

	mock.ExpectExec(testUpdateUserSQL).
		WithArgs("SFDS2", at, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.SetUserPreference(ctx, "ghost", shellprefs.PreferenceSFDS2, at), shellprefs.ErrNotFound)

	mock.ExpectExec(testUpdateUserSQL).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows unavailable")))
	assert.ErrorContains(t, store.SetUserPreference(ctx, "u1", shellprefs.PreferenceSFDS2, at), "affected rows")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Workspaces(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	ws := &shellprefs.Workspace{ID: "w1", FrontendPolicy: shellprefs.PolicyAllowUserChoice, CreatedAt: created, UpdatedAt: created}

	mock.ExpectExec(testInsertWorkspaceSQL).
		WithArgs("w1", "ALLOW_USER_CHOICE", created, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.CreateWorkspace(ctx, ws))

	mock.ExpectExec(testInsertWorkspaceSQL).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	assert.ErrorIs(t, store.CreateWorkspace(ctx, ws), shellprefs.ErrAlreadyExists)

	mock.ExpectQuery(testSelectWorkspaceSQL).WithArgs("w1").
		WillReturnRows(sqlmock.NewRows(workspaceColumns).AddRow("w1", "ALLOW_USER_CHOICE", created, created))
	got, err := store.GetWorkspace(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, shellprefs.PolicyAllowUserChoice, got.FrontendPolicy)

	mock.ExpectQuery(testUpdatePolicySQL).
		WithArgs("FORCE_SFDS2", updated, "w1").
		WillReturnRows(sqlmock.NewRows(workspaceColumns).AddRow("w1", "FORCE_SFDS2", created, updated))
	echoed, err := store.SetWorkspacePolicy(ctx, "w1", shellprefs.PolicyForceSFDS2, updated)
	require.NoError(t, err)
	assert.Equal(t, "w1", echoed.ID)
	assert.Equal(t, shellprefs.PolicyForceSFDS2, echoed.FrontendPolicy)
	assert.Equal(t, updated, echoed.UpdatedAt)

	mock.ExpectQuery(testUpdatePolicySQL).
		WithArgs("FORCE_TWENTY", updated, "ghost").
		WillReturnRows(sqlmock.NewRows(workspaceColumns))
	_, err = store.SetWorkspacePolicy(ctx, "ghost", shellprefs.PolicyForceTwenty, updated)
	assert.ErrorIs(t, err, shellprefs.ErrNotFound)

	mock.ExpectQuery(testSelectWorkspaceSQL).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(workspaceColumns))
	_, err = store.GetWorkspace(ctx, "ghost")
	assert.ErrorIs(t, err, shellprefs.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Close(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	mock.ExpectClose()
	assert.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_ConnectionFailure(t *testing.T) {
	store, mock := newTestPostgresStorage(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(testUpdateUserSQL).WillReturnError(sql.ErrConnDone)
	err := store.SetUserPreference(ctx, "u1", shellprefs.PreferenceSFDS2, at)
	assert.ErrorIs(t, err, shellprefs.ErrStorageUnavailable)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	mock.ExpectQuery(testSelectUserSQL).WithArgs("u1").WillReturnError(errors.New("syntax error"))
	_, err = store.GetUser(ctx, "u1")
	assert.NotErrorIs(t, err, shellprefs.ErrStorageUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
