// Package shellprefs defines the storage and caching contracts the Manager depends on.
package shellprefs

import (
	"context"
	"time"
)

// Storage defines the methods required for a persistence backend.
// Get methods return ErrNotFound for unknown IDs; Create methods return ErrAlreadyExists for duplicates.
type Storage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	SetUserPreference(ctx context.Context, userID string, pref FrontendPreference, at time.Time) error
	CreateWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error)
	SetWorkspacePolicy(ctx context.Context, workspaceID string, policy FrontendPolicy, at time.Time) (*Workspace, error)
	Close() error
}

// Cache defines the methods required for a caching backend. A miss returns ErrNotFound.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
