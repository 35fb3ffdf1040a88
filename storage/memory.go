package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CreativeUnicorns/shellprefs"
)

// MemoryStorage implements shellprefs.Storage using in-memory maps.
// This is useful for testing or local development where persistence is not required.
type MemoryStorage struct {
	mu         sync.RWMutex
	users      map[string]shellprefs.User
	workspaces map[string]shellprefs.Workspace
}

// NewMemoryStorage creates a new instance of MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:      make(map[string]shellprefs.User),
		workspaces: make(map[string]shellprefs.Workspace),
	}
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *shellprefs.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user '%s'", shellprefs.ErrAlreadyExists, user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

// GetUser returns a copy so callers cannot modify the stored record.
func (s *MemoryStorage) GetUser(_ context.Context, userID string) (*shellprefs.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, shellprefs.ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStorage) SetUserPreference(_ context.Context, userID string, pref shellprefs.FrontendPreference, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return shellprefs.ErrNotFound
	}
	user.FrontendPreference = pref
	user.UpdatedAt = at
	s.users[userID] = user
	return nil
}

func (s *MemoryStorage) CreateWorkspace(_ context.Context, ws *shellprefs.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[ws.ID]; ok {
		return fmt.Errorf("%w: workspace '%s'", shellprefs.ErrAlreadyExists, ws.ID)
	}
	s.workspaces[ws.ID] = *ws
	return nil
}

func (s *MemoryStorage) GetWorkspace(_ context.Context, workspaceID string) (*shellprefs.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return nil, shellprefs.ErrNotFound
	}
	return &ws, nil
}

func (s *MemoryStorage) SetWorkspacePolicy(_ context.Context, workspaceID string, policy shellprefs.FrontendPolicy, at time.Time) (*shellprefs.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return nil, shellprefs.ErrNotFound
	}
	ws.FrontendPolicy = policy
	ws.UpdatedAt = at
	s.workspaces[workspaceID] = ws
	return &ws, nil
}

// Close is a no-op for MemoryStorage.
func (s *MemoryStorage) Close() error {
	return nil
}
