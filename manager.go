// manager.go
package shellprefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// Manager persists frontend settings and resolves the effective shell for a user.
// Writes are last-write-wins per field; there is no version check between concurrent writers.
type Manager struct {
	config *Config
	now    func() time.Time
}

func New(opts ...Option) *Manager {
	cfg := &Config{
		logger:   NewDefaultLogger(),
		cacheTTL: defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Manager{
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a user with the default preference.
func (m *Manager) CreateUser(ctx context.Context, userID string) (*User, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}

	now := m.now()
	user := &User{
		ID:                 userID,
		FrontendPreference: DefaultFrontendPreference,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.config.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	m.config.logger.Info("User registered", "user_id", userID)
	return user, nil
}

// CreateWorkspace registers a workspace with the default policy.
func (m *Manager) CreateWorkspace(ctx context.Context, workspaceID string) (*Workspace, error) {
	if err := validateID(workspaceID); err != nil {
		return nil, err
	}

	now := m.now()
	ws := &Workspace{
		ID:             workspaceID,
		FrontendPolicy: DefaultFrontendPolicy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.config.storage.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	m.config.logger.Info("Workspace registered", "workspace_id", workspaceID)
	return ws, nil
}

func (m *Manager) GetUser(ctx context.Context, userID string) (*User, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}

	key := userCacheKey(userID)
	var user User
	if m.getFromCache(ctx, key, &user) {
		return &user, nil
	}

	stored, err := m.config.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.setToCache(ctx, key, stored)
	return stored, nil
}

func (m *Manager) GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error) {
	if err := validateID(workspaceID); err != nil {
		return nil, err
	}

	key := workspaceCacheKey(workspaceID)
	var ws Workspace
	if m.getFromCache(ctx, key, &ws) {
		return &ws, nil
	}

	stored, err := m.config.storage.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	m.setToCache(ctx, key, stored)
	return stored, nil
}

// SetUserPreference stores a new preference on the user's own record.
func (m *Manager) SetUserPreference(ctx context.Context, userID string, pref FrontendPreference) error {
	if err := validateID(userID); err != nil {
		return err
	}
	if !pref.Valid() {
		return fmt.Errorf("%w: unknown frontend preference %q", ErrInvalidValue, pref)
	}

	if err := m.config.storage.SetUserPreference(ctx, userID, pref, m.now()); err != nil {
		return err
	}
	m.deleteFromCache(ctx, userCacheKey(userID))

	m.config.logger.Info("Frontend preference updated", "user_id", userID, "frontend_preference", pref)
	return nil
}

// SetWorkspacePolicy stores a new policy for the whole workspace and returns the updated record.
// Authorization is the caller's responsibility.
func (m *Manager) SetWorkspacePolicy(ctx context.Context, workspaceID string, policy FrontendPolicy) (*Workspace, error) {
	if err := validateID(workspaceID); err != nil {
		return nil, err
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: unknown frontend policy %q", ErrInvalidValue, policy)
	}

	ws, err := m.config.storage.SetWorkspacePolicy(ctx, workspaceID, policy, m.now())
	if err != nil {
		return nil, err
	}
	m.deleteFromCache(ctx, workspaceCacheKey(workspaceID))

	m.config.logger.Info("Frontend policy updated", "workspace_id", workspaceID, "frontend_policy", policy)
	return ws, nil
}

// ResolveFor loads the user and, when workspaceID is set, the workspace, then applies Resolve.
// An unknown user or workspace yields ErrNotFound: there is nothing to render yet.
func (m *Manager) ResolveFor(ctx context.Context, userID, workspaceID string) (Resolution, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}

	var policy FrontendPolicy
	if workspaceID != "" {
		ws, err := m.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return Resolution{}, err
		}
		policy = ws.FrontendPolicy
	}

	res := Resolve(policy, user.FrontendPreference)
	m.config.logger.Debug("Frontend shell resolved",
		"user_id", userID,
		"workspace_id", workspaceID,
		"effective_shell", res.EffectiveShell,
		"forced", res.IsForced,
	)
	return res, nil
}

// Close releases the storage and cache backends.
func (m *Manager) Close() error {
	var errs []error
	if m.config.cache != nil {
		if err := m.config.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if m.config.storage != nil {
		if err := m.config.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func userCacheKey(userID string) string {
	return fmt.Sprintf("shell:user:%s", userID)
}

func workspaceCacheKey(workspaceID string) string {
	return fmt.Sprintf("shell:workspace:%s", workspaceID)
}

// getFromCache decodes a cached snapshot into dst. Any miss or failure reads through to storage.
func (m *Manager) getFromCache(ctx context.Context, key string, dst any) bool {
	if m.config.cache == nil {
		return false
	}
	data, err := m.config.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.config.logger.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		m.config.logger.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (m *Manager) setToCache(ctx context.Context, key string, value any) {
	if m.config.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		m.config.logger.Error("Failed to marshal snapshot for cache", "key", key, "error", err)
		return
	}
	if err := m.config.cache.Set(ctx, key, data, m.config.cacheTTL); err != nil {
		m.config.logger.Error("Failed to cache snapshot", "key", key, "error", err)
	}
}

func (m *Manager) deleteFromCache(ctx context.Context, key string) {
	if m.config.cache == nil {
		return
	}
	if err := m.config.cache.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		m.config.logger.Error("Failed to delete snapshot from cache", "key", key, "error", err)
	}
}
