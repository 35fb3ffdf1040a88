package shellprefs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mu         sync.RWMutex
	users      map[string]User
	workspaces map[string]Workspace
	closed     bool
	forceErr   error // returned by every write when set
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		users:      make(map[string]User),
		workspaces: make(map[string]Workspace),
	}
}

// SetWriteError makes every subsequent write fail with err.
func (m *MockStorage) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceErr = err
}

func (m *MockStorage) CreateUser(ctx context.Context, user *User) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	if m.forceErr != nil {
		return m.forceErr
	}
	if _, exists := m.users[user.ID]; exists {
		return ErrAlreadyExists
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockStorage) GetUser(ctx context.Context, userID string) (*User, error) {
	_, _ = ctx.Deadline()
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	user, exists := m.users[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *MockStorage) SetUserPreference(ctx context.Context, userID string, pref FrontendPreference, at time.Time) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	if m.forceErr != nil {
		return m.forceErr
	}
	user, exists := m.users[userID]
	if !exists {
		return ErrNotFound
	}
	user.FrontendPreference = pref
	user.UpdatedAt = at
	m.users[userID] = user
	return nil
}

func (m *MockStorage) CreateWorkspace(ctx context.Context, ws *Workspace) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	if m.forceErr != nil {
		return m.forceErr
	}
	if _, exists := m.workspaces[ws.ID]; exists {
		return ErrAlreadyExists
	}
	m.workspaces[ws.ID] = *ws
	return nil
}

func (m *MockStorage) GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error) {
	_, _ = ctx.Deadline()
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	ws, exists := m.workspaces[workspaceID]
	if !exists {
		return nil, ErrNotFound
	}
	return &ws, nil
}

func (m *MockStorage) SetWorkspacePolicy(ctx context.Context, workspaceID string, policy FrontendPolicy, at time.Time) (*Workspace, error) {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if m.forceErr != nil {
		return nil, m.forceErr
	}
	ws, exists := m.workspaces[workspaceID]
	if !exists {
		return nil, ErrNotFound
	}
	ws.FrontendPolicy = policy
	ws.UpdatedAt = at
	m.workspaces[workspaceID] = ws
	return &ws, nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockCacheEntry holds a value and an error for a cache key.
// This allows tests to pre-configure specific return values and errors for MockCache.Get.
type mockCacheEntry struct {
	value []byte
	err   error
}

// MockCache implements the Cache interface for testing
type MockCache struct {
	mu     sync.RWMutex
	data   map[string]mockCacheEntry
	gets   int
	closed bool
}

// NewMockCache creates a new MockCache for testing.
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]mockCacheEntry),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	if m.closed {
		return nil, ErrCacheUnavailable
	}

	entry, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	return entry.value, entry.err
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, _ = ctx.Deadline()
	_ = ttl // TTL is ignored in this mock implementation

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}
	m.data[key] = mockCacheEntry{value: value}
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}
	if _, exists := m.data[key]; exists {
		delete(m.data, key)
		return nil
	}
	return ErrNotFound
}

func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// put stores a raw entry, used to simulate corrupted or failing cache reads.
func (m *MockCache) put(key string, value []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = mockCacheEntry{value: value, err: err}
}

func (m *MockCache) has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// MockLogger implements the Logger interface for testing
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
}

func (m *MockLogger) Debug(msg string, args ...any) {
	m.record("DEBUG", msg, args...)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.record("INFO", msg, args...)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	m.record("WARN", msg, args...)
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.record("ERROR", msg, args...)
}

// SetLevel records the attempt to set the log level for test verification.
func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, fmt.Sprintf("SET_LEVEL: %v", level))
}

func (m *MockLogger) record(level, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, formatMessage(level, msg, args...))
}

func formatMessage(level, msg string, args ...any) string {
	if len(args) > 0 {
		return fmt.Sprintf("%s: %s %v", level, msg, args)
	}
	return fmt.Sprintf("%s: %s", level, msg)
}
