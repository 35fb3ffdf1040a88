package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/shellprefs"
	"github.com/CreativeUnicorns/shellprefs/storage"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)         {}
func (nopLogger) Info(string, ...any)          {}
func (nopLogger) Warn(string, ...any)          {}
func (nopLogger) Error(string, ...any)         {}
func (nopLogger) SetLevel(shellprefs.LogLevel) {}

// newTestServer seeds user u1 and workspace w1 with their defaults.
func newTestServer(t *testing.T) (*httptest.Server, *shellprefs.Manager) {
	t.Helper()
	mgr := shellprefs.New(
		shellprefs.WithStorage(storage.NewMemoryStorage()),
		shellprefs.WithLogger(nopLogger{}),
	)
	ctx := context.Background()
	_, err := mgr.CreateUser(ctx, "u1")
	require.NoError(t, err)
	_, err = mgr.CreateWorkspace(ctx, "w1")
	require.NoError(t, err)

	srv, err := NewServer(Config{Manager: mgr, Logger: nopLogger{}})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mgr
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestNewServer_RequiresManager(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestNewServer_Defaults(t *testing.T) {
	mgr := shellprefs.New(shellprefs.WithStorage(storage.NewMemoryStorage()), shellprefs.WithLogger(nopLogger{}))
	srv, err := NewServer(Config{Manager: mgr, Logger: nopLogger{}})
	require.NoError(t, err)
	assert.Equal(t, ":8080", srv.httpServer.Addr)
	assert.NotZero(t, srv.httpServer.ReadTimeout)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestIdentityMiddleware(t *testing.T) {
	var gotUser, gotWorkspace string
	h := IdentityMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotWorkspace = WorkspaceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, " u1 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u1", gotUser)
	assert.Empty(t, gotWorkspace)
}
