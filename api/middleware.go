package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/CreativeUnicorns/shellprefs"
)

// Identity headers set by the upstream gateway. They are trusted as-is.
const (
	HeaderUserID      = "X-User-ID"
	HeaderWorkspaceID = "X-Workspace-ID"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	workspaceIDKey
)

// LoggerMiddleware returns a middleware that logs requests using the provided logger.
func LoggerMiddleware(logger shellprefs.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t0 := time.Now()
			defer func() {
				logger.Info("Served request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"latency_ms", float64(time.Since(t0).Microseconds())/1000.0,
					"request_id", middleware.GetReqID(r.Context()),
					"user_id", r.Header.Get(HeaderUserID),
				)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// IdentityMiddleware copies the caller's user and workspace IDs from request headers into the context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			ctx = context.WithValue(ctx, userIDKey, id)
		}
		if id := strings.TrimSpace(r.Header.Get(HeaderWorkspaceID)); id != "" {
			ctx = context.WithValue(ctx, workspaceIDKey, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the caller's user ID, or "" when the request carried none.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WorkspaceIDFromContext returns the caller's current workspace ID, or "".
func WorkspaceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workspaceIDKey).(string)
	return id
}
