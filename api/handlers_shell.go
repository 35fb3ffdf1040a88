// Package api provides HTTP handlers, middleware, and routing for the frontend shell service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CreativeUnicorns/shellprefs"
)

const maxBodyBytes = 1024 * 1024

var errMissingIdentity = errors.New("missing caller identity")

type createRequest struct {
	ID string `json:"id"`
}

type preferenceRequest struct {
	FrontendPreference string `json:"frontendPreference"`
}

type policyRequest struct {
	FrontendPolicy string `json:"frontendPolicy"`
}

type shellResponse struct {
	Resolution shellprefs.Resolution       `json:"resolution"`
	Redirect   shellprefs.RedirectDecision `json:"redirect"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	user, err := s.manager.CreateUser(r.Context(), req.ID)
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to create user", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, user)
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ws, err := s.manager.CreateWorkspace(r.Context(), req.ID)
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to create workspace", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, ws)
}

// handleGetShell resolves the caller's shell and, given ?path=, whether the page must redirect.
func (s *Server) handleGetShell(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		s.respondWithError(w, r, http.StatusUnauthorized, "Missing "+HeaderUserID+" header", errMissingIdentity)
		return
	}

	res, err := s.manager.ResolveFor(r.Context(), userID, WorkspaceIDFromContext(r.Context()))
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to resolve frontend shell", err)
		return
	}

	resp := shellResponse{Resolution: res}
	if path := r.URL.Query().Get("path"); path != "" {
		resp.Redirect = shellprefs.DecideRedirect(res.EffectiveShell, path)
	}
	s.respondWithJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSetFrontendPreference(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		s.respondWithError(w, r, http.StatusUnauthorized, "Missing "+HeaderUserID+" header", errMissingIdentity)
		return
	}

	var req preferenceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	pref, err := shellprefs.ParseFrontendPreference(req.FrontendPreference)
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid frontend preference", err)
		return
	}

	if err := s.manager.SetUserPreference(r.Context(), userID, pref); err != nil {
		s.respondWithManagerError(w, r, "Failed to update frontend preference", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleSetFrontendPolicy(w http.ResponseWriter, r *http.Request) {
	workspaceID := WorkspaceIDFromContext(r.Context())
	if workspaceID == "" {
		s.respondWithError(w, r, http.StatusUnauthorized, "Missing "+HeaderWorkspaceID+" header", errMissingIdentity)
		return
	}

	var req policyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	policy, err := shellprefs.ParseFrontendPolicy(req.FrontendPolicy)
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid frontend policy", err)
		return
	}

	ws, err := s.manager.SetWorkspacePolicy(r.Context(), workspaceID, policy)
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to update frontend policy", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, ws)
}

// decodeJSON reads a size-limited JSON body into dst, answering 400 itself on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	return true
}

func (s *Server) respondWithManagerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.respondWithError(w, r, statusForError(err), message, err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, shellprefs.ErrInvalidInput), errors.Is(err, shellprefs.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, shellprefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shellprefs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, shellprefs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError is a helper to send JSON error responses.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := map[string]string{"message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("API request rejected", "status", status, "message", message, "path", r.URL.Path, "error", err)
	}
	respondWithJSONRaw(w, status, map[string]any{"error": body})
}

// respondWithJSON is a helper to send JSON responses.
func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
		respondWithJSONRaw(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]string{"message": "Failed to marshal response"},
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// respondWithJSONRaw writes payload without logging, for callers that already logged.
func respondWithJSONRaw(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Critical: Failed to marshal error response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
