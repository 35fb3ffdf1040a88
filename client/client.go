// Package client talks to the shellprefs GraphQL endpoint and drives the shell pickers
// and redirect logic of a frontend application.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/CreativeUnicorns/shellprefs"
)

const (
	defaultTimeout = 10 * time.Second
	graphqlPath    = "/graphql"
)

// ErrRequestFailed wraps every transport, HTTP or GraphQL-level failure.
var ErrRequestFailed = errors.New("shellprefs request failed")

const (
	updatePreferenceMutation = `mutation UpdateUserFrontendPreference($frontendPreference: FrontendPreference!) {
  updateUserFrontendPreference(frontendPreference: $frontendPreference)
}`

	updateWorkspacePolicyMutation = `mutation UpdateWorkspaceFrontendPolicy($data: UpdateWorkspaceInput!) {
  updateWorkspace(data: $data) {
    id
    frontendPolicy
  }
}`

	currentShellQuery = `query CurrentShell {
  currentUser { id frontendPreference }
  currentWorkspace { id frontendPolicy }
  frontendShell { effectiveShell isForced userPreference rawPolicy }
}`
)

// Snapshot is what a frontend needs to render its pickers and pick a shell.
type Snapshot struct {
	User       *shellprefs.User      `json:"currentUser"`
	Workspace  *shellprefs.Workspace `json:"currentWorkspace"`
	Resolution shellprefs.Resolution `json:"frontendShell"`
}

// Client is a GraphQL client for the shellprefs API.
type Client struct {
	http   *resty.Client
	logger shellprefs.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserID sends the caller's user ID with every request.
func WithUserID(id string) Option {
	return func(c *Client) {
		c.http.SetHeader("X-User-ID", id)
	}
}

// WithWorkspaceID sends the caller's current workspace ID with every request.
func WithWorkspaceID(id string) Option {
	return func(c *Client) {
		c.http.SetHeader("X-Workspace-ID", id)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l shellprefs.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for the server at baseURL. Mutations are never retried.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		logger: shellprefs.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// UpdateUserFrontendPreference stores the caller's preference.
func (c *Client) UpdateUserFrontendPreference(ctx context.Context, pref shellprefs.FrontendPreference) error {
	var data struct {
		Updated bool `json:"updateUserFrontendPreference"`
	}
	vars := map[string]any{"frontendPreference": string(pref)}
	if err := c.do(ctx, "UpdateUserFrontendPreference", updatePreferenceMutation, vars, &data); err != nil {
		return err
	}
	if !data.Updated {
		return fmt.Errorf("%w: preference was not updated", ErrRequestFailed)
	}
	return nil
}

// UpdateWorkspaceFrontendPolicy sets the current workspace's policy and returns the server's echo.
func (c *Client) UpdateWorkspaceFrontendPolicy(ctx context.Context, policy shellprefs.FrontendPolicy) (*shellprefs.Workspace, error) {
	var data struct {
		Workspace *shellprefs.Workspace `json:"updateWorkspace"`
	}
	vars := map[string]any{"data": map[string]any{"frontendPolicy": string(policy)}}
	if err := c.do(ctx, "UpdateWorkspaceFrontendPolicy", updateWorkspacePolicyMutation, vars, &data); err != nil {
		return nil, err
	}
	if data.Workspace == nil {
		return nil, fmt.Errorf("%w: empty workspace in response", ErrRequestFailed)
	}
	return data.Workspace, nil
}

// CurrentShell loads the caller's user, workspace and resolved shell in one round trip.
func (c *Client) CurrentShell(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.do(ctx, "CurrentShell", currentShellQuery, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) do(ctx context.Context, operation, query string, vars map[string]any, dst any) error {
	var out graphQLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"operationName": operation,
			"query":         query,
			"variables":     vars,
		}).
		SetResult(&out).
		Post(graphqlPath)
	if err != nil {
		c.logger.Error("GraphQL request failed", "operation", operation, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrRequestFailed, operation, err)
	}
	if resp.IsError() {
		c.logger.Error("GraphQL request rejected", "operation", operation, "status", resp.StatusCode())
		return fmt.Errorf("%w: %s: unexpected status %d", ErrRequestFailed, operation, resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		c.logger.Warn("GraphQL operation returned errors", "operation", operation, "errors", msgs)
		return fmt.Errorf("%w: %s: %s", ErrRequestFailed, operation, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(out.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrRequestFailed, operation, err)
	}
	return nil
}
