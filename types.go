// Package shellprefs defines the core types used to resolve a user's frontend shell.
package shellprefs

import (
	"time"
)

// FrontendPreference is the shell a user asked for. The empty value means no preference was loaded.
type FrontendPreference string

// Supported user preferences.
const (
	PreferenceTwenty FrontendPreference = "TWENTY"
	PreferenceSFDS2  FrontendPreference = "SFDS2"
)

// FrontendPolicy is a workspace-wide rule that either leaves the choice to each member or
// fixes one shell for everybody. The empty value means no policy was loaded.
type FrontendPolicy string

// Supported workspace policies.
const (
	PolicyAllowUserChoice FrontendPolicy = "ALLOW_USER_CHOICE"
	PolicyForceTwenty     FrontendPolicy = "FORCE_TWENTY"
	PolicyForceSFDS2      FrontendPolicy = "FORCE_SFDS2"
)

// Shell is the frontend variant actually rendered to a user. It is always derived and never stored.
type Shell string

// Shells served by the product.
const (
	ShellTwenty Shell = "TWENTY"
	ShellSFDS2  Shell = "SFDS2"
)

// Defaults applied when a user or workspace is created.
const (
	DefaultFrontendPreference = PreferenceTwenty
	DefaultFrontendPolicy     = PolicyAllowUserChoice
)

// User is the slice of a user account this package cares about.
type User struct {
	ID                 string             `json:"id" db:"id"`
	FrontendPreference FrontendPreference `json:"frontendPreference" db:"frontend_preference"`
	CreatedAt          time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" db:"updated_at"`
}

// Workspace is the slice of a workspace record this package cares about.
type Workspace struct {
	ID             string         `json:"id" db:"id"`
	FrontendPolicy FrontendPolicy `json:"frontendPolicy" db:"frontend_policy"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

// Resolution is the outcome of applying a workspace policy over a user preference.
type Resolution struct {
	// EffectiveShell is the shell to render.
	EffectiveShell Shell `json:"effectiveShell"`
	// IsForced reports that the workspace policy fixed the shell; the user cannot change it.
	IsForced bool `json:"isForced"`
	// UserPreference is the normalized stored preference, reported even when overridden.
	UserPreference FrontendPreference `json:"userPreference"`
	// RawPolicy is the policy as loaded, nil when the workspace carried none.
	RawPolicy *FrontendPolicy `json:"rawPolicy"`
}

// RedirectDecision tells the caller whether a full top-level navigation is required.
type RedirectDecision struct {
	Redirect bool   `json:"redirect"`
	Location string `json:"location,omitempty"`
}

// Config holds the internal configuration for a Manager instance.
// It is populated by applying functional Options when a new Manager is created with New().
type Config struct {
	storage  Storage
	cache    Cache
	logger   Logger
	cacheTTL time.Duration
}

// Option configures a Manager instance. Options are passed to New().
type Option func(*Config)

// WithStorage sets the Storage implementation used to persist users and workspaces.
// This is a mandatory option for a functional Manager.
func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithCache sets an optional Cache used for user and workspace snapshots.
func WithCache(cache Cache) Option {
	return func(c *Config) {
		c.cache = cache
	}
}

// WithLogger sets the Logger used by the Manager. Defaults to a JSON slog logger on stderr.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithCacheTTL overrides how long cached snapshots live. Non-positive values are ignored.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}
