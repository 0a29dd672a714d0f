package domain

import (
	"fmt"
	"strings"
	"time"
)

// Graph endpoint defaults.
const (
	DefaultGraphBaseURL     = "https://graph.microsoft.com/v1.0"
	DefaultGraphAuthority   = "https://login.microsoftonline.com"
	DefaultGraphScope       = "https://graph.microsoft.com/.default"
	DefaultSyncDelay        = 400 * time.Millisecond
	MaxSyncDelay            = 10 * time.Second
	DefaultWatchColumn      = "DeviceName"
	DefaultHistoryListLimit = 20
)

// AuthMethod identifies how a session obtains its bearer token.
type AuthMethod string

// Available auth methods.
const (
	// AuthMethodClientCredentials uses an app registration's client secret.
	AuthMethodClientCredentials AuthMethod = "client_credentials"

	// AuthMethodStaticToken uses a pre-acquired bearer token.
	AuthMethodStaticToken AuthMethod = "static_token"

	// AuthMethodNone means nothing is configured.
	AuthMethodNone AuthMethod = "none"
)

// Description returns a human-readable description of the method.
func (m AuthMethod) Description() string {
	switch m {
	case AuthMethodClientCredentials:
		return "Client credentials (app registration)"
	case AuthMethodStaticToken:
		return "Static bearer token"
	case AuthMethodNone:
		return "Not configured"
	default:
		return "Unknown"
	}
}

// GraphSettings holds the device-management API connection settings.
type GraphSettings struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// AccessToken is a pre-acquired bearer token. When set it takes
	// precedence over client credentials.
	AccessToken string

	// BaseURL is the API root (default: Graph v1.0).
	BaseURL string

	// AuthorityURL is the identity provider root (default: login.microsoftonline.com).
	AuthorityURL string
}

// AuthMethod returns the method these settings select.
func (g GraphSettings) AuthMethod() AuthMethod {
	if g.AccessToken != "" {
		return AuthMethodStaticToken
	}
	if g.TenantID != "" && g.ClientID != "" && g.ClientSecret != "" {
		return AuthMethodClientCredentials
	}
	return AuthMethodNone
}

// IsConfigured returns true if a session can be attempted.
func (g GraphSettings) IsConfigured() bool {
	return g.AuthMethod() != AuthMethodNone
}

// TokenURL returns the OAuth2 token endpoint for the tenant.
func (g GraphSettings) TokenURL() string {
	authority := strings.TrimRight(g.AuthorityURL, "/")
	if authority == "" {
		authority = DefaultGraphAuthority
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, g.TenantID)
}

// SyncSettings controls orchestration runs.
type SyncSettings struct {
	// Delay is the fixed pacing interval between consecutive sync calls.
	Delay time.Duration

	// Platforms is the ordered platform list for a sync of all platforms.
	Platforms []Platform
}

// AuditSettings controls persistence of run reports.
type AuditSettings struct {
	Enabled bool
}

// WatchSettings controls the drop-folder watcher.
type WatchSettings struct {
	// Column is the CSV column holding device names.
	Column string
}

// AppSettings aggregates all application settings.
type AppSettings struct {
	Graph GraphSettings
	Sync  SyncSettings
	Audit AuditSettings
	Watch WatchSettings
}

// DefaultAppSettings returns the settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Graph: GraphSettings{
			BaseURL:      DefaultGraphBaseURL,
			AuthorityURL: DefaultGraphAuthority,
		},
		Sync: SyncSettings{
			Delay:     DefaultSyncDelay,
			Platforms: DefaultPlatforms(),
		},
		Audit: AuditSettings{Enabled: true},
		Watch: WatchSettings{Column: DefaultWatchColumn},
	}
}

// Validate checks settings that would otherwise fail mid-run.
func (s *AppSettings) Validate() error {
	if s.Sync.Delay < 0 || s.Sync.Delay > MaxSyncDelay {
		return fmt.Errorf("%w: sync delay %s outside 0s..%s", ErrConfiguration, s.Sync.Delay, MaxSyncDelay)
	}
	for _, p := range s.Sync.Platforms {
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown platform %q", ErrConfiguration, p)
		}
	}
	if s.Graph.BaseURL != "" && !strings.HasPrefix(s.Graph.BaseURL, "http") {
		return fmt.Errorf("%w: graph base URL must be http(s): %q", ErrConfiguration, s.Graph.BaseURL)
	}
	return nil
}
