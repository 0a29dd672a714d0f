package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyTenantID     = "graph.tenant_id"
	KeyClientID     = "graph.client_id"
	KeyClientSecret = "graph.client_secret"
	KeyAccessToken  = "graph.access_token"
	KeyBaseURL      = "graph.base_url"
	KeyAuthorityURL = "graph.authority_url"
	KeySyncDelay    = "sync.delay_ms"
	KeyPlatforms    = "sync.platforms"
	KeyAuditEnabled = "audit.enabled"
	KeyWatchColumn  = "watch.column"
)

// settingKeys lists every settable key in display order.
var settingKeys = []string{
	KeyTenantID,
	KeyClientID,
	KeyClientSecret,
	KeyAccessToken,
	KeyBaseURL,
	KeyAuthorityURL,
	KeySyncDelay,
	KeyPlatforms,
	KeyAuditEnabled,
	KeyWatchColumn,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Unset keys take their defaults; out-of-range values are a configuration error.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Graph: domain.GraphSettings{
			TenantID:     s.configStore.GetString(KeyTenantID),
			ClientID:     s.configStore.GetString(KeyClientID),
			ClientSecret: s.configStore.GetString(KeyClientSecret),
			AccessToken:  s.configStore.GetString(KeyAccessToken),
			BaseURL:      s.getString(KeyBaseURL, defaults.Graph.BaseURL),
			AuthorityURL: s.getString(KeyAuthorityURL, defaults.Graph.AuthorityURL),
		},
		Sync: domain.SyncSettings{
			Delay:     s.getDelay(defaults.Sync.Delay),
			Platforms: s.getPlatforms(defaults.Sync.Platforms),
		},
		Audit: domain.AuditSettings{
			Enabled: s.getBool(KeyAuditEnabled, defaults.Audit.Enabled),
		},
		Watch: domain.WatchSettings{
			Column: s.getString(KeyWatchColumn, defaults.Watch.Column),
		},
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set validates value for key and persists it with its native type.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)

	var stored any
	switch key {
	case KeyTenantID, KeyClientID, KeyAccessToken:
		stored = value
	case KeyClientSecret:
		return fmt.Errorf("%w: %s is a secret, use set-secret", domain.ErrConfiguration, key)
	case KeyBaseURL, KeyAuthorityURL:
		if err := validateHTTPURL(value); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, key, err)
		}
		stored = strings.TrimRight(value, "/")
	case KeySyncDelay:
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a whole number of milliseconds", domain.ErrConfiguration, key)
		}
		d := time.Duration(ms) * time.Millisecond
		if d < 0 || d > domain.MaxSyncDelay {
			return fmt.Errorf("%w: %s must be between 0 and %d", domain.ErrConfiguration, key,
				domain.MaxSyncDelay.Milliseconds())
		}
		stored = ms
	case KeyPlatforms:
		platforms, err := domain.ParsePlatforms(splitList(value))
		if err != nil {
			return err
		}
		if len(platforms) == 0 {
			return fmt.Errorf("%w: %s needs at least one platform", domain.ErrConfiguration, key)
		}
		names := make([]string, len(platforms))
		for i, p := range platforms {
			names[i] = p.String()
		}
		stored = names
	case KeyAuditEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrConfiguration, key)
		}
		stored = b
	case KeyWatchColumn:
		if value == "" {
			return fmt.Errorf("%w: %s cannot be empty", domain.ErrConfiguration, key)
		}
		stored = value
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrConfiguration, key)
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetClientSecret stores the app registration secret.
func (s *SettingsService) SetClientSecret(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("%w: client secret cannot be empty", domain.ErrConfiguration)
	}
	if err := s.configStore.Set(KeyClientSecret, secret); err != nil {
		return fmt.Errorf("save client secret: %w", err)
	}
	return nil
}

// Keys returns the settable keys in display order.
func (s *SettingsService) Keys() []string {
	out := make([]string, len(settingKeys))
	copy(out, settingKeys)
	return out
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDelay reads sync.delay_ms. Zero is a valid explicit value.
func (s *SettingsService) getDelay(defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(KeySyncDelay); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(KeySyncDelay)) * time.Millisecond
}

func (s *SettingsService) getPlatforms(defaultVal []domain.Platform) []domain.Platform {
	names := s.configStore.GetStringSlice(KeyPlatforms)
	if len(names) == 0 {
		return defaultVal
	}
	platforms, err := domain.ParsePlatforms(names)
	if err != nil || len(platforms) == 0 {
		return defaultVal
	}
	return platforms
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// splitList splits a comma or whitespace separated list, dropping blanks.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
