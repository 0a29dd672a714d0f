package driving

import "github.com/custodia-labs/intunesync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults applied.
	Get() (*domain.AppSettings, error)

	// Set stores a single setting by dot-notation key after validating it.
	Set(key, value string) error

	// SetClientSecret stores the app registration secret.
	SetClientSecret(secret string) error

	// Keys returns the settable keys in display order.
	Keys() []string

	// Path returns where settings are persisted.
	Path() string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
