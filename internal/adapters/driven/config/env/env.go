// Package env layers environment variables over a persistent ConfigStore.
//
// Variables use the INTUNESYNC_ prefix, e.g. INTUNESYNC_TENANT_ID. A .env
// file is read first; variables already present in the process environment
// are never replaced by it. Values from the environment win over the file
// store and are never written back to it.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Prefix is prepended to every variable name.
const Prefix = "INTUNESYNC"

// Variables are the recognised environment settings.
// Pointer fields distinguish "unset" from the zero value.
type Variables struct {
	TenantID     string   `envconfig:"TENANT_ID"`
	ClientID     string   `envconfig:"CLIENT_ID"`
	ClientSecret string   `envconfig:"CLIENT_SECRET"`
	AccessToken  string   `envconfig:"ACCESS_TOKEN"`
	BaseURL      string   `envconfig:"BASE_URL"`
	AuthorityURL string   `envconfig:"AUTHORITY_URL"`
	DelayMS      *int     `envconfig:"DELAY_MS"`
	Platforms    []string `envconfig:"PLATFORMS"`
	AuditEnabled *bool    `envconfig:"AUDIT_ENABLED"`
	WatchColumn  string   `envconfig:"WATCH_COLUMN"`
}

// settings maps the variables onto dot-notation config keys.
func (v Variables) settings() map[string]any {
	out := make(map[string]any)
	putString := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			out[key] = val
		}
	}

	putString("graph.tenant_id", v.TenantID)
	putString("graph.client_id", v.ClientID)
	putString("graph.client_secret", v.ClientSecret)
	putString("graph.access_token", v.AccessToken)
	putString("graph.base_url", v.BaseURL)
	putString("graph.authority_url", v.AuthorityURL)
	putString("watch.column", v.WatchColumn)

	if v.DelayMS != nil {
		out["sync.delay_ms"] = *v.DelayMS
	}
	if v.AuditEnabled != nil {
		out["audit.enabled"] = *v.AuditEnabled
	}
	var platforms []string
	for _, p := range v.Platforms {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	if len(platforms) > 0 {
		out["sync.platforms"] = platforms
	}
	return out
}

// LoadDotenv reads each existing file into the process environment.
// Missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		err := godotenv.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		logger.Debug("config: loaded environment from %s", path)
	}
	return nil
}

// Process decodes the INTUNESYNC_ variables from the process environment.
func Process() (*Variables, error) {
	var v Variables
	if err := envconfig.Process(Prefix, &v); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &v, nil
}

// ConfigStore returns environment values in preference to its base store.
// Writes go to the base store.
type ConfigStore struct {
	base    driven.ConfigStore
	overlay map[string]any
}

// NewConfigStore loads the given .env files, reads the environment and
// wraps base with the result.
func NewConfigStore(base driven.ConfigStore, dotenvPaths ...string) (*ConfigStore, error) {
	if err := LoadDotenv(dotenvPaths...); err != nil {
		return nil, err
	}
	vars, err := Process()
	if err != nil {
		return nil, err
	}
	return Wrap(base, *vars), nil
}

// Wrap overlays vars on base without touching the process environment.
func Wrap(base driven.ConfigStore, vars Variables) *ConfigStore {
	overlay := vars.settings()
	for key := range overlay {
		logger.Debug("config: %s set from environment", key)
	}
	return &ConfigStore{base: base, overlay: overlay}
}

// Overridden returns true if key comes from the environment.
func (s *ConfigStore) Overridden(key string) bool {
	_, ok := s.overlay[key]
	return ok
}

// Get retrieves a configuration value, preferring the environment.
func (s *ConfigStore) Get(key string) (any, bool) {
	if v, ok := s.overlay[key]; ok {
		return v, true
	}
	return s.base.Get(key)
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	if v, ok := s.overlay[key].(string); ok {
		return v
	}
	if s.Overridden(key) {
		return ""
	}
	return s.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	if v, ok := s.overlay[key].(int); ok {
		return v
	}
	if s.Overridden(key) {
		return 0
	}
	return s.base.GetInt(key)
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	if v, ok := s.overlay[key].(bool); ok {
		return v
	}
	if s.Overridden(key) {
		return false
	}
	return s.base.GetBool(key)
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	if v, ok := s.overlay[key].([]string); ok {
		return v
	}
	if s.Overridden(key) {
		return nil
	}
	return s.base.GetStringSlice(key)
}

// Keys returns the union of environment and stored keys, sorted.
func (s *ConfigStore) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range s.base.Keys() {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range s.overlay {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Set stores a value in the base store.
// An environment value for the same key keeps taking precedence.
func (s *ConfigStore) Set(key string, value any) error {
	if s.Overridden(key) {
		logger.Warn("config: %s is set in the environment, stored value will be ignored", key)
	}
	return s.base.Set(key, value)
}

// Save persists the base store.
func (s *ConfigStore) Save() error {
	return s.base.Save()
}

// Load reloads the base store. The environment is read once, at construction.
func (s *ConfigStore) Load() error {
	return s.base.Load()
}

// Path returns the base store's file path.
func (s *ConfigStore) Path() string {
	return s.base.Path()
}

