package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intunesync/internal/adapters/driven/storage/memory"
)

// clearEnv unsets name for the duration of the test and restores it after.
func clearEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		t.Setenv(n, "")
		require.NoError(t, os.Unsetenv(n))
	}
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestWrap_EnvironmentWins(t *testing.T) {
	base := memory.NewConfigStore()
	_ = base.Set("graph.tenant_id", "from-file")
	_ = base.Set("graph.client_id", "file-client")
	_ = base.Set("sync.delay_ms", 400)

	store := Wrap(base, Variables{
		TenantID:     "from-env",
		DelayMS:      intPtr(0),
		AuditEnabled: boolPtr(false),
		Platforms:    []string{"Windows", " ", "iOS"},
	})

	assert.Equal(t, "from-env", store.GetString("graph.tenant_id"))
	assert.Equal(t, "file-client", store.GetString("graph.client_id"))
	assert.Equal(t, 0, store.GetInt("sync.delay_ms"))
	_, ok := store.Get("sync.delay_ms")
	assert.True(t, ok, "explicit zero delay is present")
	assert.False(t, store.GetBool("audit.enabled"))
	assert.Equal(t, []string{"Windows", "iOS"}, store.GetStringSlice("sync.platforms"))

	assert.True(t, store.Overridden("graph.tenant_id"))
	assert.False(t, store.Overridden("graph.client_id"))
}

func TestWrap_EmptyVariablesPassThrough(t *testing.T) {
	base := memory.NewConfigStore()
	_ = base.Set("watch.column", "Hostname")
	_ = base.Set("audit.enabled", true)

	store := Wrap(base, Variables{TenantID: "   "})

	assert.Equal(t, "Hostname", store.GetString("watch.column"))
	assert.True(t, store.GetBool("audit.enabled"))
	assert.False(t, store.Overridden("graph.tenant_id"))
	_, ok := store.Get("graph.tenant_id")
	assert.False(t, ok)
}

func TestConfigStore_TypeMismatchDoesNotFallThrough(t *testing.T) {
	base := memory.NewConfigStore()
	_ = base.Set("sync.delay_ms", 900)

	store := &ConfigStore{base: base, overlay: map[string]any{"sync.delay_ms": "fast"}}

	assert.Zero(t, store.GetInt("sync.delay_ms"))
	assert.Empty(t, store.GetString("graph.tenant_id"))
}

func TestConfigStore_KeysUnion(t *testing.T) {
	base := memory.NewConfigStore()
	_ = base.Set("sync.delay_ms", 400)
	_ = base.Set("graph.tenant_id", "t")

	store := Wrap(base, Variables{TenantID: "env", AccessToken: "tok"})

	assert.Equal(t, []string{"graph.access_token", "graph.tenant_id", "sync.delay_ms"}, store.Keys())
}

func TestConfigStore_SetWritesToBase(t *testing.T) {
	base := memory.NewConfigStore()
	store := Wrap(base, Variables{TenantID: "env"})

	require.NoError(t, store.Set("graph.tenant_id", "file"))
	require.NoError(t, store.Set("graph.client_id", "client"))

	assert.Equal(t, "file", base.GetString("graph.tenant_id"))
	assert.Equal(t, "env", store.GetString("graph.tenant_id"))
	assert.Equal(t, "client", store.GetString("graph.client_id"))
	assert.Equal(t, base.Path(), store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestNewConfigStore_ReadsPrefixedVariables(t *testing.T) {
	t.Setenv("INTUNESYNC_TENANT_ID", "contoso")
	t.Setenv("INTUNESYNC_DELAY_MS", "250")
	t.Setenv("INTUNESYNC_PLATFORMS", "macOS,Android")
	t.Setenv("INTUNESYNC_AUDIT_ENABLED", "false")

	store, err := NewConfigStore(memory.NewConfigStore())
	require.NoError(t, err)

	assert.Equal(t, "contoso", store.GetString("graph.tenant_id"))
	assert.Equal(t, 250, store.GetInt("sync.delay_ms"))
	assert.Equal(t, []string{"macOS", "Android"}, store.GetStringSlice("sync.platforms"))
	assert.False(t, store.GetBool("audit.enabled"))
	assert.True(t, store.Overridden("audit.enabled"))
}

func TestNewConfigStore_InvalidNumber(t *testing.T) {
	t.Setenv("INTUNESYNC_DELAY_MS", "soon")

	store, err := NewConfigStore(memory.NewConfigStore())
	assert.Nil(t, store)
	assert.ErrorContains(t, err, "read environment")
}

func TestNewConfigStore_DotenvFile(t *testing.T) {
	clearEnv(t, "INTUNESYNC_CLIENT_ID", "INTUNESYNC_WATCH_COLUMN")
	t.Setenv("INTUNESYNC_TENANT_ID", "process-wins")

	dotenv := filepath.Join(t.TempDir(), ".env")
	content := "INTUNESYNC_TENANT_ID=from-dotenv\nINTUNESYNC_CLIENT_ID=dotenv-client\n# comment\nINTUNESYNC_WATCH_COLUMN=Hostname\n"
	require.NoError(t, os.WriteFile(dotenv, []byte(content), 0600))

	store, err := NewConfigStore(memory.NewConfigStore(), dotenv, filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)

	assert.Equal(t, "process-wins", store.GetString("graph.tenant_id"))
	assert.Equal(t, "dotenv-client", store.GetString("graph.client_id"))
	assert.Equal(t, "Hostname", store.GetString("watch.column"))
}

func TestLoadDotenv_Malformed(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("INTUNESYNC_TENANT_ID='unterminated\n"), 0600))

	err := LoadDotenv(dotenv)
	assert.ErrorContains(t, err, "load ")
}
