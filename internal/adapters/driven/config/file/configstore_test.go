package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_HomeEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom-home")
	t.Setenv(HomeEnv, dir)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	_, err = os.Stat(dir)
	assert.NoError(t, err, "directory created")
}

func TestDefaultDir_FallsBackToHome(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".intunesync"), dir)
}

func TestConfigStore_TypedValues(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("graph.tenant_id", "contoso"))
	require.NoError(t, store.Set("sync.delay_ms", 250))
	require.NoError(t, store.Set("audit.enabled", false))
	require.NoError(t, store.Set("sync.platforms", []string{"Windows", "iOS"}))

	assert.Equal(t, "contoso", store.GetString("graph.tenant_id"))
	assert.Equal(t, 250, store.GetInt("sync.delay_ms"))
	assert.False(t, store.GetBool("audit.enabled"))
	assert.Equal(t, []string{"Windows", "iOS"}, store.GetStringSlice("sync.platforms"))

	assert.Empty(t, store.GetString("sync.delay_ms"))
	assert.Zero(t, store.GetInt("graph.tenant_id"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("graph.tenant_id", "contoso"))
	require.NoError(t, store.Set("graph.client_id", "app-1"))
	require.NoError(t, store.Set("sync.delay_ms", 400))
	require.NoError(t, store.Set("sync.platforms", []string{"macOS"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[graph]")
	assert.Contains(t, string(raw), "[sync]")
	assert.NotContains(t, string(raw), "'graph.tenant_id'")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "contoso", reloaded.GetString("graph.tenant_id"))
	assert.Equal(t, "app-1", reloaded.GetString("graph.client_id"))
	assert.Equal(t, 400, reloaded.GetInt("sync.delay_ms"))
	assert.Equal(t, []string{"macOS"}, reloaded.GetStringSlice("sync.platforms"))
	assert.Equal(t, []string{"graph.client_id", "graph.tenant_id", "sync.delay_ms", "sync.platforms"}, reloaded.Keys())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[graph]
tenant_id = "fabrikam"
base_url = "https://graph.microsoft.com/beta"

[sync]
delay_ms = 0
platforms = ["Windows", "Android"]

[audit]
enabled = true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "fabrikam", store.GetString("graph.tenant_id"))
	assert.Equal(t, "https://graph.microsoft.com/beta", store.GetString("graph.base_url"))
	_, ok := store.Get("sync.delay_ms")
	assert.True(t, ok)
	assert.Zero(t, store.GetInt("sync.delay_ms"))
	assert.Equal(t, []string{"Windows", "Android"}, store.GetStringSlice("sync.platforms"))
	assert.True(t, store.GetBool("audit.enabled"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions")
	}
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("graph.client_secret", "s3cret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_CorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[graph\nbroken"), 0600))

	store, err := NewConfigStore(tmpDir)
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestConfigStore_SetRollsBackOnWriteError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("graph.tenant_id", "contoso"))

	require.NoError(t, os.Chmod(tmpDir, 0500))
	t.Cleanup(func() { _ = os.Chmod(tmpDir, 0700) })

	err = store.Set("graph.tenant_id", "fabrikam")
	require.Error(t, err)
	assert.Equal(t, "contoso", store.GetString("graph.tenant_id"))

	err = store.Set("graph.client_id", "new")
	require.Error(t, err)
	_, ok := store.Get("graph.client_id")
	assert.False(t, ok)
}

func TestConfigStore_SaveAndLoadExplicit(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("watch.column", "Hostname"))

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "Hostname", store.GetString("watch.column"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("sync.delay_ms", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("sync.delay_ms")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	_, ok := store.Get("sync.delay_ms")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"graph.tenant_id": "t",
		"graph.client_id": "c",
		"top":             1,
		"top.child":       2,
	})

	assert.Equal(t, map[string]any{"tenant_id": "t", "client_id": "c"}, nested["graph"])
	assert.Equal(t, 1, nested["top"], "leaf value wins over deeper table")

	assert.Equal(t, map[string]any{"graph.tenant_id": "t", "graph.client_id": "c", "top": 1},
		flattenMap(nested, ""))
}
