package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Location())
}

func TestNewConfigStoreAt_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "qa.toml")

	store, err := NewConfigStoreAt(path)

	require.NoError(t, err)
	assert.Equal(t, path, store.Location())
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[generation]
backend = "local"
requests_per_second = 2

[extraction]
max_tokens = 4096
no_judge = true
scrub_fields = ["email", "phone"]
model_timeout = "90s"

[servers]
allocations = "http://alloc:3006"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "local", store.GetString("generation.backend"))
	assert.InDelta(t, 2.0, store.GetFloat("generation.requests_per_second"), 0.0001)
	assert.Equal(t, 4096, store.GetInt("extraction.max_tokens"))
	assert.True(t, store.GetBool("extraction.no_judge"))
	assert.Equal(t, []string{"email", "phone"}, store.GetStringSlice("extraction.scrub_fields"))
	assert.Equal(t, "90s", store.GetString("extraction.model_timeout"))
	assert.Equal(t, "http://alloc:3006", store.GetString("servers.allocations"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("judge.model", "claude-3-5-haiku-20241022"))
	require.NoError(t, store.Set("judge.backend", "anthropic"))

	data, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[judge]")
	assert.NotContains(t, string(data), "'judge.model'")
}

func TestConfigStore_SaveReload_PreservesData(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	testData := map[string]any{
		"output.dir":                     "data/output",
		"extraction.max_tokens":          int64(42),
		"extraction.incremental":         true,
		"extraction.no_judge":            false,
		"generation.requests_per_second": 3.5,
		"extraction.entity_ids":          []string{"a", "b"},
	}
	for key, val := range testData {
		require.NoError(t, store.Set(key, val))
	}

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "data/output", store2.GetString("output.dir"))
	assert.Equal(t, 42, store2.GetInt("extraction.max_tokens"))
	assert.True(t, store2.GetBool("extraction.incremental"))
	assert.False(t, store2.GetBool("extraction.no_judge"))
	assert.InDelta(t, 3.5, store2.GetFloat("generation.requests_per_second"), 0.00001)
	assert.Equal(t, []string{"a", "b"}, store2.GetStringSlice("extraction.entity_ids"))
}

func TestConfigStore_ScalarPrefixConflict(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("cache", "file"))
	require.NoError(t, store.Set("cache.redis_url", "redis://localhost:6379"))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "file", store2.GetString("cache"))
	assert.Equal(t, "redis://localhost:6379", store2.GetString("cache.redis_url"))
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "text"))

	assert.Equal(t, 0, store.GetInt("k"))
	assert.Zero(t, store.GetFloat("k"))
	assert.False(t, store.GetBool("k"))
	assert.Nil(t, store.GetStringSlice("k"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_Set_WriteFailureRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Location()))
	require.NoError(t, os.Mkdir(store.Location(), 0700))

	err = store.Set("another", "value")

	assert.Error(t, err)
	_, ok := store.Get("another")
	assert.False(t, ok)
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("channel", make(chan int))

	assert.Error(t, err)
}

func TestConfigStore_SetMany_OneWrite(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SetMany(map[string]any{
		"generation.backend": "ollama",
		"generation.model":   "llama3.2",
		"output.dir":         "/data/qa",
	}))

	reloaded, err := NewConfigStoreAt(store.Location())
	require.NoError(t, err)
	assert.Equal(t, "ollama", reloaded.GetString("generation.backend"))
	assert.Equal(t, "llama3.2", reloaded.GetString("generation.model"))
	assert.Equal(t, "/data/qa", reloaded.GetString("output.dir"))
}

func TestConfigStore_SetMany_FailureKeepsPrevious(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("generation.model", "old"))

	err = store.SetMany(map[string]any{
		"generation.model": "new",
		"broken":           make(chan int),
	})

	assert.Error(t, err)
	assert.Equal(t, "old", store.GetString("generation.model"))
	_, ok := store.Get("broken")
	assert.False(t, ok)
}

func TestConfigStore_GetDuration(t *testing.T) {
	tmpDir := t.TempDir()
	content := "[extraction]\nmodel_timeout = \"90s\"\nretry_after = 15\nbad = \"soon\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, store.GetDuration("extraction.model_timeout"))
	assert.Equal(t, 15*time.Second, store.GetDuration("extraction.retry_after"))
	assert.Zero(t, store.GetDuration("extraction.bad"))
	assert.Zero(t, store.GetDuration("extraction.missing"))
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# Just a comment\n\n"), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Location())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("extraction.max_entities", 5)
			_ = store.GetInt("extraction.max_entities")
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, store.GetInt("extraction.max_entities"))
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"a":     1,
		"b.c":   2,
		"b.d.e": 3,
		"a.x":   4,
	})

	assert.Equal(t, map[string]any{
		"a":   1,
		"a.x": 4,
		"b": map[string]any{
			"c": 2,
			"d": map[string]any{"e": 3},
		},
	}, got)
}
