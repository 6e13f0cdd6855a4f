package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyOllamaModel, "llama3.2"))
	require.NoError(t, store.Set(KeyHTTPTimeoutSeconds, 30))
	require.NoError(t, store.Set("verbose", true))

	assert.Equal(t, "llama3.2", store.GetString(KeyOllamaModel))
	assert.Equal(t, 30, store.GetInt(KeyHTTPTimeoutSeconds))
	assert.True(t, store.GetBool("verbose"))
}

func TestConfigStore_MissingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyGitHubToken, "ghp_test"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "ghp_test", reopened.GetString(KeyGitHubToken))
	assert.Equal(t, filepath.Join(dir, "config.toml"), reopened.Path())
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := "[ollama]\nbase_url = \"http://localhost:11434\"\nmodel = \"llama3.2\"\n\n[ingest]\npackages = [\"django\", \"flask\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", store.GetString(KeyOllamaBaseURL))
	assert.Equal(t, []string{"django", "flask"}, store.GetStringSlice(KeyPackages))
}

func TestCredential_EnvFallback(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	t.Setenv("VIGIL_TEST_TOKEN", "from-env")
	assert.Equal(t, "from-env", Credential(store, KeyGitHubToken, "VIGIL_TEST_TOKEN"))

	require.NoError(t, store.Set(KeyGitHubToken, "from-config"))
	assert.Equal(t, "from-config", Credential(store, KeyGitHubToken, "VIGIL_TEST_TOKEN"))
}

func TestPackages_Default(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultPackages, Packages(store))

	require.NoError(t, store.Set(KeyPackages, []string{"requests"}))
	assert.Equal(t, []string{"requests"}, Packages(store))
}

func TestPromptStore_LoadDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(filepath.Join(dir, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load("select_relevant")
	require.NoError(t, err)
	assert.Contains(t, prompt, `{"selected"`)

	// First Load materialised the default files; edit one and reload.
	path := filepath.Join(dir, "prompts", "select_relevant.txt")
	require.NoError(t, os.WriteFile(path, []byte("custom %q %s"), 0600))
	store.Reload()

	prompt, err = store.Load("select_relevant")
	require.NoError(t, err)
	assert.Equal(t, "custom %q %s", prompt)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(filepath.Join(t.TempDir(), "prompts"))
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	assert.Error(t, err)
}
