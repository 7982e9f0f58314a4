package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"HOST", "PORT", "LOG_LEVEL", "ASR_BACKEND", "WHISPER_MODEL_PATH", "WHISPER_THREADS",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"INFERENCE_WORKERS", "INFERENCE_TIMEOUT_SEC", "MAX_UPLOAD_MB",
}

// isolate clears the config environment and moves into an empty directory so
// no stray .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		t.Setenv(strings.ToLower(k), "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "whisper", cfg.ASR.Backend)
	assert.Equal(t, "whisper-1", cfg.ASR.OpenAIModel)
	assert.Equal(t, runtime.NumCPU(), cfg.InferenceWorkers)
	assert.Equal(t, 5*time.Minute, cfg.InferenceTimeout)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("ASR_BACKEND", "openai")
	t.Setenv("INFERENCE_WORKERS", "3")
	t.Setenv("INFERENCE_TIMEOUT_SEC", "0")

	cfg := Load()
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "openai", cfg.ASR.Backend)
	assert.Equal(t, 3, cfg.InferenceWorkers)
	assert.Zero(t, cfg.InferenceTimeout)
}

func TestLoadInvalidPortFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "eighty")
	assert.Equal(t, 8000, Load().Port)

	t.Setenv("PORT", "70000")
	assert.Equal(t, 8000, Load().Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HOST=10.0.0.5\nPORT=8123\n"), 0o600))
	// godotenv sets variables for the whole process; unset them afterwards.
	t.Cleanup(func() {
		os.Unsetenv("HOST")
		os.Unsetenv("PORT")
	})
	os.Unsetenv("HOST")
	os.Unsetenv("PORT")

	cfg := Load()
	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 8123, cfg.Port)
}

func TestLoadLowercaseKeys(t *testing.T) {
	isolate(t)
	t.Setenv("host", "127.0.0.2")
	t.Setenv("port", "9191")
	t.Setenv("asr_backend", "openai")

	cfg := Load()
	assert.Equal(t, "127.0.0.2:9191", cfg.Addr())
	assert.Equal(t, "openai", cfg.ASR.Backend)

	t.Setenv("PORT", "9292")
	assert.Equal(t, 9292, Load().Port)
}

func TestLoadLowercaseDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("host=10.0.0.6\nport=8124\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("host")
		os.Unsetenv("port")
	})
	os.Unsetenv("host")
	os.Unsetenv("port")

	cfg := Load()
	assert.Equal(t, "10.0.0.6", cfg.Host)
	assert.Equal(t, 8124, cfg.Port)
}
