package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/images"
	"go-passport-recognizer/llm"
	"go-passport-recognizer/nfc"
)

func TestReadConfigDefaults(t *testing.T) {
	config, _, err := readConfigFile("")
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", config.ServerConfig.Host)
	require.Equal(t, 30450, config.ServerConfig.Port)
	require.Equal(t, "info", config.LogLevel)
	require.Equal(t, "./files", config.FilesDir)
	require.Equal(t, "./data/app.db", config.DbPath)
	require.Equal(t, nfc.DefaultMaxFaceImageBytes, config.MaxFaceImageBytes)
	require.Equal(t, images.DefaultEOIWindow, config.JpegEOIWindow)
	require.Equal(t, llm.DefaultBaseURL, config.LLMConfig.BaseURL)
	require.Equal(t, llm.DefaultModel, config.LLMConfig.Model)
	require.Equal(t, 120, config.LLMConfig.TimeoutSec)
	require.Equal(t, "ru", config.LLMConfig.Language)
	require.Equal(t, "sqlite", config.StorageType)
	require.Equal(t, "memory", config.EventBusType)
}

func TestReadConfigEnvironment(t *testing.T) {
	t.Setenv("APP_HOST", "0.0.0.0")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("FILES_DIR", "/srv/files")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "llava")
	t.Setenv("OLLAMA_TIMEOUT_SEC", "30")
	t.Setenv("LLM_LANG", "en")

	config, _, err := readConfigFile("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", config.ServerConfig.Host)
	require.Equal(t, 9000, config.ServerConfig.Port)
	require.Equal(t, "/srv/files", config.FilesDir)
	require.Equal(t, "http://ollama:11434", config.LLMConfig.BaseURL)
	require.Equal(t, "llava", config.LLMConfig.Model)
	require.Equal(t, 30, config.LLMConfig.TimeoutSec)
	require.Equal(t, "en", config.LLMConfig.Language)
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server_config": {"host": "localhost", "port": 8080},
		"log_level": "debug",
		"storage_type": "memory",
		"event_bus_type": "redis",
		"redis_config": {"host": "redis", "port": 6379, "namespace": "passport"},
		"llm_config": {"model": "qwen2.5-vl", "attempts": 3}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OLLAMA_MODEL", "from-env")

	config, v, err := readConfigFile(path)
	require.NoError(t, err)
	require.NotNil(t, v)

	require.Equal(t, "localhost", config.ServerConfig.Host)
	require.Equal(t, 8080, config.ServerConfig.Port)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, "memory", config.StorageType)
	require.Equal(t, "redis", config.EventBusType)
	require.Equal(t, "redis", config.RedisConfig.Host)
	require.Equal(t, 6379, config.RedisConfig.Port)
	require.Equal(t, "passport", config.RedisConfig.Namespace)
	require.Equal(t, 3, config.LLMConfig.Attempts)
	// environment wins over the file
	require.Equal(t, "from-env", config.LLMConfig.Model)
	// untouched keys keep their defaults
	require.Equal(t, llm.DefaultBaseURL, config.LLMConfig.BaseURL)
}

func TestReadConfigFileMissing(t *testing.T) {
	_, _, err := readConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestCreateBackends(t *testing.T) {
	config := Config{StorageType: "memory", EventBusType: "memory"}

	store, err := createStore(t.Context(), &config)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	bus, err := createEventBus(&config)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	config.StorageType = "sqlite"
	config.DbPath = filepath.Join(t.TempDir(), "db", "app.db")
	store, err = createStore(t.Context(), &config)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	config.StorageType = "postgres"
	_, err = createStore(t.Context(), &config)
	require.Error(t, err)

	config.EventBusType = "kafka"
	_, err = createEventBus(&config)
	require.Error(t, err)
}
