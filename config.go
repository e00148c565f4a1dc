package main

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"go-passport-recognizer/images"
	"go-passport-recognizer/llm"
	"go-passport-recognizer/logging"
	"go-passport-recognizer/nfc"
	"go-passport-recognizer/redis"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level"`
	FilesDir  string `json:"files_dir"`
	DbPath    string `json:"db_path"`
	StaticDir string `json:"static_dir,omitempty"`

	MaxFaceImageBytes int `json:"max_face_image_bytes"`
	JpegEOIWindow     int `json:"jpeg_eoi_window"`
	FaceMaxDimension  int `json:"face_max_dimension"`

	LLMConfig llm.LLMConfig `json:"llm_config"`

	StorageType         string                    `json:"storage_type"`
	EventBusType        string                    `json:"event_bus_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

var configDefaults = map[string]any{
	"server_config.host":     "127.0.0.1",
	"server_config.port":     30450,
	"log_level":              "info",
	"files_dir":              "./files",
	"db_path":                "./data/app.db",
	"static_dir":             "",
	"max_face_image_bytes":   nfc.DefaultMaxFaceImageBytes,
	"jpeg_eoi_window":        images.DefaultEOIWindow,
	"face_max_dimension":     0,
	"llm_config.base_url":    llm.DefaultBaseURL,
	"llm_config.model":       llm.DefaultModel,
	"llm_config.timeout_sec": int(llm.DefaultTimeout.Seconds()),
	"llm_config.attempts":    llm.DefaultAttempts,
	"llm_config.language":    "ru",
	"storage_type":           "sqlite",
	"event_bus_type":         "memory",
}

// environment variables understood by earlier deployments
var configEnv = map[string]string{
	"server_config.host":     "APP_HOST",
	"server_config.port":     "APP_PORT",
	"log_level":              "LOG_LEVEL",
	"files_dir":              "FILES_DIR",
	"db_path":                "DB_PATH",
	"llm_config.base_url":    "OLLAMA_BASE_URL",
	"llm_config.model":       "OLLAMA_MODEL",
	"llm_config.timeout_sec": "OLLAMA_TIMEOUT_SEC",
	"llm_config.language":    "LLM_LANG",
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	for key, env := range configEnv {
		// BindEnv only fails when called without a key
		_ = v.BindEnv(key, env)
	}
	return v
}

// readConfigFile loads defaults, then the JSON file at path when given, then
// the environment. Later sources win.
func readConfigFile(path string) (Config, *viper.Viper, error) {
	v := newConfigViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := decodeConfig(v)
	if err != nil {
		return Config{}, nil, err
	}
	return config, v, nil
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var config Config
	err := v.Unmarshal(&config, viper.DecoderConfigOption(func(c *mapstructure.DecoderConfig) {
		c.TagName = "json"
	}))
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

// watchLogLevel applies log_level changes in the config file without a restart.
func watchLogLevel(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("log_level")
		logging.InitLogger(level)
		slog.Info("Config file changed, log level applied", "file", e.Name, "log_level", level)
	})
	v.WatchConfig()
}
