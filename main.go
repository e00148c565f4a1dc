package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-passport-recognizer/events"
	"go-passport-recognizer/images"
	"go-passport-recognizer/llm"
	"go-passport-recognizer/logging"
	"go-passport-recognizer/nfc"
	"go-passport-recognizer/redis"
	"go-passport-recognizer/storage"
)

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	config, v, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config", "error", err)
		os.Exit(1)
	}
	logging.InitLogger(config.LogLevel)
	if *configPath != "" {
		slog.Info("using config", "path", *configPath)
		watchLogLevel(v)
	}

	slog.Info("hosting", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := createStore(ctx, &config)
	if err != nil {
		slog.Error("failed to instantiate storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	files, err := storage.NewFileStore(config.FilesDir)
	if err != nil {
		slog.Error("failed to instantiate file storage", "error", err)
		os.Exit(1)
	}

	bus, err := createEventBus(&config)
	if err != nil {
		slog.Error("failed to instantiate event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	normalizer := images.NewNormalizer(images.Options{
		EOIWindow:    config.JpegEOIWindow,
		MaxDimension: config.FaceMaxDimension,
	})

	serverState := ServerState{
		store:        store,
		files:        files,
		bus:          bus,
		visionClient: llm.NewOllamaClient(config.LLMConfig, llm.WithCallLogger(store)),
		nfcService:   nfc.NewService(store, files, bus, normalizer, config.MaxFaceImageBytes),
		promptLang:   config.LLMConfig.Language,
		staticDir:    config.StaticDir,
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		_ = server.Stop()
	}()

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func createStore(ctx context.Context, config *Config) (storage.Store, error) {
	switch config.StorageType {
	case "sqlite", "":
		slog.Info("Using sqlite storage", "path", config.DbPath)
		store, err := storage.OpenSQLite(ctx, config.DbPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		slog.Info("Using in memory storage")
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}

func createEventBus(config *Config) (events.Bus, error) {
	switch config.EventBusType {
	case "redis":
		slog.Info("Using redis event bus")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return events.NewRedisBus(client, config.RedisConfig.Namespace), nil
	case "redis_sentinel":
		slog.Info("Using redis sentinel event bus")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return events.NewRedisBus(client, config.RedisSentinelConfig.Namespace), nil
	case "memory", "":
		slog.Info("Using in memory event bus")
		return events.NewMemoryBus(), nil
	}
	return nil, fmt.Errorf("%v is not a valid event bus type", config.EventBusType)
}
