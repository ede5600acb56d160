package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/auth"
	"github.com/ButyrinIA/yatube/internal/cache"
	rediscache "github.com/ButyrinIA/yatube/internal/cache/redis"
	"github.com/ButyrinIA/yatube/internal/config"
	"github.com/ButyrinIA/yatube/internal/media"
	mediafs "github.com/ButyrinIA/yatube/internal/media/fs"
	"github.com/ButyrinIA/yatube/internal/media/s3"
	"github.com/ButyrinIA/yatube/internal/server"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/memory"
	"github.com/ButyrinIA/yatube/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	storageType := flag.String("storage", config.StorageMemory, "тип хранилища: memory или postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Не удалось создать логгер: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *storageType, logger); err != nil {
		logger.Error("сервер остановлен с ошибкой", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, storageType string, logger *zap.Logger) error {
	var store storage.Storage
	switch storageType {
	case config.StoragePostgres:
		logger.Info("инициализация хранилища PostgreSQL")
		pg, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns}, logger)
		if err != nil {
			return err
		}
		store = pg
	case config.StorageMemory:
		logger.Info("инициализация хранилища Memory")
		store = memory.New()
	default:
		return fmt.Errorf("неизвестный тип хранилища: %s", storageType)
	}
	defer store.Close()

	pingers := map[string]server.Pinger{}

	var backend cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		logger.Info("кэш страниц в Redis", zap.String("addr", cfg.Redis.Addr))
		rc := rediscache.New(rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Cache.Prefix,
		}, logger)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("Redis недоступен, страницы будут рендериться без кэша", zap.Error(err))
		}
		backend = rc
		pingers["cache"] = rc
	default:
		mc := cache.NewMemory(cache.MemoryOptions{CleanupInterval: cfg.Cache.TTL})
		defer mc.Close()
		backend = mc
	}

	var files media.Storage
	switch cfg.Media.Backend {
	case config.MediaS3:
		logger.Info("картинки в S3", zap.String("endpoint", cfg.Media.S3.Endpoint), zap.String("bucket", cfg.Media.S3.Bucket))
		st, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.Media.S3.Endpoint,
			Region:    cfg.Media.S3.Region,
			Bucket:    cfg.Media.S3.Bucket,
			AccessKey: cfg.Media.S3.AccessKey,
			SecretKey: cfg.Media.S3.SecretKey,
			UseSSL:    cfg.Media.S3.UseSSL,
			PathStyle: cfg.Media.S3.PathStyle,
		})
		if err != nil {
			return err
		}
		files = st
	default:
		st, err := mediafs.New(cfg.Media.Root)
		if err != nil {
			return err
		}
		files = st
	}

	srv, err := server.New(cfg, store, server.Options{
		Cache:   cache.NewResponseCache(backend, cfg.Cache.TTL, logger),
		Media:   files,
		Tokens:  auth.NewTokenManager(cfg.Auth.Secret, "yatube", cfg.Auth.TokenTTL),
		Logger:  logger,
		Pingers: pingers,
	})
	if err != nil {
		return err
	}

	logger.Info("запуск сервера",
		zap.Int("page_size", cfg.Pagination.PageSize),
		zap.Duration("cache_ttl", cfg.Cache.TTL))
	return srv.Run(ctx)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
