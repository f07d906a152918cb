package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gtixt/console/internal/api"
	"github.com/gtixt/console/internal/config"
	"github.com/gtixt/console/internal/jobs"
	"github.com/gtixt/console/internal/notify"
	"github.com/gtixt/console/internal/ratelimit"
	"github.com/gtixt/console/internal/repository"
	"github.com/gtixt/console/internal/snapshot"
)

const snapshotCacheKey = "gtixt:snapshot:latest"

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	var counterStore ratelimit.CounterStore
	var cacheStore snapshot.CacheStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		counterStore = ratelimit.NewRedisCounterStore(client)
		cacheStore = snapshot.NewRedisCacheStore(client)

		defer func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close Redis client")
			}
		}()
	} else {
		logger.Warn("REDIS_ADDR not set: rate limit windows are per-process and snapshot caching is disabled")
	}

	repo, err := repository.NewPostgresRunRepository(cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close run repository")
		}
	}()

	registry, err := jobs.LoadRegistry(cfg.JobsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load job registry")
	}

	origin := snapshot.NewS3Origin(snapshot.S3Config{
		Bucket:    cfg.S3Bucket,
		Key:       cfg.SnapshotKey,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})

	apiHandler := api.New(
		api.Config{
			AdminToken:      cfg.AdminToken,
			RateLimit:       int64(cfg.RateLimit),
			RateLimitWindow: cfg.RateLimitWindow,
			MaxBytesPerDay:  cfg.MaxBytesPerDay,
		},
		snapshot.New(cacheStore, origin, snapshotCacheKey, cfg.CacheTTL, logger),
		registry,
		jobs.NewRunner(registry, cfg.JobsWorkDir, cfg.JobsModuleDir, logger),
		repo,
		ratelimit.New(counterStore, logger),
		notify.NewNotifier(cfg.SendgridAPIKey, cfg.AlertFrom, cfg.AlertTo, logger),
		logger,
	)

	go startMetricsCollector(repo, registry, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting GTIXT console server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
