package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abduss/artifactdrive/internal/auth"
	"github.com/abduss/artifactdrive/internal/cache"
	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/logger"
	"github.com/abduss/artifactdrive/internal/metrics"
	"github.com/abduss/artifactdrive/internal/notify"
	"github.com/abduss/artifactdrive/internal/objectstore"
	"github.com/abduss/artifactdrive/internal/release"
	"github.com/abduss/artifactdrive/internal/server"
	"github.com/abduss/artifactdrive/internal/storage"
	"github.com/abduss/artifactdrive/internal/ticket"
	"github.com/abduss/artifactdrive/internal/upload"
	"github.com/abduss/artifactdrive/internal/validation"
)

const latestCachePrefix = "artifactdrive:releases"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if err := run(zl); err != nil {
		zl.Fatal("api stopped", zap.Error(err))
	}
}

func run(zl *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.Postgres, zl)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		return err
	}
	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO, zl); err != nil {
		return err
	}

	verifier, err := auth.NewKeyVerifier(cfg.Auth.APIKeyHash)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	gateway := objectstore.NewGateway(objectstore.NewMinIOClient(minioClient), cfg.MinIO.Bucket, zl)
	orchestrator := upload.NewOrchestrator(validation.NewValidator(zl), gateway, zl)

	releaseService := release.NewService(
		release.NewRepository(dbPool),
		orchestrator,
		gateway,
		latestCache(cfg.Cache, zl),
		cfg.MinIO.PresignTTL,
		zl,
	)
	ticketService := ticket.NewService(
		ticket.NewRepository(dbPool),
		orchestrator,
		gateway,
		notify.New(cfg.Notify, zl),
		zl,
	)

	router := server.NewRouter(server.Dependencies{
		Config:         cfg,
		DB:             dbPool,
		ObjectStore:    gateway,
		KeyVerifier:    verifier,
		TokenService:   tokens,
		ReleaseService: releaseService,
		TicketService:  ticketService,
		Logger:         zl,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("api listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		// background download counters and ticket notifications
		releaseService.Wait()
		ticketService.Wait()
		return err
	})

	return g.Wait()
}

func latestCache(cfg config.CacheConfig, zl *zap.Logger) release.LatestCache {
	if cfg.RedisAddr == "" {
		return cache.NewLRU[[]release.Summary](cfg.Size, cfg.TTL)
	}
	rdb := cache.NewRedisClient(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	zl.Info("using redis for latest releases cache", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedis[[]release.Summary](rdb, latestCachePrefix, cfg.TTL, zl)
}
