package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/api"
	"github.com/carewell-health/clinic-scheduling/internal/chat"
	"github.com/carewell-health/clinic-scheduling/internal/config"
	"github.com/carewell-health/clinic-scheduling/internal/db"
	"github.com/carewell-health/clinic-scheduling/internal/logger"
	redisclient "github.com/carewell-health/clinic-scheduling/internal/redis"
	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		zlog.Fatal("invalid clinic timezone", zap.String("timezone", cfg.ClinicTimezone), zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	store := schedule.NewPgStore(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc := schedule.NewService(store, locker, cfg, loc, zlog)

	var assistant *chat.Assistant
	if cfg.ChatAPIKey != "" {
		assistant = chat.NewAssistant(cfg, zlog)
	} else {
		zlog.Warn("CHAT_API_KEY not set, chat endpoint disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Assistant: assistant,
		Location:  loc,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    zlog,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		zlog.Info("shutdown signal received")
	case err := <-errCh:
		zlog.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}

	zlog.Info("api-server stopped")
}
