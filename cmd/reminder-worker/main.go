package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/config"
	"github.com/carewell-health/clinic-scheduling/internal/db"
	"github.com/carewell-health/clinic-scheduling/internal/logger"
	"github.com/carewell-health/clinic-scheduling/internal/mailer"
	redisclient "github.com/carewell-health/clinic-scheduling/internal/redis"
	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

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

	zlog.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("horizon", cfg.ReminderHorizon),
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
	sender := mailer.NewSMTPMailer(cfg)

	// Run once at startup
	runOnce(rootCtx, svc, sender, zlog)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zlog.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, sender, zlog)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service, sender schedule.ReminderSender, zlog *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SendDueReminders(runCtx, sender); err != nil {
		zlog.Error("reminder run error", zap.Error(err))
		return
	}
	zlog.Info("reminder run complete", zap.Duration("took", time.Since(start)))
}
