package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
	"github.com/clinicdesk/clinic-scheduling/internal/db"
	"github.com/clinicdesk/clinic-scheduling/internal/logging"
	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

// sweeper periodically closes past appointments that were never marked
// completed, confirmed visits included. It is safe to run alongside the
// api-server: the sweep only touches rows already in the past.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logging.New(cfg.Env)
	defer log.Sync()

	log.Info("sweeper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.SweepInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, cfg, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	closed, err := svc.AutoClosePastAppointments(runCtx, time.Now())
	if err != nil {
		log.Error("sweep run error", zap.Error(err))
		return
	}
	log.Info("sweep run complete",
		zap.Int64("closed", closed),
		zap.Duration("took", time.Since(start)),
	)
}
