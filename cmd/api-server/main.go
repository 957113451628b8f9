package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/api"
	"github.com/clinicdesk/clinic-scheduling/internal/config"
	"github.com/clinicdesk/clinic-scheduling/internal/db"
	"github.com/clinicdesk/clinic-scheduling/internal/logging"
	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logging.New(cfg.Env)
	defer log.Sync()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool, cfg.MigrationsDir); err != nil {
		log.Fatal("migration error", zap.Error(err))
	}
	if v, err := db.MigrationVersion(rootCtx, pgPool); err == nil {
		log.Info("migrations applied", zap.Int64("version", v))
	}

	// Connect Redis
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

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Log:     log,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	case <-rootCtx.Done():
	}

	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
