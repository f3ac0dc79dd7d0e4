package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/mediquick-scheduling/internal/api"
	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/auth"
	"github.com/hackgods/mediquick-scheduling/internal/config"
	"github.com/hackgods/mediquick-scheduling/internal/db"
	"github.com/hackgods/mediquick-scheduling/internal/logging"
	"github.com/hackgods/mediquick-scheduling/internal/metrics"
	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Init("api-server", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.Init("api-server", cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("timezone", cfg.TimeZone).
		Str("version", version).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rootCtx = logger.WithContext(rootCtx)

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		logger.Fatal().Err(err).Msg("migration error")
	}

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, locker, cfg,
		appointment.WithPublisher(redisclient.NewPublisher(rdb, cfg.EventsChannel)),
	)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Sessions: auth.NewManager(cfg.SessionSecret, cfg.SessionCookie, cfg.SessionTTL),
		Metrics:  metrics.New("api-server"),
		Logger:   logger,
		Postgres: pgPool,
		Redis:    api.RedisPinger{Client: rdb},
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}

	logger.Info().Msg("api-server stopped")
}
