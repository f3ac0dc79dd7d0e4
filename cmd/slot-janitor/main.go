package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/config"
	"github.com/hackgods/mediquick-scheduling/internal/db"
	"github.com/hackgods/mediquick-scheduling/internal/logging"
	"github.com/hackgods/mediquick-scheduling/internal/metrics"
	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Init("slot-janitor", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.Init("slot-janitor", cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.JanitorInterval).
		Dur("retention", cfg.BlockRetention).
		Msg("slot janitor starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rootCtx = logger.WithContext(rootCtx)

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2, MinConns: 1})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	repo := appointment.NewPgRepository(pgPool)

	// Purging takes no slot locks; Redis is optional and only carries SLOT_UNBLOCKED.
	var opts []appointment.Option
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, purge events will only be logged to Postgres")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		opts = append(opts, appointment.WithPublisher(redisclient.NewPublisher(rdb, cfg.EventsChannel)))
	}

	svc := appointment.NewService(repo, nil, cfg, opts...)

	m := metrics.New("slot-janitor")
	if cfg.JanitorMetricsPort != "" {
		go serveMetrics(logger, cfg.JanitorMetricsPort, m)
	}

	// Run once at startup
	runOnce(rootCtx, svc, m)

	ticker := time.NewTicker(cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping slot janitor")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, m)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, m *metrics.Metrics) {
	logger := zerolog.Ctx(ctx)

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.PurgeStaleBlocks(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("purge run error")
		return
	}
	m.AddPurged(n)
	logger.Info().Int64("purged", n).Dur("took", time.Since(start)).Msg("purge run complete")
}

func serveMetrics(logger zerolog.Logger, port string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
