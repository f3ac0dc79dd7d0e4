package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/mediquick-scheduling/internal/config"
	"github.com/hackgods/mediquick-scheduling/internal/db"
	"github.com/hackgods/mediquick-scheduling/internal/logging"
)

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Init("seed", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.Init("seed", cfg.Env, cfg.LogLevel)
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx)

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedDoctors(ctx, pool, faker, getInt("SEED_DOCTORS", 50)); err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(ctx, pool, faker, getInt("SEED_PATIENTS", 5000)); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Int("count", count).Msg("seeding doctors")

	batch := &pgx.Batch{}
	for i := 0; i < count; i++ {
		status := "offline"
		if faker.Bool() {
			status = "online"
		}
		// Fees in steps of 50 between 200 and 1500.
		fee := decimal.NewFromInt(int64(faker.Number(4, 30) * 50))

		batch.Queue(`
			INSERT INTO doctors (id, name, specialization, online_status, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::numeric, now(), now())
		`, uuid.New(), "Dr. "+faker.Name(), specializations[faker.Number(0, len(specializations)-1)], status, fee.StringFixed(2))
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	logger.Info().Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		rows := make([][]any, 0, end-offset)
		now := time.Now()
		for i := offset; i < end; i++ {
			rows = append(rows, []any{uuid.New(), faker.Name(), faker.Email(), faker.Phone(), now, now})
		}

		if _, err := pool.CopyFrom(ctx,
			pgx.Identifier{"patients"},
			[]string{"id", "name", "email", "mobile", "created_at", "updated_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("patients progress")
	}

	logger.Info().Msg("patients seeded")
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
