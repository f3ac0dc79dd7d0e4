package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/auth"
	"github.com/hackgods/mediquick-scheduling/internal/config"
	"github.com/hackgods/mediquick-scheduling/internal/db"
	"github.com/hackgods/mediquick-scheduling/internal/logging"
	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

// The simulator fires bursts of concurrent bookings at the same doctor slot and
// checks that at most one of each burst succeeds. Between bursts it mixes in
// availability reads.
type SimConfig struct {
	APIBaseURL   string
	Rounds       int
	Racers       int
	ReadWorkers  int
	PatientLimit int
	DoctorLimit  int
}

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking      OperationMetrics
	Availability OperationMetrics
	OpenSlots    OperationMetrics
}

type Simulator struct {
	config   SimConfig
	pool     *DataPool
	sessions *auth.Manager
	client   *http.Client
	metrics  Metrics
	loc      *time.Location

	// rounds in which more than one racer got a 201
	doubleBooked int64
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Init("simulate", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.Init("simulate", baseCfg.Env, baseCfg.LogLevel)

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Int("rounds", cfg.Rounds).
		Int("racers", cfg.Racers).
		Int("read_workers", cfg.ReadWorkers).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logger.WithContext(ctx)

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}

	logger.Info().
		Int("doctors", len(dataPool.Doctors)).
		Int("patients", len(dataPool.Patients)).
		Msg("data pool loaded")

	sim := &Simulator{
		config:   cfg,
		pool:     dataPool,
		sessions: auth.NewManager(baseCfg.SessionSecret, baseCfg.SessionCookie, baseCfg.SessionTTL),
		client:   &http.Client{Timeout: 10 * time.Second},
		loc:      baseCfg.Location(),
	}

	sim.Run(logger.WithContext(context.Background()))
	sim.PrintReport()

	if atomic.LoadInt64(&sim.doubleBooked) > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Rounds:       getInt("SIM_ROUNDS", 50),
		Racers:       getInt("SIM_RACERS", 8),
		ReadWorkers:  getInt("SIM_READ_WORKERS", 4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 4000),
		DoctorLimit:  getInt("SIM_DOCTOR_LIMIT", 100),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_ROUNDS must be > 0")
	}
	if cfg.Racers < 2 {
		return fmt.Errorf("SIM_RACERS must be >= 2")
	}
	if cfg.ReadWorkers < 0 {
		return fmt.Errorf("SIM_READ_WORKERS must be >= 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	doctors, err := loadIDs(ctx, pool, `SELECT id FROM doctors LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	patients, err := loadIDs(ctx, pool, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	if len(doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded")
	}
	if len(patients) < cfg.Racers {
		return nil, fmt.Errorf("need at least %d patients, have %d", cfg.Racers, len(patients))
	}

	return &DataPool{Doctors: doctors, Patients: patients}, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (s *Simulator) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	readCtx, stopReads := context.WithCancel(ctx)
	var readers sync.WaitGroup
	for i := 0; i < s.config.ReadWorkers; i++ {
		readers.Add(1)
		go func(workerID int) {
			defer readers.Done()
			s.reader(readCtx, workerID)
		}(i)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for round := 0; round < s.config.Rounds; round++ {
		s.race(ctx, rng, round)
	}

	stopReads()
	readers.Wait()
	logger.Info().Msg("simulation complete")
}

// race books one random future listing slot with Racers distinct patients at once.
func (s *Simulator) race(ctx context.Context, rng *rand.Rand, round int) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]

	today := slot.Today(time.Now(), s.loc)
	day := today.AddDate(0, 0, 1+rng.Intn(13))
	labels := slot.Listing.Labels()
	label := labels[rng.Intn(len(labels))]

	patients := make([]uuid.UUID, 0, s.config.Racers)
	for _, idx := range rng.Perm(len(s.pool.Patients))[:s.config.Racers] {
		patients = append(patients, s.pool.Patients[idx])
	}

	var (
		wg        sync.WaitGroup
		successes int64
		start     = make(chan struct{})
	)
	for _, pid := range patients {
		wg.Add(1)
		go func(pid uuid.UUID) {
			defer wg.Done()
			<-start
			if s.book(ctx, pid, doctorID, slot.FormatDate(day), label) {
				atomic.AddInt64(&successes, 1)
			}
		}(pid)
	}
	close(start)
	wg.Wait()

	if successes > 1 {
		atomic.AddInt64(&s.doubleBooked, 1)
		zerolog.Ctx(ctx).Error().
			Int("round", round).
			Stringer("doctor_id", doctorID).
			Str("date", slot.FormatDate(day)).
			Str("time", label).
			Int64("successes", successes).
			Msg("slot double booked")
	}
}

func (s *Simulator) book(ctx context.Context, patientID, doctorID uuid.UUID, date, label string) bool {
	token, err := s.sessions.Issue(auth.Session{Role: auth.RolePatient, SubjectID: patientID})
	if err != nil {
		s.metrics.Booking.Record(0, false, false)
		return false
	}

	body, _ := json.Marshal(map[string]string{
		"doctor_id": doctorID.String(),
		"date":      date,
		"time":      label,
		"type":      "online",
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusCreated
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Booking.Record(latency, success, conflict)
	return success
}

func (s *Simulator) reader(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
		if rng.Intn(2) == 0 {
			date := slot.FormatDate(slot.Today(time.Now(), s.loc).AddDate(0, 0, rng.Intn(14)))
			s.get(ctx, &s.metrics.Availability,
				fmt.Sprintf("%s/doctors/%s/availability?date=%s", s.config.APIBaseURL, doctorID, date))
		} else {
			s.get(ctx, &s.metrics.OpenSlots,
				fmt.Sprintf("%s/doctors/%s/open-slots", s.config.APIBaseURL, doctorID))
		}
	}
}

func (s *Simulator) get(ctx context.Context, om *OperationMetrics, url string) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if ctx.Err() != nil {
		return
	}

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}
	om.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Rounds: %d\n", s.config.Rounds)
	fmt.Printf("Racers per round: %d\n", s.config.Racers)
	fmt.Printf("Double-booked rounds: %d\n", atomic.LoadInt64(&s.doubleBooked))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Open slots", &s.metrics.OpenSlots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
