package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/auth"
	"github.com/hackgods/mediquick-scheduling/internal/metrics"
)

type RouterConfig struct {
	Service  *appointment.Service
	Sessions *auth.Manager
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Postgres Pinger
	Redis    Pinger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware)
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(auth.Middleware(cfg.Sessions))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Service))
		r.Get("/open-slots", openSlotsHandler(cfg.Service))
		r.Get("/booked-slots", bookedSlotsHandler(cfg.Service))
		r.Get("/blocked-slots", blockedSlotsHandler(cfg.Service))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Service, cfg.Metrics))
		r.Get("/doctor", doctorAppointmentsHandler(cfg.Service))
		r.Get("/patient", patientAppointmentsHandler(cfg.Service))
		r.Patch("/{id}/status", updateStatusHandler(cfg.Service))
		r.Patch("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	})

	r.Post("/slots/block", blockSlotHandler(cfg.Service, cfg.Metrics))
	r.Delete("/slots/block/{id}", unblockSlotHandler(cfg.Service))

	return r
}
