package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Log     *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability queries
	r.Get("/availability", availableSlotsHandler(cfg.Service))
	r.Get("/availability/busy", busySlotsHandler(cfg.Service))
	r.Get("/availability/check", checkSlotHandler(cfg.Service))
	r.Get("/availability/next", suggestNextSlotHandler(cfg.Service))

	// Booking
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Service))

	// Reschedule lifecycle
	r.Post("/reschedules", createRescheduleHandler(cfg.Service))
	r.Get("/reschedules/pending", listPendingReschedulesHandler(cfg.Service))
	r.Post("/reschedules/{id}/accept", acceptRescheduleHandler(cfg.Service))
	r.Post("/reschedules/{id}/deny", denyRescheduleHandler(cfg.Service))

	// Maintenance
	r.Post("/maintenance/auto-close", autoCloseHandler(cfg.Service))

	return r
}
