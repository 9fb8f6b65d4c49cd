package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/chat"
	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service   *schedule.Service
	Assistant *chat.Assistant
	Location  *time.Location
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(ActorMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-User-Role", "X-User-ID"},
		MaxAge:         300,
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability and booking
	r.Get("/staff/{id}/availability", getAvailabilityHandler(cfg.Service, cfg.Location))
	r.With(httprate.LimitByIP(30, time.Minute)).
		Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", transitionAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Service))
	r.Get("/staff/{id}/appointments", listStaffAppointmentsHandler(cfg.Service, cfg.Location))

	// Staff schedule management
	r.Route("/staff/{id}/time-slots", func(r chi.Router) {
		r.Get("/", listTimeSlotsHandler(cfg.Service))
		r.Post("/", createTimeSlotHandler(cfg.Service, cfg.Location))
		r.Put("/{slotID}", updateTimeSlotHandler(cfg.Service, cfg.Location))
		r.Delete("/{slotID}", deleteTimeSlotHandler(cfg.Service))
	})
	r.Patch("/staff/{id}/availability-toggle", toggleStaffAvailabilityHandler(cfg.Service))

	// Chat assistant
	if cfg.Assistant != nil {
		r.With(httprate.LimitByIP(10, time.Minute)).
			Post("/chat/messages", chatHandler(cfg.Assistant))
	}

	return r
}
