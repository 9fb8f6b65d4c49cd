package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorRoleKey contextKey = "actor_role"
	actorIDKey   contextKey = "actor_id"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorMiddleware resolves the caller's role and identity once per request
// from the headers set by the authenticating gateway, and stashes both in the
// context so downstream code never re-derives them.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := schedule.Role(r.Header.Get("X-User-Role"))
		switch role {
		case schedule.RoleAdmin, schedule.RoleStaff, schedule.RolePatient:
		default:
			role = schedule.RolePatient
		}

		ctx := context.WithValue(r.Context(), actorRoleKey, role)

		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ctx = context.WithValue(ctx, actorIDKey, id)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with method, path, status, duration,
// and request ID.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetActorRole retrieves the caller's role from context.
func GetActorRole(ctx context.Context) schedule.Role {
	if role, ok := ctx.Value(actorRoleKey).(schedule.Role); ok {
		return role
	}
	return schedule.RolePatient
}

// GetActorID retrieves the caller's ID from context, if the gateway supplied
// one.
func GetActorID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorIDKey).(uuid.UUID)
	return id, ok
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
