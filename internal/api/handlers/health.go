package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// HealthChecker is a dependency that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	version string
	started time.Time
}

// HealthResponse represents the health status response.
type HealthResponse struct {
	// Status is "healthy", "degraded" or "unhealthy".
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler creates a health handler. redis may be nil when the
// cache is disabled; it is then reported as "disabled" and never degrades
// the status.
func NewHealthHandler(db HealthChecker, redis HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
		started: time.Now(),
	}
}

// HealthCheck reports database and Redis connectivity. Only the database
// is critical: an unreachable database returns 503.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	span := sentry.StartSpan(ctx, "health_check")
	defer span.Finish()
	ctx = span.Context()

	services := make(map[string]string, 2)
	status := "healthy"

	if h.db == nil {
		services["database"] = "unhealthy: not configured"
		status = "unhealthy"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
		sentry.CaptureException(err)
	} else {
		services["database"] = "healthy"
	}

	if h.redis == nil {
		services["redis"] = "disabled"
	} else if err := h.redis.HealthCheck(ctx); err != nil {
		services["redis"] = "unhealthy: " + err.Error()
		if status == "healthy" {
			status = "degraded"
		}
		sentry.CaptureException(err)
	} else {
		services["redis"] = "healthy"
	}
	span.SetTag("overall.status", status)

	code := http.StatusOK
	span.Status = sentry.SpanStatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
		span.Status = sentry.SpanStatusUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// LivenessCheck confirms the process is serving requests.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		sentry.CaptureException(err)
	}
}
