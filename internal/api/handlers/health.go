package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/okdriver/backend/internal/api/response"
)

// Check probes one dependency; a nil error means healthy
type Check func(ctx context.Context) error

// HealthChecker provides health check functionality
type HealthChecker struct {
	database Check
	redis    Check
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(database, redis Check) *HealthChecker {
	return &HealthChecker{
		database: database,
		redis:    redis,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// services runs every check and reports per-service status.
func (h *HealthChecker) services(ctx context.Context) (map[string]string, bool) {
	services := map[string]string{
		"database": "healthy",
		"redis":    "healthy",
	}
	healthy := true

	if err := h.database(ctx); err != nil {
		services["database"] = "unhealthy"
		healthy = false
	}
	if err := h.redis(ctx); err != nil {
		services["redis"] = "unhealthy"
		healthy = false
	}

	return services, healthy
}

// Health handles GET /health
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services, healthy := h.services(ctx)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	statusCode := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	response.JSON(w, statusCode, resp)
}

// LivenessProbe handles GET /health/live - simple liveness check
func LivenessProbe(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// ReadinessProbe handles GET /health/ready - readiness check
func (h *HealthChecker) ReadinessProbe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.database(ctx); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Database not ready")
		return
	}

	if err := h.redis(ctx); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Redis not ready")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
