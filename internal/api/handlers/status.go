package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okdriver/backend/internal/api/response"
)

// StatusHandler reports process and dependency status
type StatusHandler struct {
	health      *HealthChecker
	poolStats   func() *pgxpool.Stat
	environment string
	startTime   time.Time
}

// NewStatusHandler creates a new status handler. poolStats may be nil.
func NewStatusHandler(health *HealthChecker, poolStats func() *pgxpool.Stat, environment string) *StatusHandler {
	return &StatusHandler{
		health:      health,
		poolStats:   poolStats,
		environment: environment,
		startTime:   time.Now(),
	}
}

// PoolStatusResponse summarises the database connection pool
type PoolStatusResponse struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// SystemStatusResponse represents the full system status
type SystemStatusResponse struct {
	Status      string              `json:"status"`
	Uptime      string              `json:"uptime"`
	Environment string              `json:"environment"`
	Timestamp   string              `json:"timestamp"`
	Services    map[string]string   `json:"services"`
	Pool        *PoolStatusResponse `json:"pool,omitempty"`
}

// GetStatus handles GET /status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	services, healthy := h.health.services(ctx)

	resp := SystemStatusResponse{
		Status:      "healthy",
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.environment,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Services:    services,
	}
	if !healthy {
		resp.Status = "degraded"
	}

	if h.poolStats != nil {
		if stat := h.poolStats(); stat != nil {
			resp.Pool = &PoolStatusResponse{
				TotalConns:    stat.TotalConns(),
				IdleConns:     stat.IdleConns(),
				AcquiredConns: stat.AcquiredConns(),
				MaxConns:      stat.MaxConns(),
			}
		}
	}

	response.Success(w, resp)
}
