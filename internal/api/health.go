// Package api provides HTTP handlers for the memory engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/dbpool"
)

// GraphPinger checks knowledge-graph connectivity for readiness reporting.
type GraphPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	graph     GraphPinger
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. graph may be nil when graph
// support is disabled.
func NewHealthHandler(pool *dbpool.Pool, graph GraphPinger, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		graph:     graph,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Graph         string  `json:"graph"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		Graph:         "disabled",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.pool != nil {
		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.graph != nil {
		resp.Graph = "connected"
		if err := h.graph.Ping(ctx); err != nil {
			resp.Graph = "disconnected"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. Unlike liveness, a failed database
// check here returns 503 so load balancers stop routing traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status := http.StatusOK

	if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Warn("readiness database check failed")
		checks["database"] = "failed"
		status = http.StatusServiceUnavailable
	}

	if h.graph != nil {
		checks["graph"] = "ok"
		if err := h.graph.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("readiness graph check failed")
			checks["graph"] = "failed"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{"status": statusWord(status), "checks": checks})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ready"
	}

	return "not_ready"
}
