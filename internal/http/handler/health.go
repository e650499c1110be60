package handler

import (
	"context"
	"net/http"
	"time"

	"aws-examples-api/internal/observability/logger"

	"go.uber.org/zap"
)

// Pinger is satisfied by repo.MessageRepository
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusResponse is the body of /health and /ready
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler serves the liveness and readiness endpoints
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. store may be nil, in which case
// readiness only reflects that the process is serving.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.GetLogger(ctx).Error(ctx, "readiness check failed: dynamodb unavailable",
			logger.Module("http"),
			logger.Action("ready"),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable", Error: "dynamodb unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}
