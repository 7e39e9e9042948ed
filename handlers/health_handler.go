package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessChecker reports whether a component can serve traffic
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db        *sql.DB
	knowledge ReadinessChecker
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. knowledge may be nil.
func NewHealthHandler(db *sql.DB, knowledge ReadinessChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		knowledge: knowledge,
		logger:    logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only, returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Checks the database and the knowledge index
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.knowledge != nil {
		if h.knowledge.Ready() {
			checks["knowledge_index"] = "healthy"
		} else {
			h.logger.Warn("knowledge index not ready")
			checks["knowledge_index"] = "unhealthy"
			allHealthy = false
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
