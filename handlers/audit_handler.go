package handlers

import (
	"context"
	"net/http"

	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

var auditActions = map[models.AuditAction]bool{
	models.AuditActionAssessmentStarted:    true,
	models.AuditActionAssessmentSubmitted:  true,
	models.AuditActionResourcesSearched:    true,
	models.AuditActionKnowledgeReloaded:    true,
	models.AuditActionQuestionnaireCreated: true,
}

// AuditLogReader defines the audit operations the handler needs
type AuditLogReader interface {
	List(ctx context.Context, q audit.Query) ([]*models.AuditLog, error)
	GetStats() audit.Stats
}

// AuditLogsResponse is one page of audit entries
type AuditLogsResponse struct {
	Logs   []*models.AuditLog `json:"logs"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	reader AuditLogReader
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(reader AuditLogReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		reader: reader,
		logger: logger,
	}
}

// HandleListLogs handles GET /api/v1/audit/logs?limit&offset&user_id&action
func (h *AuditHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", audit.DefaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	q := audit.Query{Limit: limit, Offset: offset}
	if err := q.Validate(); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := utils.ParseUUID(raw, "user_id")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		q.UserID = &userID
	}
	if raw := r.URL.Query().Get("action"); raw != "" {
		action := models.AuditAction(raw)
		if !auditActions[action] {
			_ = utils.WriteBadRequest(w, "unknown audit action", map[string]interface{}{"action": raw})
			return
		}
		q.Action = action
	}

	logs, err := h.reader.List(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve audit logs")
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	_ = utils.WriteOK(w, AuditLogsResponse{Logs: logs, Limit: limit, Offset: offset})
}

// HandleStats handles GET /api/v1/audit/stats
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.reader.GetStats())
}

var _ AuditLogReader = (*audit.AuditService)(nil)
