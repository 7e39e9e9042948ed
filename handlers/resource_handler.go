package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/middleware"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/services/resources"
	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

// SearchResourcesRequest represents a knowledge base search
type SearchResourcesRequest struct {
	Query     string `json:"query" validate:"required,max=1000"`
	RiskLevel string `json:"risk_level,omitempty" validate:"omitempty,risk_level"`
	TopK      *int   `json:"top_k,omitempty" validate:"omitempty,gte=0"`
}

// ResourceService defines the knowledge base operations the handler needs
type ResourceService interface {
	Search(ctx context.Context, req resources.SearchRequest, info audit.RequestInfo) (*resources.SearchResult, error)
	ByRiskLevel(level string, limit int) ([]rag.Document, error)
	Stats() resources.Stats
}

// ResourceHandler handles knowledge base requests
type ResourceHandler struct {
	service ResourceService
	logger  *zap.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(service ResourceService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSearch handles POST /api/v1/resources/search
func (h *ResourceHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SearchResourcesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Search(ctx, resources.SearchRequest{
		Query:     req.Query,
		RiskLevel: req.RiskLevel,
		TopK:      req.TopK,
		UserID:    middleware.GetUserIDFromContext(ctx),
	}, requestInfo(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write search response", zap.Error(err))
	}
}

// HandleByRiskLevel handles GET /api/v1/resources/risk/{level}
func (h *ResourceHandler) HandleByRiskLevel(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	docs, err := h.service.ByRiskLevel(chi.URLParam(r, "level"), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, docs)
}

// HandleKnowledgeStats handles GET /api/v1/knowledge/stats
func (h *ResourceHandler) HandleKnowledgeStats(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.Stats())
}

var _ ResourceService = (*resources.ResourceService)(nil)
