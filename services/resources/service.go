package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/services"
	"github.com/upb/mindscreen/services/audit"
	"go.uber.org/zap"
)

// Config bounds search and lookup sizes
type Config struct {
	DefaultTopK    int
	MaxTopK        int
	ResourcesLimit int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DefaultTopK:    rag.DefaultResourceLimit,
		MaxTopK:        50,
		ResourcesLimit: rag.DefaultResourceLimit,
	}
}

// SearchRequest is one knowledge base query. A nil TopK uses the default.
type SearchRequest struct {
	Query     string
	RiskLevel string
	TopK      *int
	UserID    *uuid.UUID
}

// SearchResult is the ranked answer to a SearchRequest.
type SearchResult struct {
	RiskLevel *risk.Level          `json:"risk_level,omitempty"`
	TopK      int                  `json:"top_k"`
	Results   []rag.RankedResource `json:"results"`
}

// Stats reports the knowledge index and the query cache.
type Stats struct {
	Index rag.IndexStats `json:"index"`
	Cache rag.CacheStats `json:"cache"`
}

// ResourceService serves knowledge base lookups.
type ResourceService struct {
	retriever    *rag.Retriever
	auditService *audit.AuditService
	config       Config
	logger       *zap.Logger
}

// NewResourceService creates a new resource service
func NewResourceService(retriever *rag.Retriever, auditService *audit.AuditService, config Config, logger *zap.Logger) *ResourceService {
	defaults := DefaultConfig()
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = defaults.DefaultTopK
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = defaults.MaxTopK
	}
	if config.ResourcesLimit <= 0 {
		config.ResourcesLimit = defaults.ResourcesLimit
	}
	return &ResourceService{
		retriever:    retriever,
		auditService: auditService,
		config:       config,
		logger:       logger,
	}
}

// Search ranks knowledge base documents against a free-text query,
// optionally restricted to the categories of a risk level.
func (s *ResourceService) Search(ctx context.Context, req SearchRequest, info audit.RequestInfo) (*SearchResult, error) {
	var level *risk.Level
	if strings.TrimSpace(req.RiskLevel) != "" {
		parsed, err := risk.ParseLevel(req.RiskLevel)
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrUnknownRiskLevel.Message, err).
				WithDetail("risk_level", req.RiskLevel)
		}
		level = &parsed
	}

	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK > s.config.MaxTopK {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("top_k must be at most %d", s.config.MaxTopK), nil).
			WithDetail("top_k", topK)
	}

	results, err := s.retriever.Retrieve(ctx, req.Query, level, topK)
	if err != nil {
		s.logger.Debug("resource search failed", zap.Error(err))
		return nil, services.FromRetrievalError(err)
	}

	if err := s.auditService.LogResourceSearch(req.UserID, req.Query, level, results, info); err != nil {
		s.logger.Warn("failed to audit resource search", zap.Error(err))
	}

	return &SearchResult{RiskLevel: level, TopK: topK, Results: results}, nil
}

// ByRiskLevel lists documents suited to a risk level without embedding.
// Unrecognized levels get the general coping and therapy material.
// limit <= 0 uses the configured default.
func (s *ResourceService) ByRiskLevel(level string, limit int) ([]rag.Document, error) {
	if limit <= 0 {
		limit = s.config.ResourcesLimit
	}
	if limit > s.config.MaxTopK {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("limit must be at most %d", s.config.MaxTopK), nil)
	}
	l := risk.Level(strings.ToLower(strings.TrimSpace(level)))
	return s.retriever.ResourcesByRiskLevel(l, limit), nil
}

// Stats reports index and cache statistics.
func (s *ResourceService) Stats() Stats {
	return Stats{
		Index: s.retriever.Index().Stats(),
		Cache: s.retriever.Cache().Stats(),
	}
}

// Ready reports whether searches can be served.
func (s *ResourceService) Ready() bool {
	return s.retriever.Index().Ready()
}
