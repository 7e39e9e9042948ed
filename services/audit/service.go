package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/repositories"
	"github.com/upb/mindscreen/services"
	"go.uber.org/zap"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log      *models.AuditLog
	Priority int
}

// RequestInfo is the HTTP metadata attached to an audit entry.
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Waits for all pending events to be processed.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	// closed under the lock so no LogEvent can send on a closed channel
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking).
// Returns immediately, event is processed in background.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("audit_id", event.Log.ID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking waits until the event is queued or ctx is cancelled.
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	// holding the lock keeps Stop from closing the channel under us
	defer s.mu.Unlock()

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
	WorkerCount   int  `json:"worker_count"`
	Started       bool `json:"started"`
}

const (
	// DefaultPageSize is the audit page size when none is requested.
	DefaultPageSize = 50
	// MaxPageSize caps a single audit page.
	MaxPageSize = 200
)

// Query selects stored audit entries. UserID and Action are optional filters;
// when both are set UserID wins.
type Query struct {
	UserID *uuid.UUID
	Action models.AuditAction
	Limit  int
	Offset int
}

// Validate rejects pages outside 1..MaxPageSize or with a negative offset.
func (q Query) Validate() error {
	if q.Limit < 1 || q.Limit > MaxPageSize || q.Offset < 0 {
		return services.InvalidPagination(q.Limit, q.Offset, MaxPageSize)
	}
	return nil
}

// List reads stored audit entries newest first.
func (s *AuditService) List(ctx context.Context, q Query) ([]*models.AuditLog, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	switch {
	case q.UserID != nil:
		return s.auditRepo.GetByUserID(ctx, *q.UserID, q.Limit, q.Offset)
	case q.Action != "":
		return s.auditRepo.GetByAction(ctx, q.Action, q.Limit, q.Offset)
	default:
		return s.auditRepo.List(ctx, q.Limit, q.Offset)
	}
}

// Convenience methods for logging domain events. They are no-ops on a nil
// service so callers without an audit trail (the CLI) can share code paths.

// LogAssessmentStarted logs the start of an assessment
func (s *AuditService) LogAssessmentStarted(a *models.Assessment, info RequestInfo) error {
	if s == nil {
		return nil
	}
	log := models.NewAuditLog(models.AuditActionAssessmentStarted, "assessment").
		WithUser(a.UserID).
		WithResource(a.ID).
		WithRequest(info.RequestID, info.IPAddress, info.UserAgent).
		WithDetails(map[string]interface{}{
			"questionnaire_id": a.QuestionnaireID,
		})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogAssessmentSubmitted logs a scored submission. Responses are not recorded.
func (s *AuditService) LogAssessmentSubmitted(a *models.Assessment, score *models.RiskScore, info RequestInfo) error {
	if s == nil {
		return nil
	}
	details := map[string]interface{}{
		"questionnaire_id": a.QuestionnaireID,
		"risk_level":       score.RiskLevel,
		"risk_score":       score.RiskScore,
		"model_used":       score.ModelUsed,
		"fallback":         score.Fallback,
	}
	log := models.NewAuditLog(models.AuditActionAssessmentSubmitted, "assessment").
		WithUser(a.UserID).
		WithResource(a.ID).
		WithRequest(info.RequestID, info.IPAddress, info.UserAgent).
		WithDetails(details)

	priority := 1
	if score.RiskLevel == risk.LevelCritical {
		priority = 2
	}
	return s.LogEvent(&AuditEvent{Log: log, Priority: priority})
}

// LogResourceSearch logs a knowledge base search. Only the query length is
// kept, never the query text.
func (s *AuditService) LogResourceSearch(userID *uuid.UUID, query string, level *risk.Level, results []rag.RankedResource, info RequestInfo) error {
	if s == nil {
		return nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Document.ID
	}
	details := map[string]interface{}{
		"query_length": len(query),
		"result_ids":   ids,
	}
	if level != nil {
		details["risk_level"] = *level
	}

	log := models.NewAuditLog(models.AuditActionResourcesSearched, "knowledge").
		WithRequest(info.RequestID, info.IPAddress, info.UserAgent).
		WithDetails(details)
	if userID != nil {
		log.WithUser(*userID)
	}

	return s.LogEvent(&AuditEvent{Log: log, Priority: 0})
}

// LogKnowledgeReloaded logs a knowledge base reload attempt
func (s *AuditService) LogKnowledgeReloaded(stats rag.IndexStats, reloadErr error) error {
	if s == nil {
		return nil
	}
	details := map[string]interface{}{
		"documents": stats.Documents,
		"embedded":  stats.Embedded,
		"skipped":   len(stats.Skipped),
		"success":   reloadErr == nil,
	}
	if reloadErr != nil {
		details["error"] = reloadErr.Error()
	}

	log := models.NewAuditLog(models.AuditActionKnowledgeReloaded, "knowledge").WithDetails(details)
	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogQuestionnaireCreated records a new questionnaire. Administrative changes
// wait for buffer space instead of being dropped.
func (s *AuditService) LogQuestionnaireCreated(ctx context.Context, q *models.Questionnaire, info RequestInfo) error {
	if s == nil {
		return nil
	}
	questionIDs := make([]string, len(q.Questions))
	for i, question := range q.Questions {
		questionIDs[i] = question.ID
	}
	log := models.NewAuditLog(models.AuditActionQuestionnaireCreated, "questionnaire").
		WithResource(q.ID).
		WithRequest(info.RequestID, info.IPAddress, info.UserAgent).
		WithDetails(map[string]interface{}{
			"name":               q.Name,
			"version":            q.Version,
			"questions":          questionIDs,
			"required_questions": q.RequiredQuestions,
		})

	return s.LogEventBlocking(ctx, &AuditEvent{Log: log, Priority: 2})
}
