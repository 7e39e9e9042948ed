package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/middleware"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/services/assessment"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

// StartAssessmentRequest represents a request to start an assessment
type StartAssessmentRequest struct {
	QuestionnaireID string `json:"questionnaire_id" validate:"required,uuid"`
}

// SubmitAssessmentRequest carries the answers to an assessment
type SubmitAssessmentRequest struct {
	Responses map[string]interface{} `json:"responses" validate:"required,min=1"`
}

// ClassifyRequest carries answers to score without storing them
type ClassifyRequest struct {
	Responses map[string]interface{} `json:"responses" validate:"required"`
}

// CreateQuestionnaireRequest defines a new questionnaire
type CreateQuestionnaireRequest struct {
	Name              string            `json:"name" validate:"required,max=200"`
	Description       string            `json:"description,omitempty" validate:"max=2000"`
	Version           string            `json:"version,omitempty" validate:"max=20"`
	Questions         []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
	RequiredQuestions []string          `json:"required_questions,omitempty" validate:"omitempty,dive,required"`
}

// QuestionRequest is one item of a new questionnaire. The id must name a
// classifier feature.
type QuestionRequest struct {
	ID     string            `json:"id" validate:"required,risk_feature"`
	Text   string            `json:"text,omitempty" validate:"max=500"`
	Type   string            `json:"type,omitempty" validate:"omitempty,oneof=scale number"`
	Scale  *models.Scale     `json:"scale,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// AssessmentService defines the assessment operations the handler needs
type AssessmentService interface {
	ListQuestionnaires(ctx context.Context) ([]*models.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id uuid.UUID) (*models.Questionnaire, error)
	CreateQuestionnaire(ctx context.Context, req assessment.CreateQuestionnaireRequest, info audit.RequestInfo) (*models.Questionnaire, error)
	Start(ctx context.Context, userID, questionnaireID uuid.UUID, info audit.RequestInfo) (*models.Assessment, error)
	Submit(ctx context.Context, req assessment.SubmitRequest, info audit.RequestInfo) (*assessment.SubmitResult, error)
	GetRiskScore(ctx context.Context, userID, assessmentID uuid.UUID) (*models.RiskScore, error)
	LatestRiskScore(ctx context.Context, userID uuid.UUID) (*models.RiskScore, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AssessmentSummary, error)
	Classify(responses map[string]interface{}) risk.Result
}

// AssessmentHandler handles questionnaire, assessment and risk requests
type AssessmentHandler struct {
	service AssessmentService
	logger  *zap.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler
func NewAssessmentHandler(service AssessmentService, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListQuestionnaires handles GET /api/v1/questionnaires
func (h *AssessmentHandler) HandleListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListQuestionnaires(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleGetQuestionnaire handles GET /api/v1/questionnaires/{id}
func (h *AssessmentHandler) HandleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	q, err := h.service.GetQuestionnaire(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, q)
}

// HandleCreateQuestionnaire handles POST /api/v1/questionnaires
func (h *AssessmentHandler) HandleCreateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionnaireRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	questions := make([]models.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = models.Question{
			ID:     q.ID,
			Text:   q.Text,
			Type:   models.QuestionType(q.Type),
			Scale:  q.Scale,
			Labels: q.Labels,
		}
	}

	q, err := h.service.CreateQuestionnaire(r.Context(), assessment.CreateQuestionnaireRequest{
		Name:              req.Name,
		Description:       req.Description,
		Version:           req.Version,
		Questions:         questions,
		RequiredQuestions: req.RequiredQuestions,
	}, requestInfo(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, q)
}

// HandleStartAssessment handles POST /api/v1/assessments
func (h *AssessmentHandler) HandleStartAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StartAssessmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	questionnaireID, err := utils.ParseUUID(req.QuestionnaireID, "questionnaire_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	a, err := h.service.Start(ctx, userIDFrom(ctx), questionnaireID, requestInfo(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, a)
}

// HandleSubmitAssessment handles POST /api/v1/assessments/{id}/submit
func (h *AssessmentHandler) HandleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req SubmitAssessmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Submit(ctx, assessment.SubmitRequest{
		AssessmentID: assessmentID,
		UserID:       userIDFrom(ctx),
		Responses:    req.Responses,
	}, requestInfo(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleGetRiskScore handles GET /api/v1/assessments/{id}/risk
func (h *AssessmentHandler) HandleGetRiskScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	score, err := h.service.GetRiskScore(ctx, userIDFrom(ctx), assessmentID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, score)
}

// HandleLatestRiskScore handles GET /api/v1/risk/latest
func (h *AssessmentHandler) HandleLatestRiskScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	score, err := h.service.LatestRiskScore(ctx, userIDFrom(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, score)
}

// HandleHistory handles GET /api/v1/assessments/history
func (h *AssessmentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := utils.QueryInt(r, "limit", assessment.DefaultHistoryLimit)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	history, err := h.service.History(ctx, userIDFrom(ctx), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, history)
}

// HandleClassify handles POST /api/v1/risk/classify
func (h *AssessmentHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result := h.service.Classify(req.Responses)
	if result.Fallback {
		h.logger.Debug("classification fell back to default",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
	}
	_ = utils.WriteOK(w, result)
}

// userIDFrom returns the caller set by the identity middleware, or uuid.Nil.
// Services reject uuid.Nil as unauthorized.
func userIDFrom(ctx context.Context) uuid.UUID {
	if id := middleware.GetUserIDFromContext(ctx); id != nil {
		return *id
	}
	return uuid.Nil
}

// requestInfo collects the request metadata recorded with audit events
func requestInfo(r *http.Request) audit.RequestInfo {
	return audit.RequestInfo{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

var _ AssessmentService = (*assessment.AssessmentService)(nil)
