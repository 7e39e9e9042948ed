package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/repositories"
	"github.com/upb/mindscreen/services"
	"github.com/upb/mindscreen/services/audit"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryLimit is used when History is called without a limit.
	DefaultHistoryLimit = 10
	// MaxHistoryLimit caps a single history page.
	MaxHistoryLimit = 100
)

// SubmitRequest carries one questionnaire submission.
type SubmitRequest struct {
	AssessmentID uuid.UUID
	UserID       uuid.UUID
	Responses    map[string]interface{}
}

// SubmitResult is the completed assessment and its stored risk score.
type SubmitResult struct {
	Assessment *models.Assessment `json:"assessment"`
	RiskScore  *models.RiskScore  `json:"risk_score"`
}

// AssessmentService runs questionnaires through the risk classifier and
// persists the outcome.
type AssessmentService struct {
	repos        *repositories.Repositories
	txMgr        repositories.TransactionManager
	classifier   *risk.Classifier
	auditService *audit.AuditService
	logger       *zap.Logger
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	classifier *risk.Classifier,
	auditService *audit.AuditService,
	logger *zap.Logger,
) *AssessmentService {
	return &AssessmentService{
		repos:        repos,
		txMgr:        txMgr,
		classifier:   classifier,
		auditService: auditService,
		logger:       logger,
	}
}

// SeedQuestionnaires stores the default questionnaires when none exist.
// It returns how many were created.
func (s *AssessmentService) SeedQuestionnaires(ctx context.Context) (int, error) {
	count, err := s.repos.Questionnaires.Count(ctx)
	if err != nil {
		return 0, services.WrapInternal("failed to count questionnaires", err)
	}
	if count > 0 {
		return 0, nil
	}

	defaults := DefaultQuestionnaires()
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		for _, q := range defaults {
			if err := s.repos.Questionnaires.Create(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, services.WrapInternal("failed to seed questionnaires", err)
	}

	s.logger.Info("seeded default questionnaires", zap.Int("count", len(defaults)))
	return len(defaults), nil
}

// ListQuestionnaires returns every stored questionnaire
func (s *AssessmentService) ListQuestionnaires(ctx context.Context) ([]*models.Questionnaire, error) {
	list, err := s.repos.Questionnaires.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list questionnaires", err)
	}
	return list, nil
}

// GetQuestionnaire returns one questionnaire
func (s *AssessmentService) GetQuestionnaire(ctx context.Context, id uuid.UUID) (*models.Questionnaire, error) {
	q, err := s.repos.Questionnaires.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepositoryError(err, services.ErrQuestionnaireNotFound, "failed to get questionnaire")
	}
	return q, nil
}

// CreateQuestionnaire validates and stores a new questionnaire.
func (s *AssessmentService) CreateQuestionnaire(ctx context.Context, req CreateQuestionnaireRequest, info audit.RequestInfo) (*models.Questionnaire, error) {
	q, err := buildQuestionnaire(req)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Questionnaires.Create(ctx, q); err != nil {
		return nil, services.WrapInternal("failed to create questionnaire", err)
	}

	if err := s.auditService.LogQuestionnaireCreated(ctx, q, info); err != nil {
		s.logger.Warn("failed to audit questionnaire creation", zap.Error(err))
	}

	s.logger.Info("questionnaire created",
		zap.String("questionnaire_id", q.ID.String()),
		zap.Int("questions", len(q.Questions)))
	return q, nil
}

// Start opens an in-progress assessment of a questionnaire for a user.
func (s *AssessmentService) Start(ctx context.Context, userID, questionnaireID uuid.UUID, info audit.RequestInfo) (*models.Assessment, error) {
	if userID == uuid.Nil {
		return nil, services.ErrUnauthorized
	}
	if _, err := s.GetQuestionnaire(ctx, questionnaireID); err != nil {
		return nil, err
	}

	a := models.NewAssessment(userID, questionnaireID)
	if err := s.repos.Assessments.Create(ctx, a); err != nil {
		return nil, services.WrapInternal("failed to create assessment", err)
	}

	if err := s.auditService.LogAssessmentStarted(a, info); err != nil {
		s.logger.Warn("failed to audit assessment start", zap.Error(err))
	}

	s.logger.Info("assessment started",
		zap.String("assessment_id", a.ID.String()),
		zap.String("questionnaire_id", questionnaireID.String()))
	return a, nil
}

// Submit scores an assessment's responses and stores the result.
// The risk score and the completion are written in one transaction.
func (s *AssessmentService) Submit(ctx context.Context, req SubmitRequest, info audit.RequestInfo) (*SubmitResult, error) {
	if len(req.Responses) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "responses must not be empty", nil)
	}

	a, err := s.ownedAssessment(ctx, req.UserID, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.IsCompleted() {
		return nil, services.ErrAssessmentCompleted
	}

	q, err := s.GetQuestionnaire(ctx, a.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	if missing := q.MissingResponses(req.Responses); len(missing) > 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrMissingResponses.Message, nil).
			WithDetail("missing", missing)
	}

	responses := risk.Responses(req.Responses)
	rawScore := risk.RawScore(responses)
	result := s.classifier.Classify(responses)

	if err := a.Complete(req.Responses, rawScore); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "responses are not encodable", err)
	}
	score := models.NewRiskScore(a.ID, a.UserID, result)

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		if err := s.repos.RiskScores.Create(ctx, score); err != nil {
			return err
		}
		return s.repos.Assessments.Complete(ctx, a)
	})
	if err != nil {
		return nil, services.FromRepositoryError(err, services.ErrAssessmentNotFound, "failed to store assessment result")
	}

	if err := s.auditService.LogAssessmentSubmitted(a, score, info); err != nil {
		s.logger.Warn("failed to audit assessment submission", zap.Error(err))
	}

	s.logger.Info("assessment submitted",
		zap.String("assessment_id", a.ID.String()),
		zap.String("risk_level", string(score.RiskLevel)),
		zap.Bool("fallback", score.Fallback))

	return &SubmitResult{Assessment: a, RiskScore: score}, nil
}

// GetRiskScore returns the risk score of one of the user's assessments.
func (s *AssessmentService) GetRiskScore(ctx context.Context, userID, assessmentID uuid.UUID) (*models.RiskScore, error) {
	if _, err := s.ownedAssessment(ctx, userID, assessmentID); err != nil {
		return nil, err
	}
	score, err := s.repos.RiskScores.GetByAssessmentID(ctx, assessmentID)
	if err != nil {
		return nil, services.FromRepositoryError(err, services.ErrRiskScoreNotFound, "failed to get risk score")
	}
	return score, nil
}

// LatestRiskScore returns the user's most recent risk score.
func (s *AssessmentService) LatestRiskScore(ctx context.Context, userID uuid.UUID) (*models.RiskScore, error) {
	score, err := s.repos.RiskScores.GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, services.FromRepositoryError(err, services.ErrRiskScoreNotFound, "failed to get latest risk score")
	}
	return score, nil
}

// History lists the user's assessments newest first. limit <= 0 uses
// DefaultHistoryLimit.
func (s *AssessmentService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AssessmentSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("limit must be at most %d", MaxHistoryLimit), nil)
	}

	history, err := s.repos.Assessments.History(ctx, userID, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to load assessment history", err)
	}
	return history, nil
}

// Classify scores responses without storing anything.
func (s *AssessmentService) Classify(responses map[string]interface{}) risk.Result {
	return s.classifier.Classify(risk.Responses(responses))
}

// ownedAssessment loads an assessment and hides it from everyone but its owner.
func (s *AssessmentService) ownedAssessment(ctx context.Context, userID, assessmentID uuid.UUID) (*models.Assessment, error) {
	a, err := s.repos.Assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, services.FromRepositoryError(err, services.ErrAssessmentNotFound, "failed to get assessment")
	}
	if a.UserID != userID {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, services.ErrAssessmentNotFound.Message,
			errors.New("assessment belongs to another user"))
	}
	return a, nil
}
