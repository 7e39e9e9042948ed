package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Repositories called with the ctx passed to fn join the transaction.
	// Commits if fn succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// QuestionnaireRepository handles questionnaire data operations
type QuestionnaireRepository interface {
	// Create creates a new questionnaire
	Create(ctx context.Context, q *models.Questionnaire) error

	// GetByID retrieves a questionnaire by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Questionnaire, error)

	// List retrieves all questionnaires ordered by name
	List(ctx context.Context) ([]*models.Questionnaire, error)

	// Count returns the number of stored questionnaires
	Count(ctx context.Context) (int, error)
}

// AssessmentRepository handles assessment data operations
type AssessmentRepository interface {
	// Create creates a new assessment
	Create(ctx context.Context, a *models.Assessment) error

	// GetByID retrieves an assessment by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)

	// Complete stores responses and raw score and marks an in-progress
	// assessment completed. It fails with ErrAlreadyCompleted otherwise.
	Complete(ctx context.Context, a *models.Assessment) error

	// History lists a user's assessments, newest first, joined with their risk scores
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AssessmentSummary, error)
}

// RiskScoreRepository handles risk score data operations
type RiskScoreRepository interface {
	// Create stores a risk score; at most one exists per assessment
	Create(ctx context.Context, score *models.RiskScore) error

	// GetByAssessmentID retrieves the risk score of an assessment
	GetByAssessmentID(ctx context.Context, assessmentID uuid.UUID) (*models.RiskScore, error)

	// GetLatestByUserID retrieves the user's most recent risk score
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.RiskScore, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves audit logs newest first with pagination
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// GetByUserID retrieves audit logs for a user with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type
	GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Questionnaires QuestionnaireRepository
	Assessments    AssessmentRepository
	RiskScores     RiskScoreRepository
	AuditLogs      AuditRepository
}
