package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/repositories"
	"go.uber.org/zap"
)

// AssessmentRepository implements the repositories.AssessmentRepository interface
type AssessmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *DB, logger *zap.Logger) repositories.AssessmentRepository {
	return &AssessmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new assessment
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	query := `
		INSERT INTO assessments (
			id, user_id, questionnaire_id, responses, status, raw_score, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, r.db.Rebind(query),
		a.ID,
		a.UserID,
		a.QuestionnaireID,
		nullableJSON(a.Responses),
		a.Status,
		a.RawScore,
		a.StartedAt,
		a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	r.logger.Debug("assessment created",
		zap.String("id", a.ID.String()),
		zap.String("questionnaire_id", a.QuestionnaireID.String()))
	return nil
}

// GetByID retrieves an assessment by ID
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	query := `
		SELECT id, user_id, questionnaire_id, responses, status, raw_score, started_at, completed_at
		FROM assessments
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	a := &models.Assessment{}
	var responses []byte

	err := executor.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(
		&a.ID,
		&a.UserID,
		&a.QuestionnaireID,
		&responses,
		&a.Status,
		&a.RawScore,
		&a.StartedAt,
		&a.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if len(responses) > 0 {
		a.Responses = responses
	}

	return a, nil
}

// Complete stores responses and raw score of an in-progress assessment
func (r *AssessmentRepository) Complete(ctx context.Context, a *models.Assessment) error {
	query := `
		UPDATE assessments
		SET responses = $2, raw_score = $3, status = $4, completed_at = $5
		WHERE id = $1 AND status = $6
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, r.db.Rebind(query),
		a.ID,
		nullableJSON(a.Responses),
		a.RawScore,
		models.AssessmentStatusCompleted,
		a.CompletedAt,
		models.AssessmentStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to complete assessment: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete assessment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assessment %s: %w", a.ID, repositories.ErrAlreadyCompleted)
	}

	return nil
}

// History lists a user's assessments newest first, joined with their risk scores
func (r *AssessmentRepository) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AssessmentSummary, error) {
	query := `
		SELECT a.id, a.questionnaire_id, q.name, a.status, a.raw_score,
		       rs.risk_level, rs.risk_score, a.started_at, a.completed_at
		FROM assessments a
		JOIN questionnaires q ON q.id = a.questionnaire_id
		LEFT JOIN risk_scores rs ON rs.assessment_id = a.id
		WHERE a.user_id = $1
		ORDER BY a.started_at DESC
		LIMIT $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, r.db.Rebind(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AssessmentSummary, 0)
	for rows.Next() {
		s := &models.AssessmentSummary{}
		if err := rows.Scan(
			&s.AssessmentID,
			&s.QuestionnaireID,
			&s.QuestionnaireName,
			&s.Status,
			&s.RawScore,
			&s.RiskLevel,
			&s.RiskScore,
			&s.StartedAt,
			&s.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assessment history: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessment history: %w", err)
	}

	return out, nil
}

// nullableJSON maps an empty document to SQL NULL
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
