package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/repositories"
	"go.uber.org/zap"
)

// QuestionnaireRepository implements the repositories.QuestionnaireRepository interface
type QuestionnaireRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQuestionnaireRepository creates a new questionnaire repository
func NewQuestionnaireRepository(db *DB, logger *zap.Logger) repositories.QuestionnaireRepository {
	return &QuestionnaireRepository{
		db:     db,
		logger: logger,
	}
}

const questionnaireColumns = `id, name, description, version, questions, required_questions, created_at, updated_at`

// Create creates a new questionnaire
func (r *QuestionnaireRepository) Create(ctx context.Context, q *models.Questionnaire) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}
	required, err := json.Marshal(q.RequiredQuestions)
	if err != nil {
		return fmt.Errorf("failed to encode required questions: %w", err)
	}

	query := `
		INSERT INTO questionnaires (` + questionnaireColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, r.db.Rebind(query),
		q.ID,
		q.Name,
		q.Description,
		q.Version,
		string(questions),
		string(required),
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("questionnaire %s: %w", q.ID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create questionnaire: %w", err)
	}

	r.logger.Debug("questionnaire created", zap.String("id", q.ID.String()), zap.String("name", q.Name))
	return nil
}

// GetByID retrieves a questionnaire by ID
func (r *QuestionnaireRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	q, err := scanQuestionnaire(executor.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("questionnaire %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	return q, nil
}

// List retrieves all questionnaires ordered by name
func (r *QuestionnaireRepository) List(ctx context.Context) ([]*models.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires ORDER BY name ASC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list questionnaires: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Questionnaire, 0)
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan questionnaire: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questionnaires: %w", err)
	}
	return out, nil
}

// Count returns the number of stored questionnaires
func (r *QuestionnaireRepository) Count(ctx context.Context) (int, error) {
	var n int
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM questionnaires`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questionnaires: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestionnaire(row rowScanner) (*models.Questionnaire, error) {
	q := &models.Questionnaire{}
	var questions, required []byte

	if err := row.Scan(
		&q.ID,
		&q.Name,
		&q.Description,
		&q.Version,
		&questions,
		&required,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(required, &q.RequiredQuestions); err != nil {
		return nil, fmt.Errorf("decode required questions: %w", err)
	}
	return q, nil
}
