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

// RiskScoreRepository implements the repositories.RiskScoreRepository interface
type RiskScoreRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRiskScoreRepository creates a new risk score repository
func NewRiskScoreRepository(db *DB, logger *zap.Logger) repositories.RiskScoreRepository {
	return &RiskScoreRepository{
		db:     db,
		logger: logger,
	}
}

const riskScoreColumns = `id, assessment_id, user_id, risk_level, risk_score, contributing_factors,
	recommendations, model_used, confidence_score, fallback, calculated_at`

// Create stores a risk score
func (r *RiskScoreRepository) Create(ctx context.Context, s *models.RiskScore) error {
	factors, err := json.Marshal(s.ContributingFactors)
	if err != nil {
		return fmt.Errorf("failed to encode contributing factors: %w", err)
	}
	recs, err := json.Marshal(s.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}

	query := `
		INSERT INTO risk_scores (` + riskScoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, r.db.Rebind(query),
		s.ID,
		s.AssessmentID,
		s.UserID,
		s.RiskLevel,
		s.RiskScore,
		string(factors),
		string(recs),
		s.ModelUsed,
		s.ConfidenceScore,
		s.Fallback,
		s.CalculatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("risk score for assessment %s: %w", s.AssessmentID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create risk score: %w", err)
	}

	r.logger.Debug("risk score stored",
		zap.String("assessment_id", s.AssessmentID.String()),
		zap.String("risk_level", string(s.RiskLevel)))
	return nil
}

// GetByAssessmentID retrieves the risk score of an assessment
func (r *RiskScoreRepository) GetByAssessmentID(ctx context.Context, assessmentID uuid.UUID) (*models.RiskScore, error) {
	query := `SELECT ` + riskScoreColumns + ` FROM risk_scores WHERE assessment_id = $1`

	executor := GetExecutor(ctx, r.db)
	s, err := scanRiskScore(executor.QueryRowContext(ctx, r.db.Rebind(query), assessmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("risk score for assessment %s: %w", assessmentID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get risk score: %w", err)
	}
	return s, nil
}

// GetLatestByUserID retrieves the user's most recent risk score
func (r *RiskScoreRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.RiskScore, error) {
	query := `
		SELECT ` + riskScoreColumns + `
		FROM risk_scores
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT 1
	`

	executor := GetExecutor(ctx, r.db)
	s, err := scanRiskScore(executor.QueryRowContext(ctx, r.db.Rebind(query), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("risk score for user %s: %w", userID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest risk score: %w", err)
	}
	return s, nil
}

func scanRiskScore(row rowScanner) (*models.RiskScore, error) {
	s := &models.RiskScore{}
	var factors, recs []byte

	if err := row.Scan(
		&s.ID,
		&s.AssessmentID,
		&s.UserID,
		&s.RiskLevel,
		&s.RiskScore,
		&factors,
		&recs,
		&s.ModelUsed,
		&s.ConfidenceScore,
		&s.Fallback,
		&s.CalculatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(factors, &s.ContributingFactors); err != nil {
		return nil, fmt.Errorf("decode contributing factors: %w", err)
	}
	if err := json.Unmarshal(recs, &s.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	return s, nil
}
