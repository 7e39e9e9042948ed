package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/internal/risk"
)

// RiskScore is the persisted classifier output for one assessment.
type RiskScore struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	AssessmentID        uuid.UUID  `json:"assessment_id" db:"assessment_id"`
	UserID              uuid.UUID  `json:"user_id" db:"user_id"`
	RiskLevel           risk.Level `json:"risk_level" db:"risk_level"`
	RiskScore           float64    `json:"risk_score" db:"risk_score"`
	ContributingFactors []string   `json:"contributing_factors" db:"contributing_factors"` // stored as JSON
	Recommendations     []string   `json:"recommendations" db:"recommendations"`           // stored as JSON
	ModelUsed           string     `json:"model_used" db:"model_used"`
	ConfidenceScore     float64    `json:"confidence_score" db:"confidence_score"`
	Fallback            bool       `json:"fallback" db:"fallback"`
	CalculatedAt        time.Time  `json:"calculated_at" db:"calculated_at"`
}

// TableName returns the table name for the RiskScore model
func (RiskScore) TableName() string {
	return "risk_scores"
}

// NewRiskScore records a classifier result against an assessment.
func NewRiskScore(assessmentID, userID uuid.UUID, result risk.Result) *RiskScore {
	factors := result.ContributingFactors
	if factors == nil {
		factors = []string{}
	}
	recs := result.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return &RiskScore{
		ID:                  uuid.New(),
		AssessmentID:        assessmentID,
		UserID:              userID,
		RiskLevel:           result.RiskLevel,
		RiskScore:           result.RiskScore,
		ContributingFactors: factors,
		Recommendations:     recs,
		ModelUsed:           result.ModelUsed,
		ConfidenceScore:     result.Confidence,
		Fallback:            result.Fallback,
		CalculatedAt:        time.Now(),
	}
}

// Result converts the stored score back into a classifier result.
func (r *RiskScore) Result() risk.Result {
	return risk.Result{
		RiskLevel:           r.RiskLevel,
		RiskScore:           r.RiskScore,
		ContributingFactors: r.ContributingFactors,
		Recommendations:     r.Recommendations,
		Confidence:          r.ConfidenceScore,
		ModelUsed:           r.ModelUsed,
		Fallback:            r.Fallback,
	}
}

// AssessmentSummary is one row of a user's assessment history.
type AssessmentSummary struct {
	AssessmentID      uuid.UUID  `json:"assessment_id"`
	QuestionnaireID   uuid.UUID  `json:"questionnaire_id"`
	QuestionnaireName string     `json:"questionnaire_name"`
	Status            string     `json:"status"`
	RawScore          *float64   `json:"raw_score,omitempty"`
	RiskLevel         *string    `json:"risk_level,omitempty"`
	RiskScore         *float64   `json:"risk_score,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
