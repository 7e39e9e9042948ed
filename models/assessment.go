package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus is the lifecycle state of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusInProgress AssessmentStatus = "in_progress"
	AssessmentStatusCompleted  AssessmentStatus = "completed"
)

// Assessment is one user's pass through a questionnaire.
type Assessment struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	QuestionnaireID uuid.UUID        `json:"questionnaire_id" db:"questionnaire_id"`
	Responses       json.RawMessage  `json:"responses,omitempty" db:"responses"`
	Status          AssessmentStatus `json:"status" db:"status"`
	RawScore        *float64         `json:"raw_score,omitempty" db:"raw_score"`
	StartedAt       time.Time        `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// TableName returns the table name for the Assessment model
func (Assessment) TableName() string {
	return "assessments"
}

// NewAssessment creates an in-progress assessment.
func NewAssessment(userID, questionnaireID uuid.UUID) *Assessment {
	return &Assessment{
		ID:              uuid.New(),
		UserID:          userID,
		QuestionnaireID: questionnaireID,
		Status:          AssessmentStatusInProgress,
		StartedAt:       time.Now(),
	}
}

// IsCompleted returns true once responses have been submitted
func (a *Assessment) IsCompleted() bool {
	return a.Status == AssessmentStatusCompleted
}

// Complete records responses and the raw score and marks the assessment completed.
func (a *Assessment) Complete(responses map[string]interface{}, rawScore float64) error {
	data, err := json.Marshal(responses)
	if err != nil {
		return err
	}
	now := time.Now()
	a.Responses = data
	a.RawScore = &rawScore
	a.Status = AssessmentStatusCompleted
	a.CompletedAt = &now
	return nil
}
