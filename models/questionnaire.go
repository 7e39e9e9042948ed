package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType describes how a question is answered.
type QuestionType string

const (
	QuestionTypeScale  QuestionType = "scale"
	QuestionTypeNumber QuestionType = "number"
)

// Question is a single questionnaire item. Its ID doubles as the response
// key the risk classifier reads.
type Question struct {
	ID     string            `json:"id"`
	Text   string            `json:"text"`
	Type   QuestionType      `json:"type"`
	Scale  *Scale            `json:"scale,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Scale bounds a numeric answer.
type Scale struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Questionnaire is a versioned screening instrument.
type Questionnaire struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	Description       string     `json:"description" db:"description"`
	Version           string     `json:"version" db:"version"`
	Questions         []Question `json:"questions" db:"questions"`                   // stored as JSON
	RequiredQuestions []string   `json:"required_questions" db:"required_questions"` // stored as JSON
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Questionnaire model
func (Questionnaire) TableName() string {
	return "questionnaires"
}

// NewQuestionnaire creates a new Questionnaire instance
func NewQuestionnaire(name, description, version string, questions []Question, required []string) *Questionnaire {
	now := time.Now()
	return &Questionnaire{
		ID:                uuid.New(),
		Name:              name,
		Description:       description,
		Version:           version,
		Questions:         questions,
		RequiredQuestions: required,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// MissingResponses returns the required question ids absent from responses.
func (q *Questionnaire) MissingResponses(responses map[string]interface{}) []string {
	missing := make([]string, 0)
	for _, id := range q.RequiredQuestions {
		if v, ok := responses[id]; !ok || v == nil {
			missing = append(missing, id)
		}
	}
	return missing
}
