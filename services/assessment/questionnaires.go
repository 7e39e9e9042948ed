package assessment

import (
	"fmt"
	"strings"

	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/services"
)

const (
	ScreeningName = "Mental Health Risk Screening"
	ExtendedName  = "Extended Wellbeing Screening"

	// DefaultQuestionnaireVersion is assigned when a new questionnaire names none.
	DefaultQuestionnaireVersion = "1.0"
)

var questionText = map[string]string{
	risk.FeatureSleepQuality:     "Over the past two weeks, how much trouble have you had sleeping?",
	risk.FeatureAnxietyLevel:     "How anxious or on edge have you felt?",
	risk.FeatureSocialIsolation:  "How cut off from friends and family have you felt?",
	risk.FeatureStressLevel:      "How stressed have you felt by daily demands?",
	risk.FeaturePhysicalHealth:   "How much have physical health problems affected you?",
	risk.FeatureSubstanceUse:     "How often have you used alcohol or other substances to cope?",
	risk.FeatureSelfHarmThoughts: "How often have you had thoughts of harming yourself?",
	risk.FeatureConcentration:    "How hard has it been to concentrate?",
	risk.FeatureAppetiteChange:   "How much has your appetite changed?",
	risk.FeatureEnergyLevel:      "How drained or low on energy have you felt?",
	risk.FeatureHopelessness:     "How hopeless have you felt about the future?",
	risk.FeatureIrritability:     "How irritable have you felt?",
}

var scaleLabels = map[string]string{
	"0":  "Not at all",
	"5":  "Sometimes",
	"10": "Nearly all the time",
}

// scaleQuestions builds one 0-10 question per feature, in the given order.
func scaleQuestions(features []string) []models.Question {
	questions := make([]models.Question, 0, len(features))
	for _, f := range features {
		questions = append(questions, models.Question{
			ID:     f,
			Text:   questionText[f],
			Type:   models.QuestionTypeScale,
			Scale:  &models.Scale{Min: 0, Max: int(risk.MaxRawValue)},
			Labels: scaleLabels,
		})
	}
	return questions
}

// DefaultQuestionnaires returns the instruments seeded into an empty database.
// Question ids are classifier feature names.
func DefaultQuestionnaires() []*models.Questionnaire {
	core := risk.CoreFeatures()
	all := risk.Vocabulary()

	return []*models.Questionnaire{
		models.NewQuestionnaire(
			ScreeningName,
			"Seven-item screening covering sleep, anxiety, isolation, stress, health, substance use and self-harm thoughts.",
			"1.0",
			scaleQuestions(core),
			core,
		),
		models.NewQuestionnaire(
			ExtendedName,
			"The screening items plus concentration, appetite, energy, hopelessness and irritability.",
			"1.0",
			scaleQuestions(all),
			core,
		),
	}
}

// CreateQuestionnaireRequest describes a new screening instrument.
type CreateQuestionnaireRequest struct {
	Name              string
	Description       string
	Version           string
	Questions         []models.Question
	RequiredQuestions []string
}

// buildQuestionnaire validates req and fills defaults. Question ids must be
// distinct classifier features, and every required id must be one of them.
// A nil RequiredQuestions requires every question.
func buildQuestionnaire(req CreateQuestionnaireRequest) (*models.Questionnaire, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, services.InvalidInput("name", "name is required")
	}
	if len(req.Questions) == 0 {
		return nil, services.InvalidInput("questions", "at least one question is required")
	}

	seen := make(map[string]bool, len(req.Questions))
	ids := make([]string, 0, len(req.Questions))
	questions := make([]models.Question, 0, len(req.Questions))
	for i, question := range req.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if !risk.IsFeature(question.ID) {
			return nil, services.InvalidInput(field+".id", fmt.Sprintf("%q is not a classifier feature", question.ID))
		}
		if seen[question.ID] {
			return nil, services.InvalidInput(field+".id", fmt.Sprintf("%q appears more than once", question.ID))
		}
		seen[question.ID] = true
		ids = append(ids, question.ID)

		if strings.TrimSpace(question.Text) == "" {
			question.Text = questionText[question.ID]
		}
		switch question.Type {
		case "":
			question.Type = models.QuestionTypeScale
		case models.QuestionTypeScale, models.QuestionTypeNumber:
		default:
			return nil, services.InvalidInput(field+".type", fmt.Sprintf("unknown question type %q", question.Type))
		}
		if question.Type == models.QuestionTypeScale && question.Scale == nil {
			question.Scale = &models.Scale{Min: 0, Max: int(risk.MaxRawValue)}
		}
		if question.Scale != nil && question.Scale.Min >= question.Scale.Max {
			return nil, services.InvalidInput(field+".scale", "min must be below max")
		}
		questions = append(questions, question)
	}

	required := req.RequiredQuestions
	if required == nil {
		required = ids
	}
	for _, id := range required {
		if !seen[id] {
			return nil, services.InvalidInput("required_questions", fmt.Sprintf("%q is not a question of this questionnaire", id))
		}
	}

	version := strings.TrimSpace(req.Version)
	if version == "" {
		version = DefaultQuestionnaireVersion
	}
	return models.NewQuestionnaire(name, strings.TrimSpace(req.Description), version, questions, required), nil
}
