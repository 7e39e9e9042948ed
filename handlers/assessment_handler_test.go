package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/middleware"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/services"
	"github.com/upb/mindscreen/services/assessment"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

// MockAssessmentService is a mock implementation of AssessmentService
type MockAssessmentService struct {
	mock.Mock
}

func (m *MockAssessmentService) ListQuestionnaires(ctx context.Context) ([]*models.Questionnaire, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Questionnaire), args.Error(1)
}

func (m *MockAssessmentService) GetQuestionnaire(ctx context.Context, id uuid.UUID) (*models.Questionnaire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Questionnaire), args.Error(1)
}

func (m *MockAssessmentService) CreateQuestionnaire(ctx context.Context, req assessment.CreateQuestionnaireRequest, info audit.RequestInfo) (*models.Questionnaire, error) {
	args := m.Called(ctx, req, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Questionnaire), args.Error(1)
}

func (m *MockAssessmentService) Start(ctx context.Context, userID, questionnaireID uuid.UUID, info audit.RequestInfo) (*models.Assessment, error) {
	args := m.Called(ctx, userID, questionnaireID, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assessment), args.Error(1)
}

func (m *MockAssessmentService) Submit(ctx context.Context, req assessment.SubmitRequest, info audit.RequestInfo) (*assessment.SubmitResult, error) {
	args := m.Called(ctx, req, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assessment.SubmitResult), args.Error(1)
}

func (m *MockAssessmentService) GetRiskScore(ctx context.Context, userID, assessmentID uuid.UUID) (*models.RiskScore, error) {
	args := m.Called(ctx, userID, assessmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RiskScore), args.Error(1)
}

func (m *MockAssessmentService) LatestRiskScore(ctx context.Context, userID uuid.UUID) (*models.RiskScore, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RiskScore), args.Error(1)
}

func (m *MockAssessmentService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AssessmentSummary, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssessmentSummary), args.Error(1)
}

func (m *MockAssessmentService) Classify(responses map[string]interface{}) risk.Result {
	args := m.Called(responses)
	return args.Get(0).(risk.Result)
}

// newRequest builds a request carrying a user id and optional chi URL params
func newRequest(t *testing.T, method, target string, body interface{}, userID *uuid.UUID, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)

	ctx := req.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if userID != nil {
		ctx = middleware.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleListQuestionnaires(t *testing.T) {
	svc := new(MockAssessmentService)
	handler := NewAssessmentHandler(svc, zap.NewNop())

	list := assessment.DefaultQuestionnaires()
	svc.On("ListQuestionnaires", mock.Anything).Return(list, nil)

	w := httptest.NewRecorder()
	handler.HandleListQuestionnaires(w, newRequest(t, http.MethodGet, "/api/v1/questionnaires", nil, nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []models.Questionnaire
	decodeData(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, assessment.ScreeningName, got[0].Name)
	svc.AssertExpectations(t)
}

func TestHandleGetQuestionnaire(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		q := assessment.DefaultQuestionnaires()[0]
		svc.On("GetQuestionnaire", mock.Anything, q.ID).Return(q, nil)

		w := httptest.NewRecorder()
		handler.HandleGetQuestionnaire(w, newRequest(t, http.MethodGet, "/", nil, nil, map[string]string{"id": q.ID.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		var got models.Questionnaire
		decodeData(t, w, &got)
		assert.Equal(t, q.ID, got.ID)
		assert.Len(t, got.Questions, len(risk.CoreFeatures()))
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		id := uuid.New()
		svc.On("GetQuestionnaire", mock.Anything, id).Return(nil, services.ErrQuestionnaireNotFound)

		w := httptest.NewRecorder()
		handler.HandleGetQuestionnaire(w, newRequest(t, http.MethodGet, "/", nil, nil, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleGetQuestionnaire(w, newRequest(t, http.MethodGet, "/", nil, nil, map[string]string{"id": "abc"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetQuestionnaire", mock.Anything, mock.Anything)
	})
}

func TestHandleCreateQuestionnaire(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		want := assessment.CreateQuestionnaireRequest{
			Name: "Sleep Check",
			Questions: []models.Question{
				{ID: risk.FeatureSleepQuality, Type: models.QuestionTypeScale, Scale: &models.Scale{Min: 0, Max: 10}},
				{ID: risk.FeatureStressLevel},
			},
			RequiredQuestions: []string{risk.FeatureSleepQuality},
		}
		created := models.NewQuestionnaire("Sleep Check", "", "1.0", want.Questions, want.RequiredQuestions)
		svc.On("CreateQuestionnaire", mock.Anything, want, mock.AnythingOfType("audit.RequestInfo")).Return(created, nil)

		body := CreateQuestionnaireRequest{
			Name: "Sleep Check",
			Questions: []QuestionRequest{
				{ID: risk.FeatureSleepQuality, Type: "scale", Scale: &models.Scale{Min: 0, Max: 10}},
				{ID: risk.FeatureStressLevel},
			},
			RequiredQuestions: []string{risk.FeatureSleepQuality},
		}
		w := httptest.NewRecorder()
		handler.HandleCreateQuestionnaire(w, newRequest(t, http.MethodPost, "/api/v1/questionnaires", body, nil, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got models.Questionnaire
		decodeData(t, w, &got)
		assert.Equal(t, created.ID, got.ID)
		assert.Len(t, got.Questions, 2)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing name", body: `{"questions":[{"id":"sleep_quality"}]}`, field: "name"},
		{name: "no questions", body: `{"name":"Empty","questions":[]}`, field: "questions"},
		{name: "question outside classifier vocabulary", body: `{"name":"Mood","questions":[{"id":"mood_swings"}]}`, field: "id"},
		{name: "unknown question type", body: `{"name":"Mood","questions":[{"id":"sleep_quality","type":"slider"}]}`, field: "type"},
		{name: "blank required id", body: `{"name":"Mood","questions":[{"id":"sleep_quality"}],"required_questions":[""]}`, field: "required_questions[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAssessmentService)
			handler := NewAssessmentHandler(svc, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleCreateQuestionnaire(w, newRequest(t, http.MethodPost, "/", tt.body, nil, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w).Details, tt.field)
			svc.AssertNotCalled(t, "CreateQuestionnaire", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("required id that is not a question", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		svc.On("CreateQuestionnaire", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.InvalidInput("required_questions", `"stress_level" is not a question of this questionnaire`))

		body := `{"name":"Mood","questions":[{"id":"sleep_quality"}],"required_questions":["stress_level"]}`
		w := httptest.NewRecorder()
		handler.HandleCreateQuestionnaire(w, newRequest(t, http.MethodPost, "/", body, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "required_questions")
	})
}

func TestHandleStartAssessment(t *testing.T) {
	userID := uuid.New()
	questionnaireID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		a := models.NewAssessment(userID, questionnaireID)
		svc.On("Start", mock.Anything, userID, questionnaireID, mock.AnythingOfType("audit.RequestInfo")).Return(a, nil)

		w := httptest.NewRecorder()
		body := StartAssessmentRequest{QuestionnaireID: questionnaireID.String()}
		handler.HandleStartAssessment(w, newRequest(t, http.MethodPost, "/api/v1/assessments", body, &userID, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got models.Assessment
		decodeData(t, w, &got)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, models.AssessmentStatusInProgress, got.Status)
		svc.AssertExpectations(t)
	})

	t.Run("missing questionnaire id", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleStartAssessment(w, newRequest(t, http.MethodPost, "/", `{}`, &userID, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "questionnaire_id")
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleStartAssessment(w, newRequest(t, http.MethodPost, "/", `{"questionnaire_id":`, &userID, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown questionnaire", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		svc.On("Start", mock.Anything, userID, questionnaireID, mock.Anything).Return(nil, services.ErrQuestionnaireNotFound)

		w := httptest.NewRecorder()
		body := StartAssessmentRequest{QuestionnaireID: questionnaireID.String()}
		handler.HandleStartAssessment(w, newRequest(t, http.MethodPost, "/", body, &userID, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		svc.On("Start", mock.Anything, uuid.Nil, questionnaireID, mock.Anything).Return(nil, services.ErrUnauthorized)

		w := httptest.NewRecorder()
		body := StartAssessmentRequest{QuestionnaireID: questionnaireID.String()}
		handler.HandleStartAssessment(w, newRequest(t, http.MethodPost, "/", body, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleSubmitAssessment(t *testing.T) {
	userID := uuid.New()
	assessmentID := uuid.New()
	params := map[string]string{"id": assessmentID.String()}

	t.Run("scored", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		a := models.NewAssessment(userID, uuid.New())
		a.ID = assessmentID
		score := models.NewRiskScore(assessmentID, userID, risk.Result{
			RiskLevel: risk.LevelHigh,
			RiskScore: 62.5,
			ModelUsed: risk.ModelHeuristic,
		})

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(req assessment.SubmitRequest) bool {
			return req.AssessmentID == assessmentID &&
				req.UserID == userID &&
				req.Responses[risk.FeatureSleepQuality] == float64(7)
		}), mock.Anything).Return(&assessment.SubmitResult{Assessment: a, RiskScore: score}, nil)

		w := httptest.NewRecorder()
		body := SubmitAssessmentRequest{Responses: map[string]interface{}{risk.FeatureSleepQuality: 7}}
		handler.HandleSubmitAssessment(w, newRequest(t, http.MethodPost, "/", body, &userID, params))

		assert.Equal(t, http.StatusOK, w.Code)
		var got struct {
			RiskScore models.RiskScore `json:"risk_score"`
		}
		decodeData(t, w, &got)
		assert.Equal(t, risk.LevelHigh, got.RiskScore.RiskLevel)
		assert.Equal(t, 62.5, got.RiskScore.RiskScore)
		svc.AssertExpectations(t)
	})

	t.Run("empty responses", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleSubmitAssessment(w, newRequest(t, http.MethodPost, "/", `{"responses":{}}`, &userID, params))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "responses")
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already completed", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrAssessmentCompleted)

		w := httptest.NewRecorder()
		handler.HandleSubmitAssessment(w, newRequest(t, http.MethodPost, "/", `{"responses":{"stress_level":4}}`, &userID, params))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing required answers", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		missing := services.NewDomainError(services.ErrorTypeValidation, services.ErrMissingResponses.Message, nil).
			WithDetail("missing", []string{risk.FeatureAnxietyLevel})
		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, missing)

		w := httptest.NewRecorder()
		handler.HandleSubmitAssessment(w, newRequest(t, http.MethodPost, "/", `{"responses":{"stress_level":4}}`, &userID, params))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []interface{}{risk.FeatureAnxietyLevel}, decodeError(t, w).Details["missing"])
	})

	t.Run("invalid assessment id", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleSubmitAssessment(w, newRequest(t, http.MethodPost, "/", `{"responses":{"stress_level":4}}`, &userID, map[string]string{"id": "1"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetRiskScore(t *testing.T) {
	userID := uuid.New()
	assessmentID := uuid.New()

	svc := new(MockAssessmentService)
	handler := NewAssessmentHandler(svc, zap.NewNop())

	score := models.NewRiskScore(assessmentID, userID, risk.DefaultResult())
	svc.On("GetRiskScore", mock.Anything, userID, assessmentID).Return(score, nil)

	w := httptest.NewRecorder()
	handler.HandleGetRiskScore(w, newRequest(t, http.MethodGet, "/", nil, &userID, map[string]string{"id": assessmentID.String()}))

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.RiskScore
	decodeData(t, w, &got)
	assert.True(t, got.Fallback)
	assert.Equal(t, risk.LevelMedium, got.RiskLevel)
}

func TestHandleLatestRiskScore(t *testing.T) {
	userID := uuid.New()

	svc := new(MockAssessmentService)
	handler := NewAssessmentHandler(svc, zap.NewNop())

	svc.On("LatestRiskScore", mock.Anything, userID).Return(nil, services.ErrRiskScoreNotFound)

	w := httptest.NewRecorder()
	handler.HandleLatestRiskScore(w, newRequest(t, http.MethodGet, "/", nil, &userID, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHistory(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantStatus int
	}{
		{"default limit", "/api/v1/assessments/history", assessment.DefaultHistoryLimit, http.StatusOK},
		{"explicit limit", "/api/v1/assessments/history?limit=3", 3, http.StatusOK},
		{"non numeric limit", "/api/v1/assessments/history?limit=ten", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAssessmentService)
			handler := NewAssessmentHandler(svc, zap.NewNop())

			if tt.wantStatus == http.StatusOK {
				svc.On("History", mock.Anything, userID, tt.wantLimit).Return([]*models.AssessmentSummary{}, nil)
			}

			w := httptest.NewRecorder()
			handler.HandleHistory(w, newRequest(t, http.MethodGet, tt.target, nil, &userID, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandleClassify(t *testing.T) {
	t.Run("returns result without persisting", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		result := risk.Result{
			RiskLevel:           risk.LevelCritical,
			RiskScore:           91,
			ContributingFactors: []string{risk.FeatureSelfHarmThoughts},
			Recommendations:     risk.Recommendations(risk.LevelCritical),
			ModelUsed:           risk.ModelHeuristic,
		}
		svc.On("Classify", map[string]interface{}{risk.FeatureSelfHarmThoughts: float64(10)}).Return(result)

		w := httptest.NewRecorder()
		handler.HandleClassify(w, newRequest(t, http.MethodPost, "/api/v1/risk/classify", `{"responses":{"self_harm_thoughts":10}}`, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got risk.Result
		decodeData(t, w, &got)
		assert.Equal(t, risk.LevelCritical, got.RiskLevel)
		assert.Equal(t, []string{risk.FeatureSelfHarmThoughts}, got.ContributingFactors)
		assert.NotEmpty(t, got.Recommendations)
		svc.AssertExpectations(t)
	})

	t.Run("missing responses", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleClassify(w, newRequest(t, http.MethodPost, "/", `{}`, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		svc := new(MockAssessmentService)
		handler := NewAssessmentHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleClassify(w, newRequest(t, http.MethodPost, "/", `{"answers":{}}`, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
