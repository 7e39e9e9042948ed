package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/services/audit"
	"go.uber.org/zap"
)

// MockAuditLogReader is a mock implementation of AuditLogReader
type MockAuditLogReader struct {
	mock.Mock
}

func (m *MockAuditLogReader) List(ctx context.Context, q audit.Query) ([]*models.AuditLog, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func (m *MockAuditLogReader) GetStats() audit.Stats {
	args := m.Called()
	return args.Get(0).(audit.Stats)
}

func TestHandleListLogs(t *testing.T) {
	userID := uuid.New()

	t.Run("default page", func(t *testing.T) {
		reader := new(MockAuditLogReader)
		handler := NewAuditHandler(reader, zap.NewNop())

		entry := models.NewAuditLog(models.AuditActionKnowledgeReloaded, "knowledge")
		reader.On("List", mock.Anything, audit.Query{Limit: 50}).Return([]*models.AuditLog{entry}, nil)

		w := httptest.NewRecorder()
		handler.HandleListLogs(w, newRequest(t, http.MethodGet, "/api/v1/audit/logs", nil, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got AuditLogsResponse
		decodeData(t, w, &got)
		require.Len(t, got.Logs, 1)
		assert.Equal(t, models.AuditActionKnowledgeReloaded, got.Logs[0].Action)
		assert.Equal(t, 50, got.Limit)
		reader.AssertExpectations(t)
	})

	t.Run("filters and pagination", func(t *testing.T) {
		reader := new(MockAuditLogReader)
		handler := NewAuditHandler(reader, zap.NewNop())

		want := audit.Query{UserID: &userID, Action: models.AuditActionResourcesSearched, Limit: 10, Offset: 20}
		reader.On("List", mock.Anything, want).Return(nil, nil)

		w := httptest.NewRecorder()
		target := "/api/v1/audit/logs?limit=10&offset=20&action=resources_searched&user_id=" + userID.String()
		handler.HandleListLogs(w, newRequest(t, http.MethodGet, target, nil, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got AuditLogsResponse
		decodeData(t, w, &got)
		assert.NotNil(t, got.Logs)
		assert.Empty(t, got.Logs)
		reader.AssertExpectations(t)
	})

	t.Run("bad requests", func(t *testing.T) {
		targets := []string{
			"/api/v1/audit/logs?limit=0",
			"/api/v1/audit/logs?limit=201",
			"/api/v1/audit/logs?offset=-1",
			"/api/v1/audit/logs?limit=a",
			"/api/v1/audit/logs?user_id=bob",
			"/api/v1/audit/logs?action=deleted",
		}
		for _, target := range targets {
			reader := new(MockAuditLogReader)
			handler := NewAuditHandler(reader, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleListLogs(w, newRequest(t, http.MethodGet, target, nil, nil, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code, target)
			reader.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		reader := new(MockAuditLogReader)
		handler := NewAuditHandler(reader, zap.NewNop())

		reader.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		w := httptest.NewRecorder()
		handler.HandleListLogs(w, newRequest(t, http.MethodGet, "/api/v1/audit/logs", nil, nil, nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}

func TestHandleAuditStats(t *testing.T) {
	reader := new(MockAuditLogReader)
	handler := NewAuditHandler(reader, zap.NewNop())

	reader.On("GetStats").Return(audit.Stats{BufferSize: 1000, PendingEvents: 3, WorkerCount: 2, Started: true})

	w := httptest.NewRecorder()
	handler.HandleStats(w, newRequest(t, http.MethodGet, "/api/v1/audit/stats", nil, nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got audit.Stats
	decodeData(t, w, &got)
	assert.Equal(t, 3, got.PendingEvents)
	assert.True(t, got.Started)
}
