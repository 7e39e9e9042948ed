package sqldb

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/mindscreen/config"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/models"
	"github.com/upb/mindscreen/repositories"
	"go.uber.org/zap"
)

func newSQLiteFactory(t *testing.T) *RepositoryFactory {
	t.Helper()
	db, err := NewDB(config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := NewRepositoryFactoryFromDB(db, zap.NewNop())
	require.NoError(t, f.InitSchema(context.Background()))
	// schema creation is idempotent
	require.NoError(t, f.InitSchema(context.Background()))
	return f
}

func TestSQLite_AssessmentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteFactory(t)
	repos := f.NewRepositories()
	tm := f.GetTransactionManager()

	require.NoError(t, f.GetDB().HealthCheck(ctx))

	q := models.NewQuestionnaire("Screening", "", "1.0",
		[]models.Question{{ID: "stress_level", Text: "Stress?", Type: models.QuestionTypeScale}},
		[]string{"stress_level"})
	require.NoError(t, repos.Questionnaires.Create(ctx, q))

	n, err := repos.Questionnaires.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := repos.Questionnaires.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, q.ID, list[0].ID)
	assert.Equal(t, []string{"stress_level"}, list[0].RequiredQuestions)

	userID := uuid.New()
	a := models.NewAssessment(userID, q.ID)
	require.NoError(t, repos.Assessments.Create(ctx, a))

	stored, err := repos.Assessments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusInProgress, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	responses := map[string]interface{}{"stress_level": 8}
	require.NoError(t, a.Complete(responses, 160))

	result := risk.Result{
		RiskLevel:           risk.LevelCritical,
		RiskScore:           80,
		ContributingFactors: []string{"stress_level"},
		Recommendations:     risk.Recommendations(risk.LevelCritical),
		Confidence:          0.85,
		ModelUsed:           risk.ModelHeuristic,
	}
	score := models.NewRiskScore(a.ID, userID, result)

	err = tm.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := repos.RiskScores.Create(txCtx, score); err != nil {
			return err
		}
		return repos.Assessments.Complete(txCtx, a)
	})
	require.NoError(t, err)

	err = repos.Assessments.Complete(ctx, a)
	assert.ErrorIs(t, err, repositories.ErrAlreadyCompleted)

	err = repos.RiskScores.Create(ctx, models.NewRiskScore(a.ID, userID, result))
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	latest, err := repos.RiskScores.GetLatestByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, score.ID, latest.ID)
	assert.Equal(t, risk.LevelCritical, latest.RiskLevel)
	assert.Equal(t, []string{"stress_level"}, latest.ContributingFactors)

	history, err := repos.Assessments.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].Status)
	require.NotNil(t, history[0].RiskLevel)
	assert.Equal(t, "critical", *history[0].RiskLevel)
	assert.Equal(t, "Screening", history[0].QuestionnaireName)
}

func TestSQLite_RollbackLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteFactory(t)
	repos := f.NewRepositories()

	q := models.NewQuestionnaire("Screening", "", "1.0", []models.Question{}, []string{})
	err := f.GetTransactionManager().InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := repos.Questionnaires.Create(txCtx, q); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repos.Questionnaires.GetByID(ctx, q.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSQLite_AuditLogs(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteFactory(t)
	repo := f.NewRepositories().AuditLogs
	userID := uuid.New()

	require.NoError(t, repo.Insert(ctx, models.NewAuditLog(models.AuditActionAssessmentStarted, "assessment").WithUser(userID)))
	require.NoError(t, repo.Insert(ctx, models.NewAuditLog(models.AuditActionKnowledgeReloaded, "knowledge")))

	all, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.GetByUserID(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.AuditActionAssessmentStarted, mine[0].Action)

	reloads, err := repo.GetByAction(ctx, models.AuditActionKnowledgeReloaded, 10, 0)
	require.NoError(t, err)
	require.Len(t, reloads, 1)
	assert.Nil(t, reloads[0].UserID)
}
