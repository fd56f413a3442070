package services

import (
	"os"
	"testing"

	"github.com/excuse-lab/excuse-api/internal/database"
	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testDB connects to TEST_DATABASE_URL; tests that need Postgres are skipped without it.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSummarize(t *testing.T) {
	stats := summarize([]outcomeRow{
		{Outcome: models.OutcomeSuccess, Count: 6, AttemptsSum: 8, DurationMSSum: 6000},
		{Outcome: models.OutcomeBusy, Count: 2, AttemptsSum: 8, DurationMSSum: 30000},
	})

	assert.Equal(t, int64(8), stats.Total)
	assert.Equal(t, int64(6), stats.ByOutcome[models.OutcomeSuccess])
	assert.Equal(t, int64(2), stats.ByOutcome[models.OutcomeBusy])
	assert.InDelta(t, 2.0, stats.AvgAttempts, 1e-9)
	assert.InDelta(t, 4500.0, stats.AvgDurationMS, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	stats := summarize(nil)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgAttempts)
	assert.NotNil(t, stats.ByOutcome)
}

func TestExcuseService_Lifecycle(t *testing.T) {
	db := testDB(t)
	svc := NewExcuseService(db)
	owner := uuid.NewString()
	category := "test-" + uuid.NewString()[:8]

	excuse := &models.Excuse{Title: "電車遅延", Description: "電車が遅れています", Category: category, UserID: owner}
	require.NoError(t, svc.Create(excuse))
	require.NotZero(t, excuse.ID)
	t.Cleanup(func() { db.Unscoped().Delete(&models.Excuse{}, excuse.ID) })

	got, err := svc.Get(excuse.ID)
	require.NoError(t, err)
	assert.Equal(t, "電車遅延", got.Title)

	mine, err := svc.List(owner)
	require.NoError(t, err)
	assert.True(t, containsExcuse(mine, excuse.ID))

	shared, err := svc.List("")
	require.NoError(t, err)
	assert.False(t, containsExcuse(shared, excuse.ID), "owned excuses are not listed anonymously")

	categories, err := svc.Categories()
	require.NoError(t, err)
	assert.Contains(t, categories, category)

	assert.ErrorIs(t, svc.Delete(excuse.ID, uuid.NewString()), ErrExcuseNotFound)
	require.NoError(t, svc.Delete(excuse.ID, owner))

	_, err = svc.Get(excuse.ID)
	assert.ErrorIs(t, err, ErrExcuseNotFound)
}

func TestGenerationLogService_RecordAndStats(t *testing.T) {
	db := testDB(t)
	svc := NewGenerationLogService(db)

	before, err := svc.Stats()
	require.NoError(t, err)

	entry := &models.GenerationLog{
		RequestID: uuid.NewString(),
		Mode:      "standard",
		Provider:  "gemini",
		Attempts:  2,
		Outcome:   models.OutcomeSuccess,
	}
	require.NoError(t, svc.Record(entry))
	t.Cleanup(func() { db.Delete(&models.GenerationLog{}, entry.ID) })

	after, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, after.Total)
	assert.Equal(t, before.ByOutcome[models.OutcomeSuccess]+1, after.ByOutcome[models.OutcomeSuccess])
	assert.GreaterOrEqual(t, after.Last24h, int64(1))
}

func containsExcuse(excuses []models.Excuse, id uint) bool {
	for _, e := range excuses {
		if e.ID == id {
			return true
		}
	}
	return false
}
