package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, InitializeSchema(ctx, db))
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestStreakRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewStreakRepository(setupTestDB(t))

	_, err := repo.Get(ctx, "kid-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	streak := &models.Streak{StudentID: "kid-1"}
	require.NoError(t, repo.Create(ctx, streak))

	err = repo.Create(ctx, &models.Streak{StudentID: "kid-1"})
	assert.True(t, errors.Is(err, ErrConflict), "second create must conflict, got %v", err)

	streak.CurrentStreak = 3
	streak.LongestStreak = 5
	streak.LastActiveDate = strPtr("2024-01-02")
	require.NoError(t, repo.Update(ctx, streak))

	got, err := repo.Get(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentStreak)
	assert.Equal(t, 5, got.LongestStreak)
	require.NotNil(t, got.LastActiveDate)
	assert.Equal(t, "2024-01-02", *got.LastActiveDate)

	active, err := repo.ListLastActiveOn(ctx, "2024-01-02")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "kid-1", active[0].StudentID)
}

func TestStreakRepositoryUpdateMissing(t *testing.T) {
	repo := NewStreakRepository(setupTestDB(t))
	err := repo.Update(context.Background(), &models.Streak{StudentID: "ghost", CurrentStreak: 1})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAwardRepositoryEnforcesUniquePair(t *testing.T) {
	ctx := context.Background()
	repo := NewAwardRepository(setupTestDB(t))

	score := 100
	first := &models.StudentBadge{
		StudentID:     "kid-1",
		BadgeID:       "perfect",
		BadgeTitle:    "Perfect Score",
		ActivityTitle: "Shape Sorter",
		ActivityScore: &score,
	}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := repo.Create(ctx, &models.StudentBadge{StudentID: "kid-1", BadgeID: "perfect"})
	assert.True(t, errors.Is(err, ErrConflict), "duplicate award must conflict, got %v", err)

	require.NoError(t, repo.Create(ctx, &models.StudentBadge{StudentID: "kid-2", BadgeID: "perfect"}))

	awards, err := repo.ListByStudent(ctx, "kid-1")
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, "Perfect Score", awards[0].BadgeTitle)
	require.NotNil(t, awards[0].ActivityScore)
	assert.Equal(t, 100, *awards[0].ActivityScore)
}

func TestProgressRepositoryEnrichedHistory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	activities := NewActivityRepository(db)
	progress := NewProgressRepository(db)

	created, err := activities.Upsert(ctx, &models.Activity{ID: "a1", Title: "Count the Apples", Category: "Numbers", Difficulty: "easy"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = activities.Upsert(ctx, &models.Activity{ID: "a1", Title: "Count the Apples", Category: "Numbers", Difficulty: "medium"})
	require.NoError(t, err)
	assert.False(t, created)

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, progress.Create(ctx, &models.ActivityProgress{
		StudentID: "kid-1", ActivityID: "a1", Score: 80, CompletionStatus: models.StatusCompleted, RecordedAt: base,
	}))
	require.NoError(t, progress.Create(ctx, &models.ActivityProgress{
		StudentID: "kid-1", ActivityID: "missing", Score: 40, CompletionStatus: models.StatusInProgress, RecordedAt: base.Add(time.Hour),
	}))
	require.NoError(t, progress.Create(ctx, &models.ActivityProgress{
		StudentID: "kid-2", ActivityID: "a1", Score: 10, CompletionStatus: models.StatusCompleted, RecordedAt: base.Add(-48 * time.Hour),
	}))

	history, err := progress.ListEnrichedByStudent(ctx, "kid-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "missing", history[0].ActivityID, "newest first")
	assert.Empty(t, history[0].ActivityCategory)
	assert.Equal(t, "Numbers", history[1].ActivityCategory)
	assert.Equal(t, "medium", history[1].ActivityDifficulty)
	assert.Equal(t, 80, history[1].Score)

	ids, err := progress.ActiveStudentsSince(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"kid-1"}, ids)
}

func TestBadgeRepositoryUpsertKeepsCriteria(t *testing.T) {
	ctx := context.Background()
	repo := NewBadgeRepository(setupTestDB(t))

	badge := &models.Badge{
		ID:       "shape-explorer",
		Title:    "Shape Explorer",
		Icon:     "🔷",
		Criteria: types.JSONText(`{"activity":"shape","count":2}`),
	}
	created, err := repo.Upsert(ctx, badge)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := repo.GetByID(ctx, "shape-explorer")
	require.NoError(t, err)
	criteria, err := got.CriteriaMap()
	require.NoError(t, err)
	assert.Equal(t, "shape", criteria["activity"])
	assert.Equal(t, float64(2), criteria["count"])

	_, err = repo.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.True(t, errors.Is(classify("op", errors.New("connection refused")), ErrUnavailable))
	assert.True(t, errors.Is(classify("op", context.Canceled), context.Canceled))
}
