package streak

import (
	"testing"
	"time"

	"github.com/example/kidprogress/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *string { return &s }

func TestNext(t *testing.T) {
	tests := []struct {
		name        string
		rec         models.Streak
		today       string
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "first ever activity",
			rec:         models.Streak{},
			today:       "2024-01-01",
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "same day is idempotent",
			rec:         models.Streak{CurrentStreak: 4, LongestStreak: 6, LastActiveDate: date("2024-01-01")},
			today:       "2024-01-01",
			wantCurrent: 4,
			wantLongest: 6,
		},
		{
			name:        "consecutive day increments",
			rec:         models.Streak{CurrentStreak: 1, LongestStreak: 1, LastActiveDate: date("2024-01-01")},
			today:       "2024-01-02",
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:        "gap resets and keeps longest",
			rec:         models.Streak{CurrentStreak: 3, LongestStreak: 9, LastActiveDate: date("2024-01-01")},
			today:       "2024-01-05",
			wantCurrent: 1,
			wantLongest: 9,
		},
		{
			name:        "today before last active resets",
			rec:         models.Streak{CurrentStreak: 5, LongestStreak: 5, LastActiveDate: date("2024-01-10")},
			today:       "2024-01-09",
			wantCurrent: 1,
			wantLongest: 5,
		},
		{
			name:        "month boundary is consecutive",
			rec:         models.Streak{CurrentStreak: 2, LongestStreak: 2, LastActiveDate: date("2024-02-29")},
			today:       "2024-03-01",
			wantCurrent: 3,
			wantLongest: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.rec, tt.today)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, got.CurrentStreak)
			assert.Equal(t, tt.wantLongest, got.LongestStreak)
			require.NotNil(t, got.LastActiveDate)
			assert.Equal(t, tt.today, *got.LastActiveDate)
			assert.GreaterOrEqual(t, got.LongestStreak, got.CurrentStreak)
		})
	}
}

func TestNextRejectsBadDates(t *testing.T) {
	_, err := Next(models.Streak{}, "01/02/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Next(models.Streak{LastActiveDate: date("yesterday")}, "2024-01-02")
	assert.Error(t, err)
}

func TestNextDoesNotMutateInput(t *testing.T) {
	rec := models.Streak{CurrentStreak: 1, LongestStreak: 1, LastActiveDate: date("2024-01-01")}
	_, err := Next(rec, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, "2024-01-01", *rec.LastActiveDate)
}

func TestLongestNeverDecreases(t *testing.T) {
	days := []string{
		"2024-01-01", "2024-01-02", "2024-01-02", "2024-01-03",
		"2024-01-10", "2023-12-31", "2024-01-11", "2024-01-12",
		"2024-01-13", "2024-01-14", "2024-02-01",
	}
	rec := models.Streak{StudentID: "kid"}
	prevLongest := 0
	for _, day := range days {
		next, err := Next(rec, day)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.LongestStreak, prevLongest, "longest decreased on %s", day)
		assert.GreaterOrEqual(t, next.LongestStreak, next.CurrentStreak)
		prevLongest = next.LongestStreak
		rec = next
	}
	assert.Equal(t, 4, rec.LongestStreak)
}

func TestTierFor(t *testing.T) {
	cases := map[int]Tier{
		0: TierNone, 1: TierStarter, 2: TierStarter, 3: TierBuilding,
		6: TierBuilding, 7: TierWeekly, 13: TierWeekly, 14: TierFortnight,
		29: TierFortnight, 30: TierMonthly, 365: TierMonthly,
	}
	for current, want := range cases {
		assert.Equal(t, want, TierFor(current), "current=%d", current)
	}
	assert.Equal(t, "none", TierNone.String())
	assert.Equal(t, "monthly", TierMonthly.String())
}

func TestProject(t *testing.T) {
	stats := Project(models.Streak{CurrentStreak: 3, LongestStreak: 8, LastActiveDate: date("2024-01-05")}, "2024-01-05")
	assert.Equal(t, Stats{
		CurrentStreak:        3,
		LongestStreak:        8,
		IsActiveToday:        true,
		DaysTowards7Day:      3,
		DaysUntilPerfectWeek: 4,
		Tier:                 TierBuilding,
	}, stats)

	stats = Project(models.Streak{CurrentStreak: 12, LongestStreak: 12, LastActiveDate: date("2024-01-04")}, "2024-01-05")
	assert.False(t, stats.IsActiveToday)
	assert.Equal(t, 7, stats.DaysTowards7Day)
	assert.Equal(t, 0, stats.DaysUntilPerfectWeek)
}

func TestTodayUsesLocation(t *testing.T) {
	// 23:30 UTC on Jan 1 is already Jan 2 in Tokyo.
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", Today(now, nil))
	assert.Equal(t, "2024-01-02", Today(now, tokyo))
}
