package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFeed struct {
	students []string
	since    []time.Time
	err      error
}

func (f *fakeFeed) ActiveStudentsSince(_ context.Context, since time.Time) ([]string, error) {
	f.since = append(f.since, since)
	return f.students, f.err
}

type fakeStreaks struct {
	byDate map[string][]models.Streak
	asked  []string
}

func (f *fakeStreaks) ListLastActiveOn(_ context.Context, date string) ([]models.Streak, error) {
	f.asked = append(f.asked, date)
	return f.byDate[date], nil
}

type fakeEvaluator struct {
	reports map[string]*badges.Report
}

func (f *fakeEvaluator) Evaluate(_ context.Context, studentID string) (*badges.Report, error) {
	r, ok := f.reports[studentID]
	if !ok {
		return nil, errors.New("history unavailable")
	}
	return r, nil
}

type recordingNotifier struct {
	awards  []string
	streaks []string
	failFor string
}

func (n *recordingNotifier) BadgeAwarded(_ context.Context, a models.StudentBadge) error {
	n.awards = append(n.awards, a.StudentID+"/"+a.BadgeID)
	return nil
}

func (n *recordingNotifier) StreakAtRisk(_ context.Context, rec models.Streak) error {
	if rec.StudentID == n.failFor {
		return errors.New("chat unreachable")
	}
	n.streaks = append(n.streaks, rec.StudentID)
	return nil
}

func newTestScheduler(feed ActivityFeed, streaks StreakLister, eval BadgeEvaluator, n Notifier, now time.Time) *Scheduler {
	s := New(feed, streaks, eval, n, Config{SweepInterval: time.Minute, ReminderHour: 17}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestSweepBadgesNotifiesNewAwards(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	feed := &fakeFeed{students: []string{"kid-1", "kid-2", "kid-3"}}
	eval := &fakeEvaluator{reports: map[string]*badges.Report{
		"kid-1": {StudentID: "kid-1", Awarded: []models.StudentBadge{{StudentID: "kid-1", BadgeID: "first"}}},
		"kid-2": {StudentID: "kid-2"},
	}}
	n := &recordingNotifier{}
	s := newTestScheduler(feed, &fakeStreaks{}, eval, n, now)
	s.lastSweep = now.Add(-time.Hour)

	assert.Equal(t, 1, s.SweepBadges(context.Background()))
	assert.Equal(t, []string{"kid-1/first"}, n.awards)
	require.Len(t, feed.since, 1)
	assert.Equal(t, now.Add(-time.Hour), feed.since[0])
	assert.Equal(t, now, s.lastSweep)
}

func TestSweepBadgesKeepsWindowOnListFailure(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	feed := &fakeFeed{err: errors.New("db down")}
	s := newTestScheduler(feed, &fakeStreaks{}, &fakeEvaluator{}, &recordingNotifier{}, now)
	before := now.Add(-time.Hour)
	s.lastSweep = before

	assert.Equal(t, 0, s.SweepBadges(context.Background()))
	assert.Equal(t, before, s.lastSweep)
}

func TestRemindStreaksUsesYesterdayInLocation(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 9th is already the 10th in Tokyo.
	now := time.Date(2024, 4, 9, 20, 0, 0, 0, time.UTC)

	streaks := &fakeStreaks{byDate: map[string][]models.Streak{
		"2024-04-09": {
			{StudentID: "kid-1", CurrentStreak: 3},
			{StudentID: "kid-2", CurrentStreak: 0},
			{StudentID: "kid-3", CurrentStreak: 1},
		},
	}}
	n := &recordingNotifier{failFor: "kid-3"}
	s := New(&fakeFeed{}, streaks, &fakeEvaluator{}, n, Config{SweepInterval: time.Minute, Location: loc}, zap.NewNop())
	s.now = func() time.Time { return now }

	assert.Equal(t, 1, s.RemindStreaks(context.Background()))
	assert.Equal(t, []string{"2024-04-09"}, streaks.asked)
	assert.Equal(t, []string{"kid-1"}, n.streaks)
}
