package progress

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/internal/database"
	"github.com/example/kidprogress/internal/streak"
	"github.com/example/kidprogress/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProgress struct {
	mu        sync.Mutex
	created   []models.ActivityProgress
	history   []models.EnrichedProgress
	createErr error
	listErr   error
}

func (f *fakeProgress) Create(_ context.Context, p *models.ActivityProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = "p-" + p.ActivityID
	f.created = append(f.created, *p)
	return nil
}

func (f *fakeProgress) ListEnrichedByStudent(context.Context, string) ([]models.EnrichedProgress, error) {
	return f.history, f.listErr
}

type fakeAwards struct {
	awards []models.StudentBadge
	err    error
}

func (f *fakeAwards) ListByStudent(context.Context, string) ([]models.StudentBadge, error) {
	return f.awards, f.err
}

type fakeStreaks struct {
	today      string
	advanced   []string
	probes     int
	rec        models.Streak
	advanceErr error
	probeErr   error
	stats      streak.Stats
	statsErr   error
}

func (f *fakeStreaks) Today() string { return f.today }

func (f *fakeStreaks) GetOrCreate(context.Context, string) (*models.Streak, error) {
	f.probes++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	rec := f.rec
	return &rec, nil
}

func (f *fakeStreaks) Advance(_ context.Context, _ string, today string) (*models.Streak, error) {
	f.advanced = append(f.advanced, today)
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	next, err := streak.Next(f.rec, today)
	if err != nil {
		return nil, err
	}
	f.rec = next
	return &next, nil
}

func (f *fakeStreaks) Stats(context.Context, string) (streak.Stats, error) {
	return f.stats, f.statsErr
}

type fakeEvaluator struct {
	report *badges.Report
	err    error
	calls  int
}

func (f *fakeEvaluator) Evaluate(context.Context, string) (*badges.Report, error) {
	f.calls++
	return f.report, f.err
}

type recordingNotifier struct {
	got []string
	err error
}

func (r *recordingNotifier) BadgeAwarded(_ context.Context, a models.StudentBadge) error {
	r.got = append(r.got, a.BadgeID)
	return r.err
}

func awardedReport(ids ...string) *badges.Report {
	r := &badges.Report{StudentID: "kid-1", Awarded: []models.StudentBadge{}}
	for _, id := range ids {
		r.Awarded = append(r.Awarded, models.StudentBadge{StudentID: "kid-1", BadgeID: id})
		r.Outcomes = append(r.Outcomes, badges.Outcome{BadgeID: id, Status: badges.StatusAwarded})
	}
	return r
}

func completed() CompletionEvent {
	return CompletionEvent{StudentID: "kid-1", ActivityID: "shapes-1", Score: 90, Status: "completed"}
}

func TestHandleCompletionRunsAllStages(t *testing.T) {
	progress := &fakeProgress{}
	streaks := &fakeStreaks{today: "2024-01-02"}
	evaluator := &fakeEvaluator{report: awardedReport("first")}
	notifier := &recordingNotifier{}
	o := NewOrchestrator(progress, &fakeAwards{}, streaks, evaluator, notifier, zap.NewNop(), Options{})

	result, err := o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.NoError(t, result.Err())
	require.NotNil(t, result.Progress)
	assert.Equal(t, 90, result.Progress.Score)
	require.NotNil(t, result.Streak)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	require.Len(t, result.Badges, 1)
	assert.Equal(t, []string{"2024-01-02"}, streaks.advanced)
	assert.Equal(t, 0, streaks.probes, "probe is off by default")
	assert.Equal(t, []string{"first"}, notifier.got)
}

func TestHandleCompletionKeepsGoingWhenProgressWriteFails(t *testing.T) {
	progress := &fakeProgress{createErr: errors.New("insert failed")}
	streaks := &fakeStreaks{today: "2024-01-02"}
	evaluator := &fakeEvaluator{report: awardedReport("first")}
	o := NewOrchestrator(progress, &fakeAwards{}, streaks, evaluator, nil, zap.NewNop(), Options{})

	result, err := o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, StageProgress, result.Errors[0].Stage)
	assert.Nil(t, result.Progress)
	require.NotNil(t, result.Streak)
	assert.Len(t, result.Badges, 1)
	assert.Error(t, result.Err())
}

func TestHandleCompletionCollectsEveryStageError(t *testing.T) {
	streakErr := errors.New("streak store down")
	evalErr := errors.New("catalog unreadable")
	o := NewOrchestrator(
		&fakeProgress{},
		&fakeAwards{},
		&fakeStreaks{today: "2024-01-02", advanceErr: streakErr},
		&fakeEvaluator{err: evalErr},
		nil, zap.NewNop(), Options{},
	)

	result, err := o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, StageStreak, result.Errors[0].Stage)
	assert.Equal(t, StageBadges, result.Errors[1].Stage)
	assert.NotNil(t, result.Progress)
	assert.Nil(t, result.Streak)
	assert.Empty(t, result.Badges)
	assert.ErrorIs(t, result.Err(), streakErr)
	assert.ErrorIs(t, result.Err(), evalErr)
}

func TestHandleCompletionSurfacesPerBadgeFailures(t *testing.T) {
	report := awardedReport("first")
	report.Outcomes = append(report.Outcomes, badges.Outcome{
		BadgeID: "broken", Status: badges.StatusFailed, Err: badges.ErrUnsupportedCriteria,
	})
	o := NewOrchestrator(&fakeProgress{}, &fakeAwards{}, &fakeStreaks{today: "2024-01-02"},
		&fakeEvaluator{report: report}, nil, zap.NewNop(), Options{})

	result, err := o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)
	assert.Len(t, result.Badges, 1)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], badges.ErrUnsupportedCriteria)
}

func TestHandleCompletionSkipsStreakForUnfinishedAttempts(t *testing.T) {
	streaks := &fakeStreaks{today: "2024-01-02"}
	evaluator := &fakeEvaluator{report: awardedReport()}
	o := NewOrchestrator(&fakeProgress{}, &fakeAwards{}, streaks, evaluator, nil, zap.NewNop(), Options{})

	ev := completed()
	ev.Status = "in_progress"
	result, err := o.HandleCompletion(context.Background(), ev)
	require.NoError(t, err)

	assert.NotNil(t, result.Progress)
	assert.Nil(t, result.Streak)
	assert.Empty(t, streaks.advanced)
	assert.Equal(t, 0, evaluator.calls)
}

func TestHandleCompletionProbeIsReadOnly(t *testing.T) {
	streaks := &fakeStreaks{today: "2024-01-02"}
	o := NewOrchestrator(&fakeProgress{}, &fakeAwards{}, streaks, &fakeEvaluator{report: awardedReport()},
		nil, zap.NewNop(), Options{StreakProbe: true})

	result, err := o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)
	assert.Equal(t, 1, streaks.probes)
	assert.Len(t, streaks.advanced, 1, "probe must not advance")
	assert.Equal(t, 1, result.Streak.CurrentStreak)

	streaks.probeErr = errors.New("probe failed")
	result, err = o.HandleCompletion(context.Background(), completed())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, StageProbe, result.Errors[0].Stage)
	assert.Equal(t, 1, result.Streak.CurrentStreak, "same day stays at one")
}

func TestHandleCompletionValidatesInput(t *testing.T) {
	progress := &fakeProgress{}
	o := NewOrchestrator(progress, &fakeAwards{}, &fakeStreaks{}, &fakeEvaluator{}, nil, zap.NewNop(), Options{})

	bad := []CompletionEvent{
		{ActivityID: "a", Score: 10, Status: "completed"},
		{StudentID: "kid", Score: 10, Status: "completed"},
		{StudentID: "kid", ActivityID: "a", Score: 101, Status: "completed"},
		{StudentID: "kid", ActivityID: "a", Score: -1, Status: "completed"},
		{StudentID: "kid", ActivityID: "a", Score: 10, Status: "  "},
	}
	for _, ev := range bad {
		result, err := o.HandleCompletion(context.Background(), ev)
		assert.Nil(t, result)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "event %+v", ev)
	}
	assert.Empty(t, progress.created)
}

func TestDashboardMergesAllReads(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	progress := &fakeProgress{history: []models.EnrichedProgress{
		{ActivityProgress: models.ActivityProgress{Score: 80, CompletionStatus: "completed", RecordedAt: now}, ActivityCategory: "Shapes"},
		{ActivityProgress: models.ActivityProgress{Score: 60, CompletionStatus: "completed", RecordedAt: now.Add(-time.Hour)}, ActivityCategory: "Shapes"},
	}}
	awards := &fakeAwards{awards: []models.StudentBadge{{BadgeID: "first"}}}
	streaks := &fakeStreaks{stats: streak.Stats{CurrentStreak: 2, LongestStreak: 4, Tier: streak.TierStarter}}
	o := NewOrchestrator(progress, awards, streaks, &fakeEvaluator{}, nil, zap.NewNop(), Options{})

	snap := o.Dashboard(context.Background(), "kid-1")
	assert.Empty(t, snap.Error)
	assert.Equal(t, 2, snap.Summary.TotalActivities)
	assert.Equal(t, 70.0, snap.Summary.AverageScore)
	assert.Len(t, snap.Badges, 1)
	assert.Equal(t, 2, snap.Streak.CurrentStreak)
}

func TestDashboardNeverFails(t *testing.T) {
	o := NewOrchestrator(
		&fakeProgress{listErr: database.ErrUnavailable},
		&fakeAwards{err: errors.New("awards timeout")},
		&fakeStreaks{statsErr: errors.New("streak timeout")},
		&fakeEvaluator{}, nil, zap.NewNop(), Options{},
	)

	snap := o.Dashboard(context.Background(), "kid-1")
	require.NotNil(t, snap)
	assert.Len(t, snap.Errors, 3)
	assert.Equal(t, 0, snap.Summary.TotalActivities)
	assert.NotNil(t, snap.Badges)
	assert.Empty(t, snap.Badges)
	assert.Equal(t, streak.TierNone, snap.Streak.Tier)
	for _, part := range []string{"summary", "awards timeout", "streak timeout"} {
		assert.True(t, strings.Contains(snap.Error, part), "error %q should mention %q", snap.Error, part)
	}
}

func TestDashboardKeepsSuccessfulParts(t *testing.T) {
	o := NewOrchestrator(
		&fakeProgress{listErr: errors.New("history timeout")},
		&fakeAwards{awards: []models.StudentBadge{{BadgeID: "first"}}},
		&fakeStreaks{stats: streak.Stats{CurrentStreak: 5}},
		&fakeEvaluator{}, nil, zap.NewNop(), Options{},
	)

	snap := o.Dashboard(context.Background(), "kid-1")
	assert.Equal(t, "summary: history timeout", snap.Error)
	assert.Len(t, snap.Badges, 1)
	assert.Equal(t, 5, snap.Streak.CurrentStreak)
}
