package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/internal/streak"
	"github.com/example/kidprogress/pkg/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage names used in StageError
const (
	StageProgress = "progress"
	StageProbe    = "streak_probe"
	StageStreak   = "streak"
	StageBadges   = "badges"
	StageSummary  = "summary"
	StageAwards   = "awards"
)

// ProgressStore persists and reads activity progress
type ProgressStore interface {
	Create(ctx context.Context, progress *models.ActivityProgress) error
	ListEnrichedByStudent(ctx context.Context, studentID string) ([]models.EnrichedProgress, error)
}

// AwardLister reads the badges a student has earned
type AwardLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentBadge, error)
}

// StreakEngine is the part of streak.Service the orchestrator drives
type StreakEngine interface {
	Today() string
	GetOrCreate(ctx context.Context, studentID string) (*models.Streak, error)
	Advance(ctx context.Context, studentID, today string) (*models.Streak, error)
	Stats(ctx context.Context, studentID string) (streak.Stats, error)
}

// BadgeEvaluator runs a badge evaluation pass
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, studentID string) (*badges.Report, error)
}

// Notifier is told about new awards. Failures are logged, never reported.
type Notifier interface {
	BadgeAwarded(ctx context.Context, award models.StudentBadge) error
}

// StageError ties an error to the stage of a multi-stage operation
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e StageError) Unwrap() error { return e.Err }

// CompletionEvent is an activity completion reported by the client
type CompletionEvent struct {
	StudentID  string `json:"student_id" validate:"required,max=128"`
	ActivityID string `json:"activity_id" validate:"required,max=128"`
	Score      int    `json:"score" validate:"gte=0,lte=100"`
	Status     string `json:"status" validate:"required,max=32"`
}

// CompletionResult merges what every stage produced. Errors being non-empty
// signals partial failure; the other fields still hold whatever succeeded.
type CompletionResult struct {
	Progress *models.ActivityProgress `json:"progress"`
	Streak   *models.Streak           `json:"streak"`
	Badges   []models.StudentBadge    `json:"badges"`
	Errors   []StageError             `json:"-"`
}

// Err combines the stage errors, nil on full success
func (r *CompletionResult) Err() error {
	return combine(r.Errors)
}

// DashboardSnapshot is the merged result of the dashboard fan-out
type DashboardSnapshot struct {
	StudentID string                `json:"student_id"`
	Summary   Summary               `json:"summary"`
	Badges    []models.StudentBadge `json:"badges"`
	Streak    streak.Stats          `json:"streak"`
	Errors    []StageError          `json:"-"`
	// Error joins every stage error message; empty when all reads succeeded.
	Error string `json:"error,omitempty"`
}

// Options tunes the orchestrator
type Options struct {
	StreakProbe bool
	RecentLimit int
}

// Orchestrator sequences the stages of an activity completion
type Orchestrator struct {
	progress ProgressStore
	awards   AwardLister
	streaks  StreakEngine
	badges   BadgeEvaluator
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
	opts     Options
	now      func() time.Time
}

// NewOrchestrator wires the orchestrator. notifier may be nil.
func NewOrchestrator(progress ProgressStore, awards AwardLister, streaks StreakEngine, evaluator BadgeEvaluator,
	notifier Notifier, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}
	return &Orchestrator{
		progress: progress,
		awards:   awards,
		streaks:  streaks,
		badges:   evaluator,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger.Named("progress"),
		opts:     opts,
		now:      time.Now,
	}
}

// ValidationError is returned when a completion event is malformed
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid completion event: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// HandleCompletion records the attempt and, for completed activities, advances
// the streak and evaluates badges. Stage failures are collected in the result
// and never stop later stages. The error return is only used for malformed
// events, in which case nothing is written.
func (o *Orchestrator) HandleCompletion(ctx context.Context, ev CompletionEvent) (*CompletionResult, error) {
	ev.Status = strings.ToLower(strings.TrimSpace(ev.Status))
	if err := o.validate.Struct(ev); err != nil {
		return nil, &ValidationError{Err: err}
	}

	log := o.logger.With(zap.String("student_id", ev.StudentID), zap.String("activity_id", ev.ActivityID))
	result := &CompletionResult{Badges: []models.StudentBadge{}}

	record := &models.ActivityProgress{
		StudentID:        ev.StudentID,
		ActivityID:       ev.ActivityID,
		Score:            ev.Score,
		CompletionStatus: ev.Status,
		RecordedAt:       o.now(),
	}
	if err := o.progress.Create(ctx, record); err != nil {
		log.Error("failed to record progress", zap.Error(err))
		result.Errors = append(result.Errors, StageError{Stage: StageProgress, Err: err})
	} else {
		result.Progress = record
	}

	if ev.Status != models.StatusCompleted {
		return result, nil
	}

	if o.opts.StreakProbe {
		// Read-only: the probe must never advance the streak itself.
		if probe, err := o.streaks.GetOrCreate(ctx, ev.StudentID); err != nil {
			log.Warn("streak probe failed", zap.Error(err))
			result.Errors = append(result.Errors, StageError{Stage: StageProbe, Err: err})
		} else {
			log.Debug("streak probe", zap.Int("current", probe.CurrentStreak), zap.Int("longest", probe.LongestStreak))
		}
	}

	today := o.streaks.Today()
	if rec, err := o.streaks.Advance(ctx, ev.StudentID, today); err != nil {
		log.Error("failed to advance streak", zap.Error(err))
		result.Errors = append(result.Errors, StageError{Stage: StageStreak, Err: err})
	} else {
		result.Streak = rec
	}

	report, err := o.badges.Evaluate(ctx, ev.StudentID)
	if err != nil {
		log.Error("badge evaluation aborted", zap.Error(err))
		result.Errors = append(result.Errors, StageError{Stage: StageBadges, Err: err})
	} else {
		result.Badges = report.Awarded
		for _, failed := range report.Failed() {
			result.Errors = append(result.Errors, StageError{
				Stage: StageBadges,
				Err:   fmt.Errorf("badge %s: %w", failed.BadgeID, failed.Err),
			})
		}
		o.announce(ctx, report.Awarded)
	}

	if len(result.Errors) > 0 {
		log.Warn("completion handled with partial failures", zap.Int("errors", len(result.Errors)))
	}
	return result, nil
}

func (o *Orchestrator) announce(ctx context.Context, awards []models.StudentBadge) {
	if o.notifier == nil {
		return
	}
	for _, award := range awards {
		if err := o.notifier.BadgeAwarded(ctx, award); err != nil {
			o.logger.Warn("failed to announce badge",
				zap.String("student_id", award.StudentID),
				zap.String("badge_id", award.BadgeID),
				zap.Error(err))
		}
	}
}

// Dashboard reads the progress summary, earned badges and streak stats
// concurrently. It never fails: stages that error contribute defaults and
// their messages end up in Error.
func (o *Orchestrator) Dashboard(ctx context.Context, studentID string) *DashboardSnapshot {
	snap := &DashboardSnapshot{
		StudentID: studentID,
		Summary:   Summarize(nil, o.opts.RecentLimit),
		Badges:    []models.StudentBadge{},
		Streak:    streak.Project(models.Streak{StudentID: studentID}, ""),
	}

	var (
		g                                errgroup.Group
		summaryErr, awardsErr, streakErr error
		history                          []models.EnrichedProgress
		earned                           []models.StudentBadge
		stats                            streak.Stats
	)
	g.Go(func() error {
		history, summaryErr = o.progress.ListEnrichedByStudent(ctx, studentID)
		return nil
	})
	g.Go(func() error {
		earned, awardsErr = o.awards.ListByStudent(ctx, studentID)
		return nil
	})
	g.Go(func() error {
		stats, streakErr = o.streaks.Stats(ctx, studentID)
		return nil
	})
	_ = g.Wait()

	if summaryErr != nil {
		snap.Errors = append(snap.Errors, StageError{Stage: StageSummary, Err: summaryErr})
	} else {
		snap.Summary = Summarize(history, o.opts.RecentLimit)
	}
	if awardsErr != nil {
		snap.Errors = append(snap.Errors, StageError{Stage: StageAwards, Err: awardsErr})
	} else if earned != nil {
		snap.Badges = earned
	}
	if streakErr != nil {
		snap.Errors = append(snap.Errors, StageError{Stage: StageStreak, Err: streakErr})
	} else {
		snap.Streak = stats
	}

	if len(snap.Errors) > 0 {
		msgs := make([]string, 0, len(snap.Errors))
		for _, e := range snap.Errors {
			msgs = append(msgs, e.Error())
		}
		snap.Error = strings.Join(msgs, "; ")
		o.logger.Warn("dashboard served with partial data",
			zap.String("student_id", studentID),
			zap.Error(combine(snap.Errors)))
	}
	return snap
}

func combine(errs []StageError) error {
	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return err
}
