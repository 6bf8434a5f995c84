package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/pkg/models"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// ActivityFeed lists students with recent progress
type ActivityFeed interface {
	ActiveStudentsSince(ctx context.Context, since time.Time) ([]string, error)
}

// StreakLister lists running streaks by last active date
type StreakLister interface {
	ListLastActiveOn(ctx context.Context, date string) ([]models.Streak, error)
}

// BadgeEvaluator runs a badge evaluation pass
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, studentID string) (*badges.Report, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	BadgeAwarded(ctx context.Context, award models.StudentBadge) error
	StreakAtRisk(ctx context.Context, rec models.Streak) error
}

// Config tunes the scheduled jobs
type Config struct {
	SweepInterval time.Duration
	ReminderHour  int
	Location      *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	feed      ActivityFeed
	streaks   StreakLister
	evaluator BadgeEvaluator
	notifier  Notifier
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// New creates a new scheduler instance
func New(feed ActivityFeed, streaks StreakLister, evaluator BadgeEvaluator, notifier Notifier, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(cfg.Location)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		feed:      feed,
		streaks:   streaks,
		evaluator: evaluator,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}
}

// Start registers the jobs and runs them in the background until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.lastSweep = s.now()
	s.mu.Unlock()

	if _, err := s.scheduler.Every(s.cfg.SweepInterval).WaitForSchedule().Do(func() {
		s.SweepBadges(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule badge sweep: %w", err)
	}

	at := fmt.Sprintf("%02d:00", s.cfg.ReminderHour)
	if _, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		s.RemindStreaks(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule streak reminders: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
		zap.String("reminder_at", at))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// SweepBadges re-evaluates every student with progress since the previous
// sweep, so badges added to the catalog reach students who already qualify.
// It returns the number of new awards.
func (s *Scheduler) SweepBadges(ctx context.Context) int {
	s.mu.Lock()
	since := s.lastSweep
	started := s.now()
	s.mu.Unlock()

	students, err := s.feed.ActiveStudentsSince(ctx, since)
	if err != nil {
		s.logger.Error("badge sweep: failed to list active students", zap.Error(err))
		return 0
	}

	awarded := 0
	for _, studentID := range students {
		if ctx.Err() != nil {
			return awarded
		}
		report, err := s.evaluator.Evaluate(ctx, studentID)
		if err != nil {
			s.logger.Warn("badge sweep: evaluation failed", zap.String("student_id", studentID), zap.Error(err))
			continue
		}
		if err := report.Err(); err != nil {
			s.logger.Warn("badge sweep: some badges failed", zap.String("student_id", studentID), zap.Error(err))
		}
		for _, award := range report.Awarded {
			awarded++
			if err := s.notifier.BadgeAwarded(ctx, award); err != nil {
				s.logger.Warn("badge sweep: failed to notify",
					zap.String("student_id", studentID),
					zap.String("badge_id", award.BadgeID),
					zap.Error(err))
			}
		}
	}

	s.mu.Lock()
	s.lastSweep = started
	s.mu.Unlock()

	s.logger.Info("badge sweep finished", zap.Int("students", len(students)), zap.Int("awarded", awarded))
	return awarded
}

// RemindStreaks notifies about every streak last extended yesterday, which
// resets unless the student is active today. It returns the number of
// reminders sent.
func (s *Scheduler) RemindStreaks(ctx context.Context) int {
	yesterday := s.now().In(s.cfg.Location).AddDate(0, 0, -1).Format(models.DateLayout)

	streaks, err := s.streaks.ListLastActiveOn(ctx, yesterday)
	if err != nil {
		s.logger.Error("streak reminders: failed to list streaks", zap.Error(err))
		return 0
	}

	sent := 0
	for _, rec := range streaks {
		if rec.CurrentStreak < 1 {
			continue
		}
		if err := s.notifier.StreakAtRisk(ctx, rec); err != nil {
			s.logger.Warn("streak reminders: failed to notify", zap.String("student_id", rec.StudentID), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("streak reminders sent", zap.String("last_active", yesterday), zap.Int("sent", sent))
	return sent
}
