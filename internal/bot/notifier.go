package bot

import (
	"context"

	"github.com/example/kidprogress/pkg/models"
	"go.uber.org/zap"
)

// Notifier announces progress events to parents
type Notifier interface {
	BadgeAwarded(ctx context.Context, award models.StudentBadge) error
	StreakAtRisk(ctx context.Context, rec models.Streak) error
}

// LogNotifier writes notifications to the log. Used when no bot token is set.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) BadgeAwarded(_ context.Context, award models.StudentBadge) error {
	n.logger.Info("badge awarded",
		zap.String("student_id", award.StudentID),
		zap.String("badge_id", award.BadgeID),
		zap.String("badge", award.BadgeTitle))
	return nil
}

func (n *LogNotifier) StreakAtRisk(_ context.Context, rec models.Streak) error {
	n.logger.Info("streak at risk",
		zap.String("student_id", rec.StudentID),
		zap.Int("current", rec.CurrentStreak))
	return nil
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Bot)(nil)
)
