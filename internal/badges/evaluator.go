package badges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/kidprogress/internal/database"
	"github.com/example/kidprogress/pkg/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BadgeCatalog lists badge definitions
type BadgeCatalog interface {
	List(ctx context.Context) ([]models.Badge, error)
}

// AwardStore reads and writes student badge awards. Create must fail with an
// error wrapping database.ErrConflict when the (student, badge) pair exists.
type AwardStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentBadge, error)
	Create(ctx context.Context, award *models.StudentBadge) error
}

// HistorySource returns a student's progress joined with the activity catalog
type HistorySource interface {
	ListEnrichedByStudent(ctx context.Context, studentID string) ([]models.EnrichedProgress, error)
}

// Status is the per-badge result of an evaluation pass
type Status string

const (
	StatusAwarded        Status = "awarded"
	StatusNotQualified   Status = "not_qualified"
	StatusAlreadyEarned  Status = "already_earned"
	StatusAlreadyAwarded Status = "already_awarded" // lost an insert race, benign
	StatusFailed         Status = "failed"
)

// Outcome records what happened to one badge definition
type Outcome struct {
	BadgeID string `json:"badge_id"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Err     error  `json:"-"`
}

// Report is the result of one evaluation pass for a student
type Report struct {
	StudentID string                `json:"student_id"`
	Awarded   []models.StudentBadge `json:"awarded"`
	Outcomes  []Outcome             `json:"outcomes"`
}

// Err combines the errors of failed badges, nil when none failed
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			err = multierr.Append(err, fmt.Errorf("badge %s: %w", o.BadgeID, o.Err))
		}
	}
	return err
}

// Failed returns the outcomes with StatusFailed
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Evaluator awards badges whose criteria a student's history satisfies
type Evaluator struct {
	catalog BadgeCatalog
	awards  AwardStore
	history HistorySource
	logger  *zap.Logger
	now     func() time.Time
}

// NewEvaluator creates a badge evaluator
func NewEvaluator(catalog BadgeCatalog, awards AwardStore, history HistorySource, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		catalog: catalog,
		awards:  awards,
		history: history,
		logger:  logger.Named("badges"),
		now:     time.Now,
	}
}

// Evaluate re-scans the student's whole history against every badge not yet
// earned and inserts awards for those that now qualify.
//
// The returned error is non-nil only when the pass could not start because a
// read failed. Per-badge failures are reported in Report.Outcomes and never
// stop the remaining badges from being evaluated.
func (e *Evaluator) Evaluate(ctx context.Context, studentID string) (*Report, error) {
	badges, err := e.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch badge catalog: %w", err)
	}

	existing, err := e.awards.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch awards: %w", err)
	}
	earned := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		earned[a.BadgeID] = struct{}{}
	}

	history, err := e.history.ListEnrichedByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch progress history: %w", err)
	}

	report := &Report{
		StudentID: studentID,
		Awarded:   []models.StudentBadge{},
		Outcomes:  make([]Outcome, 0, len(badges)),
	}

	for _, badge := range badges {
		if _, ok := earned[badge.ID]; ok {
			report.Outcomes = append(report.Outcomes, Outcome{BadgeID: badge.ID, Status: StatusAlreadyEarned})
			continue
		}

		outcome, award := e.evaluateBadge(ctx, studentID, badge, history)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Status {
		case StatusAwarded:
			report.Awarded = append(report.Awarded, *award)
			earned[badge.ID] = struct{}{}
		case StatusAlreadyAwarded:
			earned[badge.ID] = struct{}{}
		case StatusFailed:
			e.logger.Warn("badge evaluation failed",
				zap.String("student_id", studentID),
				zap.String("badge_id", badge.ID),
				zap.Error(outcome.Err))
		}
	}

	if len(report.Awarded) > 0 {
		e.logger.Info("badges awarded",
			zap.String("student_id", studentID),
			zap.Int("count", len(report.Awarded)))
	}
	return report, nil
}

func (e *Evaluator) evaluateBadge(ctx context.Context, studentID string, badge models.Badge, history []models.EnrichedProgress) (Outcome, *models.StudentBadge) {
	out := Outcome{BadgeID: badge.ID}

	rule, err := RuleFor(badge)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		out.Reason = err.Error()
		return out, nil
	}

	match := rule.Evaluate(history)
	if !match.Qualified {
		out.Status = StatusNotQualified
		return out, nil
	}

	award := newAward(studentID, badge, match.Trigger, e.now())
	err = e.awards.Create(ctx, award)
	switch {
	case err == nil:
		out.Status = StatusAwarded
		return out, award
	case errors.Is(err, database.ErrConflict):
		out.Status = StatusAlreadyAwarded
		return out, nil
	default:
		out.Status = StatusFailed
		out.Err = err
		out.Reason = err.Error()
		return out, nil
	}
}

func newAward(studentID string, badge models.Badge, trigger *models.EnrichedProgress, now time.Time) *models.StudentBadge {
	award := &models.StudentBadge{
		StudentID:        studentID,
		BadgeID:          badge.ID,
		EarnedAt:         now.UTC(),
		BadgeTitle:       badge.Title,
		BadgeIcon:        badge.Icon,
		BadgeDescription: badge.Description,
	}
	if trigger != nil {
		score := trigger.Score
		award.ActivityTitle = trigger.ActivityTitle
		award.ActivityCategory = trigger.ActivityCategory
		award.ActivityDifficulty = trigger.ActivityDifficulty
		award.ActivityScore = &score
	}
	return award
}
