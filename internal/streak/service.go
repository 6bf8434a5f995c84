package streak

import (
	"context"
	"errors"
	"time"

	"github.com/example/kidprogress/internal/database"
	"github.com/example/kidprogress/pkg/models"
	"go.uber.org/zap"
)

// Store is the slice of the record store the streak engine needs.
// Get must return an error wrapping database.ErrNotFound for unknown students.
type Store interface {
	Get(ctx context.Context, studentID string) (*models.Streak, error)
	Create(ctx context.Context, streak *models.Streak) error
	Update(ctx context.Context, streak *models.Streak) error
}

// Service maintains per-student streak records
type Service struct {
	store  Store
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that decides calendar days
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a streak service
func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger.Named("streak"),
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the service's time zone
func (s *Service) Today() string {
	return Today(s.now(), s.loc)
}

// GetOrCreate returns the student's record, creating an empty one on first access
func (s *Service) GetOrCreate(ctx context.Context, studentID string) (*models.Streak, error) {
	rec, err := s.store.Get(ctx, studentID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	rec = &models.Streak{StudentID: studentID}
	err = s.store.Create(ctx, rec)
	switch {
	case err == nil:
		s.logger.Debug("created streak record", zap.String("student_id", studentID))
		return rec, nil
	case errors.Is(err, database.ErrConflict):
		// Someone else created it between our read and insert.
		return s.store.Get(ctx, studentID)
	default:
		return nil, err
	}
}

// Advance records activity for the student on today (YYYY-MM-DD).
// Repeated calls on the same day leave the counters unchanged and the
// longest streak never decreases. Store errors are returned as is.
func (s *Service) Advance(ctx context.Context, studentID, today string) (*models.Streak, error) {
	if _, err := ParseDate(today); err != nil {
		return nil, err
	}
	rec, err := s.GetOrCreate(ctx, studentID)
	if err != nil {
		return nil, err
	}

	next, err := Next(*rec, today)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Debug("advanced streak",
		zap.String("student_id", studentID),
		zap.String("today", today),
		zap.Int("current", next.CurrentStreak),
		zap.Int("longest", next.LongestStreak))
	return &next, nil
}

// Stats returns the dashboard projection without persisting anything.
// A student without a record gets zero stats.
func (s *Service) Stats(ctx context.Context, studentID string) (Stats, error) {
	today := s.Today()
	rec, err := s.store.Get(ctx, studentID)
	if errors.Is(err, database.ErrNotFound) {
		return Project(models.Streak{StudentID: studentID}, today), nil
	}
	if err != nil {
		return Stats{}, err
	}
	return Project(*rec, today), nil
}
