package database

import (
	"context"
	"time"

	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx"
)

// StreakRepository handles database operations for streak records.
// There is exactly one row per student.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository creates a new repository instance
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

const streakColumns = `student_id, current_streak, longest_streak, last_active_date, created_at, updated_at`

// Get returns the streak of a student or ErrNotFound
func (r *StreakRepository) Get(ctx context.Context, studentID string) (*models.Streak, error) {
	var streak models.Streak
	query := r.db.Rebind(`SELECT ` + streakColumns + ` FROM streaks WHERE student_id = ?`)
	if err := r.db.GetContext(ctx, &streak, query, studentID); err != nil {
		return nil, classify("get streak", err)
	}
	return &streak, nil
}

// Create inserts a new streak row; ErrConflict if the student already has one
func (r *StreakRepository) Create(ctx context.Context, streak *models.Streak) error {
	now := time.Now().UTC()
	streak.CreatedAt = now
	streak.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO streaks (`+streakColumns+`)
		VALUES (:student_id, :current_streak, :longest_streak, :last_active_date, :created_at, :updated_at)`,
		streak)
	return classify("create streak", err)
}

// Update writes counters and last active date in a single statement, so a
// failure leaves the previous row untouched.
func (r *StreakRepository) Update(ctx context.Context, streak *models.Streak) error {
	updatedAt := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE streaks SET
			current_streak = ?,
			longest_streak = ?,
			last_active_date = ?,
			updated_at = ?
		WHERE student_id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		streak.CurrentStreak,
		streak.LongestStreak,
		streak.LastActiveDate,
		updatedAt,
		streak.StudentID,
	)
	if err != nil {
		return classify("update streak", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return classify("update streak", err)
	}
	if rows == 0 {
		return classify("update streak", ErrNotFound)
	}

	streak.UpdatedAt = updatedAt
	return nil
}

// ListLastActiveOn returns streaks whose last active date equals date (YYYY-MM-DD)
// and which are still running
func (r *StreakRepository) ListLastActiveOn(ctx context.Context, date string) ([]models.Streak, error) {
	var streaks []models.Streak
	query := r.db.Rebind(`
		SELECT ` + streakColumns + ` FROM streaks
		WHERE last_active_date = ? AND current_streak > 0
		ORDER BY student_id`)
	if err := r.db.SelectContext(ctx, &streaks, query, date); err != nil {
		return nil, classify("list streaks", err)
	}
	return streaks, nil
}
