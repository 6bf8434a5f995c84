package database

import (
	"context"
	"time"

	"github.com/example/kidprogress/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ProgressRepository handles database operations for activity progress.
// Progress rows are append-only.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Create inserts a new progress record, filling in ID and RecordedAt when empty
func (r *ProgressRepository) Create(ctx context.Context, progress *models.ActivityProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if progress.RecordedAt.IsZero() {
		progress.RecordedAt = time.Now()
	}
	// Stored in UTC so that textual timestamps in SQLite sort chronologically.
	progress.RecordedAt = progress.RecordedAt.UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO activity_progress (
			id, student_id, activity_id, score, completion_status, recorded_at
		) VALUES (:id, :student_id, :activity_id, :score, :completion_status, :recorded_at)`,
		progress)
	return classify("create progress", err)
}

// ListByStudent returns every progress record of a student, newest first
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ActivityProgress, error) {
	var records []models.ActivityProgress
	query := r.db.Rebind(`
		SELECT id, student_id, activity_id, score, completion_status, recorded_at
		FROM activity_progress
		WHERE student_id = ?
		ORDER BY recorded_at DESC, id`)
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, classify("list progress", err)
	}
	return records, nil
}

// ListEnrichedByStudent returns the student's history joined with the activity
// catalog, newest first. Records whose activity is unknown keep empty fields.
func (r *ProgressRepository) ListEnrichedByStudent(ctx context.Context, studentID string) ([]models.EnrichedProgress, error) {
	var records []models.EnrichedProgress
	query := r.db.Rebind(`
		SELECT p.id, p.student_id, p.activity_id, p.score, p.completion_status, p.recorded_at,
		       COALESCE(a.title, '') AS activity_title,
		       COALESCE(a.category, '') AS activity_category,
		       COALESCE(a.difficulty, '') AS activity_difficulty
		FROM activity_progress p
		LEFT JOIN activities a ON a.id = p.activity_id
		WHERE p.student_id = ?
		ORDER BY p.recorded_at DESC, p.id`)
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, classify("list enriched progress", err)
	}
	return records, nil
}

// ActiveStudentsSince returns the students with at least one record at or after since
func (r *ProgressRepository) ActiveStudentsSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	query := r.db.Rebind(`
		SELECT DISTINCT student_id FROM activity_progress
		WHERE recorded_at >= ?
		ORDER BY student_id`)
	if err := r.db.SelectContext(ctx, &ids, query, since.UTC()); err != nil {
		return nil, classify("list active students", err)
	}
	return ids, nil
}
