package database

import (
	"context"

	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ActivityRepository handles database operations for the activity catalog
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new repository instance
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetByID returns a single activity
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	query := r.db.Rebind(`SELECT id, title, category, difficulty FROM activities WHERE id = ?`)
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, classify("get activity", err)
	}
	return &activity, nil
}

// List returns the whole catalog ordered by title
func (r *ActivityRepository) List(ctx context.Context) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.SelectContext(ctx, &activities,
		`SELECT id, title, category, difficulty FROM activities ORDER BY title, id`)
	if err != nil {
		return nil, classify("list activities", err)
	}
	return activities, nil
}

// Upsert inserts the activity or overwrites the existing row with the same id.
// It reports whether a new row was created.
func (r *ActivityRepository) Upsert(ctx context.Context, activity *models.Activity) (bool, error) {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE activities SET title = :title, category = :category, difficulty = :difficulty
		WHERE id = :id`, activity)
	if err != nil {
		return false, classify("update activity", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return false, nil
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO activities (id, title, category, difficulty)
		VALUES (:id, :title, :category, :difficulty)`, activity)
	if err != nil {
		return false, classify("create activity", err)
	}
	return true, nil
}
