package database

import (
	"context"

	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx"
)

// BadgeRepository handles database operations for badge definitions
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository creates a new repository instance
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// List returns all badge definitions
func (r *BadgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.SelectContext(ctx, &badges,
		`SELECT id, title, description, icon, criteria FROM badges ORDER BY id`)
	if err != nil {
		return nil, classify("list badges", err)
	}
	return badges, nil
}

// GetByID returns a single badge definition
func (r *BadgeRepository) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	var badge models.Badge
	query := r.db.Rebind(`SELECT id, title, description, icon, criteria FROM badges WHERE id = ?`)
	if err := r.db.GetContext(ctx, &badge, query, id); err != nil {
		return nil, classify("get badge", err)
	}
	return &badge, nil
}

// Upsert inserts the badge or overwrites the definition with the same id.
// It reports whether a new row was created.
func (r *BadgeRepository) Upsert(ctx context.Context, badge *models.Badge) (bool, error) {
	// Criteria travels as text: lib/pq would otherwise encode []byte as bytea.
	criteria := string(badge.Criteria)
	if criteria == "" {
		criteria = "{}"
	}

	update := r.db.Rebind(`
		UPDATE badges SET title = ?, description = ?, icon = ?, criteria = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, update, badge.Title, badge.Description, badge.Icon, criteria, badge.ID)
	if err != nil {
		return false, classify("update badge", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return false, nil
	}

	insert := r.db.Rebind(`
		INSERT INTO badges (id, title, description, icon, criteria)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert, badge.ID, badge.Title, badge.Description, badge.Icon, criteria); err != nil {
		return false, classify("create badge", err)
	}
	return true, nil
}
