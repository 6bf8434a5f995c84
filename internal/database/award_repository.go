package database

import (
	"context"
	"time"

	"github.com/example/kidprogress/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AwardRepository handles database operations for student badge awards
type AwardRepository struct {
	db *sqlx.DB
}

// NewAwardRepository creates a new repository instance
func NewAwardRepository(db *sqlx.DB) *AwardRepository {
	return &AwardRepository{db: db}
}

// ListByStudent returns the badges a student has earned, most recent first
func (r *AwardRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentBadge, error) {
	var awards []models.StudentBadge
	query := r.db.Rebind(`
		SELECT id, student_id, badge_id, earned_at, badge_title, badge_icon, badge_description,
		       activity_title, activity_category, activity_difficulty, activity_score
		FROM student_badges
		WHERE student_id = ?
		ORDER BY earned_at DESC, badge_id`)
	if err := r.db.SelectContext(ctx, &awards, query, studentID); err != nil {
		return nil, classify("list awards", err)
	}
	return awards, nil
}

// Create inserts a new award. A second award of the same badge to the same
// student fails with ErrConflict.
func (r *AwardRepository) Create(ctx context.Context, award *models.StudentBadge) error {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	if award.EarnedAt.IsZero() {
		award.EarnedAt = time.Now()
	}
	award.EarnedAt = award.EarnedAt.UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO student_badges (
			id, student_id, badge_id, earned_at, badge_title, badge_icon, badge_description,
			activity_title, activity_category, activity_difficulty, activity_score
		) VALUES (
			:id, :student_id, :badge_id, :earned_at, :badge_title, :badge_icon, :badge_description,
			:activity_title, :activity_category, :activity_difficulty, :activity_score
		)`, award)
	return classify("create award", err)
}
