package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Badge is a badge definition. Criteria holds the raw JSON predicate,
// e.g. {"activity": "shape", "count": 2}.
type Badge struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Icon        string         `json:"icon" db:"icon"`
	Criteria    types.JSONText `json:"criteria" db:"criteria"`
}

// CriteriaMap decodes Criteria into a generic map.
func (b Badge) CriteriaMap() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := b.Criteria.Unmarshal(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// StudentBadge is an award of a badge to a student. Badge metadata and the
// triggering activity are copied in so the award survives catalog edits.
type StudentBadge struct {
	ID               string    `json:"id" db:"id"`
	StudentID        string    `json:"student_id" db:"student_id"`
	BadgeID          string    `json:"badge_id" db:"badge_id"`
	EarnedAt         time.Time `json:"earned_at" db:"earned_at"`
	BadgeTitle       string    `json:"badge_title" db:"badge_title"`
	BadgeIcon        string    `json:"badge_icon" db:"badge_icon"`
	BadgeDescription string    `json:"badge_description" db:"badge_description"`

	// Snapshot of the activity that triggered the award, when known.
	ActivityTitle      string `json:"activity_title,omitempty" db:"activity_title"`
	ActivityCategory   string `json:"activity_category,omitempty" db:"activity_category"`
	ActivityDifficulty string `json:"activity_difficulty,omitempty" db:"activity_difficulty"`
	ActivityScore      *int   `json:"activity_score,omitempty" db:"activity_score"`
}
