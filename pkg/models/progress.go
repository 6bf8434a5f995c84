package models

import "time"

// CompletionStatus values written by the web client.
const (
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
)

// ActivityProgress is one attempt of a student at an activity.
// Rows are never updated; a later completion creates a new row.
type ActivityProgress struct {
	ID               string    `json:"id" db:"id"`
	StudentID        string    `json:"student_id" db:"student_id"`
	ActivityID       string    `json:"activity_id" db:"activity_id"`
	Score            int       `json:"score" db:"score"` // 0-100
	CompletionStatus string    `json:"completion_status" db:"completion_status"`
	RecordedAt       time.Time `json:"recorded_at" db:"recorded_at"`
}

// IsCompleted reports whether the attempt was finished.
func (p ActivityProgress) IsCompleted() bool {
	return p.CompletionStatus == StatusCompleted
}

// EnrichedProgress is a progress row joined with its activity.
// Activity fields are empty when the activity is missing from the catalog.
type EnrichedProgress struct {
	ActivityProgress
	ActivityTitle      string `json:"activity_title" db:"activity_title"`
	ActivityCategory   string `json:"activity_category" db:"activity_category"`
	ActivityDifficulty string `json:"activity_difficulty" db:"activity_difficulty"`
}
