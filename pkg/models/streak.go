package models

import "time"

// DateLayout is the storage format of calendar dates (no time component).
const DateLayout = "2006-01-02"

// Streak tracks consecutive days of completed activities for a student.
type Streak struct {
	StudentID      string    `json:"student_id" db:"student_id"`
	CurrentStreak  int       `json:"current_streak" db:"current_streak"`
	LongestStreak  int       `json:"longest_streak" db:"longest_streak"`
	LastActiveDate *string   `json:"last_active_date" db:"last_active_date"` // YYYY-MM-DD
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
