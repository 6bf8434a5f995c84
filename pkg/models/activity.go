package models

// Activity is a catalog entry a student can play (a flashcard deck, a
// matching game, a colouring page). Seeded externally and read-only here.
type Activity struct {
	ID         string `json:"id" db:"id"`
	Title      string `json:"title" db:"title"`
	Category   string `json:"category" db:"category"`
	Difficulty string `json:"difficulty" db:"difficulty"` // e.g. "easy", "medium", "hard"
}
