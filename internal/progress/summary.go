package progress

import (
	"sort"
	"strings"
	"time"

	"github.com/example/kidprogress/pkg/models"
)

// Summary aggregates a student's progress history for the dashboard
type Summary struct {
	TotalActivities     int                       `json:"total_activities"`
	CompletedActivities int                       `json:"completed_activities"`
	AverageScore        float64                   `json:"average_score"`
	BestScore           int                       `json:"best_score"`
	LastActivityAt      *time.Time                `json:"last_activity_at"`
	Categories          map[string]int            `json:"categories"`
	Recent              []models.EnrichedProgress `json:"recent"`
}

// Summarize computes a Summary. Average score covers completed attempts only;
// recent holds at most limit records, newest first.
func Summarize(records []models.EnrichedProgress, limit int) Summary {
	s := Summary{
		Categories: make(map[string]int),
		Recent:     []models.EnrichedProgress{},
	}
	if len(records) == 0 {
		return s
	}

	sorted := make([]models.EnrichedProgress, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.After(sorted[j].RecordedAt)
	})

	var total int
	for _, r := range sorted {
		s.TotalActivities++
		if r.Score > s.BestScore {
			s.BestScore = r.Score
		}
		if r.IsCompleted() {
			s.CompletedActivities++
			total += r.Score
		}
		category := strings.TrimSpace(r.ActivityCategory)
		if category == "" {
			category = "Uncategorized"
		}
		s.Categories[category]++
	}
	if s.CompletedActivities > 0 {
		s.AverageScore = float64(total) / float64(s.CompletedActivities)
	}

	last := sorted[0].RecordedAt
	s.LastActivityAt = &last

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	s.Recent = sorted
	return s
}
