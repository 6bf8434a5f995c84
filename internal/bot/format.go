package bot

import (
	"fmt"
	"strings"

	"github.com/example/kidprogress/internal/progress"
	"github.com/example/kidprogress/internal/streak"
	"github.com/example/kidprogress/pkg/models"
)

const helpText = "📖 Progress bot\n\n" +
	"/progress <student_id> - Show the student's dashboard\n" +
	"/help - Show this help\n\n" +
	"New badges and streak reminders are posted here automatically."

func formatAward(award models.StudentBadge) string {
	title := award.BadgeTitle
	if title == "" {
		title = award.BadgeID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s New badge for %s: %s", iconOr(award.BadgeIcon, "🏅"), award.StudentID, title)
	if award.BadgeDescription != "" {
		fmt.Fprintf(&b, "\n%s", award.BadgeDescription)
	}
	if award.ActivityTitle != "" {
		fmt.Fprintf(&b, "\nEarned with: %s", award.ActivityTitle)
		if award.ActivityScore != nil {
			fmt.Fprintf(&b, " (%d%%)", *award.ActivityScore)
		}
	}
	return b.String()
}

func formatStreakAtRisk(rec models.Streak) string {
	days := "day"
	if rec.CurrentStreak != 1 {
		days = "days"
	}
	return fmt.Sprintf("🔥 %s has a %d %s streak. One activity today keeps it going!",
		rec.StudentID, rec.CurrentStreak, days)
}

func formatDashboard(snap *progress.DashboardSnapshot, recent int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Progress for %s\n\n", snap.StudentID)

	s := snap.Summary
	fmt.Fprintf(&b, "Activities: %d (%d completed)\n", s.TotalActivities, s.CompletedActivities)
	if s.CompletedActivities > 0 {
		fmt.Fprintf(&b, "Average score: %.1f, best: %d\n", s.AverageScore, s.BestScore)
	}

	st := snap.Streak
	fmt.Fprintf(&b, "Streak: %d (longest %d)", st.CurrentStreak, st.LongestStreak)
	if st.Tier != streak.TierNone {
		fmt.Fprintf(&b, ", %s", st.Tier)
	}
	b.WriteString("\n")
	if st.DaysUntilPerfectWeek > 0 {
		fmt.Fprintf(&b, "%d more days to a perfect week\n", st.DaysUntilPerfectWeek)
	}

	fmt.Fprintf(&b, "Badges: %d\n", len(snap.Badges))
	for _, badge := range snap.Badges {
		fmt.Fprintf(&b, "  %s %s\n", iconOr(badge.BadgeIcon, "🏅"), badge.BadgeTitle)
	}

	if n := min(recent, len(s.Recent)); n > 0 {
		b.WriteString("\nRecent:\n")
		for _, r := range s.Recent[:n] {
			title := r.ActivityTitle
			if title == "" {
				title = r.ActivityID
			}
			fmt.Fprintf(&b, "  %s: %d (%s)\n", title, r.Score, r.CompletionStatus)
		}
	}

	if snap.Error != "" {
		b.WriteString("\n⚠️ Some data could not be loaded.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func iconOr(icon, fallback string) string {
	if strings.TrimSpace(icon) == "" {
		return fallback
	}
	return icon
}
