package streak

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/kidprogress/pkg/models"
)

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form
var ErrInvalidDate = errors.New("invalid calendar date")

// PerfectWeek is the streak length shown as the first weekly goal.
const PerfectWeek = 7

// Tier classifies a running streak for display. It has no effect on awards.
type Tier int

const (
	TierNone Tier = iota - 1
	TierStarter
	TierBuilding
	TierWeekly
	TierFortnight
	TierMonthly
)

// TierFor is a step function of the current streak
func TierFor(current int) Tier {
	switch {
	case current >= 30:
		return TierMonthly
	case current >= 14:
		return TierFortnight
	case current >= 7:
		return TierWeekly
	case current >= 3:
		return TierBuilding
	case current >= 1:
		return TierStarter
	default:
		return TierNone
	}
}

func (t Tier) String() string {
	switch t {
	case TierStarter:
		return "starter"
	case TierBuilding:
		return "building"
	case TierWeekly:
		return "weekly"
	case TierFortnight:
		return "fortnight"
	case TierMonthly:
		return "monthly"
	default:
		return "none"
	}
}

// MarshalText lets the tier travel as its name in JSON
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Stats is the read-only projection shown on the dashboard
type Stats struct {
	CurrentStreak        int  `json:"current_streak"`
	LongestStreak        int  `json:"longest_streak"`
	IsActiveToday        bool `json:"is_active_today"`
	DaysTowards7Day      int  `json:"days_towards_7_day"`
	DaysUntilPerfectWeek int  `json:"days_until_perfect_week"`
	Tier                 Tier `json:"tier"`
}

// Today returns the calendar date of now in loc, formatted as YYYY-MM-DD
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(models.DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, s, err)
	}
	return d, nil
}

// DaysBetween returns the number of calendar days from `from` to `to`.
// Both dates are interpreted at UTC midnight, so DST never skews the result.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// Next computes the record after activity on today. It does not mutate rec.
//
// A today earlier than the last active date resets the streak like a gap does.
func Next(rec models.Streak, today string) (models.Streak, error) {
	if _, err := ParseDate(today); err != nil {
		return rec, err
	}

	next := rec
	switch {
	case rec.LastActiveDate == nil || *rec.LastActiveDate == "":
		next.CurrentStreak = 1
	default:
		diff, err := DaysBetween(*rec.LastActiveDate, today)
		if err != nil {
			return rec, err
		}
		switch {
		case diff == 0:
			// already counted today
		case diff == 1:
			next.CurrentStreak = rec.CurrentStreak + 1
		default:
			next.CurrentStreak = 1
		}
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	day := today
	next.LastActiveDate = &day
	return next, nil
}

// Project derives Stats from a record as seen on today
func Project(rec models.Streak, today string) Stats {
	current := rec.CurrentStreak
	return Stats{
		CurrentStreak:        current,
		LongestStreak:        rec.LongestStreak,
		IsActiveToday:        rec.LastActiveDate != nil && *rec.LastActiveDate == today,
		DaysTowards7Day:      min(current, PerfectWeek),
		DaysUntilPerfectWeek: max(0, PerfectWeek-current),
		Tier:                 TierFor(current),
	}
}
