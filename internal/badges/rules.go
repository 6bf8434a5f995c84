package badges

import (
	"strings"

	"github.com/example/kidprogress/pkg/models"
)

// Kind names a criteria shape.
type Kind string

const (
	KindActivityCount       Kind = "activity_count"
	KindPerfectScore        Kind = "perfect_score"
	KindDistinctCategories  Kind = "distinct_categories"
	KindCanonicalCategories Kind = "canonical_categories"
	KindMinScoreCount       Kind = "min_score_count"
)

// TagAny matches every record.
const TagAny = "any"

// Activity tags with dedicated matching rules.
const (
	TagAcademic        = "academic"
	TagColor           = "color"
	TagMatching        = "matching"
	TagShape           = "shape"
	TagNumberFlashcard = "number_flashcard"
	TagSocialDailyLife = "social_daily_life"
)

// Match is the outcome of a rule over a history. Trigger is the most recent
// record that counted towards the rule, used for the award snapshot.
type Match struct {
	Qualified bool
	Trigger   *models.EnrichedProgress
}

// Rule is a pure predicate over a student's whole enriched history.
// The set of implementations is closed: only types in this package satisfy it.
type Rule interface {
	Kind() Kind
	Evaluate(history []models.EnrichedProgress) Match
	sealed()
}

// ActivityCount requires at least Count records matching Tag.
type ActivityCount struct {
	Tag   string
	Count int
}

// PerfectScore requires one record matching Tag with a score of at least Score.
type PerfectScore struct {
	Score int
	Tag   string
}

// DistinctCategories requires N distinct non-empty activity categories.
type DistinctCategories struct {
	N int
}

// CanonicalCategories requires N distinct canonical buckets.
type CanonicalCategories struct {
	N int
}

// MinScoreCount requires Count records scoring at least MinScore.
type MinScoreCount struct {
	MinScore int
	Count    int
}

func (ActivityCount) Kind() Kind       { return KindActivityCount }
func (PerfectScore) Kind() Kind        { return KindPerfectScore }
func (DistinctCategories) Kind() Kind  { return KindDistinctCategories }
func (CanonicalCategories) Kind() Kind { return KindCanonicalCategories }
func (MinScoreCount) Kind() Kind       { return KindMinScoreCount }

func (ActivityCount) sealed()       {}
func (PerfectScore) sealed()        {}
func (DistinctCategories) sealed()  {}
func (CanonicalCategories) sealed() {}
func (MinScoreCount) sealed()       {}

// tagMatcher decides which records count for an activity tag. Some tags also
// require variety across difficulty levels.
type tagMatcher struct {
	match           func(p models.EnrichedProgress) bool
	minDifficulties int
}

func categoryOrTitle(substr string) func(models.EnrichedProgress) bool {
	return func(p models.EnrichedProgress) bool {
		return contains(p.ActivityCategory, substr) || contains(p.ActivityTitle, substr)
	}
}

var tagMatchers = map[string]tagMatcher{
	TagAny:      {match: func(models.EnrichedProgress) bool { return true }},
	TagAcademic: {match: categoryOrTitle("academic")},
	TagColor:    {match: categoryOrTitle("color"), minDifficulties: 2},
	TagMatching: {match: categoryOrTitle("match")},
	TagShape:    {match: categoryOrTitle("shape")},
	TagNumberFlashcard: {match: func(p models.EnrichedProgress) bool {
		return (contains(p.ActivityTitle, "number") && contains(p.ActivityTitle, "flashcard")) ||
			contains(p.ActivityCategory, "number")
	}},
	TagSocialDailyLife: {match: func(p models.EnrichedProgress) bool {
		return contains(p.ActivityCategory, "social") ||
			contains(p.ActivityCategory, "daily") ||
			contains(p.ActivityCategory, "life")
	}},
}

// matcherFor returns the matcher of a known tag, or a plain substring match on
// category or title for tags without special handling.
func matcherFor(tag string) tagMatcher {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if m, ok := tagMatchers[tag]; ok {
		return m
	}
	if tag == "" {
		return tagMatchers[TagAny]
	}
	return tagMatcher{match: categoryOrTitle(strings.ReplaceAll(tag, "_", " "))}
}

// Evaluate implements Rule
func (r ActivityCount) Evaluate(history []models.EnrichedProgress) Match {
	m := matcherFor(r.Tag)
	var (
		count        int
		trigger      *models.EnrichedProgress
		difficulties = make(map[string]struct{})
	)
	for i := range history {
		p := &history[i]
		if !m.match(*p) {
			continue
		}
		count++
		trigger = newer(trigger, p)
		if d := strings.ToLower(strings.TrimSpace(p.ActivityDifficulty)); d != "" {
			difficulties[d] = struct{}{}
		}
	}
	ok := count >= max(r.Count, 1) && len(difficulties) >= m.minDifficulties
	return result(ok, trigger)
}

// Evaluate implements Rule
func (r PerfectScore) Evaluate(history []models.EnrichedProgress) Match {
	m := matcherFor(r.Tag)
	var trigger *models.EnrichedProgress
	for i := range history {
		p := &history[i]
		if p.Score >= r.Score && m.match(*p) {
			trigger = newer(trigger, p)
		}
	}
	return result(trigger != nil, trigger)
}

// Evaluate implements Rule
func (r DistinctCategories) Evaluate(history []models.EnrichedProgress) Match {
	seen := make(map[string]struct{})
	var trigger *models.EnrichedProgress
	for i := range history {
		p := &history[i]
		c := strings.ToLower(strings.TrimSpace(p.ActivityCategory))
		if c == "" {
			continue
		}
		seen[c] = struct{}{}
		trigger = newer(trigger, p)
	}
	return result(len(seen) >= r.N, trigger)
}

// Evaluate implements Rule
func (r CanonicalCategories) Evaluate(history []models.EnrichedProgress) Match {
	seen := make(map[string]struct{})
	var trigger *models.EnrichedProgress
	for i := range history {
		p := &history[i]
		seen[CanonicalCategory(*p)] = struct{}{}
		trigger = newer(trigger, p)
	}
	return result(len(seen) >= r.N, trigger)
}

// Evaluate implements Rule
func (r MinScoreCount) Evaluate(history []models.EnrichedProgress) Match {
	var (
		count   int
		trigger *models.EnrichedProgress
	)
	for i := range history {
		p := &history[i]
		if p.Score >= r.MinScore {
			count++
			trigger = newer(trigger, p)
		}
	}
	return result(count >= max(r.Count, 1), trigger)
}

func result(ok bool, trigger *models.EnrichedProgress) Match {
	if !ok {
		return Match{}
	}
	return Match{Qualified: true, Trigger: trigger}
}

func newer(cur, candidate *models.EnrichedProgress) *models.EnrichedProgress {
	if cur == nil || candidate.RecordedAt.After(cur.RecordedAt) {
		return candidate
	}
	return cur
}
