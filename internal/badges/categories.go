package badges

import (
	"strings"

	"github.com/example/kidprogress/pkg/models"
)

// Canonical category buckets used by CanonicalCategories.
const (
	BucketNumbers        = "Numbers"
	BucketShapes         = "Shapes"
	BucketColors         = "Colors"
	BucketIdentification = "Identification"
	BucketMatching       = "Matching"
	BucketMemory         = "Memory"
	BucketPuzzles        = "Puzzles"
	BucketSocialLife     = "Social/Daily Life"
	BucketAcademic       = "Academic"
	BucketOther          = "Other"
)

var canonicalBuckets = []struct {
	name     string
	keywords []string
}{
	{BucketNumbers, []string{"number"}},
	{BucketShapes, []string{"shape"}},
	{BucketColors, []string{"color", "colour"}},
	{BucketIdentification, []string{"identif"}},
	{BucketMatching, []string{"match"}},
	{BucketMemory, []string{"memory"}},
	{BucketPuzzles, []string{"puzzle"}},
	{BucketSocialLife, []string{"social", "daily", "life"}},
	{BucketAcademic, []string{"academic"}},
}

// CanonicalCategory maps a record onto one of the fixed buckets. The category
// is tried before the title; records matching neither keep their raw category,
// or fall into Other when it is empty.
func CanonicalCategory(p models.EnrichedProgress) string {
	if b, ok := bucketOf(p.ActivityCategory); ok {
		return b
	}
	if b, ok := bucketOf(p.ActivityTitle); ok {
		return b
	}
	if raw := strings.TrimSpace(p.ActivityCategory); raw != "" {
		return raw
	}
	return BucketOther
}

func bucketOf(s string) (string, bool) {
	s = strings.ToLower(s)
	if s == "" {
		return "", false
	}
	for _, b := range canonicalBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(s, kw) {
				return b.name, true
			}
		}
	}
	return "", false
}

// contains is the case-insensitive substring test used by every rule.
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
