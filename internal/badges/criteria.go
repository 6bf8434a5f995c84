package badges

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/example/kidprogress/pkg/models"
)

// ErrUnsupportedCriteria is returned for criteria maps that match no rule shape.
var ErrUnsupportedCriteria = errors.New("unsupported badge criteria")

// Criteria keys as stored in badges.criteria.
const (
	keyActivity    = "activity"
	keyCount       = "count"
	keyScore       = "score"
	keyMinScore    = "min_score"
	keyUniqueTypes = "unique_types"
	keyMode        = "mode"
)

// unique_types modes
const (
	ModeRaw       = "raw"
	ModeCanonical = "canonical"
)

// canonicalThreshold is the smallest unique_types value that counts canonical
// buckets when no explicit mode is given.
const canonicalThreshold = 5

// ParseCriteria turns a stored criteria map into a Rule.
//
//	{"activity": tag, "count": N}          -> ActivityCount
//	{"score": S, "activity": tag}          -> PerfectScore
//	{"min_score": S, "count": N}           -> MinScoreCount
//	{"unique_types": N [, "mode": m]}      -> DistinctCategories or CanonicalCategories
func ParseCriteria(criteria map[string]interface{}) (Rule, error) {
	if len(criteria) == 0 {
		return nil, fmt.Errorf("%w: empty criteria", ErrUnsupportedCriteria)
	}

	if _, ok := criteria[keyUniqueTypes]; ok {
		n, err := intParam(criteria, keyUniqueTypes, 0)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: unique_types must be positive", ErrUnsupportedCriteria)
		}
		mode, _ := criteria[keyMode].(string)
		switch strings.ToLower(mode) {
		case ModeCanonical:
			return CanonicalCategories{N: n}, nil
		case ModeRaw:
			return DistinctCategories{N: n}, nil
		case "":
			if n >= canonicalThreshold {
				return CanonicalCategories{N: n}, nil
			}
			return DistinctCategories{N: n}, nil
		default:
			return nil, fmt.Errorf("%w: unknown unique_types mode %q", ErrUnsupportedCriteria, mode)
		}
	}

	if _, ok := criteria[keyMinScore]; ok {
		minScore, err := intParam(criteria, keyMinScore, 0)
		if err != nil {
			return nil, err
		}
		count, err := intParam(criteria, keyCount, 1)
		if err != nil {
			return nil, err
		}
		return MinScoreCount{MinScore: minScore, Count: count}, nil
	}

	tag, err := tagParam(criteria)
	if err != nil {
		return nil, err
	}

	if _, ok := criteria[keyScore]; ok {
		score, err := intParam(criteria, keyScore, 0)
		if err != nil {
			return nil, err
		}
		return PerfectScore{Score: score, Tag: tag}, nil
	}

	if _, ok := criteria[keyActivity]; ok {
		count, err := intParam(criteria, keyCount, 1)
		if err != nil {
			return nil, err
		}
		return ActivityCount{Tag: tag, Count: count}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnsupportedCriteria, keys(criteria))
}

// RuleFor parses the criteria of a badge definition
func RuleFor(badge models.Badge) (Rule, error) {
	criteria, err := badge.CriteriaMap()
	if err != nil {
		return nil, fmt.Errorf("%w: badge %s: %v", ErrUnsupportedCriteria, badge.ID, err)
	}
	return ParseCriteria(criteria)
}

func tagParam(criteria map[string]interface{}) (string, error) {
	raw, ok := criteria[keyActivity]
	if !ok || raw == nil {
		return TagAny, nil
	}
	tag, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: activity must be a string, got %T", ErrUnsupportedCriteria, raw)
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return TagAny, nil
	}
	return tag, nil
}

// intParam reads a non-negative integer; JSON numbers arrive as float64 and
// hand-seeded rows sometimes carry numeric strings.
func intParam(criteria map[string]interface{}, key string, fallback int) (int, error) {
	raw, ok := criteria[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number: %q", ErrUnsupportedCriteria, key, n)
		}
		v = parsed
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrUnsupportedCriteria, key, raw)
	}

	if v < 0 || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrUnsupportedCriteria, key, v)
	}
	return int(v), nil
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
