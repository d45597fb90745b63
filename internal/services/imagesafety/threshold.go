package imagesafety

import "strings"

// Level is the moderation strictness applied to threshold decisions.
type Level string

const (
	LevelStrict   Level = "strict"
	LevelModerate Level = "moderate"
	LevelLenient  Level = "lenient"
)

// ParseLevel normalizes a caller-supplied level, falling back to the given
// default for empty input.
func ParseLevel(value string, fallback Level) (Level, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback, true
	}
	switch Level(value) {
	case LevelStrict, LevelModerate, LevelLenient:
		return Level(value), true
	}
	return "", false
}

var severityRank = map[string]int{
	"none":     0,
	"mild":     1,
	"moderate": 2,
	"severe":   3,
}

// severityOf extracts the severity rank from a "<category>:<severity>" pair.
// Pairs without a severity, or with an unknown one, rank as moderate.
func severityOf(category string) int {
	parts := strings.SplitN(category, ":", 2)
	if len(parts) != 2 {
		return severityRank["moderate"]
	}
	if rank, ok := severityRank[strings.ToLower(strings.TrimSpace(parts[1]))]; ok {
		return rank
	}
	return severityRank["moderate"]
}

// passesThreshold reports whether the categories' maximum severity is
// acceptable at the given level. Strict tolerates nothing above none,
// moderate nothing above mild, lenient everything below severe.
func passesThreshold(categories []string, level Level) bool {
	maxSeverity := 0
	for _, category := range categories {
		if rank := severityOf(category); rank > maxSeverity {
			maxSeverity = rank
		}
	}
	switch level {
	case LevelStrict:
		return maxSeverity <= 0
	case LevelModerate:
		return maxSeverity <= 1
	default:
		return maxSeverity <= 2
	}
}
