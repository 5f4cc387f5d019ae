package analytics

import (
	"time"

	dErrors "pulse/pkg/domain-errors"
)

// AgeGroup is one of three fixed, non-overlapping age intervals.
type AgeGroup string

const (
	AgeGroupUnder18 AgeGroup = "<18"
	AgeGroup18To40  AgeGroup = "18-40"
	AgeGroupOver40  AgeGroup = ">40"
)

// AgeRange is a closed numeric interval over user ages.
type AgeRange struct {
	Min int
	Max int
}

// Range maps the group label to its closed interval. Unrecognized labels are
// rejected rather than widened to "no restriction": silently returning data
// the caller did not filter for is worse than a 400.
func (g AgeGroup) Range() (AgeRange, error) {
	switch g {
	case AgeGroupUnder18:
		return AgeRange{Min: 0, Max: 17}, nil
	case AgeGroup18To40:
		return AgeRange{Min: 18, Max: 40}, nil
	case AgeGroupOver40:
		return AgeRange{Min: 41, Max: 150}, nil
	default:
		return AgeRange{}, dErrors.New(dErrors.CodeBadRequest, "unknown age group: "+string(g))
	}
}

// FilterSet restricts an aggregation query. Nil/empty fields mean no
// restriction on that dimension. Feature narrows only the daily series.
type FilterSet struct {
	StartDate *time.Time
	EndDate   *time.Time
	AgeGroup  AgeGroup
	Gender    string
	Feature   string
}

// Profile is one registered user's filterable attributes.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is one recorded feature interaction. Append-only.
type Event struct {
	UserID     string    `json:"user_id"`
	Feature    string    `json:"feature_name"`
	OccurredAt time.Time `json:"timestamp"`
}

// FeatureCount is the total event count for one feature.
type FeatureCount struct {
	Feature string `json:"feature_name"`
	Count   int    `json:"count"`
}

// DailyCount is the event count for one calendar date (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Result is the aggregation output: feature totals sorted by count descending
// and daily totals sorted by date ascending. Both slices are non-nil.
type Result struct {
	FeatureCounts []FeatureCount `json:"feature_counts"`
	DailyCounts   []DailyCount   `json:"daily_counts"`
}
