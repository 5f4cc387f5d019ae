package analytics

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pulse/internal/platform/metrics"
	dErrors "pulse/pkg/domain-errors"
)

// EventSource is the slice of the data collaborator the engine reads.
type EventSource interface {
	ListUserIDs(ctx context.Context, ageRange *AgeRange, gender string) ([]string, error)
	ListEvents(ctx context.Context, userIDs []string, start, end *time.Time) ([]Event, error)
}

// Engine computes aggregated usage statistics. It holds no mutable state
// between calls: each Aggregate is a pure function of the filter set and the
// collaborator's current data, so it is safe for concurrent use.
type Engine struct {
	source  EventSource
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewEngine constructs an aggregation engine over the given source.
func NewEngine(source EventSource, m *metrics.Metrics) *Engine {
	return &Engine{
		source:  source,
		metrics: m,
		tracer:  otel.Tracer("pulse/internal/analytics"),
	}
}

// Aggregate resolves the users matching the attribute filters, fetches their
// events once, and folds that one batch into the two output series. Attribute
// filters matching zero users short-circuit to an empty result without an
// event query.
func (e *Engine) Aggregate(ctx context.Context, filters FilterSet) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "analytics.Aggregate")
	defer span.End()

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.AnalyticsDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}()

	var ageRange *AgeRange
	if filters.AgeGroup != "" {
		r, err := filters.AgeGroup.Range()
		if err != nil {
			return nil, err
		}
		ageRange = &r
	}

	userIDs, err := e.source.ListUserIDs(ctx, ageRange, filters.Gender)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(dErrors.CodeAggregationFailed, "failed to fetch analytics", err)
	}
	if len(userIDs) == 0 {
		return &Result{FeatureCounts: []FeatureCount{}, DailyCounts: []DailyCount{}}, nil
	}

	events, err := e.source.ListEvents(ctx, userIDs, filters.StartDate, filters.EndDate)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(dErrors.CodeAggregationFailed, "failed to fetch analytics", err)
	}

	return &Result{
		FeatureCounts: foldFeatureCounts(events),
		DailyCounts:   foldDailyCounts(events, filters.Feature),
	}, nil
}

// foldFeatureCounts groups the batch by feature name, sorted by count
// descending. Ties keep the order of first occurrence (stable sort).
func foldFeatureCounts(events []Event) []FeatureCount {
	counts := make(map[string]int)
	var order []string
	for _, ev := range events {
		if _, seen := counts[ev.Feature]; !seen {
			order = append(order, ev.Feature)
		}
		counts[ev.Feature]++
	}

	out := make([]FeatureCount, 0, len(order))
	for _, name := range order {
		out = append(out, FeatureCount{Feature: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// foldDailyCounts groups the batch by calendar date ascending, optionally
// narrowed to a single feature. This is the engine's second independent fold
// over the same fetched batch; it never re-queries.
func foldDailyCounts(events []Event, feature string) []DailyCount {
	counts := make(map[string]int)
	for _, ev := range events {
		if feature != "" && ev.Feature != feature {
			continue
		}
		counts[DateKey(ev.OccurredAt)]++
	}

	out := make([]DailyCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DateKey normalizes a timestamp to its YYYY-MM-DD date portion. Textual
// ISO-8601 timestamps truncated to 10 characters yield the same key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
