package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pulse/internal/analytics"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/httputil"
)

// Aggregator computes analytics over the event log.
type Aggregator interface {
	Aggregate(ctx context.Context, filters analytics.FilterSet) (*analytics.Result, error)
}

// AnalyticsHandler serves GET /analytics.
type AnalyticsHandler struct {
	engine Aggregator
	logger *slog.Logger
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(engine Aggregator, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, logger: logger}
}

// parseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates. A bare
// date parses to midnight UTC; endOfDay shifts it to the last instant of
// that day so date-only ranges stay inclusive.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Query handles GET /analytics. Requires auth middleware.
func (h *AnalyticsHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := parseDate(q.Get("start_date"), false)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "start_date must be an RFC3339 timestamp or YYYY-MM-DD date"))
		return
	}
	end, err := parseDate(q.Get("end_date"), true)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "end_date must be an RFC3339 timestamp or YYYY-MM-DD date"))
		return
	}
	if start != nil && end != nil && end.Before(*start) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "end_date must not precede start_date"))
		return
	}

	result, err := h.engine.Aggregate(r.Context(), analytics.FilterSet{
		StartDate: start,
		EndDate:   end,
		AgeGroup:  analytics.AgeGroup(q.Get("age_group")),
		Gender:    q.Get("gender"),
		Feature:   q.Get("feature_name"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, analyticsResponse{
		FeatureCounts: result.FeatureCounts,
		DailyCounts:   result.DailyCounts,
	})
}
