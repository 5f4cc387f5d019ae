// Package tracking records feature-usage events for authenticated users.
package tracking

import (
	"context"
	"log/slog"

	"github.com/mssola/useragent"

	"pulse/internal/analytics"
	"pulse/internal/analytics/store"
	"pulse/internal/audit"
	"pulse/internal/platform/metrics"
	dErrors "pulse/pkg/domain-errors"
)

const maxFeatureNameLen = 100

// Service appends feature events to the store and mirrors them onto the audit
// stream.
type Service struct {
	store   store.Store
	audit   audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a tracking Service.
func New(s store.Store, publisher audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: s, audit: publisher, logger: logger, metrics: m}
}

// Track records one interaction with the named feature. The store insert is
// authoritative; the audit publish is best-effort.
func (s *Service) Track(ctx context.Context, userID, feature, userAgent string) error {
	if feature == "" || len(feature) > maxFeatureNameLen {
		return dErrors.New(dErrors.CodeBadRequest, "feature_name must be 1 to 100 characters")
	}

	event := &analytics.Event{UserID: userID, Feature: feature}
	if err := s.store.InsertEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record event",
			"feature", feature,
			"error", err,
		)
		return dErrors.Wrap(dErrors.CodeInternal, "failed to record event", err)
	}

	if s.metrics != nil {
		s.metrics.EventsTracked.Inc()
	}

	s.audit.Emit(ctx, audit.Event{
		Type:    audit.TypeFeatureTracked,
		UserID:  userID,
		Feature: feature,
		Client:  parseClient(userAgent),
	})
	return nil
}

// parseClient extracts browser/OS facts from a User-Agent header. An empty or
// unparseable header yields the zero ClientInfo.
func parseClient(header string) audit.ClientInfo {
	if header == "" {
		return audit.ClientInfo{}
	}
	ua := useragent.New(header)
	browser, version := ua.Browser()
	if version != "" {
		browser = browser + "/" + version
	}
	return audit.ClientInfo{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
	}
}
