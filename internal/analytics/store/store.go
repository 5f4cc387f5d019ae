// Package store persists user profiles and feature events. The aggregation
// engine consumes it read-only; the tracking path appends to it.
package store

import (
	"context"
	"time"

	"pulse/internal/analytics"
)

// Store is the external data collaborator contract. Implementations return
// sentinel errors from pkg/platform/sentinel for factual conditions; services
// translate them into domain errors.
type Store interface {
	// CreateProfile inserts a profile row. sentinel.ErrConflict when the ID or
	// username already exists.
	CreateProfile(ctx context.Context, p *analytics.Profile) error

	// GetProfile returns the profile for a user ID, sentinel.ErrNotFound when absent.
	GetProfile(ctx context.Context, userID string) (*analytics.Profile, error)

	// FindProfileByUsername returns the profile with the given username,
	// sentinel.ErrNotFound when absent.
	FindProfileByUsername(ctx context.Context, username string) (*analytics.Profile, error)

	// ListUserIDs resolves user IDs matching the attribute filters. A nil
	// ageRange or empty gender means no restriction on that dimension.
	ListUserIDs(ctx context.Context, ageRange *analytics.AgeRange, gender string) ([]string, error)

	// ListEvents fetches events for the given users, bounded inclusively by
	// start/end when non-nil. An empty userIDs slice matches nothing.
	ListEvents(ctx context.Context, userIDs []string, start, end *time.Time) ([]analytics.Event, error)

	// InsertEvent appends one feature event. The timestamp is assigned by the
	// store when e.OccurredAt is zero.
	InsertEvent(ctx context.Context, e *analytics.Event) error
}
