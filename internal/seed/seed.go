// Package seed populates the store with demo users and a month of feature
// events so the dashboard has something to chart on a fresh install.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"pulse/internal/analytics"
	"pulse/internal/analytics/store"
	"pulse/internal/identity"
	"pulse/pkg/platform/sentinel"
)

var featureNames = []string{
	"date_picker",
	"filter_age",
	"filter_gender",
	"chart_bar",
	"bar_chart_zoom",
	"line_chart_hover",
}

var firstNames = []string{
	"Alice", "Bob", "Charlie", "Diana", "Evan", "Fiona", "George", "Hannah",
	"Ivan", "Julia", "Kevin", "Luna", "Mike", "Nina", "Oscar", "Paula",
	"Quinn", "Rachel", "Steve", "Tina", "Uma", "Victor", "Wendy", "Xander",
	"Yara", "Zack", "Amber", "Brian", "Chloe", "Derek", "Emma", "Frank",
	"Grace", "Henry", "Iris", "Jake", "Kara", "Leo", "Maya", "Noah",
	"Olivia", "Peter", "Rosa", "Sam", "Tara", "Uri", "Vera", "Will",
	"Xena", "Yuri", "Zoe", "Adam", "Beth", "Carl", "Dana",
}

var genders = []string{"Male", "Female", "Other"}

// Seeder creates demo accounts and events.
type Seeder struct {
	provider identity.Provider
	store    store.Store
	logger   *slog.Logger
	rng      *rand.Rand
	now      func() time.Time
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithRand fixes the random source, for deterministic output.
func WithRand(rng *rand.Rand) Option {
	return func(s *Seeder) { s.rng = rng }
}

// WithNow fixes the reference time events are generated relative to.
func WithNow(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

// New constructs a Seeder.
func New(provider identity.Provider, st store.Store, logger *slog.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		provider: provider,
		store:    st,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Seeder) randomAge() int {
	switch s.rng.Intn(3) {
	case 0:
		return 13 + s.rng.Intn(5) // 13..17
	case 1:
		return 18 + s.rng.Intn(23) // 18..40
	default:
		return 41 + s.rng.Intn(25) // 41..65
	}
}

// Run creates up to 55 demo users and eventCount events spread over the
// trailing 30 days. Existing usernames are reused rather than recreated, so
// repeat runs add events without duplicating accounts.
func (s *Seeder) Run(ctx context.Context, eventCount int) error {
	userIDs, err := s.seedUsers(ctx)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return errors.New("no users available for seeding events")
	}
	return s.seedEvents(ctx, userIDs, eventCount)
}

func (s *Seeder) seedUsers(ctx context.Context) ([]string, error) {
	userIDs := make([]string, 0, len(firstNames))

	for _, name := range firstNames {
		username := strings.ToLower(name)

		existing, err := s.store.FindProfileByUsername(ctx, username)
		if err == nil {
			userIDs = append(userIDs, existing.ID)
			continue
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("looking up seed user %q: %w", username, err)
		}

		sess, err := s.provider.SignUp(ctx, username+"@test.com", "test123")
		if err != nil {
			s.logger.WarnContext(ctx, "seed sign-up failed, skipping user",
				"username", username,
				"error", err,
			)
			continue
		}

		profile := &analytics.Profile{
			ID:       sess.User.ID,
			Username: username,
			Age:      s.randomAge(),
			Gender:   genders[s.rng.Intn(len(genders))],
		}
		if err := s.store.CreateProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("creating seed profile %q: %w", username, err)
		}
		userIDs = append(userIDs, profile.ID)
	}

	s.logger.InfoContext(ctx, "seed users ready", "count", len(userIDs))
	return userIDs, nil
}

func (s *Seeder) seedEvents(ctx context.Context, userIDs []string, count int) error {
	now := s.now().UTC()
	for i := 0; i < count; i++ {
		offset := time.Duration(s.rng.Intn(31))*24*time.Hour +
			time.Duration(s.rng.Intn(24))*time.Hour +
			time.Duration(s.rng.Intn(60))*time.Minute

		ev := &analytics.Event{
			UserID:     userIDs[s.rng.Intn(len(userIDs))],
			Feature:    featureNames[s.rng.Intn(len(featureNames))],
			OccurredAt: now.Add(-offset),
		}
		if err := s.store.InsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("inserting seed event %d: %w", i, err)
		}
	}

	s.logger.InfoContext(ctx, "seed events created", "count", count)
	return nil
}
