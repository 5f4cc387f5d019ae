package store

import (
	"context"
	"sync"
	"time"

	"pulse/internal/analytics"
	"pulse/pkg/platform/sentinel"
)

// Memory is the in-memory Store used by tests and provider-less local runs.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*analytics.Profile
	events   []analytics.Event
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]*analytics.Profile)}
}

func (s *Memory) CreateProfile(_ context.Context, p *analytics.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.profiles {
		if existing.Username == p.Username {
			return sentinel.ErrConflict
		}
	}

	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.profiles[cp.ID] = &cp
	return nil
}

func (s *Memory) GetProfile(_ context.Context, userID string) (*analytics.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) FindProfileByUsername(_ context.Context, username string) (*analytics.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) ListUserIDs(_ context.Context, ageRange *analytics.AgeRange, gender string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.profiles))
	for _, p := range s.profiles {
		if ageRange != nil && (p.Age < ageRange.Min || p.Age > ageRange.Max) {
			continue
		}
		if gender != "" && p.Gender != gender {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *Memory) ListEvents(_ context.Context, userIDs []string, start, end *time.Time) ([]analytics.Event, error) {
	members := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		members[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analytics.Event
	for _, ev := range s.events {
		if _, ok := members[ev.UserID]; !ok {
			continue
		}
		if start != nil && ev.OccurredAt.Before(*start) {
			continue
		}
		if end != nil && ev.OccurredAt.After(*end) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Memory) InsertEvent(_ context.Context, e *analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := *e
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return nil
}
