package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/pkg/platform/sentinel"
)

func TestMemory_Profiles(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p := &analytics.Profile{ID: "u1", Username: "alice", Age: 30, Gender: "Female"}
	require.NoError(t, s.CreateProfile(ctx, p))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.False(t, got.CreatedAt.IsZero(), "created_at is assigned on insert")
	})

	t.Run("find by username", func(t *testing.T) {
		got, err := s.FindProfileByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := s.GetProfile(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := s.CreateProfile(ctx, &analytics.Profile{ID: "u1", Username: "other", Age: 20, Gender: "Male"})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		err := s.CreateProfile(ctx, &analytics.Profile{ID: "u2", Username: "alice", Age: 20, Gender: "Male"})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("returned profile is a copy", func(t *testing.T) {
		got, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		got.Age = 99

		again, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 30, again.Age)
	})
}

func TestMemory_ListUserIDs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	profiles := []analytics.Profile{
		{ID: "teen", Username: "t", Age: 15, Gender: "Male"},
		{ID: "adult-f", Username: "af", Age: 25, Gender: "Female"},
		{ID: "adult-m", Username: "am", Age: 40, Gender: "Male"},
		{ID: "senior", Username: "sr", Age: 41, Gender: "Female"},
	}
	for i := range profiles {
		require.NoError(t, s.CreateProfile(ctx, &profiles[i]))
	}

	t.Run("no filters returns everyone", func(t *testing.T) {
		ids, err := s.ListUserIDs(ctx, nil, "")
		require.NoError(t, err)
		assert.Len(t, ids, 4)
	})

	t.Run("age range bounds are inclusive", func(t *testing.T) {
		ids, err := s.ListUserIDs(ctx, &analytics.AgeRange{Min: 18, Max: 40}, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"adult-f", "adult-m"}, ids)
	})

	t.Run("gender filter", func(t *testing.T) {
		ids, err := s.ListUserIDs(ctx, nil, "Female")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"adult-f", "senior"}, ids)
	})

	t.Run("combined filters", func(t *testing.T) {
		ids, err := s.ListUserIDs(ctx, &analytics.AgeRange{Min: 41, Max: 150}, "Female")
		require.NoError(t, err)
		assert.Equal(t, []string{"senior"}, ids)
	})

	t.Run("nothing matches", func(t *testing.T) {
		ids, err := s.ListUserIDs(ctx, &analytics.AgeRange{Min: 90, Max: 150}, "")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestMemory_Events(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateProfile(ctx, &analytics.Profile{ID: "u1", Username: "a", Age: 20, Gender: "Male"}))
	require.NoError(t, s.CreateProfile(ctx, &analytics.Profile{ID: "u2", Username: "b", Age: 30, Gender: "Female"}))

	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	events := []analytics.Event{
		{UserID: "u1", Feature: "chart_bar", OccurredAt: at("2024-05-01T09:00:00Z")},
		{UserID: "u1", Feature: "date_picker", OccurredAt: at("2024-05-02T09:00:00Z")},
		{UserID: "u2", Feature: "chart_bar", OccurredAt: at("2024-05-03T09:00:00Z")},
	}
	for i := range events {
		require.NoError(t, s.InsertEvent(ctx, &events[i]))
	}

	t.Run("membership filter", func(t *testing.T) {
		got, err := s.ListEvents(ctx, []string{"u1"}, nil, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty user set matches nothing", func(t *testing.T) {
		got, err := s.ListEvents(ctx, nil, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("inclusive time bounds", func(t *testing.T) {
		start := at("2024-05-02T09:00:00Z")
		end := at("2024-05-03T09:00:00Z")
		got, err := s.ListEvents(ctx, []string{"u1", "u2"}, &start, &end)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("zero timestamp gets assigned", func(t *testing.T) {
		require.NoError(t, s.InsertEvent(ctx, &analytics.Event{UserID: "u2", Feature: "line_chart_hover"}))
		got, err := s.ListEvents(ctx, []string{"u2"}, nil, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, ev := range got {
			assert.False(t, ev.OccurredAt.IsZero())
		}
	})
}
