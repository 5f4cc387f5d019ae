package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pulse/internal/analytics"
	"pulse/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// Postgres persists profiles and feature events in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the two tables when absent. Real schema evolution is
// out of scope; this keeps fresh databases and integration tests usable.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS profiles (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			age        INT  NOT NULL,
			gender     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS feature_events (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES profiles (id),
			feature_name TEXT NOT NULL,
			occurred_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS feature_events_user_time_idx
			ON feature_events (user_id, occurred_at);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateProfile(ctx context.Context, p *analytics.Profile) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO profiles (id, username, age, gender, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Username, p.Age, p.Gender, createdAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Postgres) GetProfile(ctx context.Context, userID string) (*analytics.Profile, error) {
	query := `
		SELECT id, username, age, gender, created_at
		FROM profiles
		WHERE id = $1
	`
	var p analytics.Profile
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&p.ID, &p.Username, &p.Age, &p.Gender, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *Postgres) FindProfileByUsername(ctx context.Context, username string) (*analytics.Profile, error) {
	query := `
		SELECT id, username, age, gender, created_at
		FROM profiles
		WHERE username = $1
	`
	var p analytics.Profile
	err := s.db.QueryRowContext(ctx, query, username).
		Scan(&p.ID, &p.Username, &p.Age, &p.Gender, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by username: %w", err)
	}
	return &p, nil
}

func (s *Postgres) ListUserIDs(ctx context.Context, ageRange *analytics.AgeRange, gender string) ([]string, error) {
	query := `
		SELECT id FROM profiles
		WHERE ($1::int IS NULL OR age BETWEEN $1 AND $2)
		  AND ($3::text IS NULL OR gender = $3)
	`
	var minAge, maxAge sql.NullInt64
	if ageRange != nil {
		minAge = sql.NullInt64{Int64: int64(ageRange.Min), Valid: true}
		maxAge = sql.NullInt64{Int64: int64(ageRange.Max), Valid: true}
	}
	var genderArg sql.NullString
	if gender != "" {
		genderArg = sql.NullString{String: gender, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, minAge, maxAge, genderArg)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (s *Postgres) ListEvents(ctx context.Context, userIDs []string, start, end *time.Time) ([]analytics.Event, error) {
	if len(userIDs) == 0 {
		return []analytics.Event{}, nil
	}

	query := `
		SELECT user_id, feature_name, occurred_at
		FROM feature_events
		WHERE user_id = ANY($1)
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs), nullTime(start), nullTime(end))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []analytics.Event{}
	for rows.Next() {
		var ev analytics.Event
		if err := rows.Scan(&ev.UserID, &ev.Feature, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Postgres) InsertEvent(ctx context.Context, e *analytics.Event) error {
	query := `
		INSERT INTO feature_events (id, user_id, feature_name, occurred_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
	`
	_, err := s.db.ExecContext(ctx, query, uuid.NewString(), e.UserID, e.Feature, nullTime(timeOrNil(e.OccurredAt)))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
