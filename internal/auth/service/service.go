// Package service orchestrates registration and session flows between the
// identity provider and the profile store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pulse/internal/analytics"
	"pulse/internal/analytics/store"
	"pulse/internal/audit"
	"pulse/internal/identity"
	"pulse/internal/platform/metrics"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/sentinel"
)

// Invalidator revokes a session: provider sign-out plus credential cache
// removal.
type Invalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// RegisterParams are the validated inputs for Register.
type RegisterParams struct {
	Email    string
	Password string
	Username string
	Age      int
	Gender   string
}

// Account pairs a provider session with the local profile.
type Account struct {
	AccessToken string
	Identity    *identity.Record
	Profile     *analytics.Profile
}

// Service implements the authentication flows.
type Service struct {
	provider identity.Provider
	store    store.Store
	sessions Invalidator
	audit    audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New constructs an auth Service.
func New(provider identity.Provider, s store.Store, sessions Invalidator, publisher audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		provider: provider,
		store:    s,
		sessions: sessions,
		audit:    publisher,
		logger:   logger,
		metrics:  m,
	}
}

var validGenders = map[string]struct{}{"Male": {}, "Female": {}, "Other": {}}

func (p RegisterParams) validate() error {
	switch {
	case !strings.Contains(p.Email, "@"):
		return dErrors.New(dErrors.CodeBadRequest, "email is invalid")
	case len(p.Password) < 6:
		return dErrors.New(dErrors.CodeBadRequest, "password must be at least 6 characters")
	case len(p.Username) < 3 || len(p.Username) > 50:
		return dErrors.New(dErrors.CodeBadRequest, "username must be 3 to 50 characters")
	case p.Age < 1 || p.Age > 120:
		return dErrors.New(dErrors.CodeBadRequest, "age must be between 1 and 120")
	}
	if _, ok := validGenders[p.Gender]; !ok {
		return dErrors.New(dErrors.CodeBadRequest, "gender must be Male, Female or Other")
	}
	return nil
}

// Register creates the principal with the provider and its profile row
// locally.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Account, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.FindProfileByUsername(ctx, params.Username); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create user", err)
	}

	sess, err := s.provider.SignUp(ctx, params.Email, params.Password)
	if err != nil {
		return nil, s.translateProviderErr(ctx, err, "sign-up failed")
	}

	profile := &analytics.Profile{
		ID:       sess.User.ID,
		Username: params.Username,
		Age:      params.Age,
		Gender:   params.Gender,
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		s.logger.ErrorContext(ctx, "profile creation failed after provider sign-up",
			"user_id", sess.User.ID,
			"error", err,
		)
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create user profile", err)
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.audit.Emit(ctx, audit.Event{Type: audit.TypeUserRegistered, UserID: sess.User.ID})

	return &Account{AccessToken: sess.AccessToken, Identity: sess.User, Profile: profile}, nil
}

// Login authenticates with the provider and joins the local profile. A
// missing profile does not fail the login; the caller gets a nil Profile.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.translateProviderErr(ctx, err, "sign-in failed")
	}

	profile, err := s.store.GetProfile(ctx, sess.User.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "profile fetch failed during login",
			"user_id", sess.User.ID,
			"error", err,
		)
		profile = nil
	}

	s.audit.Emit(ctx, audit.Event{Type: audit.TypeUserLoggedIn, UserID: sess.User.ID})

	return &Account{AccessToken: sess.AccessToken, Identity: sess.User, Profile: profile}, nil
}

// Logout revokes the session and drops its cache entry.
func (s *Service) Logout(ctx context.Context, userID, token string) error {
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return err
	}
	s.audit.Emit(ctx, audit.Event{Type: audit.TypeUserLoggedOut, UserID: userID})
	return nil
}

// Profile returns the local profile for an authenticated user.
func (s *Service) Profile(ctx context.Context, userID string) (*analytics.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to fetch profile", err)
	}
	return p, nil
}

func (s *Service) translateProviderErr(ctx context.Context, err error, logMsg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		s.logger.ErrorContext(ctx, logMsg, "error", err)
		return dErrors.Wrap(dErrors.CodeUnavailable, "authentication service temporarily unavailable", err)
	}
	s.logger.ErrorContext(ctx, logMsg, "error", err)
	return dErrors.Wrap(dErrors.CodeUnauthorized, "invalid credentials", err)
}
