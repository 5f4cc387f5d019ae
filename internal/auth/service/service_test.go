package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics/store"
	"pulse/internal/audit"
	"pulse/internal/identity"
	dErrors "pulse/pkg/domain-errors"
)

type nopInvalidator struct{ calls int }

func (n *nopInvalidator) Invalidate(_ context.Context, _ string) error {
	n.calls++
	return nil
}

type capturingPublisher struct{ events []audit.Event }

func (c *capturingPublisher) Emit(_ context.Context, e audit.Event) { c.events = append(c.events, e) }
func (c *capturingPublisher) Close()                                {}

func newService(t *testing.T) (*Service, *store.Memory, *capturingPublisher, *nopInvalidator) {
	t.Helper()
	st := store.NewMemory()
	pub := &capturingPublisher{}
	inv := &nopInvalidator{}
	svc := New(identity.NewLocalProvider("test-key"), st, inv, pub, slog.Default(), nil)
	return svc, st, pub, inv
}

func validParams() RegisterParams {
	return RegisterParams{
		Email:    "a@example.com",
		Password: "secret1",
		Username: "alice",
		Age:      30,
		Gender:   "Female",
	}
}

func TestService_Register(t *testing.T) {
	svc, st, pub, _ := newService(t)

	acct, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)
	assert.NotEmpty(t, acct.AccessToken)
	require.NotNil(t, acct.Profile)
	assert.Equal(t, "alice", acct.Profile.Username)

	got, err := st.GetProfile(context.Background(), acct.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Age)

	require.Len(t, pub.events, 1)
	assert.Equal(t, audit.TypeUserRegistered, pub.events[0].Type)
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _, _, _ := newService(t)

	tests := []struct {
		name   string
		mutate func(*RegisterParams)
	}{
		{"bad email", func(p *RegisterParams) { p.Email = "not-an-email" }},
		{"short password", func(p *RegisterParams) { p.Password = "12345" }},
		{"short username", func(p *RegisterParams) { p.Username = "ab" }},
		{"zero age", func(p *RegisterParams) { p.Age = 0 }},
		{"age too high", func(p *RegisterParams) { p.Age = 121 }},
		{"bad gender", func(p *RegisterParams) { p.Gender = "unknown" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := svc.Register(context.Background(), params)
			assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
		})
	}
}

func TestService_RegisterDuplicateUsername(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)

	params := validParams()
	params.Email = "b@example.com"
	_, err = svc.Register(context.Background(), params)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)

	params := validParams()
	params.Username = "alice2"
	_, err = svc.Register(context.Background(), params)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestService_LoginAndLogout(t *testing.T) {
	svc, _, pub, inv := newService(t)

	acct, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)

	logged, err := svc.Login(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, logged.Profile)
	assert.Equal(t, "alice", logged.Profile.Username)

	require.NoError(t, svc.Logout(context.Background(), acct.Identity.ID, logged.AccessToken))
	assert.Equal(t, 1, inv.calls)

	types := make([]audit.Type, 0, len(pub.events))
	for _, e := range pub.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []audit.Type{audit.TypeUserRegistered, audit.TypeUserLoggedIn, audit.TypeUserLoggedOut}, types)
}

func TestService_LoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "a@example.com", "wrong-password")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestService_Profile(t *testing.T) {
	svc, _, _, _ := newService(t)

	acct, err := svc.Register(context.Background(), validParams())
	require.NoError(t, err)

	p, err := svc.Profile(context.Background(), acct.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	_, err = svc.Profile(context.Background(), "missing-id")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
