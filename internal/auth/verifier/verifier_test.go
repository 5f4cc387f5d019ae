package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/auth/cache"
	"pulse/internal/identity"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/sentinel"
)

type fakeProvider struct {
	mu          sync.Mutex
	verifyCalls atomic.Int64
	verifyErr   error
	verifyDelay time.Duration
	record      *identity.Record
	signOutErr  error
	signedOut   []string
}

func (f *fakeProvider) VerifyToken(_ context.Context, token string) (*identity.Record, error) {
	f.verifyCalls.Add(1)
	if f.verifyDelay > 0 {
		time.Sleep(f.verifyDelay)
	}
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.record != nil {
		return f.record, nil
	}
	return &identity.Record{ID: "user-" + token, Email: token + "@test.com", Role: "authenticated"}, nil
}

func (f *fakeProvider) SignUp(context.Context, string, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func newVerifier(p identity.Provider) (*Verifier, *cache.Memory) {
	c := cache.NewMemory(300*time.Second, 500)
	logger := slog.New(slog.DiscardHandler)
	return New(c, p, logger, nil), c
}

func TestVerify_CachesOnSuccess(t *testing.T) {
	p := &fakeProvider{}
	v, _ := newVerifier(p)
	ctx := context.Background()

	rec, err := v.Verify(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-tok-1", rec.ID)
	assert.Equal(t, int64(1), p.verifyCalls.Load())

	// Second call is a pure cache hit.
	rec, err = v.Verify(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-tok-1", rec.ID)
	assert.Equal(t, int64(1), p.verifyCalls.Load())
}

func TestVerify_FailuresAreNotCached(t *testing.T) {
	p := &fakeProvider{verifyErr: errors.New("jwt expired")}
	v, c := newVerifier(p)
	ctx := context.Background()

	_, err := v.Verify(ctx, "tok-bad")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = v.Verify(ctx, "tok-bad")
	require.Error(t, err)
	assert.Equal(t, int64(2), p.verifyCalls.Load())
}

func TestVerify_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode dErrors.Code
	}{
		{"jwt expired message", errors.New("jwt expired"), dErrors.CodeUnauthorized},
		{"connection refused message", errors.New("connection refused"), dErrors.CodeUnavailable},
		{"malformed token message", errors.New("malformed segment"), dErrors.CodeUnauthorized},
		{"bad signature message", errors.New("signature verification failed"), dErrors.CodeUnauthorized},
		{"dns failure message", errors.New("no such host"), dErrors.CodeUnavailable},
		{"typed unauthorized passes through", dErrors.New(dErrors.CodeUnauthorized, "token has expired"), dErrors.CodeUnauthorized},
		{"typed conflict passes through", dErrors.New(dErrors.CodeConflict, "email already registered"), dErrors.CodeConflict},
		{"sentinel unavailable wins over keywords", fmt.Errorf("identity provider returned 503 for token check: %w", sentinel.ErrUnavailable), dErrors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{verifyErr: tt.err}
			v, _ := newVerifier(p)

			_, err := v.Verify(context.Background(), "tok")
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, tt.wantCode),
				"expected code %s, got %v", tt.wantCode, err)
		})
	}
}

func TestVerify_OutageIsNotLogout(t *testing.T) {
	p := &fakeProvider{verifyErr: errors.New("connection refused")}
	v, _ := newVerifier(p)

	_, err := v.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, dErrors.Is(err, dErrors.CodeUnauthorized),
		"a provider outage must not classify as an authentication failure")
}

func TestVerify_SingleflightCollapsesStampede(t *testing.T) {
	p := &fakeProvider{verifyDelay: 50 * time.Millisecond}
	v, _ := newVerifier(p)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			rec, err := v.Verify(ctx, "shared-token")
			assert.NoError(t, err)
			assert.Equal(t, "user-shared-token", rec.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), p.verifyCalls.Load(),
		"concurrent verifications of one token should hit the provider once")
}

func TestInvalidate_RemovesCacheEntryEvenWhenProviderFails(t *testing.T) {
	p := &fakeProvider{signOutErr: errors.New("connection refused")}
	v, c := newVerifier(p)
	ctx := context.Background()

	_, err := v.Verify(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	err = v.Invalidate(ctx, "tok-1")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	assert.Equal(t, 0, c.Len(), "cache entry must be gone regardless of provider outcome")
}

func TestInvalidate_SignsOutWithProvider(t *testing.T) {
	p := &fakeProvider{}
	v, _ := newVerifier(p)

	require.NoError(t, v.Invalidate(context.Background(), "tok-9"))
	assert.Equal(t, []string{"tok-9"}, p.signedOut)
}
