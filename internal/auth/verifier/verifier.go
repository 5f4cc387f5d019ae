// Package verifier authenticates bearer tokens against the external identity
// provider, shielding it behind the credential cache.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"pulse/internal/auth/cache"
	"pulse/internal/identity"
	"pulse/internal/platform/metrics"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/sentinel"
)

// authErrorKeywords classify untyped provider errors. This is a stopgap for
// providers that return free-text errors; typed errors always win. See the
// classify doc comment for the misclassification trade-off.
var authErrorKeywords = []string{
	"invalid", "expired", "jwt", "token",
	"unauthorized", "malformed", "signature",
}

// Verifier resolves bearer tokens to identity records, consulting the cache
// before the provider. Concurrent verifications of the same token collapse
// into a single provider call.
type Verifier struct {
	cache    cache.Cache
	provider identity.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
	group    singleflight.Group
	tracer   trace.Tracer
}

// New constructs a Verifier.
func New(c cache.Cache, provider identity.Provider, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	return &Verifier{
		cache:    c,
		provider: provider,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("pulse/internal/auth/verifier"),
	}
}

// Verify returns the identity behind token. Cache hits return immediately; on
// a miss the provider is called once, the result cached, and failures
// classified into unauthorized versus service-unavailable. Provider outages
// must never read as a logout signal.
func (v *Verifier) Verify(ctx context.Context, token string) (*identity.Record, error) {
	ctx, span := v.tracer.Start(ctx, "verifier.Verify")
	defer span.End()

	start := time.Now()
	defer func() {
		if v.metrics != nil {
			v.metrics.VerifyDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}()

	if rec, ok := v.cache.Lookup(ctx, token); ok {
		if v.metrics != nil {
			v.metrics.TokenCacheHits.Inc()
		}
		return rec, nil
	}
	if v.metrics != nil {
		v.metrics.TokenCacheMisses.Inc()
	}

	// Collapse a cold-cache stampede into one provider round trip. The
	// singleflight key is the digest, never the raw token.
	res, err, _ := v.group.Do(cacheKey(token), func() (any, error) {
		rec, err := v.provider.VerifyToken(ctx, token)
		if err != nil {
			return nil, v.classify(ctx, err)
		}
		v.cache.Store(ctx, token, rec)
		return rec, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res.(*identity.Record), nil
}

// Invalidate drops the token from the cache and revokes the session with the
// provider. Cache removal happens regardless of provider outcome.
func (v *Verifier) Invalidate(ctx context.Context, token string) error {
	v.cache.Invalidate(ctx, token)
	if err := v.provider.SignOut(ctx, token); err != nil {
		return v.classify(ctx, err)
	}
	return nil
}

// classify maps a provider failure onto the error taxonomy. Typed errors pass
// through; sentinel.ErrUnavailable wraps become service-unavailable; anything
// else falls back to keyword matching. A genuine outage whose message happens
// to contain an auth keyword will be misread as unauthorized, so the original
// error is logged before classification discards it.
func (v *Verifier) classify(ctx context.Context, err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		v.logger.ErrorContext(ctx, "identity provider unavailable", "error", err)
		return dErrors.Wrap(dErrors.CodeUnavailable, "authentication service temporarily unavailable", err)
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range authErrorKeywords {
		if strings.Contains(msg, kw) {
			v.logger.WarnContext(ctx, "token verification rejected", "error", err)
			return dErrors.Wrap(dErrors.CodeUnauthorized, "invalid or expired token", err)
		}
	}

	v.logger.ErrorContext(ctx, "unexpected error during token verification", "error", err)
	return dErrors.Wrap(dErrors.CodeUnavailable, "authentication service temporarily unavailable", err)
}

func cacheKey(token string) string {
	// Mirror the cache's digesting so the raw token stays out of singleflight
	// internals too.
	return cache.DigestKey(token)
}
