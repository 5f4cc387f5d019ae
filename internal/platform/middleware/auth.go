package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"pulse/internal/identity"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/httputil"
)

// TokenVerifier resolves a bearer token to an identity record.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Record, error)
}

type contextKeyIdentity struct{}
type contextKeyToken struct{}

// ContextKeyIdentity is exported for use in handlers.
var (
	ContextKeyIdentity = contextKeyIdentity{}
	ContextKeyToken    = contextKeyToken{}
)

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) *identity.Record {
	rec, ok := ctx.Value(ContextKeyIdentity).(*identity.Record)
	if !ok {
		return nil
	}
	return rec
}

// GetToken retrieves the bearer token that authenticated this request.
func GetToken(ctx context.Context) string {
	token, ok := ctx.Value(ContextKeyToken).(string)
	if !ok {
		return ""
	}
	return token
}

// RequireAuth verifies the Authorization bearer token and stores the resulting
// identity in the request context. Provider outages surface as 503, never as
// 401, so a flapping provider cannot log users out.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			rec, err := verifier.Verify(ctx, token)
			if err != nil {
				if dErrors.Is(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
					return
				}
				logger.ErrorContext(ctx, "token verification unavailable",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "authentication service temporarily unavailable"))
				return
			}

			ctx = context.WithValue(ctx, ContextKeyIdentity, rec)
			ctx = context.WithValue(ctx, ContextKeyToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
