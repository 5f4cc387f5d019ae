package identity

import "context"

// Provider is the external identity collaborator. Implementations classify
// their own failures: credential problems surface as coded unauthorized
// errors, transport or provider-side problems wrap sentinel.ErrUnavailable.
type Provider interface {
	// VerifyToken validates a bearer token and returns the identity behind it.
	VerifyToken(ctx context.Context, token string) (*Record, error)

	// SignUp registers a new principal and returns an authenticated session.
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// SignIn authenticates with email/password credentials.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut invalidates the session behind the token on the provider side.
	SignOut(ctx context.Context, token string) error
}
