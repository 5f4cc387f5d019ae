package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "pulse/pkg/domain-errors"
)

// localClaims are the JWT claims minted by the LocalProvider.
type localClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type localUser struct {
	id       string
	email    string
	hash     []byte
	role     string
	metadata map[string]any
}

// LocalProvider is a self-contained Provider for development and tests:
// in-memory user table, bcrypt password hashes, HS256 access tokens. It keeps
// the whole system runnable without a real identity service.
type LocalProvider struct {
	mu         sync.RWMutex
	byEmail    map[string]*localUser
	revoked    map[string]struct{}
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

// NewLocalProvider constructs a LocalProvider signing tokens with the given key.
func NewLocalProvider(signingKey string) *LocalProvider {
	return &LocalProvider{
		byEmail:    make(map[string]*localUser),
		revoked:    make(map[string]struct{}),
		signingKey: []byte(signingKey),
		issuer:     "pulse-local",
		tokenTTL:   time.Hour,
	}
}

func (p *LocalProvider) SignUp(_ context.Context, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[email]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	}

	u := &localUser{
		id:       uuid.NewString(),
		email:    email,
		hash:     hash,
		role:     "authenticated",
		metadata: map[string]any{},
	}
	p.byEmail[email] = u

	return p.session(u)
}

func (p *LocalProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	p.mu.RLock()
	u, exists := p.byEmail[email]
	p.mu.RUnlock()

	if !exists {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.hash, []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return p.session(u)
}

func (p *LocalProvider) VerifyToken(_ context.Context, token string) (*Record, error) {
	parsed, err := jwt.ParseWithClaims(token, &localClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*localClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	p.mu.RLock()
	u, exists := p.byEmail[claims.Email]
	_, isRevoked := p.revoked[claims.ID]
	p.mu.RUnlock()
	if !exists || u.id != claims.Subject {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if isRevoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}

	return p.record(u), nil
}

// SignOut revokes the token's ID so it stops verifying. Revocations live for
// the process lifetime, which outlasts any token TTL this provider mints.
func (p *LocalProvider) SignOut(_ context.Context, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &localClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.signingKey, nil
	})
	if err != nil {
		// An unparseable or expired token cannot be presented anyway.
		return nil
	}
	claims, ok := parsed.Claims.(*localClaims)
	if !ok || claims.ID == "" {
		return nil
	}

	p.mu.Lock()
	p.revoked[claims.ID] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *LocalProvider) session(u *localUser) (*Session, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, localClaims{
		Email: u.email,
		Role:  u.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    p.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: signed, User: p.record(u)}, nil
}

func (p *LocalProvider) record(u *localUser) *Record {
	md := make(map[string]any, len(u.metadata))
	for k, v := range u.metadata {
		md[k] = v
	}
	return &Record{ID: u.id, Email: u.email, Role: u.role, Metadata: md}
}
