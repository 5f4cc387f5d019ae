package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/sentinel"
)

// HTTPProvider talks to a GoTrue-style identity service over REST. It is the
// production Provider implementation; the wire protocol of the service itself
// is out of scope here, only the four calls this core consumes.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider constructs a Provider against the given base URL.
// The client timeout bounds provider calls even when the caller supplies a
// background context.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type providerUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type providerSession struct {
	AccessToken string       `json:"access_token"`
	User        providerUser `json:"user"`
}

func (u providerUser) record() *Record {
	md := u.UserMetadata
	if md == nil {
		md = map[string]any{}
	}
	return &Record{ID: u.ID, Email: u.Email, Role: u.Role, Metadata: md}
}

func (p *HTTPProvider) VerifyToken(ctx context.Context, token string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	p.setHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var u providerUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("decode identity response: %w: %w", sentinel.ErrUnavailable, err)
		}
		if u.ID == "" {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
		}
		return u.record(), nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	default:
		return nil, fmt.Errorf("identity provider returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return p.sessionCall(ctx, "/signup", email, password)
}

func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.sessionCall(ctx, "/token?grant_type=password", email, password)
}

func (p *HTTPProvider) SignOut(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	p.setHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("identity provider returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	// 401 on logout means the session is already gone; treat as success.
	return nil
}

func (p *HTTPProvider) sessionCall(ctx context.Context, path, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	p.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var s providerSession
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode session response: %w: %w", sentinel.ErrUnavailable, err)
		}
		if s.AccessToken == "" {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return &Session{AccessToken: s.AccessToken, User: s.User.record()}, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusBadRequest:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusConflict:
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	default:
		return nil, fmt.Errorf("identity provider returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

func (p *HTTPProvider) setHeaders(req *http.Request, token string) {
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
