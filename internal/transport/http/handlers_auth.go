package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pulse/internal/analytics"
	"pulse/internal/auth/service"
	"pulse/internal/platform/middleware"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/httputil"
)

// AuthService is the account flow consumed by the auth handlers.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (*service.Account, error)
	Login(ctx context.Context, email, password string) (*service.Account, error)
	Logout(ctx context.Context, userID, token string) error
	Profile(ctx context.Context, userID string) (*analytics.Profile, error)
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

func accountPayload(acct *service.Account) authResponse {
	resp := authResponse{
		AccessToken: acct.AccessToken,
		TokenType:   "bearer",
		User: userPayload{
			ID:    acct.Identity.ID,
			Email: acct.Identity.Email,
		},
	}
	if acct.Profile != nil {
		resp.User.Username = acct.Profile.Username
		resp.User.Age = acct.Profile.Age
		resp.User.Gender = acct.Profile.Gender
	}
	return resp
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	acct, err := h.service.Register(r.Context(), service.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Age:      req.Age,
		Gender:   req.Gender,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user registered",
		"request_id", middleware.GetRequestID(r.Context()),
		"user_id", acct.Identity.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, accountPayload(acct))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email and password are required"))
		return
	}

	acct, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accountPayload(acct))
}

// Logout handles POST /auth/logout. Requires auth middleware.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	token := middleware.GetToken(r.Context())

	if err := h.service.Logout(r.Context(), ident.ID, token); err != nil {
		h.logger.WarnContext(r.Context(), "logout failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"user_id", ident.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Me handles GET /auth/me. Requires auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	profile, err := h.service.Profile(r.Context(), ident.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userPayload{
		ID:       ident.ID,
		Email:    ident.Email,
		Username: profile.Username,
		Age:      profile.Age,
		Gender:   profile.Gender,
	})
}
