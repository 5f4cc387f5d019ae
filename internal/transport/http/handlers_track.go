package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pulse/internal/platform/middleware"
	dErrors "pulse/pkg/domain-errors"
	"pulse/pkg/platform/httputil"
)

// TrackService records feature usage events.
type TrackService interface {
	Track(ctx context.Context, userID, feature, userAgent string) error
}

// TrackHandler serves POST /track.
type TrackHandler struct {
	service TrackService
	logger  *slog.Logger
}

// NewTrackHandler constructs a TrackHandler.
func NewTrackHandler(svc TrackService, logger *slog.Logger) *TrackHandler {
	return &TrackHandler{service: svc, logger: logger}
}

// Track handles POST /track. Requires auth middleware.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ident := middleware.GetIdentity(r.Context())
	if err := h.service.Track(r.Context(), ident.ID, req.FeatureName, r.UserAgent()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, trackResponse{
		Status:      "tracked",
		FeatureName: req.FeatureName,
	})
}
