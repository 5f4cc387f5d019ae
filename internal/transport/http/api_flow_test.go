package http_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/internal/analytics/store"
	"pulse/internal/audit"
	"pulse/internal/auth/cache"
	authservice "pulse/internal/auth/service"
	"pulse/internal/auth/verifier"
	"pulse/internal/identity"
	"pulse/internal/tracking"
	httptransport "pulse/internal/transport/http"
)

// newAPI wires the real components behind the router: local identity
// provider, in-memory store and token cache. Only the process boundary is
// faked.
func newAPI(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	log := slog.Default()
	st := store.NewMemory()

	provider := identity.NewLocalProvider("flow-test-key")
	tokenCache := cache.NewMemory(300*time.Second, 500)
	verify := verifier.New(tokenCache, provider, log, nil)
	accounts := authservice.New(provider, st, verify, audit.Nop{}, log, nil)
	tracker := tracking.New(st, audit.Nop{}, log, nil)
	engine := analytics.NewEngine(st, nil)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(accounts, log),
		Track:         httptransport.NewTrackHandler(tracker, log),
		Analytics:     httptransport.NewAnalyticsHandler(engine, log),
		Verifier:      verify,
		Logger:        log,
		AllowedOrigin: "http://localhost:5173",
	})
	return router, st
}

func request(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFullUserFlow(t *testing.T) {
	router, _ := newAPI(t)

	// Register.
	rec := request(t, router, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"secret1","username":"alice","age":16,"gender":"Male"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.AccessToken)

	// A second user in a different age bracket.
	rec = request(t, router, http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","password":"secret1","username":"bob","age":25,"gender":"Female"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Login returns a fresh usable token.
	rec = request(t, router, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logged struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logged))
	token := logged.AccessToken

	// Me reflects the registered profile.
	rec = request(t, router, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)

	// Track a few features.
	for _, feature := range []string{"date_picker", "date_picker", "chart_bar"} {
		rec = request(t, router, http.MethodPost, "/track", `{"feature_name":"`+feature+`"}`, token)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// Aggregate without filters sees them all, busiest feature first.
	rec = request(t, router, http.MethodGet, "/analytics", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		FeatureCounts []analytics.FeatureCount `json:"feature_counts"`
		DailyCounts   []analytics.DailyCount   `json:"daily_counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.FeatureCounts, 2)
	assert.Equal(t, "date_picker", result.FeatureCounts[0].Feature)
	assert.Equal(t, 2, result.FeatureCounts[0].Count)
	require.Len(t, result.DailyCounts, 1)
	assert.Equal(t, 3, result.DailyCounts[0].Count)

	// Narrow to the under-18 bracket: only alice's events remain.
	rec = request(t, router, http.MethodGet, "/analytics?age_group=%3C18", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	total := 0
	for _, fc := range result.FeatureCounts {
		total += fc.Count
	}
	assert.Equal(t, 3, total)

	// A bracket nobody is in returns empty series, not an error.
	rec = request(t, router, http.MethodGet, "/analytics?age_group=%3E40", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.FeatureCounts)
	assert.Empty(t, result.DailyCounts)

	// Logout revokes the token for subsequent requests.
	rec = request(t, router, http.MethodPost, "/auth/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, router, http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token must stop working")
}

func TestTrackedEventsLandInStore(t *testing.T) {
	router, st := newAPI(t)

	rec := request(t, router, http.MethodPost, "/auth/register",
		`{"email":"carol@example.com","password":"secret1","username":"carol","age":70,"gender":"Female"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))

	rec = request(t, router, http.MethodPost, "/track", `{"feature_name":"line_chart_hover"}`, registered.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code)

	events, err := st.ListEvents(t.Context(), []string{registered.User.ID}, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "line_chart_hover", events[0].Feature)
	assert.False(t, events[0].OccurredAt.IsZero())
}
