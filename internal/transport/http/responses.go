package http

import "pulse/internal/analytics"

// userPayload is the public projection of an account.
type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// authResponse is returned from register and login.
type authResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

// messageResponse carries a plain status message.
type messageResponse struct {
	Message string `json:"message"`
}

// trackResponse acknowledges a recorded event.
type trackResponse struct {
	Status      string `json:"status"`
	FeatureName string `json:"feature_name"`
}

// analyticsResponse is the aggregation result envelope.
type analyticsResponse struct {
	FeatureCounts []analytics.FeatureCount `json:"feature_counts"`
	DailyCounts   []analytics.DailyCount   `json:"daily_counts"`
}
