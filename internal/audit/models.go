package audit

import "time"

// Type names the action behind an audit event.
type Type string

const (
	TypeFeatureTracked Type = "feature.tracked"
	TypeUserRegistered Type = "user.registered"
	TypeUserLoggedIn   Type = "user.logged_in"
	TypeUserLoggedOut  Type = "user.logged_out"
)

// ClientInfo is what the User-Agent header revealed about the caller.
type ClientInfo struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
}

// Event is one append-only audit record. Feature is set only for
// TypeFeatureTracked.
type Event struct {
	ID        string     `json:"id"`
	Type      Type       `json:"type"`
	UserID    string     `json:"user_id"`
	Feature   string     `json:"feature_name,omitempty"`
	Client    ClientInfo `json:"client"`
	Timestamp time.Time  `json:"timestamp"`
}
