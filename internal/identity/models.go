package identity

// Record is the verified identity of an authenticated principal. It is a
// bounded-lifetime copy of provider state; the provider remains the source of
// truth.
type Record struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	Metadata map[string]any `json:"metadata"`
}

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	AccessToken string
	User        *Record
}
