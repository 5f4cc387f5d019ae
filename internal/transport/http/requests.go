package http

// registerRequest is the POST /auth/register body.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// loginRequest is the POST /auth/login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// trackRequest is the POST /track body.
type trackRequest struct {
	FeatureName string `json:"feature_name"`
}
