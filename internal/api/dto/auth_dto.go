package dto

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
}

// LoginRequest payload for password logins.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginResponse carries the provider consent URL and the state
// the callback must echo.
type GoogleLoginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}
