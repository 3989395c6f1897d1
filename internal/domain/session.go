package domain

import "time"

// SessionUser is the user identity embedded in a login response.
type SessionUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// LoginResult is the outcome of a successful login flow. Repeated
// callbacks for the same authorization code must serialize to identical
// bytes, so the same value is cached and replayed.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`

	// Degraded is set when the user directory was unavailable and the
	// identity was synthesized from the email. Not serialized.
	Degraded bool `json:"-"`
}
