package domain

import "errors"

var (
	// ErrInvalidCredentials signals a failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidGrant signals an authorization code that was already
	// redeemed, is malformed, or expired. The caller must restart the
	// authorization flow; retrying with the same code cannot succeed.
	ErrInvalidGrant = errors.New("authorization code already used or expired, please restart login")
	// ErrExchangeFailed covers provider or network failures during the
	// code exchange other than invalid_grant.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	// ErrProfileFetch signals a non-2xx response from the provider's
	// userinfo endpoint.
	ErrProfileFetch = errors.New("identity profile fetch failed")
	// ErrOAuthNotConfigured signals missing OAuth client credentials.
	ErrOAuthNotConfigured = errors.New("oauth client credentials not configured")
	// ErrStateInvalid signals an unknown or already-consumed OAuth state.
	ErrStateInvalid = errors.New("oauth state invalid or expired")
	// ErrTokenInvalid is the single negative outcome of token
	// verification: malformed encoding, bad signature, or expiry.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrEmailTaken signals a live directory record already holds the email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUserNotFound signals an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDeleted signals an operation against a soft-deleted record.
	ErrUserDeleted = errors.New("user is deleted")
)
