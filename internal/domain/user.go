package domain

import "time"

// OAuthPasswordSentinel is stored as the password hash for directory
// records created through a Google login; such records have no usable
// local password.
const OAuthPasswordSentinel = "oauth_google"

// User is the domain model for a user-directory record.
type User struct {
	ID           string
	FirstName    string
	LastName     *string
	Email        string
	PasswordHash string
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LastNameValue returns the last name or an empty string when unset.
func (u *User) LastNameValue() string {
	if u.LastName == nil {
		return ""
	}
	return *u.LastName
}
