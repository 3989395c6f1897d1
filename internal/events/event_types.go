package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventUserSoftDeleted EventType = "user_soft_deleted"
	EventLoginDegraded   EventType = "login_degraded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// UserSoftDeletedPayload payload.
type UserSoftDeletedPayload struct {
	Email string `json:"email"`
}

// LoginDegradedPayload payload. PseudoID is the synthesized subject id
// issued while the user directory was unreachable.
type LoginDegradedPayload struct {
	Email    string `json:"email"`
	PseudoID string `json:"pseudo_id"`
}
