package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/craftedlabs/user-service/internal/domain"
)

// DomainError standardizes application errors crossing the service
// boundary: a stable code, a caller-safe message, and an HTTP status.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError maps any error to a DomainError with a stable code.
// Internal errors never leak their message to callers.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return NewDomainError("INVALID_CREDENTIALS", domain.ErrInvalidCredentials.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, domain.ErrInvalidGrant):
		return NewDomainError("INVALID_GRANT", domain.ErrInvalidGrant.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, domain.ErrExchangeFailed):
		return NewDomainError("EXCHANGE_FAILED", "authentication with identity provider failed", http.StatusBadGateway, nil)
	case errors.Is(err, domain.ErrProfileFetch):
		return NewDomainError("PROFILE_FETCH_FAILED", "could not load identity profile", http.StatusBadGateway, nil)
	case errors.Is(err, domain.ErrOAuthNotConfigured):
		return NewDomainError("CONFIGURATION_ERROR", domain.ErrOAuthNotConfigured.Error(), http.StatusInternalServerError, nil)
	case errors.Is(err, domain.ErrStateInvalid):
		return NewDomainError("VALIDATION_FAILED", domain.ErrStateInvalid.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrTokenInvalid):
		return NewDomainError("TOKEN_INVALID", domain.ErrTokenInvalid.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, domain.ErrEmailTaken):
		return NewDomainError("CONFLICT", domain.ErrEmailTaken.Error(), http.StatusConflict, nil)
	case errors.Is(err, domain.ErrUserDeleted):
		return NewDomainError("VALIDATION_FAILED", domain.ErrUserDeleted.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		if de, ok := NewNotFound("user", nil).(*DomainError); ok {
			return de
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
