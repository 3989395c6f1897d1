package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/craftedlabs/user-service/internal/domain"
)

func TestToDomainErrorSentinelMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"invalid grant", domain.ErrInvalidGrant, "INVALID_GRANT", http.StatusUnauthorized},
		{"exchange failed", domain.ErrExchangeFailed, "EXCHANGE_FAILED", http.StatusBadGateway},
		{"profile fetch failed", domain.ErrProfileFetch, "PROFILE_FETCH_FAILED", http.StatusBadGateway},
		{"oauth not configured", domain.ErrOAuthNotConfigured, "CONFIGURATION_ERROR", http.StatusInternalServerError},
		{"state invalid", domain.ErrStateInvalid, "VALIDATION_FAILED", http.StatusBadRequest},
		{"token invalid", domain.ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized},
		{"email taken", domain.ErrEmailTaken, "CONFLICT", http.StatusConflict},
		{"user deleted", domain.ErrUserDeleted, "VALIDATION_FAILED", http.StatusBadRequest},
		{"user not found", domain.ErrUserNotFound, "NOT_FOUND", http.StatusNotFound},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := ToDomainError(tc.err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.code, mapped.Code)
			require.Equal(t, tc.status, mapped.HTTPStatus)
		})
	}
}

func TestToDomainErrorWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("exchange authorization code: %w", domain.ErrInvalidGrant)
	mapped := ToDomainError(wrapped)
	require.Equal(t, "INVALID_GRANT", mapped.Code)
	require.Equal(t, http.StatusUnauthorized, mapped.HTTPStatus)
}

func TestToDomainErrorUnknownErrorHidesMessage(t *testing.T) {
	mapped := ToDomainError(errors.New("pq: connection refused at 10.0.0.3"))
	require.Equal(t, "INTERNAL_ERROR", mapped.Code)
	require.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
	require.Equal(t, "internal server error", mapped.Message)
	require.NotContains(t, mapped.Message, "10.0.0.3")
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewDomainError("CONFLICT", "email already registered", http.StatusConflict, nil)
	mapped := ToDomainError(original)
	require.Same(t, original, mapped)

	require.Nil(t, ToDomainError(nil))
}
