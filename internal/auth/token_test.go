package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/craftedlabs/user-service/internal/domain"
)

func newTestManager() *TokenManager {
	return NewTokenManager("test-secret", "HS256", 30)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tm := newTestManager()

	token, expiresAt, err := tm.Issue("42", "a@b.com", "Ada", "Lovelace", 30*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, "Ada", claims.FirstName)
	require.Equal(t, "Lovelace", claims.LastName)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
	require.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestVerifyExpiryWindow(t *testing.T) {
	tm := newTestManager()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return t0 }

	token, _, err := tm.Issue("42", "a@b.com", "Ada", "", 30*time.Minute)
	require.NoError(t, err)

	tm.now = func() time.Time { return t0.Add(29 * time.Minute) }
	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)

	tm.now = func() time.Time { return t0.Add(31 * time.Minute) }
	_, err = tm.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyMalformedToken(t *testing.T) {
	tm := newTestManager()

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := tm.Verify(token)
		require.ErrorIs(t, err, domain.ErrTokenInvalid, "token %q", token)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	tm := newTestManager()
	token, _, err := tm.Issue("42", "a@b.com", "Ada", "", 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))
	_, err = tm.Verify(tampered)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("other-secret", "HS256", 30).Issue("42", "a@b.com", "Ada", "", 0)
	require.NoError(t, err)

	_, err = newTestManager().Verify(token)
	require.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestIssueDefaultTTL(t *testing.T) {
	tm := NewTokenManager("s", "HS256", 15)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return t0 }

	_, expiresAt, err := tm.Issue("1", "e", "f", "l", 0)
	require.NoError(t, err)
	require.Equal(t, t0.Add(15*time.Minute), expiresAt)
}

func TestUnknownAlgorithmFallsBackToHS256(t *testing.T) {
	tm := NewTokenManager("s", "RS256", 30)

	token, _, err := tm.Issue("1", "e", "f", "l", 0)
	require.NoError(t, err)
	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)
}
