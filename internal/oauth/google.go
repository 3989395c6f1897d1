package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/craftedlabs/user-service/internal/domain"
)

// Google endpoints, fixed by the provider.
const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var googleScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// ExchangeResult carries the provider tokens obtained for an
// authorization code. Single use within a login attempt, not persisted.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
}

// Profile is the identity returned by the provider's userinfo endpoint.
type Profile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Provider drives an authorization-code login against an identity provider.
type Provider interface {
	AuthorizationURL(state, redirectURI string) (string, error)
	Exchange(ctx context.Context, code, redirectURI string) (*ExchangeResult, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// GoogleConfig configures the Google client. The endpoint overrides
// exist for tests; left empty they resolve to Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleClient performs the code exchange and profile fetch against
// Google. Carries no per-attempt state; safe for concurrent use.
type GoogleClient struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

// NewGoogleClient builds the client with a bounded HTTP timeout.
func NewGoogleClient(cfg GoogleConfig) *GoogleClient {
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthorizationURL builds the provider consent URL for the given state.
// The redirect URI is the explicit argument when supplied, else the
// configured default; a trailing slash is stripped either way.
func (g *GoogleClient) AuthorizationURL(state, redirectURI string) (string, error) {
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return "", domain.ErrOAuthNotConfigured
	}
	return g.oauthConfig(redirectURI).AuthCodeURL(state), nil
}

// Exchange redeems the authorization code at the token endpoint. The
// redirect URI must exactly match the one used to obtain the code; a
// mismatch is rejected provider-side. An invalid_grant response maps to
// domain.ErrInvalidGrant, every other failure to domain.ErrExchangeFailed.
func (g *GoogleClient) Exchange(ctx context.Context, code, redirectURI string) (*ExchangeResult, error) {
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return nil, domain.ErrOAuthNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	token, err := g.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, domain.ErrInvalidGrant
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	return &ExchangeResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
	}, nil
}

// FetchProfile loads the userinfo profile with the bearer token.
func (g *GoogleClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d", domain.ErrProfileFetch, resp.StatusCode)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileFetch, err)
	}
	return &profile, nil
}

func (g *GoogleClient) oauthConfig(redirectURI string) *oauth2.Config {
	redirect := redirectURI
	if redirect == "" {
		redirect = g.cfg.RedirectURI
	}
	redirect = strings.TrimSuffix(redirect, "/")

	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       googleScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  g.cfg.AuthURL,
			TokenURL: g.cfg.TokenURL,
		},
	}
}
