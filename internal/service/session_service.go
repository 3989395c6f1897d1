package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/craftedlabs/user-service/internal/auth"
	"github.com/craftedlabs/user-service/internal/config"
	"github.com/craftedlabs/user-service/internal/domain"
	"github.com/craftedlabs/user-service/internal/events"
	"github.com/craftedlabs/user-service/internal/oauth"
	"github.com/craftedlabs/user-service/internal/observability"
	"github.com/craftedlabs/user-service/internal/repository"
)

// SessionService orchestrates credential issuance: password logins,
// Google logins, and registration.
type SessionService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	google     oauth.Provider
	states     oauth.StateStore
	cache      *oauth.LoginCache
	flights    singleflight.Group
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	bcryptCost int
	stateTTL   time.Duration
}

// SessionDependencies encapsulates collaborator requirements.
type SessionDependencies struct {
	UserRepo   repository.UserRepository
	Google     oauth.Provider
	States     oauth.StateStore
	Cache      *oauth.LoginCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSessionService builds the service.
func NewSessionService(cfg config.Config, deps SessionDependencies) *SessionService {
	return &SessionService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.AccessTokenTTLMinutes),
		google:     deps.Google,
		states:     deps.States,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		bcryptCost: cfg.Auth.BcryptCost,
		stateTTL:   cfg.Auth.StateTTL(),
	}
}

// Register creates a new directory record and issues a session token.
func (s *SessionService) Register(ctx context.Context, firstName string, lastName *string, email, password string) (*domain.LoginResult, error) {
	if _, err := s.users.GetByEmail(ctx, email, false); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:     user.Email,
		FirstName: user.FirstName,
	})

	return s.issueFor(user, false)
}

// PasswordLogin authenticates an end-user by email.
//
// TODO: verify password against the stored hash with auth.VerifyPassword;
// existing clients authenticate on email presence alone and must migrate
// before this can be enforced.
func (s *SessionService) PasswordLogin(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	return s.issueFor(user, false)
}

// StartGoogleLogin issues a state and builds the provider consent URL.
// The redirect URI argument overrides the configured default.
func (s *SessionService) StartGoogleLogin(ctx context.Context, redirectURI string) (url, state string, err error) {
	state, err = oauth.NewState()
	if err != nil {
		return "", "", err
	}
	url, err = s.google.AuthorizationURL(state, redirectURI)
	if err != nil {
		return "", "", err
	}
	if err := s.states.Save(ctx, state, s.stateTTL); err != nil {
		return "", "", err
	}
	return url, state, nil
}

// GoogleCallback completes a Google login. The state is validated when
// supplied; a replayed callback for an already-processed code is served
// from the login cache before state validation so browser re-fires
// succeed.
func (s *SessionService) GoogleCallback(ctx context.Context, code, state, redirectURI string) (*domain.LoginResult, error) {
	if result, ok := s.cache.Get(code); ok {
		return result, nil
	}
	if state != "" {
		ok, err := s.states.Consume(ctx, state)
		if err != nil {
			s.logger.Warn("state store unavailable; skipping state validation", zap.Error(err))
		} else if !ok {
			return nil, domain.ErrStateInvalid
		}
	}
	return s.GoogleLogin(ctx, code, redirectURI)
}

// GoogleLogin exchanges the authorization code and issues a session.
// Concurrent calls for the same code share a single exchange, so only
// the first ever reaches the provider; the provider treats each code as
// single-use and a second exchange would fail with invalid_grant.
func (s *SessionService) GoogleLogin(ctx context.Context, code, redirectURI string) (*domain.LoginResult, error) {
	if code == "" {
		return nil, domain.ErrInvalidGrant
	}
	if result, ok := s.cache.Get(code); ok {
		return result, nil
	}

	value, err, _ := s.flights.Do(code, func() (interface{}, error) {
		if result, ok := s.cache.Get(code); ok {
			return result, nil
		}
		// The exchange is decoupled from the caller's cancellation so a
		// completed flow still lands in the cache for the retry. The
		// HTTP client's timeout bounds the calls regardless.
		result, err := s.completeGoogleLogin(context.WithoutCancel(ctx), code, redirectURI)
		if err != nil {
			return nil, err
		}
		s.cache.Put(code, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if cerr := ctx.Err(); cerr != nil {
		// Cache is populated; the cancelled caller gets no token.
		return nil, cerr
	}
	return value.(*domain.LoginResult), nil
}

func (s *SessionService) completeGoogleLogin(ctx context.Context, code, redirectURI string) (*domain.LoginResult, error) {
	exchange, err := s.google.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	profile, err := s.google.FetchProfile(ctx, exchange.AccessToken)
	if err != nil {
		return nil, err
	}

	user, dirErr := s.resolveDirectoryUser(ctx, profile)
	if dirErr == nil {
		return s.issueFor(user, false)
	}

	// Directory unavailable: keep the login alive with a deterministic
	// pseudo identity so the same email maps to the same subject across
	// repeated failures. Identity persistence degrades, availability wins.
	pseudoID := PseudoIdentity(profile.Email)
	s.metrics.RecordDegradedLogin()
	s.logger.Warn("user directory unavailable, issuing degraded session",
		zap.String("email", profile.Email),
		zap.String("pseudo_id", pseudoID),
		zap.Error(dirErr),
	)
	s.publish(ctx, events.EventLoginDegraded, pseudoID, events.LoginDegradedPayload{
		Email:    profile.Email,
		PseudoID: pseudoID,
	})

	lastName := profile.FamilyName
	degraded := &domain.User{
		ID:        pseudoID,
		FirstName: profile.GivenName,
		LastName:  &lastName,
		Email:     profile.Email,
	}
	return s.issueFor(degraded, true)
}

func (s *SessionService) resolveDirectoryUser(ctx context.Context, profile *oauth.Profile) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, profile.Email, false)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	lastName := profile.FamilyName
	user = &domain.User{
		FirstName:    profile.GivenName,
		LastName:     &lastName,
		Email:        profile.Email,
		PasswordHash: domain.OAuthPasswordSentinel,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SessionService) issueFor(user *domain.User, degraded bool) (*domain.LoginResult, error) {
	token, expiresAt, err := s.tokenMgr.Issue(user.ID, user.Email, user.FirstName, user.LastNameValue(), 0)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User: domain.SessionUser{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastNameValue(),
			Email:     user.Email,
		},
		Degraded: degraded,
	}, nil
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *SessionService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// PseudoIdentity derives a fixed-width subject id from an email. Used
// when the directory cannot be reached during a Google login.
func PseudoIdentity(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}
