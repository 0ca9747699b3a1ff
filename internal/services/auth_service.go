package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/metrics"
	"github.com/pokstore/backend/internal/models"
)

const (
	// sessionCacheSize bounds the number of live sessions kept in memory
	sessionCacheSize = 1024
	// revokedFallbackTTL is how long a signed-out token without a readable
	// expiry stays revoked
	revokedFallbackTTL = 24 * time.Hour
)

// revocations holds signed-out tokens until they would have expired anyway
type revocations struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func newRevocations() *revocations {
	return &revocations{expires: make(map[string]time.Time)}
}

func (r *revocations) add(token string, expiresAt, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, exp := range r.expires {
		if !now.Before(exp) {
			delete(r.expires, t)
		}
	}
	r.expires[token] = expiresAt
}

func (r *revocations) contains(token string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.expires[token]
	if ok && !now.Before(exp) {
		delete(r.expires, token)
		return false
	}
	return ok
}

func (r *revocations) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expires)
}

// tokenVerifier is implemented by stores that can check their own tokens
// without a round trip (SQLStore)
type tokenVerifier interface {
	VerifyToken(token string) (*models.Session, error)
}

// AuthService signs users in and out through the store, throttling repeated
// attempts per email.
type AuthService struct {
	auth     Authenticator
	retrier  *Retrier
	limiter  *RateLimiter
	sessions *lru.Cache[string, *models.Session]
	// signed-out tokens, rejected even when the store would still verify them
	revoked *revocations
	now     func() time.Time
}

// NewAuthService creates an auth service
func NewAuthService(auth Authenticator, retrier *Retrier, limiter *RateLimiter) *AuthService {
	cache, err := lru.New[string, *models.Session](sessionCacheSize)
	if err != nil {
		panic(err)
	}
	return &AuthService{
		auth:     auth,
		retrier:  retrier,
		limiter:  limiter,
		sessions: cache,
		revoked:  newRevocations(),
		now:      time.Now,
	}
}

func (s *AuthService) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	return s.authenticate(ctx, "sign_in", creds, s.auth.SignIn)
}

func (s *AuthService) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	return s.authenticate(ctx, "sign_up", creds, s.auth.SignUp)
}

func (s *AuthService) authenticate(ctx context.Context, kind string, creds models.Credentials,
	fn func(context.Context, models.Credentials) (*models.Session, error)) (*models.Session, error) {
	creds.Normalize()
	if fields := creds.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	if status := s.limiter.Check(creds.Email); status.Limited {
		metrics.AuthAttemptsTotal.WithLabelValues(kind, "limited").Inc()
		return nil, apperrors.Localized(apperrors.CodeRateLimited, apperrors.KeyRateLimited, status.MinutesRemaining)
	}

	session, err := Call(ctx, s.retrier, kind, func(ctx context.Context) (*models.Session, error) {
		return fn(ctx, creds)
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeAuth) {
			s.limiter.RecordAttempt(creds.Email)
		}
		metrics.AuthAttemptsTotal.WithLabelValues(kind, "failed").Inc()
		return nil, err
	}

	s.limiter.Reset(creds.Email)
	metrics.AuthAttemptsTotal.WithLabelValues(kind, "success").Inc()
	if session.Token != "" {
		s.sessions.Add(session.Token, session)
	}
	log.Printf("Auth: %s succeeded for %s", kind, session.Email)
	return session, nil
}

// Validate returns the session for token. Unknown tokens are checked by the
// store when it can verify them itself.
func (s *AuthService) Validate(token string) (*models.Session, error) {
	if token == "" || s.revoked.contains(token, s.now()) {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized)
	}
	session, ok := s.sessions.Get(token)
	if !ok {
		verifier, canVerify := s.auth.(tokenVerifier)
		if !canVerify {
			return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized)
		}
		verified, err := verifier.VerifyToken(token)
		if err != nil {
			if isSessionExpired(err) {
				return nil, apperrors.Wrap(apperrors.CodeAuth, apperrors.KeySessionExpired, err)
			}
			return nil, err
		}
		s.sessions.Add(token, verified)
		session = verified
	}
	if session.Expired(s.now()) {
		s.sessions.Remove(token)
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeySessionExpired)
	}
	return session, nil
}

// SignOut ends the session locally and on the store. The local session is
// dropped even when the store call fails.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	s.revoke(token)
	return s.retrier.Do(ctx, "sign_out", func(ctx context.Context) error {
		return s.auth.SignOut(ctx, token)
	})
}

// ForceSignOut drops the session carried by ctx without calling the store.
// It is the Retrier's session-expired hook.
func (s *AuthService) ForceSignOut(ctx context.Context) {
	if token := accessToken(ctx); token != "" {
		s.revoke(token)
		log.Printf("Auth: forced sign-out of an expired session")
	}
}

// revoke drops the session and rejects token until its expiry: the cached
// session's, else the exp claim of the token.
func (s *AuthService) revoke(token string) {
	now := s.now()
	expires := now.Add(revokedFallbackTTL)
	if session, ok := s.sessions.Peek(token); ok && !session.ExpiresAt.IsZero() {
		expires = session.ExpiresAt
	} else if exp := tokenExpiry(token); !exp.IsZero() {
		expires = exp
	}
	s.sessions.Remove(token)
	s.revoked.add(token, expires, now)
}

// tokenExpiry reads the exp claim of a JWT without verifying it
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
