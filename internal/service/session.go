package service

import (
	"sync"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultTokenKey is the persistent key the session token lives under.
const DefaultTokenKey = "jwt_token"

// SessionStore owns the current session token. Persistence is best-effort:
// a failing store is logged and the in-memory session stays valid.
type SessionStore struct {
	kv     port.KeyValueStore
	key    string
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewSessionStore restores a previously saved token from kv. An expired JWT is
// discarded and its key deleted.
func NewSessionStore(kv port.KeyValueStore, key string, logger *zap.Logger) *SessionStore {
	return newSessionStore(kv, key, logger, time.Now)
}

func newSessionStore(kv port.KeyValueStore, key string, logger *zap.Logger, now func() time.Time) *SessionStore {
	if key == "" {
		key = DefaultTokenKey
	}
	s := &SessionStore{kv: kv, key: key, logger: logger, now: now}
	s.restore()
	return s
}

func (s *SessionStore) restore() {
	token, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Warn("session restore failed", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !ok || token == "" {
		return
	}

	exp, hasExp := tokenExpiry(token)
	if hasExp && !exp.After(s.now()) {
		s.logger.Info("discarding expired session", zap.Time("expired_at", exp))
		if err := s.kv.Delete(s.key); err != nil {
			s.logger.Warn("session cleanup failed", zap.Error(err))
		}
		return
	}

	s.token = token
	if hasExp {
		s.expiresAt = exp
	}
	s.logger.Debug("session restored", zap.Bool("expiry_known", hasExp))
}

// Login stores token in memory and persists it.
func (s *SessionStore) Login(token string) {
	exp, _ := tokenExpiry(token)

	s.mu.Lock()
	s.token = token
	s.expiresAt = exp
	s.mu.Unlock()

	if err := s.kv.Set(s.key, token); err != nil {
		s.logger.Warn("session persist failed, keeping in-memory session", zap.Error(err))
	}
}

// Logout clears the token and its persisted copy.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := s.kv.Delete(s.key); err != nil {
		s.logger.Warn("session delete failed", zap.Error(err))
	}
}

// CurrentToken returns the token, if any. Callers capture it once per request.
func (s *SessionStore) CurrentToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *SessionStore) Authenticated() bool {
	_, ok := s.CurrentToken()
	return ok
}

// ExpiresAt reports the token's exp claim when the token is a JWT carrying one.
func (s *SessionStore) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, !s.expiresAt.IsZero()
}

// tokenExpiry reads exp without verifying the signature; Backend 1 owns the key.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
