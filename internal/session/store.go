// Package session owns authentication tokens and user identity.
//
// The store is the single place both the REST adapter and the realtime
// connection read tokens from, so a refresh performed by one is immediately
// visible to the other.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/swiftparcel/client-go/pkg/types"
)

// Store holds the current session.
type Store struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	profile      *types.Profile
	lastActivity time.Time
}

// NewStore returns an empty, unauthenticated store.
func NewStore() *Store {
	return &Store{}
}

// SetTokens installs a new token pair, replacing any previous session.
//
// The access token's expiry is recovered from its JWT exp claim when present.
// The signature is not verified here; the server remains authoritative and
// the expiry is only used for proactive refresh.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = jwtExpiresAt(accessToken)
}

// AccessToken returns the current access token ("" when logged out).
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token ("" when logged out).
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Authenticated reports whether a session is active.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// ExpiringSoon reports whether the access token is expired or expires within
// the given window. Tokens without a parseable exp claim report false; the
// server will 401 if needed.
func (s *Store) ExpiringSoon(now time.Time, window time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" {
		return true
	}
	if s.expiresAt.IsZero() {
		return false
	}
	return !now.Add(window).Before(s.expiresAt)
}

// SetProfile stores the authenticated user's identity.
func (s *Store) SetProfile(p *types.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// Profile returns the stored identity (nil before the first profile fetch).
func (s *Store) Profile() *types.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Touch records user activity at the given time.
func (s *Store) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// LastActivity returns the most recent activity timestamp.
func (s *Store) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Clear wipes the session. Used on logout and on terminal auth failure.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.profile = nil
}

// savedSession is the on-disk representation of a session.
type savedSession struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Profile      *types.Profile `json:"profile,omitempty"`
}

// Save persists the session to path with restrictive permissions.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	saved := savedSession{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		Profile:      s.profile,
	}
	s.mu.RUnlock()

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load restores a previously saved session from path.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	s.SetTokens(saved.AccessToken, saved.RefreshToken)
	s.SetProfile(saved.Profile)
	return nil
}

// jwtExpiresAt returns the expiry encoded in a JWT, or the zero time when the
// token has no parseable exp claim.
func jwtExpiresAt(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
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
