// Package auth holds the session the API client authenticates with.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when a request is attempted without a session token.
var ErrNoToken = errors.New("auth: no session token")

// Session carries the bearer token and the tenant (barbershop) the caller acts for.
// It is passed explicitly to the API client instead of living in shared storage.
type Session struct {
	mu           sync.RWMutex
	token        string
	barbershopID string
}

// NewSession creates a session for a barbershop.
func NewSession(token, barbershopID string) *Session {
	return &Session{token: token, barbershopID: barbershopID}
}

// AccessToken returns the raw bearer token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the token, e.g. after the operator logs in again.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// BarbershopID returns the tenant id.
func (s *Session) BarbershopID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.barbershopID
}

// Token implements oauth2.TokenSource so the session can back an oauth2.Transport.
func (s *Session) Token() (*oauth2.Token, error) {
	tok := s.AccessToken()
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

var _ oauth2.TokenSource = (*Session)(nil)
