// Package auth holds the signed-in user's session for the chat backend.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeaderAccessToken is the request header carrying the session token.
const HeaderAccessToken = "access-token"

var (
	ErrNoUser  = errors.New("user ID is required")
	ErrNoToken = errors.New("token is required")
)

// Session is an authenticated principal.
type Session struct {
	UserID int64  // Backend user ID
	Token  string // Value of the access-token header
}

// NewSession validates and builds a Session.
func NewSession(userID int64, token string) (Session, error) {
	if userID <= 0 {
		return Session{}, ErrNoUser
	}
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrNoToken
	}
	return Session{UserID: userID, Token: strings.TrimSpace(token)}, nil
}

// LoadToken reads a session token from a file. Surrounding whitespace is trimmed.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s: %w", path, ErrNoToken)
	}
	return token, nil
}

// Store is the process-wide session holder. The zero value is signed out.
type Store struct {
	mu      sync.RWMutex
	session *Session
}

// NewStore returns a signed-out store.
func NewStore() *Store {
	return &Store{}
}

// Login replaces the current session.
func (s *Store) Login(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
}

// Logout clears the session.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// Current returns the session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// UserID returns the signed-in user's ID in its path-segment form.
func (s *Store) UserID() (string, bool) {
	sess, ok := s.Current()
	if !ok {
		return "", false
	}
	return strconv.FormatInt(sess.UserID, 10), true
}

// Token returns the session token, or "" when signed out.
func (s *Store) Token() string {
	sess, _ := s.Current()
	return sess.Token
}

// Header returns the handshake/request headers for the current session.
func (s *Store) Header() http.Header {
	h := http.Header{}
	if token := s.Token(); token != "" {
		h.Set(HeaderAccessToken, token)
	}
	return h
}
