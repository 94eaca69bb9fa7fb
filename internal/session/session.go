// Package session keeps server-side session state in process memory.
// Sessions are keyed by an opaque random token; the cookie carries the
// token signed with the session secret so a tampered cookie never maps to
// a session. State is intentionally lost on restart.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"lernhilfe/internal/auth"
)

// MinSecretLength is the shortest accepted signing secret. The process
// must refuse to start below this.
const MinSecretLength = 32

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 12 * time.Hour

// Profile is the public projection of a user stored in the session.
// It never contains the password hash.
type Profile struct {
	Prename  string `json:"prename"`
	Lastname string `json:"lastname"`
	Username string `json:"username"`
}

// Session is one visitor's server-side state. User is nil until login.
type Session struct {
	Token     string
	CSRFToken string
	User      *Profile
	ExpiresAt time.Time
}

// Manager owns the session map and the cookie signing secret. It is
// constructed once at startup and injected where needed.
type Manager struct {
	secret []byte
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager validates the secret and returns a running manager. A sweep
// loop removes expired sessions in the background until Stop is called.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(strings.TrimSpace(secret)) < MinSecretLength {
		return nil, errors.New("session secret missing or shorter than 32 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: map[string]*Session{},
		stopCh:   make(chan struct{}),
	}
	go m.sweepLoop()
	return m, nil
}

// New creates a session with a fresh token and CSRF token.
func (m *Manager) New() (*Session, error) {
	tok, err := auth.NewToken(32)
	if err != nil {
		return nil, err
	}
	csrf, err := auth.NewToken(32)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Token:     tok,
		CSRFToken: csrf,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[tok] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a snapshot of the session for a token. Expired sessions are
// dropped and reported as missing.
func (m *Manager) Get(token string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, token)
		return Session{}, false
	}
	return *s, true
}

// SetUser records the authenticated profile on a session. This is the only
// anonymous-to-authenticated transition.
func (m *Manager) SetUser(token string, p Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return false
	}
	s.User = &p
	return true
}

// Destroy removes a session, logging the visitor out.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Sign produces the cookie value for a token: "<token>.<hmac-sha256-hex>".
func (m *Manager) Sign(token string) string {
	return token + "." + m.mac(token)
}

// Verify checks a cookie value and returns the embedded token. A missing
// or invalid signature yields false.
func (m *Manager) Verify(cookieValue string) (string, bool) {
	token, sig, ok := strings.Cut(cookieValue, ".")
	if !ok || token == "" {
		return "", false
	}
	want := m.mac(token)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(want)) != 1 {
		return "", false
	}
	return token, true
}

func (m *Manager) mac(token string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// Stop terminates the background sweep loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, tok)
		}
	}
}
