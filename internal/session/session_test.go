// Package session tests cover the session lifecycle and cookie signing.
package session

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestNewManagerRejectsShortSecret enforces the fail-fast secret policy.
func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager("too-short", 0); err == nil {
		t.Fatalf("expected error for short secret")
	}
	if _, err := NewManager(strings.Repeat(" ", 40), 0); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

// TestSessionLifecycle walks anonymous, authenticated, and destroyed states.
func TestSessionLifecycle(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Stop)

	s, err := m.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.CSRFToken == "" || s.CSRFToken == s.Token {
		t.Fatalf("expected a distinct CSRF token")
	}

	got, ok := m.Get(s.Token)
	if !ok {
		t.Fatalf("expected session")
	}
	if got.User != nil {
		t.Fatalf("fresh session must be anonymous")
	}

	if !m.SetUser(s.Token, Profile{Prename: "Ada", Lastname: "Lovelace", Username: "ada"}) {
		t.Fatalf("SetUser failed")
	}
	got, ok = m.Get(s.Token)
	if !ok || got.User == nil || got.User.Username != "ada" {
		t.Fatalf("expected authenticated session, got %+v", got)
	}

	m.Destroy(s.Token)
	if _, ok := m.Get(s.Token); ok {
		t.Fatalf("destroyed session must be gone")
	}
}

// TestSessionExpiry drops sessions past their TTL on read.
func TestSessionExpiry(t *testing.T) {
	m, err := NewManager(testSecret, time.Nanosecond)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Stop)

	s, err := m.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok := m.Get(s.Token); ok {
		t.Fatalf("expected expired session to be gone")
	}
}

// TestSignVerify rejects tampered and foreign cookie values.
func TestSignVerify(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Stop)

	signed := m.Sign("sometoken")
	tok, ok := m.Verify(signed)
	if !ok || tok != "sometoken" {
		t.Fatalf("Verify(signed) = %q, %v", tok, ok)
	}
	if _, ok := m.Verify("sometoken.deadbeef"); ok {
		t.Fatalf("expected tampered signature to fail")
	}
	if _, ok := m.Verify("garbage"); ok {
		t.Fatalf("expected unsigned value to fail")
	}

	other, err := NewManager(strings.Repeat("x", 32), time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(other.Stop)
	if _, ok := other.Verify(signed); ok {
		t.Fatalf("expected signature from another secret to fail")
	}
}
