// Package auth tests cover password policy and hashing/verification.
package auth

import "testing"

// TestIsStrong checks each rejection class of the password policy.
func TestIsStrong(t *testing.T) {
	cases := []struct {
		password string
		want     bool
	}{
		{"Abcdef1!", true},
		{"abcdefgh", false}, // no upper, digit, symbol
		{"Ab1!", false},     // too short
		{"ABCDEF1!", false}, // no lower
		{"Abcdefg!", false}, // no digit
		{"Abcdefg1", false}, // no symbol
		{"Abcdef1_", true},  // underscore counts as symbol
		{"", false},
	}
	for _, c := range cases {
		if got := IsStrong(c.password); got != c.want {
			t.Fatalf("IsStrong(%q) = %v, want %v", c.password, got, c.want)
		}
	}
}

// TestHashAndVerifyPassword validates positive and negative password checks.
func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("Geheim1!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("Geheim1!", h) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("falsch", h) {
		t.Fatalf("expected wrong password to fail")
	}
	if VerifyPassword("", h) {
		t.Fatalf("expected empty password to fail")
	}
}

// TestNewToken rejects undersized tokens and yields distinct values.
func TestNewToken(t *testing.T) {
	if _, err := NewToken(8); err == nil {
		t.Fatalf("expected error for small token")
	}
	a, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}
