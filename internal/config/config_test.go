// Package config tests validate config loading behavior.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoadAppliesDefaults confirms defaults are applied on load.
func TestLoadAppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lernhilfe.yaml")
	if err := os.WriteFile(p, []byte("data_dir: ./x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTP.Port != 3000 {
		t.Fatalf("expected default http.port 3000, got %d", c.HTTP.Port)
	}
	if c.Login.AttemptLimit != 5 || c.Login.WindowSeconds != 60 {
		t.Fatalf("expected default login throttle 5/60s, got %+v", c.Login)
	}
	if c.Session.TTLMinutes != 720 {
		t.Fatalf("expected default session ttl 720, got %d", c.Session.TTLMinutes)
	}
}

// TestLoadRejectsBadValues covers range validation.
func TestLoadRejectsBadValues(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lernhilfe.yaml")
	if err := os.WriteFile(p, []byte("http:\n  port: 99999\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

// TestLoadSecret enforces the fail-fast session secret policy.
func TestLoadSecret(t *testing.T) {
	t.Setenv(SecretEnv, "short")
	if _, err := LoadSecret(""); err == nil {
		t.Fatalf("expected error for short secret")
	}

	t.Setenv(SecretEnv, strings.Repeat("s", 32))
	secret, err := LoadSecret("")
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if len(secret) != 32 {
		t.Fatalf("unexpected secret %q", secret)
	}
}
