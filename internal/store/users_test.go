// Package store tests cover the credential registry.
package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
)

// testLogger silences store logs during tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// TestUsersLoadCreatesEmptyRegistry confirms a fresh store bootstraps itself.
func TestUsersLoadCreatesEmptyRegistry(t *testing.T) {
	s := NewUsers(afero.NewMemMapFs(), "data", testLogger())
	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Users == nil || len(reg.Users) != 0 {
		t.Fatalf("expected empty users array, got %+v", reg.Users)
	}
}

// TestUsersLoadHealsCorruptFile verifies the heal-on-read policy: a corrupt
// registry is replaced with a fresh empty one instead of failing.
func TestUsersLoadHealsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewUsers(fs, "data", testLogger())
	if err := afero.WriteFile(fs, "data/users.json", []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Users) != 0 {
		t.Fatalf("expected healed empty registry, got %+v", reg.Users)
	}

	// The on-disk file must have been rewritten as well.
	b, err := afero.ReadFile(fs, "data/users.json")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) == "{not json" {
		t.Fatalf("expected corrupt file to be replaced")
	}
}

// TestUsersCreateRejectsDuplicate enforces username uniqueness in the store.
func TestUsersCreateRejectsDuplicate(t *testing.T) {
	s := NewUsers(afero.NewMemMapFs(), "data", testLogger())
	u := User{Prename: "Ada", Lastname: "Lovelace", Username: "ada", PasswordHash: "h"}
	if err := s.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(u); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	all, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(all))
	}
}

// TestUsersFindIsCaseSensitive confirms usernames are matched exactly.
func TestUsersFindIsCaseSensitive(t *testing.T) {
	s := NewUsers(afero.NewMemMapFs(), "data", testLogger())
	if err := s.Create(User{Username: "Ada", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok, err := s.FindByUsername("ada"); err != nil || ok {
		t.Fatalf("expected miss for lowercased name, ok=%v err=%v", ok, err)
	}
	u, ok, err := s.FindByUsername("Ada")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if u.PasswordHash != "h" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

// TestUsersSetPasswordHashAndDelete covers the admin tool operations.
func TestUsersSetPasswordHashAndDelete(t *testing.T) {
	s := NewUsers(afero.NewMemMapFs(), "data", testLogger())
	if err := s.Create(User{Username: "ada", PasswordHash: "old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetPasswordHash("ada", "new"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	u, _, err := s.FindByUsername("ada")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if u.PasswordHash != "new" {
		t.Fatalf("expected updated hash, got %q", u.PasswordHash)
	}
	if err := s.Delete("ada"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("ada"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
