package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const usersFile = "users.json"

// Users is the global credential registry, persisted as a single JSON
// document. Reads heal a missing or corrupt file by replacing it with a
// fresh empty registry, so callers never observe a malformed store.
type Users struct {
	fs     afero.Fs
	path   string
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewUsers returns a registry rooted at dataDir on the given filesystem.
func NewUsers(fsys afero.Fs, dataDir string, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	return &Users{
		fs:     fsys,
		path:   filepath.Join(dataDir, usersFile),
		dir:    dataDir,
		logger: logger,
	}
}

// Load reads the registry, creating or healing the backing file as needed.
func (s *Users) Load() (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load must be called with s.mu held.
func (s *Users) load() (*Registry, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(b, &reg); err != nil {
		s.logger.Warn("user registry corrupt, replacing with empty registry", "path", s.path, "error", err)
		reg = Registry{Users: []User{}}
		if err := s.write(&reg); err != nil {
			return nil, err
		}
		return &reg, nil
	}
	if reg.Users == nil {
		reg.Users = []User{}
	}
	return &reg, nil
}

// Save overwrites the registry with the given data.
func (s *Users) Save(reg *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return err
	}
	return s.write(reg)
}

// FindByUsername looks up a user by exact username. The boolean reports
// whether the user exists.
func (s *Users) FindByUsername(name string) (*User, bool, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	for i := range reg.Users {
		if reg.Users[i].Username == name {
			u := reg.Users[i]
			return &u, true, nil
		}
	}
	return nil, false, nil
}

// Create appends a new user. It returns ErrExists when the username is
// already taken; handlers check first, this is the backstop.
func (s *Users) Create(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := s.load()
	if err != nil {
		return err
	}
	for i := range reg.Users {
		if reg.Users[i].Username == u.Username {
			return ErrExists
		}
	}
	reg.Users = append(reg.Users, u)
	return s.write(reg)
}

// ListAll returns every registered user.
func (s *Users) ListAll() ([]User, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return reg.Users, nil
}

// SetPasswordHash replaces a user's stored password hash.
func (s *Users) SetPasswordHash(username, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := s.load()
	if err != nil {
		return err
	}
	for i := range reg.Users {
		if reg.Users[i].Username == username {
			reg.Users[i].PasswordHash = hash
			return s.write(reg)
		}
	}
	return ErrNotFound
}

// Delete removes a user from the registry.
func (s *Users) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := s.load()
	if err != nil {
		return err
	}
	for i := range reg.Users {
		if reg.Users[i].Username == username {
			reg.Users = append(reg.Users[:i], reg.Users[i+1:]...)
			return s.write(reg)
		}
	}
	return ErrNotFound
}

// ensure creates the data directory and an empty registry file if missing.
func (s *Users) ensure() error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	if _, err := s.fs.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return s.write(&Registry{Users: []User{}})
}

// write replaces the registry file via temp file and rename so readers
// never see a partial document.
func (s *Users) write(reg *Registry) error {
	b, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}
