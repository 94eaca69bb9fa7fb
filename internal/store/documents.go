package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const userdataDir = "userdata"

// Documents stores one JSON document per username under
// <data>/userdata/<username>.json. Unlike the credential registry, a
// missing or corrupt document is a hard error: replacing it would silently
// discard the user's subjects and grades.
type Documents struct {
	fs  afero.Fs
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDocuments returns a per-user document store rooted at dataDir.
func NewDocuments(fsys afero.Fs, dataDir string) *Documents {
	return &Documents{
		fs:    fsys,
		dir:   filepath.Join(dataDir, userdataDir),
		locks: map[string]*sync.Mutex{},
	}
}

// keyLock returns the mutex serializing writers for one username.
func (s *Documents) keyLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	return l
}

func (s *Documents) path(username string) string {
	return filepath.Join(s.dir, username+".json")
}

// Init creates the empty document for a freshly registered user.
func (s *Documents) Init(username string) error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return s.write(username, &Document{Subjects: []Subject{}, Grades: []Grade{}})
}

// Load reads and parses a user's document. A missing file maps to
// ErrNotFound; corrupt content is surfaced as a parse error.
func (s *Documents) Load(username string) (*Document, error) {
	b, err := afero.ReadFile(s.fs, s.path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document for %q: %w", username, ErrNotFound)
		}
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("document for %q: %w", username, err)
	}
	if doc.Subjects == nil {
		doc.Subjects = []Subject{}
	}
	if doc.Grades == nil {
		doc.Grades = []Grade{}
	}
	return &doc, nil
}

// Save overwrites a user's document wholesale.
func (s *Documents) Save(username string, doc *Document) error {
	l := s.keyLock(username)
	l.Lock()
	defer l.Unlock()
	return s.write(username, doc)
}

// Update runs a read-modify-write cycle under the per-user lock, removing
// the last-writer-wins race between concurrent requests for one account.
// The document is only written back when fn returns nil.
func (s *Documents) Update(username string, fn func(*Document) error) error {
	l := s.keyLock(username)
	l.Lock()
	defer l.Unlock()
	doc, err := s.Load(username)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(username, doc)
}

// Remove deletes a user's document file. Used by the admin tool when an
// account is removed.
func (s *Documents) Remove(username string) error {
	err := s.fs.Remove(s.path(username))
	if os.IsNotExist(err) {
		return fmt.Errorf("document for %q: %w", username, ErrNotFound)
	}
	return err
}

// write replaces the document via temp file and rename.
func (s *Documents) write(username string, doc *Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	p := s.path(username)
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, p)
}

// FindSubject returns the subject with the given id, or nil.
func (d *Document) FindSubject(id string) *Subject {
	for i := range d.Subjects {
		if d.Subjects[i].ID == id {
			return &d.Subjects[i]
		}
	}
	return nil
}

// AddSubject appends a new subject with a unique timestamp-derived id and
// empty fields, and returns it.
func (d *Document) AddSubject(name string) *Subject {
	id := fmt.Sprintf("subject%d", time.Now().UnixMilli())
	for d.FindSubject(id) != nil {
		// Two adds within the same millisecond: disambiguate.
		id += "x"
	}
	d.Subjects = append(d.Subjects, Subject{
		ID:    id,
		Name:  strings.TrimSpace(name),
		Todos: []Todo{},
	})
	return &d.Subjects[len(d.Subjects)-1]
}

// DeleteSubject removes the subject with the given id and reports whether
// anything was removed.
func (d *Document) DeleteSubject(id string) bool {
	for i := range d.Subjects {
		if d.Subjects[i].ID == id {
			d.Subjects = append(d.Subjects[:i], d.Subjects[i+1:]...)
			return true
		}
	}
	return false
}

// AddGrade appends a new grade with a server-generated id and returns it.
func (d *Document) AddGrade(subject, date string, grade float64, title string, locked bool) *Grade {
	d.Grades = append(d.Grades, Grade{
		ID:      uuid.NewString(),
		Subject: subject,
		Date:    date,
		Grade:   grade,
		Title:   title,
		Locked:  locked,
	})
	return &d.Grades[len(d.Grades)-1]
}

// DeleteGrade removes the grade with the given id. Locked grades are never
// removed; the attempt returns ErrGradeLocked and leaves the grade in place.
func (d *Document) DeleteGrade(id string) error {
	for i := range d.Grades {
		if d.Grades[i].ID == id {
			if d.Grades[i].Locked {
				return ErrGradeLocked
			}
			d.Grades = append(d.Grades[:i], d.Grades[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AverageFor computes the mean of all grades recorded for the named
// subject. The boolean is false when no grades match.
func (d *Document) AverageFor(subjectName string) (float64, bool) {
	var sum float64
	var n int
	for i := range d.Grades {
		if d.Grades[i].Subject == subjectName {
			sum += d.Grades[i].Grade
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
