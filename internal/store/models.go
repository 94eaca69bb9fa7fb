// Package store defines the persisted data model for Lernhilfe.
package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a unique key is already taken.
	ErrExists = errors.New("already exists")
	// ErrGradeLocked is returned when deleting a grade whose locked flag is set.
	ErrGradeLocked = errors.New("grade is locked")
)

// User is one entry of the global credential registry. The username is the
// identity key and is matched case-sensitively.
type User struct {
	Prename      string `json:"prename"`
	Lastname     string `json:"lastname"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// Registry is the on-disk shape of users.json.
type Registry struct {
	Users []User `json:"users"`
}

// Document aggregates all per-user data. It is loaded and saved wholesale;
// there are no partial updates.
type Document struct {
	Subjects []Subject `json:"subjects"`
	Grades   []Grade   `json:"grades"`
}

// Subject is a course the user tracks. Grade and Note exist as embedded
// fields for historical documents; current data keeps grades in the
// top-level Grades array, matched to subjects by name.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ExamDate string `json:"examDate"`
	Grade    string `json:"grade"`
	Note     string `json:"note"`
	Todos    []Todo `json:"todos"`
}

// Grade is a single recorded mark. Subject refers to a subject by name,
// not by id. A grade with Locked set can never be deleted.
type Grade struct {
	ID      string  `json:"id"`
	Subject string  `json:"subject"`
	Date    string  `json:"date"`
	Grade   float64 `json:"grade"`
	Title   string  `json:"title"`
	Locked  bool    `json:"locked"`
}

// Todo is a task embedded in a subject. Todos are only written as part of
// a whole-subject save.
type Todo struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Done    bool     `json:"done"`
	Prio    Priority `json:"prio"`
	DueDate string   `json:"dueDate"`
}

// Priority is the closed set of todo priority levels.
type Priority string

const (
	PriorityHigh   Priority = "hoch"
	PriorityMedium Priority = "mittel"
	PriorityLow    Priority = "niedrig"
	PriorityUnset  Priority = ""
)

// ParsePriority validates a priority string. The empty string maps to
// PriorityUnset; anything outside the closed set is an error.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityUnset:
		return Priority(s), nil
	default:
		return PriorityUnset, errors.New("invalid priority")
	}
}
