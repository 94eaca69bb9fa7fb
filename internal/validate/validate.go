// Package validate contains simple input validation helpers.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

// usernameRe enforces a conservative username pattern. Usernames name the
// per-user document file on disk, so path characters are never allowed.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// Username validates a username string for length and allowed characters.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

// AllPresent reports whether every value is non-blank after trimming.
func AllPresent(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
