// Package auth holds the resolved identity of the current user. Identity is
// established outside the core (flag, environment or OS account); the core
// only consumes the user id.
package auth

import (
	"os"
	"os/user"
	"strings"

	apperr "github.com/julianstephens/habitlog/internal/errors"
)

// EnvUser overrides the OS account name as the habit owner
const EnvUser = "HABITLOG_USER"

// Session is the authentication state seen by the view layer.
// Loading is true while identity is still being resolved.
type Session struct {
	UserID  string
	Loading bool
}

// IsAuthenticated reports whether a user id has been resolved
func (s Session) IsAuthenticated() bool {
	return !s.Loading && strings.TrimSpace(s.UserID) != ""
}

// RequireUser returns the user id or errors.ErrNotAuthenticated
func (s Session) RequireUser() (string, error) {
	if !s.IsAuthenticated() {
		return "", apperr.ErrNotAuthenticated
	}
	return s.UserID, nil
}

// Resolve builds a session from an explicit user id, falling back to
// HABITLOG_USER and then the OS account name.
func Resolve(explicit string) Session {
	if id := strings.TrimSpace(explicit); id != "" {
		return Session{UserID: id}
	}
	if id := strings.TrimSpace(os.Getenv(EnvUser)); id != "" {
		return Session{UserID: id}
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return Session{UserID: u.Username}
	}
	return Session{}
}
