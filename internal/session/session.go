// Package session holds the process-local identity and the rules for
// keeping it honest against each freshly replicated user set.
package session

import (
	"errors"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// ErrBadCredentials is returned on a username/password mismatch. No state
// changes on a failed attempt.
var ErrBadCredentials = errors.New("invalid username or password")

// Resolve re-derives the active user from a freshly fetched user list. The
// id is the only thing carried between polls; the User object is never
// cached. A nil result means the account was deleted (or the user set is
// momentarily empty) and the session is stale: the caller must treat this
// as a forced sign-out, not an error.
func Resolve(users []domain.User, userID string) *domain.User {
	if userID == "" {
		return nil
	}
	for i := range users {
		if users[i].ID == userID {
			return &users[i]
		}
	}
	return nil
}

// Authenticate matches credentials against the replicated user list.
// Plaintext equality, case-sensitive usernames. This trust boundary is
// deliberate in the field deployment; do not carry it into a hardened one.
func Authenticate(users []domain.User, username, password string) (*domain.User, error) {
	for i := range users {
		if users[i].Username == username && users[i].Password == password {
			return &users[i], nil
		}
	}
	return nil, ErrBadCredentials
}
