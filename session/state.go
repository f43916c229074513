package session

import (
	"fmt"
	"strings"
)

// State is the derived authentication state. It is never stored.
type State int

const (
	// Unauthenticated means no access token is present.
	Unauthenticated State = iota
	// Authenticated means an access token is present.
	Authenticated
	// Renewing means a refresh request is in flight.
	Renewing
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Renewing:
		return "renewing"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unauthenticated":
		*s = Unauthenticated
	case "authenticated":
		*s = Authenticated
	case "renewing":
		*s = Renewing
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// User is the identity last validated against the backend, either by a
// profile fetch or by a login response.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// IsAdmin reports whether the user may use the admin views. Accounts with
// an "admin" role qualify, as do accounts whose email contains "admin".
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.Role, "admin") || strings.Contains(strings.ToLower(u.Email), "admin")
}
