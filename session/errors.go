package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken indicates there is no credential to renew with. The
	// caller must send the user back to login.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshRejected indicates the backend refused the refresh token
	// (revoked or expired). Both tokens have been cleared.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrNetworkFailure indicates the refresh endpoint could not be reached
	// or did not answer in time. Tokens are left untouched; retrying is safe.
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidResponse indicates a 2xx refresh response without a usable
	// access token. Tokens are left untouched.
	ErrInvalidResponse = errors.New("invalid refresh response")
)

// StatusError carries the HTTP status and server message of a rejected
// refresh. It is wrapped together with ErrRefreshRejected.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Kind classifies a renewal error so callers can decide between retrying,
// redirecting to login, or surfacing a message.
type Kind int

const (
	KindNone Kind = iota
	KindNoRefreshToken
	KindRefreshRejected
	KindNetworkFailure
	KindInvalidResponse
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoRefreshToken:
		return "no_refresh_token"
	case KindRefreshRejected:
		return "refresh_rejected"
	case KindNetworkFailure:
		return "network_failure"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// KindOf returns the Kind of err. A nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoRefreshToken):
		return KindNoRefreshToken
	case errors.Is(err, ErrRefreshRejected):
		return KindRefreshRejected
	case errors.Is(err, ErrNetworkFailure):
		return KindNetworkFailure
	case errors.Is(err, ErrInvalidResponse):
		return KindInvalidResponse
	default:
		return KindUnknown
	}
}

// RequiresLogin reports whether err means the session cannot be recovered
// without a fresh login.
func RequiresLogin(err error) bool {
	k := KindOf(err)
	return k == KindNoRefreshToken || k == KindRefreshRejected
}
