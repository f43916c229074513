package client

import (
	"errors"
	"fmt"

	"github.com/jmcleod/jobboard/session"
)

var (
	// ErrUnauthorized indicates the session cannot be used and the user must
	// log in again. When it results from a failed renewal it wraps the
	// session error as well.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the authenticated user may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested job or application does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the backend refused a write as a duplicate.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyApplied indicates the user already has an application for the job.
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrUploadFailed indicates the resume could not be uploaded.
	ErrUploadFailed = errors.New("resume upload failed")
	// ErrInvalidArgument indicates a caller-side validation failure; no request was made.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNetworkFailure is the session package's transport failure, re-exported
	// so callers of this package need only one import.
	ErrNetworkFailure = session.ErrNetworkFailure
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// ExternalApplyError is returned by Apply for jobs that take applications on
// the company's own site.
type ExternalApplyError struct {
	JobID string
	URL   string
}

func (e *ExternalApplyError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("job %s must be applied to on the company website", e.JobID)
	}
	return fmt.Sprintf("job %s must be applied to on the company website: %s", e.JobID, e.URL)
}
