package gateway

import (
	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/session"
)

// SessionResponse describes the gateway's session. Tokens are never exposed.
type SessionResponse struct {
	State    session.State `json:"state"`
	Renewing bool          `json:"renewing"`
	User     *session.User `json:"user,omitempty"`
	Admin    bool          `json:"admin"`
	Redirect string        `json:"redirect,omitempty"`
}

// LoginRequest is the body of POST /session/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ApplyJSONRequest is the JSON form of POST /jobs/{jobID}/apply, used when
// no resume is attached.
type ApplyJSONRequest struct {
	CoverLetter string `json:"coverLetter"`
}

// continueWithoutResumeField is the multipart field that lets an
// application go ahead when the resume upload fails.
const continueWithoutResumeField = "continueWithoutResume"

// ApplicationsResponse lists the user's applications.
type ApplicationsResponse struct {
	Applications []client.Application `json:"applications"`
}
