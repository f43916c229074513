package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/session"
)

// LoginPath is where callers are sent when the session cannot be renewed.
const LoginPath = "/login"

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error     string `json:"error"`
	Redirect  string `json:"redirect,omitempty"`
	ApplyLink string `json:"applyLink,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	var external *client.ExternalApplyError
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized) || session.RequiresLogin(err):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Redirect: LoginPath})
	case errors.Is(err, client.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &external):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), ApplyLink: external.URL})
	case errors.Is(err, client.ErrAlreadyApplied), errors.Is(err, client.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, client.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, client.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNetworkFailure),
		errors.Is(err, session.ErrInvalidResponse),
		errors.Is(err, client.ErrUploadFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, apiErr.StatusCode, apiErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
