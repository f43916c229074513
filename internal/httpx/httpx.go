// Package httpx holds small HTTP helpers shared by the session manager and
// the API client.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// MaxErrorBody bounds how much of an error response is read.
const MaxErrorBody = 64 << 10

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ErrorMessage extracts a human-readable message from an error response.
// JSON bodies of the form {"message": ...} or {"error": ...} are preferred;
// otherwise a trimmed plain-text body is used, falling back to the status
// text. The body is consumed but not closed.
func ErrorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") && len(text) <= 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// Drain discards the remainder of a response body so the connection can be
// reused, then closes it.
func Drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxErrorBody))
	resp.Body.Close()
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
