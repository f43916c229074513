// Package client is a typed client for the job board backend. It attaches
// the session's access token to every request and, when the backend answers
// 401, renews the token through the session manager and replays the request
// once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jmcleod/jobboard/internal/httpx"
	"github.com/jmcleod/jobboard/internal/uuid"
	"github.com/jmcleod/jobboard/session"
)

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const (
	defaultUserAgent = "jobboard-client/1"
	maxResponseBody  = 8 << 20
)

// Client talks to one backend origin on behalf of one session.
type Client struct {
	baseURL    string
	session    *session.Manager
	httpClient httpx.Doer
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for API requests.
func WithHTTPClient(c httpx.Doer) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the structured logger.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// New creates a Client for baseURL using sess for tokens.
func New(baseURL string, sess *session.Manager, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("client: session manager is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base URL must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL:    u.String(),
		session:    sess,
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	c.logger = c.logger.With("component", "client")
	return c, nil
}

// Session returns the manager backing c.
func (c *Client) Session() *session.Manager {
	return c.session
}

// request is a buffered API call that can be replayed after a renewal.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	// protected requests need a session; a 401 triggers one renewal.
	protected bool
}

func jsonRequest(method, path string, in any, protected bool) (request, error) {
	r := request{method: method, path: path, protected: protected}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return r, fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		r.body = data
		r.contentType = "application/json"
	}
	return r, nil
}

// send performs r, renewing the access token and replaying once on 401. The
// returned response is always a non-401 for protected requests.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	if r.protected && c.session.AccessToken() == "" {
		if err := c.renew(ctx); err != nil {
			return nil, err
		}
	}

	resp, sent, err := c.attempt(ctx, r)
	if err != nil {
		return nil, err
	}
	if !r.protected || resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	httpx.Drain(resp)

	// Another request may have renewed the pair after this one went out.
	if current := c.session.AccessToken(); current == "" || current == sent {
		if err := c.renew(ctx); err != nil {
			return nil, err
		}
	}
	resp, _, err = c.attempt(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: httpx.ErrorMessage(resp)}
		httpx.Drain(resp)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	}
	return resp, nil
}

func (c *Client) renew(ctx context.Context) error {
	_, err := c.session.Refresh(ctx)
	if err == nil {
		return nil
	}
	if session.RequiresLogin(err) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

// attempt sends r once and reports the access token it carried.
func (c *Client) attempt(ctx context.Context, r request) (*http.Response, string, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("building %s %s request: %w", r.method, r.path, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	reqID := uuid.New()
	req.Header.Set(RequestIDHeader, reqID)
	token := c.session.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", r.method, "path", r.path, "request_id", reqID, "error", err)
		return nil, "", fmt.Errorf("%w: %s %s: %w", ErrNetworkFailure, r.method, r.path, err)
	}
	c.logger.Debug("request completed",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)
	return resp, token, nil
}

// do sends r and decodes a 2xx JSON body into out (unless out is nil). An
// empty body is accepted for 204 responses and for *json.RawMessage targets,
// which are left empty.
func (c *Client) do(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer httpx.Drain(resp)
	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s response: %w", ErrNetworkFailure, r.method, r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if _, raw := out.(*json.RawMessage); raw || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, io.EOF)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, protected bool) error {
	r, err := jsonRequest(method, path, in, protected)
	if err != nil {
		return err
	}
	return c.do(ctx, r, out)
}

// checkResponse maps a non-2xx response onto the package's errors.
func checkResponse(resp *http.Response) error {
	if httpx.IsSuccess(resp.StatusCode) {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: httpx.ErrorMessage(resp)}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrConflict, apiErr)
	}
	return apiErr
}

// unwrapEnvelope decodes data into out, accepting either the bare object or
// the object nested under key.
func unwrapEnvelope(data json.RawMessage, key string, out any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if inner, ok := env[key]; ok && len(inner) > 0 && inner[0] == '{' {
		return json.Unmarshal(inner, out)
	}
	return json.Unmarshal(data, out)
}

func escapeID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s id is required", ErrInvalidArgument, kind)
	}
	return url.PathEscape(id), nil
}
