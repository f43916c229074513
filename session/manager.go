package session

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
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jmcleod/jobboard/internal/httpx"
	"github.com/jmcleod/jobboard/storage"
)

// Storage keys for the token pair.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

const (
	// RefreshPath is the backend endpoint that exchanges a refresh token for
	// a new access token.
	RefreshPath = "/api/auth/refresh-token"

	// DefaultRefreshTimeout bounds a single renewal request.
	DefaultRefreshTimeout = 10 * time.Second

	refreshFlightKey = "refresh"
	maxRefreshBody   = 1 << 20
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Manager owns the token pair for one backend origin.
type Manager struct {
	store      storage.Store
	refreshURL string
	httpClient httpx.Doer
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *Metrics

	// mu serializes writes to the token pair so that a renewal result never
	// lands on top of a pair written by a concurrent login or logout.
	mu       sync.Mutex
	group    singleflight.Group
	inflight atomic.Int32
	user     atomic.Pointer[User]
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for renewal requests.
func WithHTTPClient(c httpx.Doer) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithRefreshTimeout bounds each renewal request. Non-positive values keep
// the default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the structured logger.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records renewal outcomes on m.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New creates a Manager persisting tokens in store and renewing them against
// baseURL + RefreshPath.
func New(store storage.Store, baseURL string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("session: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("session: base URL must be http or https, got %q", baseURL)
	}
	m := &Manager{
		store:      store,
		refreshURL: u.String() + RefreshPath,
		httpClient: http.DefaultClient,
		timeout:    DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	m.logger = m.logger.With("component", "session")
	return m, nil
}

// SetTokens persists both tokens, overwriting any prior pair and forgetting
// the validated user. An empty value leaves that token absent.
func (m *Manager) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user.Store(nil)
	if err := m.writePair(access, refresh); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	return nil
}

// AccessToken returns the persisted access token, or "" if none exists.
func (m *Manager) AccessToken() string {
	return m.read(AccessTokenKey)
}

// RefreshToken returns the persisted refresh token, or "" if none exists.
func (m *Manager) RefreshToken() string {
	return m.read(RefreshTokenKey)
}

// ClearTokens removes both tokens and forgets the validated user. Calling it
// with no tokens present is a no-op.
func (m *Manager) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked()
}

// State derives the current authentication state.
func (m *Manager) State() State {
	if m.Renewing() {
		return Renewing
	}
	if m.AccessToken() == "" {
		return Unauthenticated
	}
	return Authenticated
}

// Renewing reports whether a renewal request is in flight.
func (m *Manager) Renewing() bool {
	return m.inflight.Load() > 0
}

// User returns the user last validated against the backend, or nil.
func (m *Manager) User() *User {
	return m.user.Load()
}

// SetUser records u as the validated identity for the current tokens.
func (m *Manager) SetUser(u *User) {
	m.user.Store(u)
}

// Refresh exchanges the refresh token for a new access token and returns it.
//
// Concurrent callers share one renewal request. The request itself is not
// tied to ctx: a caller that gives up returns early with ErrNetworkFailure
// while the renewal completes for everyone else.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if m.RefreshToken() == "" {
		m.metrics.observe(resultNoToken)
		return "", ErrNoRefreshToken
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(refreshFlightKey, func() (any, error) {
		return m.renew(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrNetworkFailure, ctx.Err())
	}
}

func (m *Manager) renew(ctx context.Context) (string, error) {
	m.inflight.Add(1)
	m.metrics.begin()
	defer func() {
		m.metrics.end()
		m.inflight.Add(-1)
	}()

	// Re-read inside the flight: a logout may have landed since Refresh checked.
	refresh := m.RefreshToken()
	if refresh == "" {
		m.metrics.observe(resultNoToken)
		return "", ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	payload, err := json.Marshal(refreshRequest{RefreshToken: refresh})
	if err != nil {
		return "", fmt.Errorf("encoding refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.observe(resultNetwork)
		m.logger.Warn("token renewal failed", "reason", "transport", "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer httpx.Drain(resp)

	if !httpx.IsSuccess(resp.StatusCode) {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: httpx.ErrorMessage(resp)}
		m.discard(refresh)
		m.metrics.observe(resultRejected)
		m.logger.Warn("token renewal rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: %w", ErrRefreshRejected, statusErr)
	}

	var out refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRefreshBody)).Decode(&out); err != nil {
		if !malformedBody(err) {
			m.metrics.observe(resultNetwork)
			m.logger.Warn("token renewal failed", "reason", "reading body", "error", err, "elapsed", time.Since(start))
			return "", fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		m.metrics.observe(resultInvalid)
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if out.AccessToken == "" {
		m.metrics.observe(resultInvalid)
		return "", fmt.Errorf("%w: missing accessToken", ErrInvalidResponse)
	}

	token, err := m.commit(refresh, out)
	if err != nil {
		return "", err
	}
	m.logger.Info("access token renewed", "rotated", out.RefreshToken != "", "elapsed", time.Since(start))
	return token, nil
}

// malformedBody reports whether a decode error came from the body's content
// rather than from reading it. An empty body counts as malformed; a body cut
// short mid-value does not.
func malformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF)
}

// commit stores a renewal result unless the pair was replaced while the
// request was in flight.
func (m *Manager) commit(used string, out refreshResponse) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.read(RefreshTokenKey); current != used {
		m.metrics.observe(resultSuperseded)
		if current == "" {
			return "", ErrNoRefreshToken
		}
		m.logger.Info("renewal result discarded; tokens replaced during renewal")
		return m.read(AccessTokenKey), nil
	}

	next := used
	if out.RefreshToken != "" {
		next = out.RefreshToken
	}
	if err := m.writePair(out.AccessToken, next); err != nil {
		return "", fmt.Errorf("storing renewed token: %w", err)
	}
	m.metrics.observe(resultSuccess)
	return out.AccessToken, nil
}

// discard clears the pair after a rejection, unless it was already replaced.
func (m *Manager) discard(used string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.read(RefreshTokenKey) != used {
		return
	}
	if err := m.clearLocked(); err != nil {
		m.logger.Error("clearing rejected tokens", "error", err)
	}
}

func (m *Manager) clearLocked() error {
	m.user.Store(nil)
	err := m.store.Batch(func(tx storage.Tx) error {
		if err := tx.Remove(AccessTokenKey); err != nil {
			return err
		}
		return tx.Remove(RefreshTokenKey)
	})
	if err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	return nil
}

func (m *Manager) writePair(access, refresh string) error {
	return m.store.Batch(func(tx storage.Tx) error {
		if err := putOrRemove(tx, AccessTokenKey, access); err != nil {
			return err
		}
		return putOrRemove(tx, RefreshTokenKey, refresh)
	})
}

func putOrRemove(tx storage.Tx, key, value string) error {
	if value == "" {
		return tx.Remove(key)
	}
	return tx.Set(key, value)
}

func (m *Manager) read(key string) string {
	v, err := storage.Lookup(m.store, key)
	if err != nil {
		m.logger.Error("reading token", "key", key, "error", err)
		return ""
	}
	return v
}
