package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Credentials identify an existing account.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration describes a new account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// Login authenticates and stores the returned token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}
	return c.authenticate(ctx, "/api/auth/login", creds)
}

// Signup registers an account and stores the returned token pair.
func (c *Client) Signup(ctx context.Context, reg Registration) (*User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidArgument)
	}
	return c.authenticate(ctx, "/api/auth/register", reg)
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (*User, error) {
	var out authResponse
	if err := c.doJSON(ctx, http.MethodPost, path, in, &out, false); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%s: response is missing accessToken", path)
	}
	if err := c.session.SetTokens(out.AccessToken, out.RefreshToken); err != nil {
		return nil, err
	}
	if out.User != nil {
		c.session.SetUser(out.User)
	}
	return out.User, nil
}

// Logout tells the backend to revoke the refresh token and clears the local
// pair. The server call is best-effort: local tokens are cleared even when it
// fails, and only a failure to clear is returned.
func (c *Client) Logout(ctx context.Context) error {
	if refresh := c.session.RefreshToken(); refresh != "" {
		err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": refresh}, nil, false)
		if err != nil {
			c.logger.Warn("server logout failed; clearing local session anyway", "error", err)
		}
	}
	return c.session.ClearTokens()
}

// Profile fetches the current user and records it on the session.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	r, err := jsonRequest(http.MethodGet, "/api/auth/me", nil, true)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return nil, err
	}
	var u User
	if err := unwrapEnvelope(raw, "user", &u); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if u.ID == "" && u.Email == "" {
		return nil, errors.New("decoding profile: response carries no user")
	}
	c.session.SetUser(&u)
	return &u, nil
}

// CurrentUser returns the validated user, fetching the profile when none is
// known yet.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if u := c.session.User(); u != nil {
		return u, nil
	}
	return c.Profile(ctx)
}
