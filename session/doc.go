// Package session owns the client-side access/refresh token lifecycle.
//
// A Manager is the single source of truth for "are we logged in, and with
// what credential". It persists the token pair in an injected
// storage.Store under the keys "accessToken" and "refreshToken", derives
// the current State from what is stored, and renews the access token
// against the backend's refresh endpoint.
//
// Renewal is serialized: concurrent Refresh calls attach to the one
// in-flight request and all observe its single result. Credentials are
// cleared only when the backend explicitly rejects the refresh token;
// transport failures and timeouts leave them in place so the caller can
// retry.
package session
