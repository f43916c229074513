// Package storage provides the key/value abstraction that backs persisted
// session state such as the access/refresh token pair.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("store closed")
)

// Tx provides Set and Remove within an atomic batch.
type Tx interface {
	Set(key, value string) error
	Remove(key string) error
}

// Store defines the interface for namespaced key/value storage. A store is
// bound to one namespace at construction; keys never leak across namespaces.
//
// Remove of a missing key is a no-op so that callers can clear state
// idempotently.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Batch(fn func(tx Tx) error) error
}

// Lookup reads key and folds ErrNotFound into the empty string.
func Lookup(s Store, key string) (string, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
