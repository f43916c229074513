// Package bbolt provides a BBolt-backed storage store. Values survive
// process restarts, which makes it the default for the CLI.
package bbolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/jobboard/storage"
)

// Store implements storage.Store backed by a BBolt database. Each namespace
// is a top-level bucket.
type Store struct {
	db        *bbolt.DB
	namespace []byte
	ownsDB    bool
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store for namespace backed by the given BBolt database.
// The caller keeps ownership of db.
func NewStore(db *bbolt.DB, namespace string) (*Store, error) {
	if namespace == "" {
		return nil, errors.New("bbolt store: namespace is required")
	}
	s := &Store{db: db, namespace: []byte(namespace)}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.namespace)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %q: %w", namespace, err)
	}
	return s, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a
// Store for namespace. Close releases the database.
func NewStoreFromFile(path, namespace string, options *bbolt.Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db, namespace)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// Close closes the underlying BBolt database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Store) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket(s.namespace)
	if b == nil {
		return nil, fmt.Errorf("bucket %q missing", s.namespace)
	}
	return b, nil
}

func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		// data is only valid for the life of the transaction.
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *Store) Remove(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

type boltTx struct {
	bucket *bbolt.Bucket
}

func (tx *boltTx) Set(key, value string) error {
	return tx.bucket.Put([]byte(key), []byte(value))
}

func (tx *boltTx) Remove(key string) error {
	return tx.bucket.Delete([]byte(key))
}

// Batch runs fn inside a single read-write transaction; returning an error
// from fn rolls every write back.
func (s *Store) Batch(fn func(tx storage.Tx) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return fn(&boltTx{bucket: b})
	})
}
