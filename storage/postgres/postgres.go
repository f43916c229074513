// Package postgres implements storage.Store backed by PostgreSQL.
//
// All namespaces share the session_kv table; the composite primary key
// (namespace, key) mirrors the bucket-per-namespace layout of the BBolt
// backend. A shared table lets several machines pointed at the same
// database observe one token pair per API origin.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/jobboard/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	ownsPool  bool
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store for namespace backed by the given pgx connection
// pool. The caller keeps ownership of the pool.
func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	return &Store{pool: pool, namespace: namespace}
}

// NewStoreFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Store. Close releases the pool.
func NewStoreFromDSN(ctx context.Context, dsn, namespace string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	s := NewStore(pool, namespace)
	s.ownsPool = true
	return s, nil
}

// Close closes the underlying connection pool if the store created it.
func (s *Store) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
}

const (
	upsertSQL = `INSERT INTO session_kv (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = $3, updated_at = now()`
	deleteSQL = `DELETE FROM session_kv WHERE namespace = $1 AND key = $2`
)

func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.pool.QueryRow(context.Background(),
		`SELECT value FROM session_kv WHERE namespace = $1 AND key = $2`,
		s.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	_, err := s.pool.Exec(context.Background(), upsertSQL, s.namespace, key, value)
	return err
}

func (s *Store) Remove(key string) error {
	_, err := s.pool.Exec(context.Background(), deleteSQL, s.namespace, key)
	return err
}

func (s *Store) Batch(fn func(tx storage.Tx) error) error {
	ctx := context.Background()
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgBatchTx{ctx: ctx, tx: pgTx, namespace: s.namespace}); err != nil {
		return err
	}
	return pgTx.Commit(ctx)
}

type pgBatchTx struct {
	ctx       context.Context
	tx        pgx.Tx
	namespace string
}

var _ storage.Tx = (*pgBatchTx)(nil)

func (btx *pgBatchTx) Set(key, value string) error {
	_, err := btx.tx.Exec(btx.ctx, upsertSQL, btx.namespace, key, value)
	return err
}

func (btx *pgBatchTx) Remove(key string) error {
	_, err := btx.tx.Exec(btx.ctx, deleteSQL, btx.namespace, key)
	return err
}
