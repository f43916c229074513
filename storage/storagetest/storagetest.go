// Package storagetest holds the conformance suite every storage.Store
// backend must pass.
package storagetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/jobboard/storage"
)

// Run exercises store against the storage.Store contract. The store must
// start empty.
func Run(t *testing.T, store storage.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get("missing")
		require.ErrorIs(t, err, storage.ErrNotFound)

		v, err := storage.Lookup(store, "missing")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set("accessToken", "a-1"))
		got, err := store.Get("accessToken")
		require.NoError(t, err)
		assert.Equal(t, "a-1", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set("ow", "v1"))
		require.NoError(t, store.Set("ow", "v2"))
		got, err := store.Get("ow")
		require.NoError(t, err)
		assert.Equal(t, "v2", got)
	})

	t.Run("EmptyValue", func(t *testing.T) {
		require.NoError(t, store.Set("empty", ""))
		got, err := store.Get("empty")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Set("rm", "x"))
		require.NoError(t, store.Remove("rm"))
		_, err := store.Get("rm")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RemoveMissingIsNoop", func(t *testing.T) {
		require.NoError(t, store.Remove("never-existed"))
		require.NoError(t, store.Remove("never-existed"))
	})

	t.Run("BatchCommit", func(t *testing.T) {
		err := store.Batch(func(tx storage.Tx) error {
			if err := tx.Set("b1", "one"); err != nil {
				return err
			}
			return tx.Set("b2", "two")
		})
		require.NoError(t, err)
		v1, err := store.Get("b1")
		require.NoError(t, err)
		v2, err := store.Get("b2")
		require.NoError(t, err)
		assert.Equal(t, "one", v1)
		assert.Equal(t, "two", v2)
	})

	t.Run("BatchRemove", func(t *testing.T) {
		require.NoError(t, store.Set("br1", "x"))
		err := store.Batch(func(tx storage.Tx) error {
			if err := tx.Remove("br1"); err != nil {
				return err
			}
			return tx.Remove("br-missing")
		})
		require.NoError(t, err)
		_, err = store.Get("br1")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("BatchRollback", func(t *testing.T) {
		require.NoError(t, store.Set("rb", "before"))
		boom := errors.New("boom")
		err := store.Batch(func(tx storage.Tx) error {
			if err := tx.Set("rb", "after"); err != nil {
				return err
			}
			if err := tx.Set("rb-new", "x"); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Get("rb")
		require.NoError(t, err)
		assert.Equal(t, "before", got)
		_, err = store.Get("rb-new")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ConcurrentSet", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Set(fmt.Sprintf("c-%d", i), "v"))
			}()
		}
		wg.Wait()
		for i := range 16 {
			got, err := store.Get(fmt.Sprintf("c-%d", i))
			require.NoError(t, err)
			assert.Equal(t, "v", got)
		}
	})
}
