// Package sealed wraps a storage.Store so that every value is encrypted at
// rest with AES-256-GCM. The data key is derived from a passphrase with
// Argon2id and is only ever held in a memguard Enclave, so a copy of the
// backing store (a bbolt file, a database dump) does not reveal tokens.
package sealed

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/awnumar/memguard"

	icrypto "github.com/jmcleod/jobboard/internal/crypto"
	"github.com/jmcleod/jobboard/internal/util"
	"github.com/jmcleod/jobboard/storage"
)

const (
	saltKey     = "__seal_salt"
	checkKey    = "__seal_check"
	checkValue  = "jobboard:seal-check:v1"
	sealVersion = 1
	reservedPfx = "__seal_"
)

var (
	// ErrWrongPassphrase is returned when the passphrase does not match the
	// one the backing store was sealed with.
	ErrWrongPassphrase = errors.New("sealed store: wrong passphrase")
	// ErrReservedKey is returned for keys in the store's own namespace.
	ErrReservedKey = errors.New("sealed store: reserved key")
)

// Store implements storage.Store by sealing values before they reach inner.
type Store struct {
	inner  storage.Store
	params util.Argon2idParams

	mu  sync.RWMutex
	key *memguard.Enclave
}

var _ storage.Store = (*Store)(nil)

// Option configures a sealed Store.
type Option func(*Store)

// WithArgon2idParams overrides the key derivation cost.
func WithArgon2idParams(p util.Argon2idParams) Option {
	return func(s *Store) {
		s.params = p
	}
}

// New derives the data key for inner from passphrase. On first use a random
// salt and a check value are written to inner; later opens verify the
// passphrase against the check value and fail with ErrWrongPassphrase.
func New(inner storage.Store, passphrase string, opts ...Option) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("sealed store: passphrase is required")
	}
	s := &Store{inner: inner, params: util.DefaultArgon2idParams()}
	for _, opt := range opts {
		opt(s)
	}

	salt, fresh, err := s.loadOrCreateSalt()
	if err != nil {
		return nil, err
	}
	key, err := util.DeriveArgon2idKey(passphrase, salt, s.params)
	if err != nil {
		return nil, fmt.Errorf("deriving data key: %w", err)
	}
	defer util.WipeBytes(key)

	if fresh {
		if err := s.writeCheck(key); err != nil {
			return nil, err
		}
	} else if err := s.verifyCheck(key); err != nil {
		return nil, err
	}

	s.key = memguard.NewEnclave(util.CopyBytes(key))
	return s, nil
}

// NewWithKey wraps inner with a caller-supplied 32-byte data key. No salt
// or check value is written.
func NewWithKey(inner storage.Store, key []byte) (*Store, error) {
	if len(key) != util.AESKeySize {
		return nil, fmt.Errorf("sealed store: key must be exactly %d bytes, got %d", util.AESKeySize, len(key))
	}
	return &Store{
		inner: inner,
		key:   memguard.NewEnclave(util.CopyBytes(key)),
	}, nil
}

// Close drops the data key. Subsequent calls fail with storage.ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.key = nil
	s.mu.Unlock()
}

func (s *Store) loadOrCreateSalt() ([]byte, bool, error) {
	encoded, err := s.inner.Get(saltKey)
	if err == nil {
		salt, err := base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, false, fmt.Errorf("decoding seal salt: %w", err)
		}
		return salt, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("loading seal salt: %w", err)
	}

	salt, err := util.RandomBytes(util.Argon2idSaltSize)
	if err != nil {
		return nil, false, err
	}
	if err := s.inner.Set(saltKey, base64.RawStdEncoding.EncodeToString(salt)); err != nil {
		return nil, false, fmt.Errorf("persisting seal salt: %w", err)
	}
	return salt, true, nil
}

func (s *Store) writeCheck(key []byte) error {
	v, err := seal(key, checkKey, checkValue)
	if err != nil {
		return err
	}
	if err := s.inner.Set(checkKey, v); err != nil {
		return fmt.Errorf("persisting seal check: %w", err)
	}
	return nil
}

func (s *Store) verifyCheck(key []byte) error {
	v, err := s.inner.Get(checkKey)
	if errors.Is(err, storage.ErrNotFound) {
		// Salt written but check lost (interrupted first open): re-arm.
		return s.writeCheck(key)
	}
	if err != nil {
		return fmt.Errorf("loading seal check: %w", err)
	}
	got, err := open(key, checkKey, v)
	if err != nil || got != checkValue {
		return ErrWrongPassphrase
	}
	return nil
}

func aadFor(name string) []byte {
	if name == checkKey {
		return icrypto.AADCheck(sealVersion)
	}
	return icrypto.AADValue(name, sealVersion)
}

func seal(key []byte, name, value string) (string, error) {
	env, err := storage.Seal(key, []byte(value), aadFor(name))
	if err != nil {
		return "", fmt.Errorf("sealing %s: %w", name, err)
	}
	return env.Encode()
}

func open(key []byte, name, encoded string) (string, error) {
	env, err := storage.DecodeEnvelope(encoded)
	if err != nil {
		return "", err
	}
	plain, err := storage.Open(key, env, aadFor(name))
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", name, err)
	}
	defer util.WipeBytes(plain)
	return string(plain), nil
}

// withKey opens the enclave for the duration of fn.
func (s *Store) withKey(fn func(key []byte) error) error {
	s.mu.RLock()
	enclave := s.key
	s.mu.RUnlock()
	if enclave == nil {
		return storage.ErrClosed
	}
	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("opening data key: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

func checkKeyName(key string) error {
	if strings.HasPrefix(key, reservedPfx) {
		return fmt.Errorf("%s: %w", key, ErrReservedKey)
	}
	return nil
}

func (s *Store) Get(key string) (string, error) {
	if err := checkKeyName(key); err != nil {
		return "", err
	}
	encoded, err := s.inner.Get(key)
	if err != nil {
		return "", err
	}
	var value string
	err = s.withKey(func(k []byte) error {
		var err error
		value, err = open(k, key, encoded)
		return err
	})
	return value, err
}

func (s *Store) Set(key, value string) error {
	if err := checkKeyName(key); err != nil {
		return err
	}
	return s.withKey(func(k []byte) error {
		encoded, err := seal(k, key, value)
		if err != nil {
			return err
		}
		return s.inner.Set(key, encoded)
	})
}

func (s *Store) Remove(key string) error {
	if err := checkKeyName(key); err != nil {
		return err
	}
	return s.inner.Remove(key)
}

func (s *Store) Batch(fn func(tx storage.Tx) error) error {
	return s.withKey(func(k []byte) error {
		return s.inner.Batch(func(tx storage.Tx) error {
			return fn(&sealedTx{inner: tx, key: k})
		})
	})
}

type sealedTx struct {
	inner storage.Tx
	key   []byte
}

func (tx *sealedTx) Set(key, value string) error {
	if err := checkKeyName(key); err != nil {
		return err
	}
	encoded, err := seal(tx.key, key, value)
	if err != nil {
		return err
	}
	return tx.inner.Set(key, encoded)
}

func (tx *sealedTx) Remove(key string) error {
	if err := checkKeyName(key); err != nil {
		return err
	}
	return tx.inner.Remove(key)
}
