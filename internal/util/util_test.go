package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAES(t *testing.T) {
	key, err := NewAESKey()
	require.NoError(t, err)
	require.Len(t, key, AESKeySize)

	plain := []byte("refresh-token-value")
	aad := []byte("jobboard:refreshToken")

	sealed, err := EncryptAESWithAAD(plain, key, aad)
	require.NoError(t, err)
	assert.Len(t, sealed, GCMNonceSize+len(plain)+16)

	opened, err := DecryptAESWithAAD(sealed, key, aad)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)

	t.Run("WrongAAD", func(t *testing.T) {
		_, err := DecryptAESWithAAD(sealed, key, []byte("other"))
		assert.Error(t, err)
	})

	t.Run("ShortKey", func(t *testing.T) {
		_, err := EncryptAESWithAAD(plain, key[:16], aad)
		assert.Error(t, err)
	})

	t.Run("TruncatedCiphertext", func(t *testing.T) {
		_, err := DecryptAESWithAAD(sealed[:4], key, aad)
		assert.Error(t, err)
	})

	t.Run("FreshNonce", func(t *testing.T) {
		again, err := EncryptAESWithAAD(plain, key, aad)
		require.NoError(t, err)
		assert.False(t, bytes.Equal(sealed, again))
	})
}

func TestArgon2id(t *testing.T) {
	params := Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32}
	salt := []byte("0123456789abcdef")

	k1, err := DeriveArgon2idKey("passphrase", salt, params)
	require.NoError(t, err)
	require.Len(t, k1, 32)

	k2, err := DeriveArgon2idKey("passphrase", salt, params)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveArgon2idKey("other", salt, params)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = DeriveArgon2idKey("passphrase", []byte("short"), params)
	assert.Error(t, err)
}

func TestValidateArgon2idParams(t *testing.T) {
	assert.NoError(t, ValidateArgon2idParams(DefaultArgon2idParams()))
	assert.Error(t, ValidateArgon2idParams(Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 16}))
	assert.Error(t, ValidateArgon2idParams(Argon2idParams{Time: 0, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32}))
	assert.Error(t, ValidateArgon2idParams(Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 0, KeyLen: 32}))
	assert.Error(t, ValidateArgon2idParams(Argon2idParams{Time: 1, MemoryKiB: 4, Parallelism: 1, KeyLen: 32}))
}

func TestBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	cp := CopyBytes(src)
	assert.Equal(t, src, cp)
	cp[0] = 9
	assert.Equal(t, byte(1), src[0])

	WipeBytes(cp)
	assert.Equal(t, []byte{0, 0, 0}, cp)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Golang", NormalizeText("  Ｇｏｌａｎｇ "))
	assert.Equal(t, "file", NormalizeText("ﬁle"))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestRandom(t *testing.T) {
	a, err := RandomBytes(16)
	require.NoError(t, err)
	b, err := RandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
