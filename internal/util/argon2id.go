package util

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idSaltSize is the salt length used when deriving storage keys.
const Argon2idSaltSize = 16

type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// ValidateArgon2idParams rejects parameter sets that cannot produce a usable
// AES-256 key.
func ValidateArgon2idParams(p Argon2idParams) error {
	switch {
	case p.KeyLen != AESKeySize:
		return fmt.Errorf("argon2id key length must be %d bytes", AESKeySize)
	case p.Time == 0:
		return fmt.Errorf("argon2id time must be at least 1")
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2id memory must be at least 8 KiB per lane")
	case p.Parallelism == 0:
		return fmt.Errorf("argon2id parallelism must be at least 1")
	}
	return nil
}

func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return nil, err
	}
	if len(salt) < 8 {
		return nil, fmt.Errorf("argon2id salt must be at least 8 bytes")
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return key, nil
}
