package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// AlgorithmArgon2id is the only key-derivation algorithm a vault may name.
	AlgorithmArgon2id = "Argon2id"

	// DefaultMemoryKiB and friends are the cost profile written into new vaults.
	DefaultMemoryKiB   = 131072
	DefaultTimeCost    = 3
	DefaultParallelism = 2
	DefaultKeyLen      = 32
	DefaultSaltLen     = 16

	minSaltLen   = 8
	maxSaltLen   = 64
	maxMemoryKiB = 1024 * 1024 // 1 GiB
	maxLanes     = 255
)

// ErrInvalidKDFParams reports a cost profile Argon2id cannot (or should not) run with.
var ErrInvalidKDFParams = errors.New("invalid kdf parameters")

// KDFParams captures tunable parameters for Argon2id.
type KDFParams struct {
	MemoryKiB   uint32
	TimeCost    uint32
	Parallelism uint32
	KeyLen      uint32
	SaltLen     uint32
}

// DefaultKDFParams returns the cost profile used when a vault is first created.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		MemoryKiB:   DefaultMemoryKiB,
		TimeCost:    DefaultTimeCost,
		Parallelism: DefaultParallelism,
		KeyLen:      DefaultKeyLen,
		SaltLen:     DefaultSaltLen,
	}
}

// Validate rejects parameters that are zero, below the Argon2 minimums, or so
// large that a tampered file could make us allocate unbounded memory.
func (p KDFParams) Validate() error {
	switch {
	case p.TimeCost == 0:
		return fmt.Errorf("%w: time cost must be positive", ErrInvalidKDFParams)
	case p.Parallelism == 0 || p.Parallelism > maxLanes:
		return fmt.Errorf("%w: parallelism must be between 1 and %d", ErrInvalidKDFParams, maxLanes)
	case p.MemoryKiB < 8*p.Parallelism:
		return fmt.Errorf("%w: memory cost must be at least %d KiB", ErrInvalidKDFParams, 8*p.Parallelism)
	case p.MemoryKiB > maxMemoryKiB:
		return fmt.Errorf("%w: memory cost exceeds %d KiB", ErrInvalidKDFParams, maxMemoryKiB)
	case p.KeyLen != KeySize:
		return fmt.Errorf("%w: key length must be %d bytes", ErrInvalidKDFParams, KeySize)
	case p.SaltLen < minSaltLen || p.SaltLen > maxSaltLen:
		return fmt.Errorf("%w: salt length must be between %d and %d bytes", ErrInvalidKDFParams, minSaltLen, maxSaltLen)
	}
	return nil
}

// DeriveKeyArgon2id derives a key using Argon2id with the provided parameters.
// The same password, salt and parameters always produce the same key.
func DeriveKeyArgon2id(password, salt []byte, p KDFParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if uint32(len(salt)) != p.SaltLen {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidKDFParams, p.SaltLen, len(salt))
	}

	key := argon2.IDKey(password, salt, p.TimeCost, p.MemoryKiB, uint8(p.Parallelism), p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// NewRandomSalt returns a cryptographically secure random salt of length n bytes.
func NewRandomSalt(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: salt length must be positive", ErrInvalidKDFParams)
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
