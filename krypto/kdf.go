package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

// DefaultArgon2Params returns the master-password verifier parameters: memory
// 65536 KiB, 3 iterations, 4-way parallelism, 16-byte salt, 32-byte output.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKB:    65536,
		Time:        3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// DeriveKeyArgon2id derives a key using Argon2id with the provided parameters.
func DeriveKeyArgon2id(password []byte, salt []byte, p Argon2Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password is required")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	if p.KeyLen == 0 {
		return nil, errors.New("key length must be positive")
	}
	if p.MemoryKB == 0 {
		return nil, errors.New("memory parameter must be positive")
	}
	if p.Time == 0 {
		return nil, errors.New("time parameter must be positive")
	}

	key := argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Parallelism, p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// NewRandomSalt returns a cryptographically secure random salt of length n bytes.
func NewRandomSalt(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("salt length must be positive")
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
