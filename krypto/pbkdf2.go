package krypto

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Iterations and PBKDF2KeyLen fix the vault data-encryption key derivation
// parameters: 100,000 rounds of HMAC-SHA256 over the master password and a
// 32-byte salt, yielding a 32-byte key.
const (
	PBKDF2Iterations = 100_000
	PBKDF2KeyLen     = 32
	PBKDF2SaltLen    = 32
)

// DeriveDataKeyPBKDF2 derives the vault's AES-256-GCM key directly from the
// master password, without an intermediate wrapped key.
func DeriveDataKeyPBKDF2(password []byte, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password is required")
	}
	if len(salt) != PBKDF2SaltLen {
		return nil, errors.New("salt must be 32 bytes")
	}
	return pbkdf2.Key(password, salt, PBKDF2Iterations, PBKDF2KeyLen, sha256.New), nil
}
