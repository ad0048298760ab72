package cryptoprim

import (
	"crypto/subtle"
	"encoding/base64"

	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/confpass-app/confpass/krypto"
)

// Verifier is the stored Argon2id hash used only to check a supplied master
// password; it never participates in data-key derivation.
type Verifier struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
}

// NewVerifier derives an Argon2id verifier for password using the spec's
// fixed parameters (memory=65536 KiB, iterations=3, parallelism=4).
func NewVerifier(password string) (Verifier, error) {
	params := krypto.DefaultArgon2Params()
	salt, err := krypto.NewRandomSalt(params.SaltLen)
	if err != nil {
		return Verifier{}, vaulterr.Internal("generate verifier salt", err)
	}
	hash, err := krypto.DeriveKeyArgon2id([]byte(password), salt, params)
	if err != nil {
		return Verifier{}, vaulterr.Internal("derive verifier hash", err)
	}
	return Verifier{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Hash: base64.StdEncoding.EncodeToString(hash),
	}, nil
}

// Check reports whether password matches the stored verifier. It does not
// distinguish "wrong password" from a corrupt verifier to the caller.
func (v Verifier) Check(password string) bool {
	salt, err := base64.StdEncoding.DecodeString(v.Salt)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(v.Hash)
	if err != nil {
		return false
	}
	params := krypto.DefaultArgon2Params()
	params.SaltLen = len(salt)
	got, err := krypto.DeriveKeyArgon2id([]byte(password), salt, params)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// DeriveDataKey derives the vault's AES-256-GCM data-encryption key directly
// from the master password and the persisted vault.salt, per §4.1. This is
// independent of the verifier above: the data key is what decrypts vault.dat,
// and unlocking checks a password only by whether that decryption succeeds;
// the verifier is not consulted.
func DeriveDataKey(password string, salt []byte) ([]byte, error) {
	key, err := krypto.DeriveDataKeyPBKDF2([]byte(password), salt)
	if err != nil {
		return nil, vaulterr.WrongPassword()
	}
	return key, nil
}

// NewDataKeySalt returns a fresh 32-byte CSPRNG salt for the vault's data key.
func NewDataKeySalt() ([]byte, error) {
	salt, err := krypto.NewRandomSalt(krypto.PBKDF2SaltLen)
	if err != nil {
		return nil, vaulterr.Internal("generate data key salt", err)
	}
	return salt, nil
}
