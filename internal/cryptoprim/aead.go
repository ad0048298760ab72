// Package cryptoprim provides the vault's cryptographic building blocks: the
// master-password verifier hash, the data-encryption key derivation, and an
// AEAD helper that matches the on-disk nonce‖ciphertext‖tag layout.
package cryptoprim

import (
	"encoding/base64"

	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/confpass-app/confpass/krypto"
)

// Seal encrypts plaintext under key with AES-256-GCM and returns
// base64(nonce ‖ ciphertext+tag), matching §4.1's on-disk layout.
func Seal(key, plaintext, aad []byte) (string, error) {
	nonce, ciphertext, err := krypto.EncryptAESGCM(key, plaintext, aad)
	if err != nil {
		return "", vaulterr.Internal("encrypt", err)
	}
	blob := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open reverses Seal. It rejects inputs shorter than the nonce and reports any
// decrypt failure as WrongPassword, since AEAD auth failure and a bad key are
// indistinguishable to the caller.
func Open(key []byte, blobB64 string, aad []byte) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(blobB64)
	if err != nil {
		return nil, vaulterr.WrongPassword()
	}
	const nonceSize = 12
	if len(blob) < nonceSize {
		return nil, vaulterr.WrongPassword()
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := krypto.DecryptAESGCM(key, nonce, ciphertext, aad)
	if err != nil {
		return nil, vaulterr.WrongPassword()
	}
	return plaintext, nil
}
