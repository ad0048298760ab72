package vaultfile

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

// Store reads and writes vault.dat/vault.salt under a directory, using the
// same atomic-write discipline as the donor's header.json writer: a temp file
// in the same directory, restrictive permissions, then an atomic rename.
type Store struct {
	Dir string
}

func (s Store) vaultPath() string { return filepath.Join(s.Dir, "vault.dat") }
func (s Store) saltPath() string  { return filepath.Join(s.Dir, "vault.salt") }

// Exists reports whether both vault.dat and vault.salt are present. If the
// salt is missing, the vault is treated as non-existent per §4.2.
func (s Store) Exists() bool {
	if _, err := os.Stat(s.saltPath()); err != nil {
		return false
	}
	if _, err := os.Stat(s.vaultPath()); err != nil {
		return false
	}
	return true
}

// LoadSalt reads and validates the 32-byte KDF salt sidecar.
func (s Store) LoadSalt() ([]byte, error) {
	data, err := os.ReadFile(s.saltPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vaulterr.NotFound("vault salt not present")
		}
		return nil, vaulterr.IO("read vault salt", err)
	}
	salt, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil || len(salt) != 32 {
		return nil, vaulterr.WrongPassword()
	}
	return salt, nil
}

// SaveSaltOnce writes vault.salt only if it does not already exist, per
// §4.2 ("written once at first save and never rewritten unless missing").
func (s Store) SaveSaltOnce(salt []byte) error {
	if len(salt) != 32 {
		return vaulterr.InvalidInput("salt", "must be 32 bytes")
	}
	if _, err := os.Stat(s.saltPath()); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return vaulterr.IO("create vault directory", err)
	}
	return atomicWrite(s.Dir, s.saltPath(), []byte(base64.StdEncoding.EncodeToString(salt)))
}

// Load reads and decrypts the vault payload. Decrypt failure and a bad
// password are deliberately indistinguishable (§4.2, §7).
func (s Store) Load(key []byte) (Payload, error) {
	var payload Payload
	if !s.Exists() {
		return payload, vaulterr.NotFound("vault does not exist")
	}
	data, err := os.ReadFile(s.vaultPath())
	if err != nil {
		return payload, vaulterr.IO("read vault file", err)
	}
	if len(data) == 0 {
		return payload, vaulterr.WrongPassword()
	}
	plaintext, err := cryptoprim.Open(key, string(data), nil)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return payload, vaulterr.Internal("decode vault payload", err)
	}
	return payload, nil
}

// Save serializes, encrypts, and atomically persists the payload.
//
// Write discipline: marshal -> encrypt -> write to vault.dat.tmp -> flush ->
// atomic rename over vault.dat. An interrupted write never touches the
// existing vault.dat, satisfying the atomicity invariant (§4.2, §8 inv. 8)
// even though the original implementation this system was distilled from did
// not guarantee it.
func (s Store) Save(key []byte, payload Payload) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return vaulterr.IO("create vault directory", err)
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return vaulterr.Internal("encode vault payload", err)
	}
	blob, err := cryptoprim.Seal(key, plaintext, nil)
	if err != nil {
		return err
	}
	return atomicWrite(s.Dir, s.vaultPath(), []byte(blob))
}

func atomicWrite(dir, finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(finalPath)+".tmp-*")
	if err != nil {
		return vaulterr.IO("create temp vault file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("write temp vault file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("chmod temp vault file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("sync temp vault file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("close temp vault file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("replace vault file", err)
	}
	return nil
}
