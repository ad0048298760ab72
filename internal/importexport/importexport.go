// Package importexport implements plain and password-encrypted JSON
// import/export round trips for the vault's entries (C11, §4.11).
package importexport

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/google/uuid"
)

// PlainExport is the top-level shape written by plain export (§4.11).
type PlainExport struct {
	Version    string            `json:"version"`
	ExportedAt int64             `json:"exported_at"`
	EntryCount int               `json:"entry_count"`
	Entries    []vaultfile.Entry `json:"entries"`
}

const exportFormatVersion = "1.0"

// ExportPlain builds the pretty-printed plain export document.
func ExportPlain(entries []vaultfile.Entry) ([]byte, error) {
	doc := PlainExport{
		Version:    exportFormatVersion,
		ExportedAt: time.Now().Unix(),
		EntryCount: len(entries),
		Entries:    entries,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, vaulterr.Internal("encode plain export", err)
	}
	return raw, nil
}

// ImportPlain accepts either the PlainExport shape or a bare entry array. It
// skips entries with an empty id/title/username and skips duplicates of
// existing ids (§4.11) — deliberately asymmetric with ImportEncrypted, which
// re-ids collisions instead, to allow merging archives.
func ImportPlain(raw []byte, existing []vaultfile.Entry) (imported []vaultfile.Entry, skipped int, err error) {
	candidates, err := decodePlainEntries(raw)
	if err != nil {
		return nil, 0, err
	}

	existingIDs := make(map[string]bool, len(existing))
	for _, e := range existing {
		existingIDs[e.ID] = true
	}

	for _, e := range candidates {
		if e.ID == "" || e.Title == "" || e.Username == "" {
			skipped++
			continue
		}
		if existingIDs[e.ID] {
			skipped++
			continue
		}
		existingIDs[e.ID] = true
		imported = append(imported, e)
	}
	return imported, skipped, nil
}

func decodePlainEntries(raw []byte) ([]vaultfile.Entry, error) {
	var doc PlainExport
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Entries != nil {
		return doc.Entries, nil
	}
	var bare []vaultfile.Entry
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, vaulterr.InvalidInput("import", "not a valid export document or entry array")
	}
	return bare, nil
}

// encryptedFormatTag identifies the encrypted export envelope (§4.11).
const encryptedFormatTag = "confpass_encrypted_v1"

// EncryptedEnvelope is the on-disk shape of an encrypted export (§4.11).
type EncryptedEnvelope struct {
	Format string `json:"format"`
	Salt   string `json:"salt"`
	Data   string `json:"data"`
}

const minEncryptedExportPasswordLen = 8

// ExportEncrypted encrypts a plain export document under a user-supplied
// password (minimum 8 characters), using a fresh PBKDF2 salt and the same
// AEAD layout as the vault itself.
func ExportEncrypted(entries []vaultfile.Entry, password string) ([]byte, error) {
	if len(password) < minEncryptedExportPasswordLen {
		return nil, vaulterr.InvalidInput("password", "must be at least 8 characters")
	}
	plain, err := ExportPlain(entries)
	if err != nil {
		return nil, err
	}
	salt, err := cryptoprim.NewDataKeySalt()
	if err != nil {
		return nil, err
	}
	key, err := cryptoprim.DeriveDataKey(password, salt)
	if err != nil {
		return nil, err
	}
	blob, err := cryptoprim.Seal(key, plain, nil)
	if err != nil {
		return nil, err
	}
	envelope := EncryptedEnvelope{
		Format: encryptedFormatTag,
		Salt:   encodeSalt(salt),
		Data:   blob,
	}
	raw, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, vaulterr.Internal("encode encrypted export", err)
	}
	return raw, nil
}

// ImportEncrypted verifies the format tag, derives the key from password,
// decrypts, and re-ids every entry on id collision with existing (§4.11) —
// unlike ImportPlain, which skips collisions instead.
func ImportEncrypted(raw []byte, password string, existing []vaultfile.Entry) (imported []vaultfile.Entry, err error) {
	var envelope EncryptedEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, vaulterr.InvalidInput("import", "not a valid encrypted export document")
	}
	if envelope.Format != encryptedFormatTag {
		return nil, vaulterr.InvalidInput("format", "unrecognized encrypted export format")
	}
	salt, err := decodeSalt(envelope.Salt)
	if err != nil {
		return nil, err
	}
	key, err := cryptoprim.DeriveDataKey(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := cryptoprim.Open(key, envelope.Data, nil)
	if err != nil {
		return nil, err
	}
	candidates, err := decodePlainEntries(plain)
	if err != nil {
		return nil, err
	}

	existingIDs := make(map[string]bool, len(existing))
	for _, e := range existing {
		existingIDs[e.ID] = true
	}

	for _, e := range candidates {
		if existingIDs[e.ID] {
			e.ID = uuid.NewString()
		}
		existingIDs[e.ID] = true
		imported = append(imported, e)
	}
	return imported, nil
}

func encodeSalt(salt []byte) string { return base64.StdEncoding.EncodeToString(salt) }

func decodeSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(salt) != 32 {
		return nil, vaulterr.InvalidInput("salt", "must be base64 of 32 bytes")
	}
	return salt, nil
}
