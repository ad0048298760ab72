// Package passkeys implements the passkey credential store (C8): a JSON
// sidecar of credential+private key records, counter maintenance, and
// reconciliation with the vault's `passkeys` entries.
//
// Unlike an RP-side WebAuthn verifier library, this system plays the role of
// the authenticator itself: it owns the private key and signs assertions,
// rather than validating assertions signed by some other device.
package passkeys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"os"

	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

// StoredPasskey mirrors §3's passkey sidecar record.
type StoredPasskey struct {
	CredentialID    string `json:"credential_id"`
	PrivateKey      string `json:"private_key"`
	RPID            string `json:"rp_id"`
	RPName          string `json:"rp_name"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	UserDisplayName string `json:"user_display_name"`
	Counter         int64  `json:"counter"`
	CreatedAt       int64  `json:"created_at"`
}

// Store manages passkeys.json under dir.
type Store struct {
	Dir string
}

func (s Store) path() string { return s.Dir + "/passkeys.json" }

func (s Store) load() ([]StoredPasskey, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vaulterr.IO("read passkeys sidecar", err)
	}
	var list []StoredPasskey
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, vaulterr.Internal("decode passkeys sidecar", err)
	}
	return list, nil
}

func (s Store) save(list []StoredPasskey) error {
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return vaulterr.Internal("encode passkeys sidecar", err)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return vaulterr.IO("create vault directory", err)
	}
	if err := os.WriteFile(s.path(), raw, 0o600); err != nil {
		return vaulterr.IO("write passkeys sidecar", err)
	}
	return nil
}

// Save rejects missing credential_id/private_key and duplicate
// credential_ids, then appends and persists (§4.8). It always writes the
// sidecar even if the vault is locked — vault mirroring is the caller's
// responsibility and is skipped while locked.
func (s Store) Save(p StoredPasskey) error {
	if p.CredentialID == "" {
		return vaulterr.InvalidInput("credential_id", "required")
	}
	if p.PrivateKey == "" {
		return vaulterr.InvalidInput("private_key", "required")
	}
	list, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.CredentialID == p.CredentialID {
			return vaulterr.InvalidInput("credential_id", "already exists")
		}
	}
	list = append(list, p)
	return s.save(list)
}

// List returns records matching rpID; an empty rpID returns all (§4.8).
func (s Store) List(rpID string) ([]StoredPasskey, error) {
	list, err := s.load()
	if err != nil {
		return nil, err
	}
	if rpID == "" {
		return list, nil
	}
	out := make([]StoredPasskey, 0, len(list))
	for _, p := range list {
		if p.RPID == rpID {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateCounter overwrites the counter for credentialID; fails if unknown.
func (s Store) UpdateCounter(credentialID string, counter int64) error {
	list, err := s.load()
	if err != nil {
		return err
	}
	for i, p := range list {
		if p.CredentialID == credentialID {
			list[i].Counter = counter
			return s.save(list)
		}
	}
	return vaulterr.NotFound("unknown credential_id")
}

// RemoveByCredentialID deletes a sidecar record; no-op if absent.
func (s Store) RemoveByCredentialID(credentialID string) error {
	list, err := s.load()
	if err != nil {
		return err
	}
	out := list[:0]
	for _, p := range list {
		if p.CredentialID != credentialID {
			out = append(out, p)
		}
	}
	return s.save(out)
}

// ReconcileOnUnlock makes the sidecar agree with the set of credential_ids
// present in the vault's `passkeys` entries: any sidecar record whose
// credential_id is absent from vaultCredentialIDs is removed (§4.8, §8
// invariant 3). It must run as a single all-or-nothing step per §9.
func (s Store) ReconcileOnUnlock(vaultCredentialIDs map[string]bool) error {
	list, err := s.load()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, p := range list {
		if vaultCredentialIDs[p.CredentialID] {
			kept = append(kept, p)
		}
	}
	return s.save(kept)
}

// GenerateKeyPair creates a fresh ECDSA P-256 key pair for a new passkey and
// returns the private key PEM-encoded for sidecar/vault storage, since no
// library in the available ecosystem plays the authenticator-side signing
// role this system needs.
func GenerateKeyPair() (privateKeyPEM string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", vaulterr.Internal("generate passkey keypair", err)
	}
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return "", vaulterr.Internal("marshal passkey private key", err)
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// Sign produces an ECDSA signature over challenge using the stored PEM
// private key, simulating the authenticator assertion step.
func Sign(privateKeyPEM string, challenge []byte) (string, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return "", vaulterr.Internal("decode passkey private key", nil)
	}
	priv, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return "", vaulterr.Internal("parse passkey private key", err)
	}
	digest := sha256.Sum256(challenge)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return "", vaulterr.Internal("sign passkey assertion", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// entryNotes is the camelCase JSON shape §3 specifies for a passkeys entry's
// notes field (credentialId, privateKey, rpId, ...), distinct from the
// sidecar's snake_case StoredPasskey tags. userName isn't named in §3's list
// but is carried too so restore can total the record exactly (§3, §4.5).
type entryNotes struct {
	CredentialID    string `json:"credentialId"`
	PrivateKey      string `json:"privateKey"`
	RPID            string `json:"rpId"`
	RPName          string `json:"rpName"`
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	UserDisplayName string `json:"userDisplayName"`
	Counter         int64  `json:"counter"`
	CreatedAt       int64  `json:"createdAt"`
}

func (p StoredPasskey) toEntryNotesValue() entryNotes {
	return entryNotes{
		CredentialID:    p.CredentialID,
		PrivateKey:      p.PrivateKey,
		RPID:            p.RPID,
		RPName:          p.RPName,
		UserID:          p.UserID,
		UserName:        p.UserName,
		UserDisplayName: p.UserDisplayName,
		Counter:         p.Counter,
		CreatedAt:       p.CreatedAt,
	}
}

func (n entryNotes) toStoredPasskey() StoredPasskey {
	return StoredPasskey{
		CredentialID:    n.CredentialID,
		PrivateKey:      n.PrivateKey,
		RPID:            n.RPID,
		RPName:          n.RPName,
		UserID:          n.UserID,
		UserName:        n.UserName,
		UserDisplayName: n.UserDisplayName,
		Counter:         n.Counter,
		CreatedAt:       n.CreatedAt,
	}
}

// ToEntryNotes marshals a StoredPasskey into the camelCase JSON object
// mirrored into an entry's notes field (§3).
func (p StoredPasskey) ToEntryNotes() (string, error) {
	raw, err := json.Marshal(p.toEntryNotesValue())
	if err != nil {
		return "", vaulterr.Internal("encode passkey notes", err)
	}
	return string(raw), nil
}

// FromEntryNotes reconstructs a StoredPasskey from an entry's camelCase
// notes field, used by Restore to total the record exactly (§3, §4.5).
func FromEntryNotes(notes string) (StoredPasskey, error) {
	var n entryNotes
	if err := json.Unmarshal([]byte(notes), &n); err != nil {
		return StoredPasskey{}, vaulterr.Internal("decode passkey notes", err)
	}
	return n.toStoredPasskey(), nil
}

// Hook adapts Store to entries.PasskeyHook.
type Hook struct {
	Store Store
}

func (h Hook) OnSoftDelete(entry vaultfile.Entry) error {
	p, err := FromEntryNotes(entry.Notes)
	if err != nil {
		return err
	}
	return h.Store.RemoveByCredentialID(p.CredentialID)
}

func (h Hook) OnRestore(entry vaultfile.Entry) error {
	p, err := FromEntryNotes(entry.Notes)
	if err != nil {
		return err
	}
	return h.Store.Save(p)
}

func (h Hook) OnPermanentDelete(entry vaultfile.Entry) error {
	p, err := FromEntryNotes(entry.Notes)
	if err != nil {
		return err
	}
	return h.Store.RemoveByCredentialID(p.CredentialID)
}

// ReconcileOnUnlock adapts Store.ReconcileOnUnlock to entries.PasskeyHook.
func (h Hook) ReconcileOnUnlock(vaultCredentialIDs map[string]bool) error {
	return h.Store.ReconcileOnUnlock(vaultCredentialIDs)
}
