package entries

import (
	"time"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

// AttachMetadata appends attachment metadata to an existing entry and
// persists the vault (§4.6). The ciphertext sidecar itself is written by the
// caller (internal/attachments) before this is called — this only links it.
func (s *Service) AttachMetadata(entryID string, meta vaultfile.Attachment) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[entryID]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		e.Attachments = append(e.Attachments, meta)
		e.UpdatedAt = time.Now().Unix()
		em[entryID] = e
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

// DetachMetadata removes attachment metadata by id and persists the vault.
// The caller is responsible for deleting the ciphertext sidecar file.
func (s *Service) DetachMetadata(entryID, attachmentID string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[entryID]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		out := e.Attachments[:0]
		found := false
		for _, a := range e.Attachments {
			if a.ID == attachmentID {
				found = true
				continue
			}
			out = append(out, a)
		}
		if !found {
			return vaulterr.NotFound("attachment not found")
		}
		e.Attachments = out
		e.UpdatedAt = time.Now().Unix()
		em[entryID] = e
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

// DataKey derives the current vault data-encryption key, for callers (C6
// attachments) that derive their per-file sidecar keys from the vault's key.
func (s *Service) DataKey() ([]byte, error) {
	password, ok := s.Secret.Get()
	if !ok {
		return nil, vaulterr.Locked()
	}
	salt, err := s.Store.LoadSalt()
	if err != nil {
		return nil, err
	}
	return cryptoprim.DeriveDataKey(password, salt)
}
