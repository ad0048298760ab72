// Package entries implements the entry service (C5): CRUD, folder and tag
// CRUD, bulk operations, the two-stage soft-delete/restore/purge lifecycle
// for passkeys and authenticators, and the password generator/strength meter.
package entries

import (
	"sort"
	"time"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/passkeys"
	"github.com/confpass-app/confpass/internal/secretholder"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaultstate"
	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/google/uuid"
)

// PasskeyHook lets C8 observe category transitions that affect its sidecar,
// and reconcile the sidecar against the vault on unlock.
type PasskeyHook interface {
	OnSoftDelete(entry vaultfile.Entry) error
	OnRestore(entry vaultfile.Entry) error
	OnPermanentDelete(entry vaultfile.Entry) error
	ReconcileOnUnlock(vaultCredentialIDs map[string]bool) error
}

// IDGenerator abstracts id generation for tests.
type IDGenerator func() string

func defaultIDGen() string { return uuid.NewString() }

// Service ties C3 (state), C4 (secret holder), and C2 (file codec) together
// behind the CRUD operations C5 exposes. Every write persists synchronously
// through the codec, per §4.5.
type Service struct {
	Dir    string
	State  *vaultstate.State
	Secret *secretholder.Holder
	Store  vaultfile.Store
	Passkeys PasskeyHook

	newID IDGenerator

	verifier     cryptoprim.Verifier
	dataKeySalt  []byte
}

// New constructs a Service rooted at dir.
func New(dir string) *Service {
	return &Service{
		Dir:   dir,
		State: vaultstate.New(),
		Secret: secretholder.New(),
		Store: vaultfile.Store{Dir: dir},
		newID: defaultIDGen,
	}
}

// NeedsMasterSetup reports whether no vault exists yet.
func (s *Service) NeedsMasterSetup() bool {
	return !s.Store.Exists()
}

// SetMaster initializes a brand-new vault with the given master password.
func (s *Service) SetMaster(password string) error {
	if !s.NeedsMasterSetup() {
		return vaulterr.InvalidInput("master", "vault already initialized")
	}
	verifier, err := cryptoprim.NewVerifier(password)
	if err != nil {
		return err
	}
	salt, err := cryptoprim.NewDataKeySalt()
	if err != nil {
		return err
	}
	if err := s.Store.SaveSaltOnce(salt); err != nil {
		return err
	}
	key, err := cryptoprim.DeriveDataKey(password, salt)
	if err != nil {
		return err
	}
	verifierJSON := verifier.Hash + ":" + verifier.Salt
	payload := vaultfile.Payload{
		Entries:           []vaultfile.Entry{},
		MasterPasswordHash: verifierJSON,
		EncryptionSalt:      verifier.Salt,
		Folders:             []vaultfile.Folder{},
		Tags:                []vaultfile.Tag{},
	}
	if err := s.Store.Save(key, payload); err != nil {
		return err
	}
	s.Secret.Set(password)
	s.State.Unlock(payload)
	return nil
}

// Unlock verifies password against the stored vault, loads it into C3, and
// reconciles the passkey sidecar before the unlock is acknowledged. The rate
// limit is checked before the attempt and a failure is recorded after it,
// each under its own acquisition of the state lock (§5, §8 invariant 4).
// Reconciliation is total: if it fails, the unlock is
// not acknowledged and C3 stays locked (§4.8, §9).
func (s *Service) Unlock(password string) error {
	now := time.Now()
	if err := s.State.CheckRateLimit(now); err != nil {
		return err
	}

	salt, err := s.Store.LoadSalt()
	if err != nil {
		return err
	}
	key, err := cryptoprim.DeriveDataKey(password, salt)
	if err != nil {
		s.State.RecordFailedUnlock(now)
		return vaulterr.WrongPassword()
	}
	payload, err := s.Store.Load(key)
	if err != nil {
		s.State.RecordFailedUnlock(now)
		return vaulterr.WrongPassword()
	}

	if s.Passkeys != nil {
		vaultCredentialIDs := make(map[string]bool)
		for _, e := range payload.Entries {
			if e.Category != vaultfile.CategoryPasskeys {
				continue
			}
			if p, err := passkeys.FromEntryNotes(e.Notes); err == nil {
				vaultCredentialIDs[p.CredentialID] = true
			}
		}
		if err := s.Passkeys.ReconcileOnUnlock(vaultCredentialIDs); err != nil {
			return err
		}
	}

	s.Secret.Set(password)
	s.State.Unlock(payload)
	s.State.ResetFailedAttempts()
	return nil
}

// Lock drops the master secret and clears in-memory state (§4.3, §4.4).
func (s *Service) Lock() {
	s.Secret.Drop()
	s.State.Lock()
}

func (s *Service) IsLocked() bool { return s.State.IsLocked() }

// persist snapshots C3 and writes it through C2 using the currently held
// master secret. Callers must already hold an unlock guarantee.
func (s *Service) persist() error {
	password, ok := s.Secret.Get()
	if !ok {
		return vaulterr.Locked()
	}
	salt, err := s.Store.LoadSalt()
	if err != nil {
		return err
	}
	key, err := cryptoprim.DeriveDataKey(password, salt)
	if err != nil {
		return err
	}

	// The verifier/encryption-salt fields travel with the payload but are
	// not mutated by entry CRUD; reload the current on-disk values so a
	// concurrent CRUD write never clobbers them.
	existing, err := s.Store.Load(key)
	if err != nil {
		return err
	}

	payload := s.State.Snapshot(existing.MasterPasswordHash, existing.EncryptionSalt)
	return s.Store.Save(key, payload)
}

// AddEntry validates and persists a new entry (§4.5).
func (s *Service) AddEntry(d Draft) (vaultfile.Entry, error) {
	var out vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		category := trimOrEmpty(d.Category)
		now := time.Now().Unix()
		e := vaultfile.Entry{
			ID:        s.newID(),
			Category:  category,
			Title:     trimOrEmpty(d.Title),
			Username:  trimOrEmpty(d.Username),
			Password:  valueOrEmpty(d.Password),
			URL:       trimOrEmpty(d.URL),
			Notes:     trimOrEmpty(d.Notes),
			Extra:     d.Extra,
			TagIDs:    d.TagIDs,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if d.FolderID != nil {
			e.FolderID = *d.FolderID
		}
		if err := validate(e); err != nil {
			return err
		}
		em[e.ID] = e
		out = e
		return nil
	})
	if err != nil {
		return vaultfile.Entry{}, err
	}
	if err := s.persist(); err != nil {
		return vaultfile.Entry{}, err
	}
	return out, nil
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListEntries returns entries sorted by updated_at descending (§4.5).
func (s *Service) ListEntries() ([]vaultfile.Entry, error) {
	var out []vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		out = make([]vaultfile.Entry, 0, len(em))
		for _, e := range em {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

// GetEntry returns a single entry by id.
func (s *Service) GetEntry(id string) (vaultfile.Entry, error) {
	var out vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[id]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		out = e
		return nil
	})
	return out, err
}

// UpdateEntry preserves omitted fields and re-validates category-dependent
// invariants (§4.5).
func (s *Service) UpdateEntry(id string, d Draft) (vaultfile.Entry, error) {
	var out vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[id]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		if d.Title != nil {
			e.Title = trimOrEmpty(d.Title)
		}
		if d.Username != nil {
			e.Username = trimOrEmpty(d.Username)
		}
		if d.Password != nil {
			e.Password = *d.Password
		}
		if d.URL != nil {
			e.URL = trimOrEmpty(d.URL)
		}
		if d.Notes != nil {
			e.Notes = trimOrEmpty(d.Notes)
		}
		if d.Category != nil {
			e.Category = trimOrEmpty(d.Category)
		}
		if d.Extra != nil {
			e.Extra = d.Extra
		}
		if d.TagIDs != nil {
			e.TagIDs = d.TagIDs
		}
		if d.FolderID != nil {
			e.FolderID = *d.FolderID
		}
		if err := validate(e); err != nil {
			return err
		}
		e.UpdatedAt = time.Now().Unix()
		em[id] = e
		out = e
		return nil
	})
	if err != nil {
		return vaultfile.Entry{}, err
	}
	if err := s.persist(); err != nil {
		return vaultfile.Entry{}, err
	}
	return out, nil
}

// DeleteEntry permanently removes a non-trash entry.
func (s *Service) DeleteEntry(id string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		if _, ok := em[id]; !ok {
			return vaulterr.NotFound("entry not found")
		}
		delete(em, id)
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

// BulkDelete removes a set of ids; missing ids are ignored.
func (s *Service) BulkDelete(ids []string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		for _, id := range ids {
			delete(em, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

// BulkMoveToFolder reassigns a set of ids to folderID.
func (s *Service) BulkMoveToFolder(ids []string, folderID string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		for _, id := range ids {
			if e, ok := em[id]; ok {
				e.FolderID = folderID
				e.UpdatedAt = time.Now().Unix()
				em[id] = e
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

var trashOf = map[string]string{
	vaultfile.CategoryPasskeys:      vaultfile.CategoryPasskeysTrash,
	vaultfile.CategoryAuthenticator: vaultfile.CategoryAuthenticatorTrash,
}

var liveOf = map[string]string{
	vaultfile.CategoryPasskeysTrash:      vaultfile.CategoryPasskeys,
	vaultfile.CategoryAuthenticatorTrash: vaultfile.CategoryAuthenticator,
}

// SoftDelete flips category to its _trash variant; idempotent if already in
// trash (§7). Only valid for passkeys/authenticator categories.
func (s *Service) SoftDelete(id string) error {
	var moved vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[id]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		if _, alreadyTrash := liveOf[e.Category]; alreadyTrash {
			moved = e
			return nil
		}
		trash, ok := trashOf[e.Category]
		if !ok {
			return vaulterr.InvalidInput("category", "soft delete only applies to passkeys and authenticator entries")
		}
		e.Category = trash
		e.UpdatedAt = time.Now().Unix()
		em[id] = e
		moved = e
		return nil
	})
	if err != nil {
		return err
	}
	if s.Passkeys != nil && moved.Category == vaultfile.CategoryPasskeysTrash {
		if err := s.Passkeys.OnSoftDelete(moved); err != nil {
			return err
		}
	}
	return s.persist()
}

// Restore flips a trash entry back to its live category; idempotent.
func (s *Service) Restore(id string) error {
	var moved vaultfile.Entry
	restored := false
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[id]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		if _, ok := trashOf[e.Category]; ok {
			moved = e
			return nil
		}
		live, ok := liveOf[e.Category]
		if !ok {
			return vaulterr.InvalidInput("category", "restore only applies to trashed passkeys and authenticator entries")
		}
		e.Category = live
		e.UpdatedAt = time.Now().Unix()
		em[id] = e
		moved = e
		restored = true
		return nil
	})
	if err != nil {
		return err
	}
	if s.Passkeys != nil && restored && moved.Category == vaultfile.CategoryPasskeys {
		if err := s.Passkeys.OnRestore(moved); err != nil {
			return err
		}
	}
	return s.persist()
}

// PermanentDelete is only allowed from a _trash category.
func (s *Service) PermanentDelete(id string) error {
	var removed vaultfile.Entry
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		e, ok := em[id]
		if !ok {
			return vaulterr.NotFound("entry not found")
		}
		if _, ok := liveOf[e.Category]; !ok {
			return vaulterr.InvalidInput("category", "permanent delete is only allowed from trash")
		}
		delete(em, id)
		removed = e
		return nil
	})
	if err != nil {
		return err
	}
	if s.Passkeys != nil && removed.Category == vaultfile.CategoryPasskeysTrash {
		if err := s.Passkeys.OnPermanentDelete(removed); err != nil {
			return err
		}
	}
	return s.persist()
}
