package entries

import (
	"os"
	"path/filepath"

	"github.com/confpass-app/confpass/internal/vaulterr"
)

// resetPaths lists every on-disk artifact a full reset wipes, per §6's disk
// layout: the vault blob and salt, the passkey/attachment/journal sidecars,
// and the autofill token. settings.json is intentionally not wiped — a reset
// clears secrets and credentials, not user preferences.
func (s *Service) resetPaths() []string {
	return []string{
		filepath.Join(s.Dir, "vault.dat"),
		filepath.Join(s.Dir, "vault.salt"),
		filepath.Join(s.Dir, "passkeys.json"),
		filepath.Join(s.Dir, "history.json"),
		filepath.Join(s.Dir, "activity.json"),
		filepath.Join(s.Dir, "native_auth_token"),
	}
}

// wipe removes every reset-path file plus the attachments directory, locks
// and clears in-memory state, and drops the master secret. A reset is total:
// partial failure still proceeds through the remaining paths so a stuck file
// never blocks the rest of the wipe.
func (s *Service) wipe() error {
	var firstErr error
	for _, p := range s.resetPaths() {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = vaulterr.IO("remove vault artifact", err)
		}
	}
	if err := os.RemoveAll(filepath.Join(s.Dir, "attachments")); err != nil && firstErr == nil {
		firstErr = vaulterr.IO("remove attachments directory", err)
	}
	s.Secret.Drop()
	s.State.Lock()
	return firstErr
}

// ResetWithVerification performs a verified factory reset: it requires the
// current master password to unlock successfully before anything is
// destroyed, proving the caller is the vault's owner. On success every
// persisted artifact is wiped and the vault returns to its pre-setup state
// (NeedsMasterSetup reports true again).
func (s *Service) ResetWithVerification(password string) error {
	if err := s.Unlock(password); err != nil {
		return err
	}
	return s.wipe()
}

// ResetWithoutVerification performs the unverified "forgot password" reset:
// it destroys every persisted artifact without checking any password,
// trading account recovery for data loss when the master password itself is
// lost. Callers on the UI side are expected to gate this behind its own
// confirmation UX, per §6's "reset with and without verification".
func (s *Service) ResetWithoutVerification() error {
	return s.wipe()
}
