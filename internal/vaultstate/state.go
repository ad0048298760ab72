// Package vaultstate holds the in-memory vault (C3): the entry map, folder
// and tag lists, the locked flag, and the rate-limit counters. Every mutation
// and read (other than lock status) goes through a single mutex per §5.
package vaultstate

import (
	"sync"
	"time"

	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

const (
	// DefaultRateLimitWindow is the 300 s window over which failed unlock
	// attempts are counted (§4.3, §8 invariant 4).
	DefaultRateLimitWindow = 300 * time.Second
	// MaxFailedAttempts is the number of wrong-password attempts allowed
	// within the window before RateLimited is returned.
	MaxFailedAttempts = 5
)

// State is the single mutex-guarded in-memory vault.
type State struct {
	mu sync.Mutex

	locked  bool
	entries map[string]vaultfile.Entry
	folders map[string]vaultfile.Folder
	tags    map[string]vaultfile.Tag

	failedAttempts  int
	lastAttempt     time.Time
	rateLimitWindow time.Duration
}

// New returns a locked, empty state.
func New() *State {
	return &State{
		locked:          true,
		rateLimitWindow: DefaultRateLimitWindow,
	}
}

// IsLocked may be read regardless of lock status.
func (s *State) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// RecordFailedUnlock increments the failure counter and last-attempt
// timestamp under the state lock (§5, §8 invariant 4). Callers should call
// CheckRateLimit first; this only records the attempt.
func (s *State) RecordFailedUnlock(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAttempts++
	s.lastAttempt = now
}

// CheckRateLimit reports RateLimited without recording an attempt, used
// before a fresh unlock attempt is even tried.
func (s *State) CheckRateLimit(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failedAttempts >= MaxFailedAttempts {
		if now.Sub(s.lastAttempt) > s.rateLimitWindow {
			s.failedAttempts = 0
			return nil
		}
		return vaulterr.RateLimited()
	}
	return nil
}

// ResetFailedAttempts clears the counter after a successful unlock.
func (s *State) ResetFailedAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAttempts = 0
}

// Unlock populates the map from a freshly decrypted payload.
func (s *State) Unlock(payload vaultfile.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]vaultfile.Entry, len(payload.Entries))
	for _, e := range payload.Entries {
		s.entries[e.ID] = e
	}
	s.folders = make(map[string]vaultfile.Folder, len(payload.Folders))
	for _, f := range payload.Folders {
		s.folders[f.ID] = f
	}
	s.tags = make(map[string]vaultfile.Tag, len(payload.Tags))
	for _, tg := range payload.Tags {
		s.tags[tg.ID] = tg
	}
	s.locked = false
}

// Lock clears the map and sets the locked flag (§4.3, §4.4).
func (s *State) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *State) clearLocked() {
	s.entries = nil
	s.folders = nil
	s.tags = nil
	s.locked = true
}

// WithUnlocked runs fn under the state lock if the vault is unlocked,
// otherwise returns Locked(). fn receives direct access to the maps; callers
// must not retain references past fn's return.
func (s *State) WithUnlocked(fn func(entries map[string]vaultfile.Entry, folders map[string]vaultfile.Folder, tags map[string]vaultfile.Tag) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return vaulterr.Locked()
	}
	return fn(s.entries, s.folders, s.tags)
}

// Snapshot returns a copy of the current payload for persistence. Must be
// called while already holding the unlock guarantee (i.e. from within
// WithUnlocked or immediately after, on the same goroutine).
func (s *State) Snapshot(masterPasswordHash, encryptionSalt string) vaultfile.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := vaultfile.Payload{
		MasterPasswordHash: masterPasswordHash,
		EncryptionSalt:      encryptionSalt,
	}
	for _, e := range s.entries {
		payload.Entries = append(payload.Entries, e)
	}
	for _, f := range s.folders {
		payload.Folders = append(payload.Folders, f)
	}
	for _, tg := range s.tags {
		payload.Tags = append(payload.Tags, tg)
	}
	return payload
}
