package vaultstate_test

import (
	"testing"
	"time"

	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaultstate"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

func TestRateLimitAfterFiveFailures(t *testing.T) {
	s := vaultstate.New()
	now := time.Now()

	for i := 0; i < vaultstate.MaxFailedAttempts; i++ {
		if err := s.CheckRateLimit(now); err != nil {
			t.Fatalf("attempt %d: unexpected rate limit: %v", i, err)
		}
		s.RecordFailedUnlock(now)
	}

	err := s.CheckRateLimit(now)
	ve, ok := vaulterr.As(err)
	if !ok || ve.Kind != vaulterr.KindRateLimited {
		t.Fatalf("expected RateLimited after %d failures, got %v", vaultstate.MaxFailedAttempts, err)
	}

	later := now.Add(vaultstate.DefaultRateLimitWindow + time.Second)
	if err := s.CheckRateLimit(later); err != nil {
		t.Fatalf("expected rate limit to clear after the window: %v", err)
	}
}

func TestMutationForbiddenWhileLocked(t *testing.T) {
	s := vaultstate.New()
	err := s.WithUnlocked(func(entries map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		entries["x"] = vaultfile.Entry{ID: "x"}
		return nil
	})
	ve, ok := vaulterr.As(err)
	if !ok || ve.Kind != vaulterr.KindLocked {
		t.Fatalf("expected Locked, got %v", err)
	}
}

func TestUnlockThenLockClearsState(t *testing.T) {
	s := vaultstate.New()
	s.Unlock(vaultfile.Payload{Entries: []vaultfile.Entry{{ID: "a"}}})
	if s.IsLocked() {
		t.Fatal("expected unlocked after Unlock")
	}

	var sawEntry bool
	err := s.WithUnlocked(func(entries map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		_, sawEntry = entries["a"]
		return nil
	})
	if err != nil || !sawEntry {
		t.Fatalf("expected entry a to be present, err=%v sawEntry=%v", err, sawEntry)
	}

	s.Lock()
	if !s.IsLocked() {
		t.Fatal("expected locked after Lock")
	}
}
