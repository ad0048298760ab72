package settings_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/settings"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	store := settings.Store{Dir: dir}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != settings.Default() {
		t.Fatalf("want default settings, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := settings.Store{Dir: dir}

	want := settings.Settings{
		MinimizeToTray:   true,
		AutoStart:        true,
		AutoLockTimeout:  600,
		UseBiometric:     true,
		StreamProtection: true,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
