package vaultfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/vaultfile"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := vaultfile.Store{Dir: dir}

	salt, err := cryptoprim.NewDataKeySalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if err := store.SaveSaltOnce(salt); err != nil {
		t.Fatalf("save salt: %v", err)
	}

	key, err := cryptoprim.DeriveDataKey("correct horse battery staple", salt)
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}

	payload := vaultfile.Payload{
		Entries: []vaultfile.Entry{{ID: "e1", Category: vaultfile.CategoryAccounts, Title: "Example"}},
	}
	if err := store.Save(key, payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].ID != "e1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestLoadWrongPasswordIndistinguishableFromCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := vaultfile.Store{Dir: dir}
	salt, _ := cryptoprim.NewDataKeySalt()
	store.SaveSaltOnce(salt)
	key, _ := cryptoprim.DeriveDataKey("right-password", salt)
	store.Save(key, vaultfile.Payload{})

	wrongKey, _ := cryptoprim.DeriveDataKey("wrong-password", salt)
	if _, err := store.Load(wrongKey); err == nil {
		t.Fatal("expected error when loading with the wrong key")
	}
}

func TestAtomicWriteLeavesPreviousFileOnCrash(t *testing.T) {
	dir := t.TempDir()
	store := vaultfile.Store{Dir: dir}
	salt, _ := cryptoprim.NewDataKeySalt()
	store.SaveSaltOnce(salt)
	key, _ := cryptoprim.DeriveDataKey("pw", salt)

	if err := store.Save(key, vaultfile.Payload{Entries: []vaultfile.Entry{{ID: "first"}}}); err != nil {
		t.Fatalf("initial save: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(dir, "vault.dat"))
	if err != nil {
		t.Fatalf("read vault.dat: %v", err)
	}

	// Simulate a crash between tmp-write and rename: leave a stray tmp file
	// and confirm vault.dat is untouched.
	if err := os.WriteFile(filepath.Join(dir, "vault.dat.tmp-crash"), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write stray tmp: %v", err)
	}

	after, err := os.ReadFile(filepath.Join(dir, "vault.dat"))
	if err != nil {
		t.Fatalf("read vault.dat after stray tmp: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("vault.dat changed after a simulated crash before rename")
	}
}
