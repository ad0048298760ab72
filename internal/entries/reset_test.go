package entries_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/vaultfile"
)

func TestResetWithVerificationWipesVault(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	if err := svc.SetMaster("pw"); err != nil {
		t.Fatalf("set master: %v", err)
	}
	if _, err := svc.AddEntry(entries.Draft{
		Title: strPtr("x"), Username: strPtr("a"), Password: strPtr("b"),
		Category: strPtr(vaultfile.CategoryAccounts),
	}); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	svc.Lock()

	if err := svc.ResetWithVerification("wrong-password"); err == nil {
		t.Fatal("expected wrong password to be rejected before wiping anything")
	}
	if !svc.IsLocked() {
		t.Fatal("failed verification must not unlock the vault")
	}
	if _, err := os.Stat(filepath.Join(dir, "vault.dat")); err != nil {
		t.Fatal("vault.dat must survive a failed verification attempt")
	}

	if err := svc.ResetWithVerification("pw"); err != nil {
		t.Fatalf("reset with verification: %v", err)
	}
	if !svc.NeedsMasterSetup() {
		t.Fatal("expected vault to need master setup again after reset")
	}
	if !svc.IsLocked() {
		t.Fatal("expected locked state after reset")
	}
}

func TestResetWithoutVerificationWipesVault(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	if err := svc.SetMaster("pw"); err != nil {
		t.Fatalf("set master: %v", err)
	}

	if err := svc.ResetWithoutVerification(); err != nil {
		t.Fatalf("reset without verification: %v", err)
	}
	if !svc.NeedsMasterSetup() {
		t.Fatal("expected vault to need master setup again after reset")
	}
	if _, err := os.Stat(filepath.Join(dir, "vault.dat")); !os.IsNotExist(err) {
		t.Fatal("expected vault.dat to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "vault.salt")); !os.IsNotExist(err) {
		t.Fatal("expected vault.salt to be removed")
	}
}
