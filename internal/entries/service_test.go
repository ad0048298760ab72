package entries_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

func strPtr(s string) *string { return &s }

func TestFirstRunSetupThenUnlock(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)

	if !svc.NeedsMasterSetup() {
		t.Fatal("expected a fresh directory to need master setup")
	}
	if err := svc.SetMaster("correct horse battery staple"); err != nil {
		t.Fatalf("set master: %v", err)
	}
	svc.Lock()
	if !svc.IsLocked() {
		t.Fatal("expected locked after Lock")
	}
	if err := svc.Unlock("correct horse battery staple"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	list, err := svc.ListEntries()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty vault, got %d entries", len(list))
	}
}

func TestAddGetUpdateDeleteEntry(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	if err := svc.SetMaster("pw"); err != nil {
		t.Fatalf("set master: %v", err)
	}

	e, err := svc.AddEntry(entries.Draft{
		Title:    strPtr("Example"),
		Username: strPtr("alice"),
		Password: strPtr("p4ss"),
		URL:      strPtr("https://example.com"),
		Category: strPtr(vaultfile.CategoryAccounts),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := svc.GetEntry(e.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("get: %v %+v", err, got)
	}

	updated, err := svc.UpdateEntry(e.ID, entries.Draft{Password: strPtr("newpass")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alice" || updated.Password != "newpass" {
		t.Fatalf("update did not preserve omitted fields: %+v", updated)
	}

	if err := svc.DeleteEntry(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetEntry(e.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestAddEntryRejectsInvalidURL(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	svc.SetMaster("pw")

	_, err := svc.AddEntry(entries.Draft{
		Title:    strPtr("x"),
		Username: strPtr("a"),
		Password: strPtr("b"),
		URL:      strPtr("ftp://example.com"),
		Category: strPtr(vaultfile.CategoryAccounts),
	})
	ve, ok := vaulterr.As(err)
	if !ok || ve.Kind != vaulterr.KindInvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestTwoStageDeleteForPasskeyEntry(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	svc.SetMaster("pw")

	e, err := svc.AddEntry(entries.Draft{
		Title:    strPtr("X Passkey"),
		Category: strPtr(vaultfile.CategoryPasskeys),
		Notes:    strPtr(`{"credentialId":"c1"}`),
	})
	if err != nil {
		t.Fatalf("add passkey entry: %v", err)
	}

	if err := svc.SoftDelete(e.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := svc.GetEntry(e.ID)
	if err != nil || got.Category != vaultfile.CategoryPasskeysTrash {
		t.Fatalf("expected trashed category, got %+v err=%v", got, err)
	}

	if err := svc.Restore(e.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ = svc.GetEntry(e.ID)
	if got.Category != vaultfile.CategoryPasskeys {
		t.Fatalf("expected restored category, got %+v", got)
	}

	if err := svc.SoftDelete(e.ID); err != nil {
		t.Fatalf("soft delete again: %v", err)
	}
	if err := svc.PermanentDelete(e.ID); err != nil {
		t.Fatalf("permanent delete: %v", err)
	}
	if _, err := svc.GetEntry(e.ID); err == nil {
		t.Fatal("expected not found after permanent delete")
	}
}

func TestFolderDeleteCascadesToEntries(t *testing.T) {
	dir := t.TempDir()
	svc := entries.New(dir)
	svc.SetMaster("pw")

	folder, err := svc.CreateFolder("Work", "#fff", "briefcase", "", 0)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	e, err := svc.AddEntry(entries.Draft{
		Title:    strPtr("x"),
		Username: strPtr("a"),
		Password: strPtr("b"),
		Category: strPtr(vaultfile.CategoryAccounts),
		FolderID: &folder.ID,
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}

	if err := svc.DeleteFolder(folder.ID); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	if _, err := svc.GetEntry(e.ID); err == nil {
		t.Fatal("expected entry to be removed when its folder is deleted")
	}
}
