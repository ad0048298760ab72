package importexport_test

import (
	"encoding/json"
	"testing"

	"github.com/confpass-app/confpass/internal/importexport"
	"github.com/confpass-app/confpass/internal/vaultfile"
)

func sample() []vaultfile.Entry {
	return []vaultfile.Entry{
		{ID: "e1", Category: vaultfile.CategoryAccounts, Title: "Site", Username: "alice", Password: "p4ss"},
	}
}

func TestExportPlainRoundTrip(t *testing.T) {
	raw, err := importexport.ExportPlain(sample())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc importexport.PlainExport
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.EntryCount != 1 || doc.Version != "1.0" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	imported, skipped, err := importexport.ImportPlain(raw, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 1 || skipped != 0 {
		t.Fatalf("want 1 imported, 0 skipped, got %d/%d", len(imported), skipped)
	}
}

func TestImportPlainSkipsCollisionsAndInvalid(t *testing.T) {
	raw, _ := importexport.ExportPlain(sample())
	existing := sample()

	imported, skipped, err := importexport.ImportPlain(raw, existing)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 0 || skipped != 1 {
		t.Fatalf("want collision skipped, got imported=%d skipped=%d", len(imported), skipped)
	}

	bare := []vaultfile.Entry{{ID: "", Title: "", Username: ""}}
	bareRaw, _ := json.Marshal(bare)
	imported, skipped, err = importexport.ImportPlain(bareRaw, nil)
	if err != nil {
		t.Fatalf("import bare: %v", err)
	}
	if len(imported) != 0 || skipped != 1 {
		t.Fatalf("want invalid entry skipped, got imported=%d skipped=%d", len(imported), skipped)
	}
}

func TestImportPlainAcceptsBareArray(t *testing.T) {
	bareRaw, _ := json.Marshal(sample())
	imported, skipped, err := importexport.ImportPlain(bareRaw, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 1 || skipped != 0 {
		t.Fatalf("want 1 imported, got %d/%d", len(imported), skipped)
	}
}

func TestEncryptedExportRoundTripReIDsCollisions(t *testing.T) {
	raw, err := importexport.ExportEncrypted(sample(), "backup-pw-1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	existing := sample()
	imported, err := importexport.ImportEncrypted(raw, "backup-pw-1", existing)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 1 {
		t.Fatalf("want 1 imported entry, got %d", len(imported))
	}
	if imported[0].ID == "e1" {
		t.Fatalf("expected id collision to be re-assigned a fresh id")
	}
}

func TestEncryptedExportRejectsShortPassword(t *testing.T) {
	if _, err := importexport.ExportEncrypted(sample(), "short"); err == nil {
		t.Fatalf("expected error for password under 8 characters")
	}
}

func TestImportEncryptedRejectsWrongPassword(t *testing.T) {
	raw, _ := importexport.ExportEncrypted(sample(), "backup-pw-1")
	if _, err := importexport.ImportEncrypted(raw, "wrong-password", nil); err == nil {
		t.Fatalf("expected decrypt failure for wrong password")
	}
}

func TestImportEncryptedRejectsBadFormatTag(t *testing.T) {
	bad := []byte(`{"format":"something_else","salt":"","data":""}`)
	if _, err := importexport.ImportEncrypted(bad, "backup-pw-1", nil); err == nil {
		t.Fatalf("expected error for unrecognized format tag")
	}
}
