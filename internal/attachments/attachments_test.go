package attachments_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/confpass-app/confpass/internal/attachments"
)

func TestAddGetDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(src, []byte("secret note contents"), 0o600); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	store := attachments.Store{Dir: dir}
	masterKey := make([]byte, 32)

	meta, err := store.Add(masterKey, src)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if meta.MimeType != "text/plain" {
		t.Fatalf("expected text/plain, got %s", meta.MimeType)
	}

	got, err := store.Get(masterKey, meta.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == "" {
		t.Fatal("expected non-empty base64 plaintext")
	}

	if err := store.Delete(meta.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(masterKey, meta.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestAddRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.bin")
	big := make([]byte, 10*1024*1024+1)
	if err := os.WriteFile(src, big, 0o600); err != nil {
		t.Fatalf("write big file: %v", err)
	}
	store := attachments.Store{Dir: dir}
	if _, err := store.Add(make([]byte, 32), src); err == nil {
		t.Fatal("expected error for file over 10 MiB")
	}
}
