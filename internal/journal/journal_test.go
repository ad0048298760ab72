package journal_test

import (
	"path/filepath"
	"testing"

	"github.com/confpass-app/confpass/internal/journal"
)

func TestActivityAppendAndCap(t *testing.T) {
	dir := t.TempDir()
	a := journal.Activity{Path: filepath.Join(dir, "activity.json")}

	for i := 0; i < 1005; i++ {
		if err := a.Append("entry-1", "update", "", int64(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	list, err := a.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1000 {
		t.Fatalf("want 1000 events after cap, got %d", len(list))
	}
	if list[0].Timestamp != 5 {
		t.Fatalf("want oldest events dropped, got first timestamp %d", list[0].Timestamp)
	}
	if list[len(list)-1].Timestamp != 1004 {
		t.Fatalf("want newest event retained, got last timestamp %d", list[len(list)-1].Timestamp)
	}
}

func TestHistoryRecordAndCap(t *testing.T) {
	dir := t.TempDir()
	h := journal.History{Path: filepath.Join(dir, "history.json")}

	for i := 0; i < 12; i++ {
		if err := h.Record("entry-1", "pw", int64(i)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	list, err := h.For("entry-1")
	if err != nil {
		t.Fatalf("for: %v", err)
	}
	if len(list) != 10 {
		t.Fatalf("want 10 entries after cap, got %d", len(list))
	}
	if list[0].ChangedAt != 2 {
		t.Fatalf("want oldest two dropped, got first changed_at %d", list[0].ChangedAt)
	}
}

func TestHistoryForUnknownEntryIsEmpty(t *testing.T) {
	dir := t.TempDir()
	h := journal.History{Path: filepath.Join(dir, "history.json")}
	list, err := h.For("missing")
	if err != nil {
		t.Fatalf("for: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("want empty history for unknown entry, got %d", len(list))
	}
}
