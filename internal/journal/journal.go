// Package journal implements the activity and history logs (C12): two
// append-only local files, each capped and drop-oldest, neither inside the
// vault's AEAD envelope (§4.12, §9 open question — left unencrypted as the
// spec's own text treats encrypting them as an optional future choice, not a
// default).
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/google/uuid"
)

const (
	activityCap = 1000
	historyCap  = 10
)

// Event is one activity.json record (§4.12).
type Event struct {
	ID        string `json:"id"`
	EntryID   string `json:"entry_id,omitempty"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
	Details   string `json:"details,omitempty"`
}

// PasswordChange is one history.json record for a single entry.
type PasswordChange struct {
	Password  string `json:"password"`
	ChangedAt int64  `json:"changed_at"`
}

// Activity manages activity.json, an append-only list capped at 1000
// events with oldest-first drop.
type Activity struct {
	Path string
}

func (a Activity) load() ([]Event, error) {
	raw, err := os.ReadFile(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vaulterr.IO("read activity log", err)
	}
	var list []Event
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, vaulterr.Internal("decode activity log", err)
	}
	return list, nil
}

func (a Activity) save(list []Event) error {
	return writeJSONAtomic(a.Path, list)
}

// Append records a new event, dropping the oldest entries past the 1000 cap.
func (a Activity) Append(entryID, action, details string, timestamp int64) error {
	list, err := a.load()
	if err != nil {
		return err
	}
	list = append(list, Event{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		Action:    action,
		Timestamp: timestamp,
		Details:   details,
	})
	if len(list) > activityCap {
		list = list[len(list)-activityCap:]
	}
	return a.save(list)
}

// List returns every recorded event, oldest first.
func (a Activity) List() ([]Event, error) {
	return a.load()
}

// History manages history.json: entry id -> capped list of prior plaintext
// passwords (§4.12, §9 — stored outside AEAD, a deliberate divergence the
// spec itself flags rather than resolves).
type History struct {
	Path string
}

func (h History) load() (map[string][]PasswordChange, error) {
	raw, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]PasswordChange{}, nil
		}
		return nil, vaulterr.IO("read history log", err)
	}
	m := map[string][]PasswordChange{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, vaulterr.Internal("decode history log", err)
	}
	return m, nil
}

func (h History) save(m map[string][]PasswordChange) error {
	return writeJSONAtomic(h.Path, m)
}

// Record appends a prior password for entryID, dropping the oldest past the
// 10-per-entry cap.
func (h History) Record(entryID, password string, changedAt int64) error {
	m, err := h.load()
	if err != nil {
		return err
	}
	list := append(m[entryID], PasswordChange{Password: password, ChangedAt: changedAt})
	if len(list) > historyCap {
		list = list[len(list)-historyCap:]
	}
	m[entryID] = list
	return h.save(m)
}

// For returns the recorded password history for entryID, oldest first.
func (h History) For(entryID string) ([]PasswordChange, error) {
	m, err := h.load()
	if err != nil {
		return nil, err
	}
	return m[entryID], nil
}

// writeJSONAtomic marshals v and writes it via the same temp-file-then-rename
// discipline C2 uses for vault.dat, since both are append-only metadata files
// that must never be observed half-written.
func writeJSONAtomic(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return vaulterr.Internal("encode journal file", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return vaulterr.IO("create journal directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return vaulterr.IO("create temp journal file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("write temp journal file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("chmod temp journal file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("close temp journal file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("replace journal file", err)
	}
	return nil
}
