// Package settings persists settings.json (§6 disk layout): the ambient
// preferences the UI shell and core both read, using the same atomic-write
// discipline as the vault file.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/confpass-app/confpass/internal/vaulterr"
)

// Settings mirrors settings.json's fixed field set exactly (§6).
type Settings struct {
	MinimizeToTray   bool `json:"minimize_to_tray"`
	AutoStart        bool `json:"auto_start"`
	AutoLockTimeout  int  `json:"auto_lock_timeout"`
	UseBiometric     bool `json:"use_biometric"`
	StreamProtection bool `json:"stream_protection"`
}

// Default returns the out-of-the-box settings: no tray/autostart, a 300 s
// auto-lock timeout matching §3's default, biometrics and stream protection
// off.
func Default() Settings {
	return Settings{
		MinimizeToTray:   false,
		AutoStart:        false,
		AutoLockTimeout:  300,
		UseBiometric:     false,
		StreamProtection: false,
	}
}

// Store manages settings.json under a directory.
type Store struct {
	Dir string
}

func (s Store) path() string { return filepath.Join(s.Dir, "settings.json") }

// Load returns the persisted settings, or Default() if none exist yet.
func (s Store) Load() (Settings, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, vaulterr.IO("read settings", err)
	}
	var out Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, vaulterr.Internal("decode settings", err)
	}
	return out, nil
}

// Save persists settings atomically.
func (s Store) Save(v Settings) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return vaulterr.Internal("encode settings", err)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return vaulterr.IO("create settings directory", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "settings.json.tmp-*")
	if err != nil {
		return vaulterr.IO("create temp settings file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("write temp settings file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return vaulterr.IO("chmod temp settings file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("close temp settings file", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		os.Remove(tmpPath)
		return vaulterr.IO("replace settings file", err)
	}
	return nil
}
