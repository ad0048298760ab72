// Package paths resolves the per-user app-data directory and the fixed file
// names of everything the core persists there (§6).
package paths

import (
	"os"
	"path/filepath"
)

const appDirName = "confpass"

// Dirs names every file and subdirectory the core reads or writes under the
// app-data directory.
type Dirs struct {
	Root string
}

// Default resolves the app-data directory via os.UserConfigDir(), which maps
// to %AppData% on Windows, ~/Library/Application Support on macOS, and
// $XDG_CONFIG_HOME or ~/.config elsewhere — the same per-OS split the original
// Tauri app resolved through its own path resolver.
func Default() (Dirs, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dirs{}, err
	}
	return Dirs{Root: filepath.Join(base, appDirName)}, nil
}

// New wraps an explicit directory, used by tests and CLI --dir flags.
func New(root string) Dirs { return Dirs{Root: root} }

func (d Dirs) Ensure() error {
	return os.MkdirAll(d.Root, 0o700)
}

func (d Dirs) VaultFile() string       { return filepath.Join(d.Root, "vault.dat") }
func (d Dirs) VaultSalt() string       { return filepath.Join(d.Root, "vault.salt") }
func (d Dirs) AuthToken() string       { return filepath.Join(d.Root, "native_auth_token") }
func (d Dirs) Passkeys() string        { return filepath.Join(d.Root, "passkeys.json") }
func (d Dirs) AttachmentsDir() string  { return filepath.Join(d.Root, "attachments") }
func (d Dirs) History() string        { return filepath.Join(d.Root, "history.json") }
func (d Dirs) Activity() string        { return filepath.Join(d.Root, "activity.json") }
func (d Dirs) Settings() string        { return filepath.Join(d.Root, "settings.json") }
func (d Dirs) NativeManifestWindows() string {
	return filepath.Join(d.Root, "com.confpass.password.json")
}

func (d Dirs) AttachmentFile(id string) string {
	return filepath.Join(d.AttachmentsDir(), id+".enc")
}
