// Package attachments implements the per-file AEAD sidecar store (C6).
package attachments

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/confpass-app/confpass/internal/cryptoprim"
	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/google/uuid"
)

const maxPlaintextSize = 10 * 1024 * 1024 // 10 MiB

// sidecar is the on-disk shape of attachments/<id>.enc.
type sidecar struct {
	Salt string `json:"salt"`
	Data string `json:"data"`
}

// Store manages attachment ciphertext sidecars under dir/attachments.
type Store struct {
	Dir string
}

func (s Store) dir() string { return filepath.Join(s.Dir, "attachments") }
func (s Store) path(id string) string {
	return filepath.Join(s.dir(), id+".enc")
}

// Metadata mirrors vaultfile.Attachment; kept separate to avoid a dependency
// from this leaf package back onto vaultfile's entry shape.
type Metadata struct {
	ID        string
	Filename  string
	MimeType  string
	Size      int64
	CreatedAt int64
}

// closedMimeSet maps a closed set of extensions to MIME types, per §4.6.
var closedMimeSet = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".zip":  "application/zip",
}

func mimeFromExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := closedMimeSet[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Add reads path (rejecting files over 10 MiB), derives a per-file AEAD key
// from masterKey and a fresh random salt, and writes the ciphertext sidecar.
func (s Store) Add(masterKey []byte, sourcePath string) (Metadata, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return Metadata{}, vaulterr.IO("read attachment source", err)
	}
	if len(data) > maxPlaintextSize {
		return Metadata{}, vaulterr.InvalidInput("file", "exceeds 10 MiB limit")
	}

	id := uuid.NewString()
	salt, err := cryptoprim.NewDataKeySalt()
	if err != nil {
		return Metadata{}, err
	}
	fileKey, err := cryptoprim.DeriveDataKey(string(masterKey), salt)
	if err != nil {
		return Metadata{}, err
	}
	blob, err := cryptoprim.Seal(fileKey, []byte(base64.StdEncoding.EncodeToString(data)), []byte(id))
	if err != nil {
		return Metadata{}, err
	}

	sc := sidecar{Salt: base64.StdEncoding.EncodeToString(salt), Data: blob}
	raw, err := json.Marshal(sc)
	if err != nil {
		return Metadata{}, vaulterr.Internal("encode attachment sidecar", err)
	}
	if err := os.MkdirAll(s.dir(), 0o700); err != nil {
		return Metadata{}, vaulterr.IO("create attachments directory", err)
	}
	if err := os.WriteFile(s.path(id), raw, 0o600); err != nil {
		return Metadata{}, vaulterr.IO("write attachment sidecar", err)
	}

	return Metadata{
		ID:        id,
		Filename:  filepath.Base(sourcePath),
		MimeType:  mimeFromExt(sourcePath),
		Size:      int64(len(data)),
		CreatedAt: time.Now().Unix(),
	}, nil
}

// Get decrypts sidecar id and returns base64 plaintext for the caller to
// deliver (§4.6).
func (s Store) Get(masterKey []byte, id string) (string, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		return "", vaulterr.NotFound("attachment not found")
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return "", vaulterr.Internal("decode attachment sidecar", err)
	}
	salt, err := base64.StdEncoding.DecodeString(sc.Salt)
	if err != nil {
		return "", vaulterr.Internal("decode attachment salt", err)
	}
	fileKey, err := cryptoprim.DeriveDataKey(string(masterKey), salt)
	if err != nil {
		return "", err
	}
	plain, err := cryptoprim.Open(fileKey, sc.Data, []byte(id))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Delete removes the sidecar file.
func (s Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return vaulterr.IO("delete attachment sidecar", err)
	}
	return nil
}
