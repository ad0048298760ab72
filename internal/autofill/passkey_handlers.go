package autofill

import (
	"net/http"
	"time"

	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/passkeys"
	"github.com/confpass-app/confpass/internal/vaultfile"
)

// savePasskeyRequest is the camelCase wire shape the browser extension sends
// (§4.9 "save_passkey"), distinct from StoredPasskey's snake_case sidecar tags.
type savePasskeyRequest struct {
	CredentialID    string `json:"credentialId"`
	PrivateKey      string `json:"privateKey"`
	RPID            string `json:"rpId"`
	RPName          string `json:"rpName"`
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	UserDisplayName string `json:"userDisplayName"`
	Counter         int64  `json:"counter"`
	CreatedAt       int64  `json:"createdAt"`
}

// handleSavePasskey persists the sidecar record and, when the vault is
// unlocked, mirrors it into the vault as a `passkeys` entry whose notes carry
// the full structured object (§4.8). If the vault is locked, the sidecar is
// still written but mirroring is skipped.
func (s *Server) handleSavePasskey(w http.ResponseWriter, r *http.Request) {
	var req savePasskeyRequest
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	p := passkeys.StoredPasskey{
		CredentialID:    req.CredentialID,
		PrivateKey:      req.PrivateKey,
		RPID:            req.RPID,
		RPName:          req.RPName,
		UserID:          req.UserID,
		UserName:        req.UserName,
		UserDisplayName: req.UserDisplayName,
		Counter:         req.Counter,
		CreatedAt:       req.CreatedAt,
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	if err := s.Passkeys.Save(p); err != nil {
		writeError(w, err.Error())
		return
	}

	if !s.Entries.IsLocked() {
		notes, err := p.ToEntryNotes()
		if err == nil {
			title := p.RPName
			category := vaultfile.CategoryPasskeys
			s.Entries.AddEntry(entries.Draft{
				Title: &title, Notes: &notes, Category: &category,
			})
		}
	}

	writeSuccess(w, map[string]any{"saved": true})
}

func (s *Server) handleGetPasskeys(w http.ResponseWriter, r *http.Request) {
	var req struct{ RPID string `json:"rpId"` }
	decodeBody(r, &req)
	list, err := s.Passkeys.List(req.RPID)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	writeSuccess(w, list)
}

func (s *Server) handleUpdatePasskeyCounter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CredentialID string `json:"credentialId"`
		Counter      int64  `json:"counter"`
	}
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	if err := s.Passkeys.UpdateCounter(req.CredentialID, req.Counter); err != nil {
		writeError(w, err.Error())
		return
	}
	writeSuccess(w, map[string]any{"updated": true})
}

// handlePasskeyDetected acts only when action=="created" (§4.9), forwarding
// the payload to the UI shell as an event; any other action is acknowledged
// but otherwise ignored.
func (s *Server) handlePasskeyDetected(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decodeBody(r, &payload) {
		writeError(w, "invalid request body")
		return
	}
	if action, _ := payload["action"].(string); action == "created" && s.OnPasskeyDetected != nil {
		s.OnPasskeyDetected(payload)
	}
	writeSuccess(w, map[string]any{"acknowledged": true})
}
