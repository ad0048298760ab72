// Package autofill implements the loopback autofill service (C9): a bearer
// token-authenticated HTTP server that the native-messaging bridge proxies
// browser-extension requests to.
package autofill

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/passkeys"
	"github.com/confpass-app/confpass/internal/totp"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/gorilla/mux"
)

// ListenAddr is the fixed loopback address from §4.9/§6.
const ListenAddr = "127.0.0.1:1421"

// RefreshNotifier is called after a successful write that the UI shell
// should reflect (the "entries-updated" event of §6).
type RefreshNotifier func()

// Server hosts the loopback HTTP API.
type Server struct {
	Entries  *entries.Service
	Passkeys passkeys.Store
	Token    string
	OnRefresh RefreshNotifier
	OnPasskeyDetected func(payload map[string]any)
	OnFocusWindow     func()

	router *mux.Router
}

// New builds the router; call Handler() to get the net/http handler.
func New(svc *entries.Service, pk passkeys.Store, token string) *Server {
	svc.Passkeys = passkeys.Hook{Store: pk}
	s := &Server{Entries: svc, Passkeys: pk, Token: token}
	s.router = mux.NewRouter()
	s.router.Use(s.authMiddleware)
	s.router.Use(corsMiddleware)

	s.router.HandleFunc("/ping", s.handlePing).Methods("GET", "POST", "OPTIONS")
	s.router.HandleFunc("/get_password", s.handleGetPassword).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/save_password", s.handleSavePassword).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get_passwords_for_site", s.handleGetPasswordsForSite).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get_totp_code", s.handleGetTOTPCode).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/save_passkey", s.handleSavePasskey).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get_passkeys", s.handleGetPasskeys).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/update_passkey_counter", s.handleUpdatePasskeyCounter).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/passkey_detected", s.handlePasskeyDetected).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/focus_window", s.handleFocusWindow).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get_cards", s.handleGetCards).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get_addresses", s.handleGetAddresses).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/check_duplicate", s.handleCheckDuplicate).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/save_entry", s.handleSaveEntry).Methods("POST", "OPTIONS")
	return s
}

// Handler returns the net/http handler for the loopback listener.
func (s *Server) Handler() http.Handler { return s.router }

func corsMiddleware(next http.Handler) http.Handler {
	// CORS is permissive since the listener is loopback-only (§4.9).
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != s.Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// envelope is the {success, data|error} wire shape (§4.9).
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"status": "ok"})
}

func (s *Server) handleGetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct{ URL string `json:"url"` }
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	all, err := s.Entries.ListEntries()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	domain := ExtractDomain(req.URL)
	for _, e := range all {
		if e.Category != vaultfile.CategoryAccounts {
			continue
		}
		if DomainsMatch(ExtractDomain(e.URL), domain) {
			writeSuccess(w, entryView(e))
			return
		}
	}
	writeError(w, "no matching password found")
}

func (s *Server) handleSavePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		Username string `json:"username"`
		Password string `json:"password"`
		Title    string `json:"title"`
	}
	if !decodeBody(r, &req) || req.Username == "" || req.Password == "" {
		writeError(w, "invalid request body")
		return
	}
	title := req.Title
	if title == "" {
		title = "Web Site"
	}
	category := vaultfile.CategoryAccounts
	_, err := s.Entries.AddEntry(entries.Draft{
		Title:    &title,
		Username: &req.Username,
		Password: &req.Password,
		URL:      &req.URL,
		Category: &category,
	})
	if err != nil {
		writeError(w, err.Error())
		return
	}
	s.notifyRefresh()
	writeSuccess(w, map[string]any{"saved": true})
}

func (s *Server) handleGetPasswordsForSite(w http.ResponseWriter, r *http.Request) {
	var req struct{ URL string `json:"url"` }
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	all, err := s.Entries.ListEntries()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	domain := ExtractDomain(req.URL)

	var authenticators []vaultfile.Entry
	for _, e := range all {
		if e.Category == vaultfile.CategoryAuthenticator && DomainsMatch(authenticatorIssuer(e), domain) {
			authenticators = append(authenticators, e)
		}
	}

	var passwords []map[string]any
	for _, e := range all {
		if e.Category != vaultfile.CategoryAccounts || !DomainsMatch(ExtractDomain(e.URL), domain) {
			continue
		}
		view := entryView(e)
		if auth, ok := pairedAuthenticator(e, authenticators); ok {
			code, err := totp.GenerateCode(authenticatorSecret(auth), time.Now())
			if err == nil {
				view["hasTotp"] = true
				view["totpIssuer"] = authenticatorIssuer(auth)
				view["totpCode"] = code
			}
		}
		passwords = append(passwords, view)
	}

	var authView []map[string]any
	for _, a := range authenticators {
		code, err := totp.GenerateCode(authenticatorSecret(a), time.Now())
		entry := map[string]any{"title": a.Title, "issuer": authenticatorIssuer(a)}
		if err == nil {
			entry["code"] = code
		}
		authView = append(authView, entry)
	}

	writeSuccess(w, map[string]any{"passwords": passwords, "authenticators": authView})
}

func (s *Server) handleGetTOTPCode(w http.ResponseWriter, r *http.Request) {
	var req struct{ Domain string `json:"domain"` }
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	all, err := s.Entries.ListEntries()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	for _, e := range all {
		if e.Category != vaultfile.CategoryAuthenticator {
			continue
		}
		if DomainsMatch(ExtractDomain(e.Title), req.Domain) || DomainsMatch(ExtractDomain(e.URL), req.Domain) {
			code, err := totp.GenerateCode(authenticatorSecret(e), time.Now())
			if err != nil {
				writeError(w, "failed to compute totp code")
				return
			}
			writeSuccess(w, map[string]any{
				"code":    code,
				"issuer":  authenticatorIssuer(e),
				"account": authenticatorAccount(e),
			})
			return
		}
	}
	writeError(w, "no matching authenticator found")
}

func (s *Server) notifyRefresh() {
	if s.OnRefresh != nil {
		s.OnRefresh()
	}
}

// entryView flattens notes-JSON extra data over the base entry fields, the
// way §4.9's /get_cards and /get_addresses responses are described.
func entryView(e vaultfile.Entry) map[string]any {
	view := map[string]any{
		"id":       e.ID,
		"title":    e.Title,
		"username": e.Username,
		"password": e.Password,
		"url":      e.URL,
	}
	if e.Notes != "" {
		var extra map[string]any
		if json.Unmarshal([]byte(e.Notes), &extra) == nil {
			for k, v := range extra {
				view[k] = v
			}
		}
	}
	return view
}

func authenticatorNotes(e vaultfile.Entry) map[string]any {
	var notes map[string]any
	if e.Notes != "" {
		json.Unmarshal([]byte(e.Notes), &notes)
	}
	return notes
}

func authenticatorSecret(e vaultfile.Entry) string {
	if notes := authenticatorNotes(e); notes != nil {
		if v, ok := notes["secret"].(string); ok {
			return v
		}
	}
	return ""
}

func authenticatorIssuer(e vaultfile.Entry) string {
	if notes := authenticatorNotes(e); notes != nil {
		if v, ok := notes["issuer"].(string); ok && v != "" {
			return v
		}
	}
	return e.Title
}

func authenticatorAccount(e vaultfile.Entry) string {
	if notes := authenticatorNotes(e); notes != nil {
		if v, ok := notes["account"].(string); ok && v != "" {
			return v
		}
	}
	return e.Username
}

// pairedAuthenticator implements §4.9.2: an authenticator pairs with an
// accounts entry iff both account-identity and domain/issuer match.
func pairedAuthenticator(account vaultfile.Entry, authenticators []vaultfile.Entry) (vaultfile.Entry, bool) {
	for _, a := range authenticators {
		if !mutualContainment(account.Username, authenticatorAccount(a)) {
			continue
		}
		if !mutualContainment(ExtractDomain(account.URL), authenticatorIssuer(a)) {
			continue
		}
		return a, true
	}
	return vaultfile.Entry{}, false
}

func (s *Server) handleFocusWindow(w http.ResponseWriter, r *http.Request) {
	if s.OnFocusWindow != nil {
		s.OnFocusWindow()
	}
	writeSuccess(w, map[string]any{"focused": true})
}

func (s *Server) handleGetCards(w http.ResponseWriter, r *http.Request) {
	s.listCategory(w, vaultfile.CategoryBankCards)
}

func (s *Server) handleGetAddresses(w http.ResponseWriter, r *http.Request) {
	s.listCategory(w, vaultfile.CategoryAddresses)
}

func (s *Server) listCategory(w http.ResponseWriter, category string) {
	all, err := s.Entries.ListEntries()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	var out []map[string]any
	for _, e := range all {
		if e.Category == category {
			out = append(out, entryView(e))
		}
	}
	writeSuccess(w, out)
}

func (s *Server) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string            `json:"category"`
		Fields   map[string]string `json:"fields"`
	}
	if !decodeBody(r, &req) {
		writeError(w, "invalid request body")
		return
	}
	all, err := s.Entries.ListEntries()
	if err != nil {
		writeError(w, err.Error())
		return
	}
	for _, e := range all {
		if e.Category != req.Category {
			continue
		}
		switch req.Category {
		case vaultfile.CategoryAccounts:
			if e.Username == req.Fields["username"] && DomainsMatch(ExtractDomain(e.URL), ExtractDomain(req.Fields["domain"])) {
				writeSuccess(w, map[string]any{"duplicate": true})
				return
			}
		case vaultfile.CategoryBankCards:
			if normalizeCardNumber(entryExtraString(e, "cardNumber")) == normalizeCardNumber(req.Fields["cardNumber"]) {
				writeSuccess(w, map[string]any{"duplicate": true})
				return
			}
		case vaultfile.CategoryAddresses:
			if entryExtraString(e, "street") == req.Fields["street"] && entryExtraString(e, "postal") == req.Fields["postal"] {
				writeSuccess(w, map[string]any{"duplicate": true})
				return
			}
		}
	}
	writeSuccess(w, map[string]any{"duplicate": false})
}

func normalizeCardNumber(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "-", "")
}

func entryExtraString(e vaultfile.Entry, key string) string {
	notes := authenticatorNotes(e)
	if notes == nil {
		return ""
	}
	if v, ok := notes[key].(string); ok {
		return v
	}
	return ""
}

func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string            `json:"title"`
		Username string            `json:"username"`
		Password string            `json:"password"`
		URL      string            `json:"url"`
		Notes    string            `json:"notes"`
		Category string            `json:"category"`
		Extra    map[string]string `json:"extra"`
	}
	if !decodeBody(r, &req) || req.Category == "" {
		writeError(w, "invalid request body")
		return
	}
	e, err := s.Entries.AddEntry(entries.Draft{
		Title: &req.Title, Username: &req.Username, Password: &req.Password,
		URL: &req.URL, Notes: &req.Notes, Category: &req.Category, Extra: req.Extra,
	})
	if err != nil {
		writeError(w, err.Error())
		return
	}
	s.notifyRefresh()
	writeSuccess(w, entryView(e))
}
