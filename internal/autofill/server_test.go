package autofill_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/confpass-app/confpass/internal/autofill"
	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/passkeys"
)

func newTestServer(t *testing.T) (*autofill.Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	svc := entries.New(dir)
	if err := svc.SetMaster("pw"); err != nil {
		t.Fatalf("set master: %v", err)
	}
	srv := autofill.New(svc, passkeys.Store{Dir: dir}, "test-token")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, ts *httptest.Server, token, path string, body any) map[string]any {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", ts.URL+path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func TestUnauthorizedRequestRejected(t *testing.T) {
	_, ts := newTestServer(t)
	req, _ := http.NewRequest("POST", ts.URL+"/ping", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSaveAndAutofillRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)

	out := postJSON(t, ts, "test-token", "/save_password", map[string]any{
		"url": "https://example.com/login", "username": "alice", "password": "p4ss",
	})
	if out["success"] != true {
		t.Fatalf("save_password failed: %+v", out)
	}

	out = postJSON(t, ts, "test-token", "/get_passwords_for_site", map[string]any{
		"url": "https://www.example.com/",
	})
	if out["success"] != true {
		t.Fatalf("get_passwords_for_site failed: %+v", out)
	}
	data := out["data"].(map[string]any)
	passwords := data["passwords"].([]any)
	if len(passwords) != 1 {
		t.Fatalf("expected one matching password, got %+v", passwords)
	}
	row := passwords[0].(map[string]any)
	if row["username"] != "alice" || row["password"] != "p4ss" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestPairedTOTPAnnotatesAccountRow(t *testing.T) {
	_, ts := newTestServer(t)

	postJSON(t, ts, "test-token", "/save_password", map[string]any{
		"url": "https://github.com/", "username": "alice@x.io", "password": "p4ss",
	})

	notes, _ := json.Marshal(map[string]string{
		"secret": "JBSWY3DPEHPK3PXP", "issuer": "GitHub", "account": "alice@x.io",
	})
	postJSON(t, ts, "test-token", "/save_entry", map[string]any{
		"title": "GitHub", "username": "alice@x.io", "category": "authenticator",
		"notes": string(notes),
	})

	out := postJSON(t, ts, "test-token", "/get_passwords_for_site", map[string]any{"url": "https://github.com/"})
	data := out["data"].(map[string]any)
	passwords := data["passwords"].([]any)
	row := passwords[0].(map[string]any)
	if row["hasTotp"] != true || row["totpIssuer"] != "GitHub" {
		t.Fatalf("expected paired totp annotation, got %+v", row)
	}
	code, _ := row["totpCode"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit totp code, got %q", code)
	}
}

func TestSavePasskeyThenGetPasskeysThenSoftDelete(t *testing.T) {
	srv, ts := newTestServer(t)

	out := postJSON(t, ts, "test-token", "/save_passkey", map[string]any{
		"credentialId": "c1", "privateKey": "pk", "rpId": "x.com", "rpName": "X",
		"userId": "u1", "userName": "a", "userDisplayName": "a",
	})
	if out["success"] != true {
		t.Fatalf("save_passkey failed: %+v", out)
	}

	out = postJSON(t, ts, "test-token", "/get_passkeys", map[string]any{"rpId": "x.com"})
	data := out["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected one passkey, got %+v", data)
	}

	list, err := srv.Entries.ListEntries()
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	var mirroredID string
	for _, e := range list {
		if e.Title == "X" {
			mirroredID = e.ID
		}
	}
	if mirroredID == "" {
		t.Fatal("expected passkey to be mirrored into the vault")
	}
	if err := srv.Entries.SoftDelete(mirroredID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	out = postJSON(t, ts, "test-token", "/get_passkeys", map[string]any{"rpId": "x.com"})
	data, _ = out["data"].([]any)
	if len(data) != 0 {
		t.Fatalf("expected passkeys sidecar to be empty after soft delete, got %+v", data)
	}
}
