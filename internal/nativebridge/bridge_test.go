package nativebridge_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/confpass-app/confpass/internal/nativebridge"
)

func TestHandleUnknownType(t *testing.T) {
	b := nativebridge.New(filepath.Join(t.TempDir(), "token"), "http://127.0.0.1:0")
	out := b.Handle(map[string]any{"type": "not_a_real_type"})
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %+v", out)
	}
}

func TestHandleMissingTokenFile(t *testing.T) {
	b := nativebridge.New(filepath.Join(t.TempDir(), "missing_token"), "http://127.0.0.1:0")
	out := b.Handle(map[string]any{"type": "ping"})
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %+v", out)
	}
	if out["error"] != "Authorization token not found on disk" {
		t.Fatalf("unexpected error message: %+v", out["error"])
	}
}

func TestHandleProxiesToLoopbackServiceWithToken(t *testing.T) {
	var gotAuth, gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"pong":true}}`))
	}))
	t.Cleanup(upstream.Close)

	tokenPath := filepath.Join(t.TempDir(), "native_auth_token")
	if err := os.WriteFile(tokenPath, []byte("secret-token"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}

	b := nativebridge.New(tokenPath, upstream.URL)
	out := b.Handle(map[string]any{"type": "ping"})
	if out["success"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
	if gotAuth != "secret-token" {
		t.Fatalf("expected token forwarded, got %q", gotAuth)
	}
	if gotPath != "/ping" {
		t.Fatalf("expected /ping, got %q", gotPath)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := map[string]any{"type": "ping", "nested": map[string]any{"a": float64(1)}}
	if err := nativebridge.WriteFrame(&buf, msg); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	got, err := nativebridge.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if got["type"] != "ping" {
		t.Fatalf("unexpected roundtrip: %+v", got)
	}
}
