// Package nativebridge implements the native-messaging bridge (C10): a
// stateless proxy that reads 4-byte length-prefixed JSON frames on stdin,
// maps each message's type to a loopback endpoint, forwards it over HTTP with
// the process auth token, and writes the response back in the same framing.
//
// No state is kept between messages (§4.10) — this supersedes both variants
// of the system this was distilled from, one of which kept its own local
// session state and the other of which was driven by desktop-shell events.
package nativebridge

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// EndpointTable maps a native-message `type` to the loopback endpoint it
// proxies to (e.g. "open_app" -> "focus_window").
var EndpointTable = map[string]string{
	"ping":                    "/ping",
	"get_password":            "/get_password",
	"save_password":           "/save_password",
	"get_passwords_for_site":  "/get_passwords_for_site",
	"get_totp_code":           "/get_totp_code",
	"save_passkey":            "/save_passkey",
	"get_passkeys":            "/get_passkeys",
	"update_passkey_counter":  "/update_passkey_counter",
	"passkey_detected":        "/passkey_detected",
	"open_app":                "/focus_window",
	"get_cards":               "/get_cards",
	"get_addresses":           "/get_addresses",
	"check_duplicate":         "/check_duplicate",
	"save_entry":              "/save_entry",
}

// Bridge holds the dependencies a single request needs: where to read the
// auth token from and which base URL to proxy to.
type Bridge struct {
	TokenPath string
	BaseURL   string
	Client    *http.Client
}

// New returns a Bridge with the spec's 5-second HTTP timeout (§4.10, §5).
func New(tokenPath, baseURL string) *Bridge {
	return &Bridge{
		TokenPath: tokenPath,
		BaseURL:   baseURL,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Handle dispatches a single decoded message by its `type` field and returns
// the JSON response to write back.
func (b *Bridge) Handle(msg map[string]any) map[string]any {
	msgType, _ := msg["type"].(string)

	if msgType == "phishing_check" {
		return handlePhishingCheck(msg)
	}

	endpoint, known := EndpointTable[msgType]
	if !known {
		return map[string]any{"success": false, "error": "unknown message type: " + msgType}
	}

	token, err := os.ReadFile(b.TokenPath)
	if err != nil {
		return map[string]any{"success": false, "error": "Authorization token not found on disk"}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return map[string]any{"success": false, "error": "failed to encode request"}
	}

	req, err := http.NewRequest(http.MethodPost, b.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return map[string]any{"success": false, "error": "failed to build request"}
	}
	req.Header.Set("Authorization", string(bytes.TrimSpace(token)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("connection error: %v", err)}
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return map[string]any{"success": false, "error": "invalid response from loopback service"}
	}
	return out
}

// ReadFrame reads a 4-byte little-endian length prefix followed by a JSON
// message from r (§4.10, §6).
func ReadFrame(r io.Reader) (map[string]any, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	var msg map[string]any
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// WriteFrame writes msg with the same 4-byte length-prefixed framing.
func WriteFrame(w io.Writer, msg map[string]any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(raw)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}
