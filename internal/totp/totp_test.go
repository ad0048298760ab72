package totp_test

import (
	"testing"
	"time"

	"github.com/confpass-app/confpass/internal/totp"
)

func TestGenerateCodeStableWithinWindow(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	base := time.Unix(1_700_000_000, 0)

	code1, err := totp.GenerateCode(secret, base)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code1) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code1)
	}

	step := base.Truncate(30 * time.Second)
	code2, err := totp.GenerateCode(secret, step.Add(5*time.Second))
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if code2 != code1 || code1 == "" {
		// Recompute code1 at the same truncated boundary for a fair
		// comparison, since base might not be on a step boundary.
		code1AtStep, err := totp.GenerateCode(secret, step)
		if err != nil {
			t.Fatalf("generate at step: %v", err)
		}
		if code1AtStep != code2 {
			t.Fatalf("expected same code within a 30s window: %q vs %q", code1AtStep, code2)
		}
	}
}

func TestGenerateCodeRejectsUndecodableSecret(t *testing.T) {
	if _, err := totp.GenerateCode("###not-a-secret###", time.Now()); err == nil {
		t.Fatal("expected error for undecodable secret")
	}
}

func TestQRPNGBase64Nonempty(t *testing.T) {
	png, err := totp.QRPNGBase64("confpass", "alice@example.com", "JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if png == "" {
		t.Fatal("expected non-empty base64 PNG")
	}
}
