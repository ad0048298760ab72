package vaulterr_test

import (
	"fmt"
	"testing"

	"github.com/confpass-app/confpass/internal/vaulterr"
)

func TestAsUnwraps(t *testing.T) {
	base := vaulterr.NotFound("entry missing")
	wrapped := fmt.Errorf("list entries: %w", base)

	ve, ok := vaulterr.As(wrapped)
	if !ok {
		t.Fatalf("expected wrapped error to unwrap to *vaulterr.Error")
	}
	if ve.Kind != vaulterr.KindNotFound {
		t.Fatalf("kind = %v, want %v", ve.Kind, vaulterr.KindNotFound)
	}
}

func TestWrongPasswordIndistinguishable(t *testing.T) {
	if vaulterr.WrongPassword().Kind != vaulterr.KindWrongPassword {
		t.Fatalf("unexpected kind")
	}
}
