package cryptoprim_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/cryptoprim"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	blob, err := cryptoprim.Seal(key, []byte("hello vault"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := cryptoprim.Open(key, blob, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(got) != "hello vault" {
		t.Fatalf("got %q, want %q", got, "hello vault")
	}
}

func TestOpenRejectsShortBlob(t *testing.T) {
	key := make([]byte, 32)
	if _, err := cryptoprim.Open(key, "AAAA", nil); err == nil {
		t.Fatal("expected error for too-short blob")
	}
}

func TestVerifierCheck(t *testing.T) {
	v, err := cryptoprim.NewVerifier("correct horse battery staple")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if !v.Check("correct horse battery staple") {
		t.Fatal("expected correct password to verify")
	}
	if v.Check("wrong password") {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestDeriveDataKeyDeterministic(t *testing.T) {
	salt, err := cryptoprim.NewDataKeySalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	k1, err := cryptoprim.DeriveDataKey("hunter2", salt)
	if err != nil {
		t.Fatalf("derive 1: %v", err)
	}
	k2, err := cryptoprim.DeriveDataKey("hunter2", salt)
	if err != nil {
		t.Fatalf("derive 2: %v", err)
	}
	if string(k1) != string(k2) {
		t.Fatal("expected deterministic derivation for the same password and salt")
	}
}
