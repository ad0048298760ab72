package passkeys_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/passkeys"
)

func TestSaveListUpdateCounter(t *testing.T) {
	dir := t.TempDir()
	store := passkeys.Store{Dir: dir}

	p := passkeys.StoredPasskey{
		CredentialID: "c1", PrivateKey: "pk", RPID: "x.com", RPName: "X",
		UserID: "u1", UserName: "a", UserDisplayName: "a",
	}
	if err := store.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(p); err == nil {
		t.Fatal("expected duplicate credential_id to fail")
	}

	list, err := store.List("x.com")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}

	if err := store.UpdateCounter("c1", 5); err != nil {
		t.Fatalf("update counter: %v", err)
	}
	list, _ = store.List("")
	if list[0].Counter != 5 {
		t.Fatalf("expected counter 5, got %d", list[0].Counter)
	}
}

func TestReconcileOnUnlockRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	store := passkeys.Store{Dir: dir}
	store.Save(passkeys.StoredPasskey{CredentialID: "keep", PrivateKey: "pk"})
	store.Save(passkeys.StoredPasskey{CredentialID: "orphan", PrivateKey: "pk"})

	if err := store.ReconcileOnUnlock(map[string]bool{"keep": true}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	list, _ := store.List("")
	if len(list) != 1 || list[0].CredentialID != "keep" {
		t.Fatalf("expected only 'keep' to survive, got %+v", list)
	}
}

func TestGenerateKeyPairAndSign(t *testing.T) {
	pem, err := passkeys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sig, err := passkeys.Sign(pem, []byte("challenge"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}
}
