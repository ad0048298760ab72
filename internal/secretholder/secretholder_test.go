package secretholder_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/confpass-app/confpass/internal/secretholder"
)

func TestSetGetDrop(t *testing.T) {
	h := secretholder.New()
	if _, ok := h.Get(); ok {
		t.Fatal("expected empty holder")
	}
	h.Set("hunter2")
	got, ok := h.Get()
	if !ok || got != "hunter2" {
		t.Fatalf("got %q, %v", got, ok)
	}
	h.Drop()
	if _, ok := h.Get(); ok {
		t.Fatal("expected empty holder after drop")
	}
}

func TestRotationTickerFiresOnExpiry(t *testing.T) {
	h := secretholder.New()
	h.Set("hunter2")

	var fired int32
	rt := secretholder.StartRotationTicker(h, time.Nanosecond, func() {
		atomic.StoreInt32(&fired, 1)
		h.Drop()
	})
	defer rt.Cancel()

	// The ticker wakes every 60 s, so allow one full tick plus slack.
	deadline := time.Now().Add(65 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&fired) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected rotation to fire within the deadline")
}
