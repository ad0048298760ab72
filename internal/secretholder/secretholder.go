// Package secretholder holds the ephemeral master-password plaintext (C4): a
// zeroizing cell, plus the rotation timer that bounds its in-memory lifetime.
package secretholder

import (
	"sync"
	"time"
)

// zeroize overwrites buf in place, following the donor's zeroize helper
// pattern from internal/vault/entry_crypto.go.
func zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Holder is the zeroizing master-secret cell (§3, §4.4).
type Holder struct {
	mu      sync.Mutex
	secret  []byte
	setTime time.Time
}

// New returns an empty holder.
func New() *Holder { return &Holder{} }

// Set stores a copy of password and records the unlock time.
func (h *Holder) Set(password string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.secret = []byte(password)
	h.setTime = time.Now()
}

// Get copies the held secret out for use by C2; the critical section is held
// only long enough to copy, per §5.
func (h *Holder) Get() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.secret == nil {
		return "", false
	}
	return string(h.secret), true
}

// SetTime reports the timestamp of the most recent successful unlock.
func (h *Holder) SetTime() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.secret == nil {
		return time.Time{}, false
	}
	return h.setTime, true
}

// Drop zeroizes and clears the secret and its set-time (on lock, rotation
// expiry, or process exit).
func (h *Holder) Drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	zeroize(h.secret)
	h.secret = nil
	h.setTime = time.Time{}
}

// RotationTicker wakes every 60 s per §4.4 and, if rotationTimeout has
// elapsed since the last unlock, calls onExpire (which must zeroize the
// secret, clear set_time, set the locked flag, and clear the entry map as a
// single operation per the reconciliation/atomicity requirement in §9).
type RotationTicker struct {
	ticker *time.Ticker
	done   chan struct{}
}

const rotationTickInterval = 60 * time.Second

// StartRotationTicker launches the periodic rotation task. rotationTimeout
// of 0 disables rotation (onExpire is never called). Cancel stops the ticker;
// it must be called when the process exits.
func StartRotationTicker(h *Holder, rotationTimeout time.Duration, onExpire func()) *RotationTicker {
	rt := &RotationTicker{
		ticker: time.NewTicker(rotationTickInterval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-rt.done:
				return
			case now := <-rt.ticker.C:
				if rotationTimeout <= 0 {
					continue
				}
				setTime, ok := h.SetTime()
				if !ok {
					continue
				}
				if now.Sub(setTime) > rotationTimeout {
					onExpire()
				}
			}
		}
	}()
	return rt
}

// Cancel stops the rotation ticker goroutine.
func (rt *RotationTicker) Cancel() {
	rt.ticker.Stop()
	close(rt.done)
}
