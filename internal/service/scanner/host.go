package scanner

import (
	"context"
	"sync"
	"time"
)

// Host is the refresh scheduling primitive that drives the scan loop. The
// loop calls RequestFrame exactly once at the end of every tick. A request
// replaces any callback still pending, and the host must never run the
// callback synchronously from inside RequestFrame.
type Host interface {
	RequestFrame(cb func(now time.Time))
}

// TickerHost drives the loop from a time.Ticker for headless operation.
// Beats that arrive while no callback is pending are skipped, and a slow tick
// makes the ticker drop beats rather than queue them.
type TickerHost struct {
	interval time.Duration

	mu      sync.Mutex
	pending func(now time.Time)
}

func NewTickerHost(interval time.Duration) *TickerHost {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerHost{interval: interval}
}

func (h *TickerHost) RequestFrame(cb func(now time.Time)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = cb
}

// Run delivers beats until ctx is canceled.
func (h *TickerHost) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Beat(now)
		}
	}
}

// Beat runs the pending callback, if any. It reports whether one ran.
func (h *TickerHost) Beat(now time.Time) bool {
	h.mu.Lock()
	cb := h.pending
	h.pending = nil
	h.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(now)
	return true
}
