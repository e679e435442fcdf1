// Package result exposes the latest decoded payload to the rest of the process.
package result

import "sync"

// Reader is the read side of the shared scan result.
type Reader interface {
	// Load returns the current payload and whether one is set.
	Load() (string, bool)
}

// Slot holds at most one payload. Anyone may read it; only a Sink writes it.
type Slot struct {
	mu    sync.RWMutex
	value string
	set   bool
	live  bool
}

func NewSlot() *Slot {
	return &Slot{}
}

func (s *Slot) Load() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.set
}

// Live reports whether a scanner currently owns the slot.
func (s *Slot) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Reset empties the slot at scanner start.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.set, s.live = "", false, true
}

// Release empties the slot at scanner stop.
func (s *Slot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.set, s.live = "", false, false
}

func (s *Slot) store(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.set = payload, true
}

func (s *Slot) clear() (previous string, wasSet bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, wasSet = s.value, s.set
	s.value, s.set = "", false
	return previous, wasSet
}
