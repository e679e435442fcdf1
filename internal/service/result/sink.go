package result

import (
	"sync"
	"time"

	"qrscanner/internal/dto"
	"qrscanner/internal/logger"
	"qrscanner/internal/service/decoder"
)

// Notifier receives every detection event. Notify is called from the scan
// loop and must not block.
type Notifier interface {
	Notify(event dto.DetectionEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event dto.DetectionEvent)

func (f NotifierFunc) Notify(event dto.DetectionEvent) {
	f(event)
}

// Sink is the single writer of a Slot and the dispatcher of detection events.
type Sink struct {
	slot      *Slot
	notifiers []Notifier
	logger    *logger.Logger

	mu      sync.Mutex
	session string
}

func NewSink(slot *Slot, logger *logger.Logger, notifiers ...Notifier) *Sink {
	return &Sink{
		slot:      slot,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Reader returns the read side of the slot this sink writes.
func (s *Sink) Reader() Reader {
	return s.slot
}

// SetSession tags subsequent events with a scan session id.
func (s *Sink) SetSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = id
}

// Open empties the slot and tags subsequent events with the session id.
func (s *Sink) Open(session string) {
	s.slot.Reset()
	s.SetSession(session)
	s.logger.Info("🔄 Scan result initialized to empty (session %s)", session)
}

// Close releases the slot when scanning stops.
func (s *Sink) Close() {
	s.slot.Release()
}

// Publish stores the payload and dispatches a qr-detected event.
func (s *Sink) Publish(now time.Time, sym decoder.Symbol) {
	s.slot.store(sym.Payload)

	location := sym.Location
	event := dto.DetectionEvent{
		Type:      dto.EventDetected,
		Data:      sym.Payload,
		Version:   sym.Version,
		Location:  &location,
		Timestamp: now,
	}
	s.logger.Info("📤 Scan result published: timestamp=%s length=%d", now.Format(time.RFC3339Nano), len(sym.Payload))
	s.dispatch(event)
}

// Retract empties the slot and dispatches a qr-cleared event. It is a no-op
// when nothing is published.
func (s *Sink) Retract(now time.Time) {
	previous, wasSet := s.slot.clear()
	if !wasSet {
		return
	}

	s.logger.Info("🗑️ Scan result cleared (no QR detected): timestamp=%s previous=%q", now.Format(time.RFC3339Nano), previous)
	s.dispatch(dto.DetectionEvent{
		Type:      dto.EventCleared,
		Previous:  previous,
		Timestamp: now,
	})
}

func (s *Sink) dispatch(event dto.DetectionEvent) {
	s.mu.Lock()
	event.Session = s.session
	s.mu.Unlock()

	for _, n := range s.notifiers {
		n.Notify(event)
	}
}
