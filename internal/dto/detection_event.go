package dto

import (
	"time"

	"qrscanner/internal/service/decoder"
)

// EventType names a detection notification on the wire.
type EventType string

const (
	EventDetected EventType = "qr-detected"
	EventCleared  EventType = "qr-cleared"
)

// DetectionEvent is broadcast to viewers and recorded in the history.
// Data/Version/Location are set for qr-detected; Previous for qr-cleared.
type DetectionEvent struct {
	Type      EventType         `json:"type"`
	Data      string            `json:"data,omitempty"`
	Version   int               `json:"version,omitempty"`
	Location  *decoder.Location `json:"location,omitempty"`
	Previous  string            `json:"previous,omitempty"`
	Session   string            `json:"session,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
