package model

import "time"

// DetectionKind tells a fresh detection from the loss of one.
type DetectionKind string

const (
	KindDetected DetectionKind = "detected"
	KindCleared  DetectionKind = "cleared"
)

// Detection is one row of the detection history.
type Detection struct {
	ID        int64         `json:"id"`
	SessionID string        `json:"session_id"`
	Kind      DetectionKind `json:"kind"`
	Payload   string        `json:"payload"`
	Version   int           `json:"version"`
	Location  string        `json:"location"` // JSON corner set, empty for cleared rows
	Timestamp time.Time     `json:"timestamp"`
}

// PayloadCount aggregates how often a payload was detected.
type PayloadCount struct {
	Payload  string    `json:"payload"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}
