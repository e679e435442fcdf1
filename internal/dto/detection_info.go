package dto

import (
	"encoding/json"
	"time"

	"qrscanner/internal/service/decoder"
)

// DetectionInfo is a history row as exposed over HTTP.
type DetectionInfo struct {
	ID        int64             `json:"id"`
	Session   string            `json:"session"`
	Kind      string            `json:"kind"`
	Data      string            `json:"data,omitempty"`
	Version   int               `json:"version,omitempty"`
	Location  *decoder.Location `json:"location,omitempty"`
	Timestamp time.Time         `json:"-"`
}

// MarshalJSON formats the timestamp as DD-MM-YYYY HH:MM:SS like the rest of the UI.
func (d DetectionInfo) MarshalJSON() ([]byte, error) {
	type Alias DetectionInfo
	return json.Marshal(&struct {
		Alias
		Date string `json:"date"`
		Time string `json:"time"`
	}{
		Alias: Alias(d),
		Date:  d.Timestamp.Format("02-01-2006"),
		Time:  d.Timestamp.Format("15:04:05"),
	})
}
