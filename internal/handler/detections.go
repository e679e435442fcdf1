package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"qrscanner/internal/dto"
	"qrscanner/internal/logger"
	"qrscanner/internal/model"
	"qrscanner/internal/repository"
	"qrscanner/internal/service/decoder"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Flusher writes buffered history so reads see recent events.
type Flusher interface {
	Flush() int
}

// GetDetectionsHandler returns a filtered page of the detection history.
func GetDetectionsHandler(repo repository.DetectionRepository, history Flusher, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := atoiDefault(q.Get("limit"), defaultPageLimit)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		filter := &dto.DetectionFilters{
			Session: q.Get("session"),
			Payload: q.Get("payload"),
			Kind:    q.Get("kind"),
			Limit:   limit,
			Offset:  atoiDefault(q.Get("offset"), 0),
		}

		if history != nil {
			history.Flush()
		}

		rows, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying detections from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		total, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting detections: %v", err)
			total = len(rows)
		}

		page := dto.DetectionPage{
			Detections: make([]dto.DetectionInfo, 0, len(rows)),
			Total:      total,
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		}
		for _, det := range rows {
			page.Detections = append(page.Detections, toInfo(det, logger))
		}

		writeJSON(w, http.StatusOK, page, logger)
	}
}

// ClearDetectionsHandler deletes the history, or one session of it when
// the "session" query parameter is set.
func ClearDetectionsHandler(repo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := r.URL.Query().Get("session")

		var err error
		if session != "" {
			err = repo.DeleteSession(session)
		} else {
			err = repo.DeleteAll()
		}
		if err != nil {
			logger.Error("Error clearing detections: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if session != "" {
			logger.Info("Detection history cleared for session %s", session)
		} else {
			logger.Info("Detection history cleared")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toInfo(det model.Detection, logger *logger.Logger) dto.DetectionInfo {
	info := dto.DetectionInfo{
		ID:        det.ID,
		Session:   det.SessionID,
		Kind:      string(det.Kind),
		Data:      det.Payload,
		Version:   det.Version,
		Timestamp: det.Timestamp,
	}
	if det.Location != "" {
		var loc decoder.Location
		if err := json.Unmarshal([]byte(det.Location), &loc); err != nil {
			logger.Warning("Bad location on detection %d: %v", det.ID, err)
		} else {
			info.Location = &loc
		}
	}
	return info
}

// atoiDefault converts s to int or returns def when conversion fails or the value is negative.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
