package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"qrscanner/internal/logger"
	"qrscanner/internal/service/result"
	"qrscanner/internal/service/scanner"
)

// Reporter exposes scanner status for read-only endpoints.
type Reporter interface {
	Report() scanner.Report
}

// Controller starts and stops scanning.
type Controller interface {
	Reporter
	Start(ctx context.Context) error
	Stop()
}

type scanResponse struct {
	Data    string `json:"data"`
	Present bool   `json:"present"`
}

// ScanResultHandler serves the shared scan result.
func ScanResultHandler(reader result.Reader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, present := reader.Load()
		writeJSON(w, http.StatusOK, scanResponse{Data: data, Present: present}, logger)
	}
}

// StatusHandler serves the scanner status and detection state.
func StatusHandler(reporter Reporter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reporter.Report(), logger)
	}
}

// StartScanHandler acquires the camera and starts scanning. Acquisition runs
// in the background; the response reports the status at the time of return.
func StartScanHandler(ctx context.Context, ctl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)
		go func() { errc <- ctl.Start(ctx) }()

		select {
		case err := <-errc:
			var acqErr *scanner.AcquisitionError
			switch {
			case err == nil:
				writeJSON(w, http.StatusOK, ctl.Report(), logger)
			case errors.Is(err, scanner.ErrAlreadyStarted):
				writeJSON(w, http.StatusConflict, ctl.Report(), logger)
			case errors.As(err, &acqErr), errors.Is(err, scanner.ErrClosed):
				writeJSON(w, http.StatusServiceUnavailable, ctl.Report(), logger)
			default:
				logger.Error("Error starting scanner: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		case <-r.Context().Done():
		}
	}
}

// StopScanHandler stops scanning and releases the camera.
func StopScanHandler(ctl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl.Stop()
		writeJSON(w, http.StatusOK, ctl.Report(), logger)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
