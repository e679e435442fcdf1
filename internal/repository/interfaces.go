package repository

import (
	"qrscanner/internal/dto"
	"qrscanner/internal/model"
)

// DetectionRepository defines the interface for detection history operations.
type DetectionRepository interface {
	// Create operations
	Insert(det *model.Detection) (int64, error)
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetAll(filter *dto.DetectionFilters) ([]model.Detection, error)
	GetTotalCount(filter *dto.DetectionFilters) (int, error)
	GetPayloadCounts(limit int) ([]model.PayloadCount, error)
	GetSessions() ([]string, error)

	// Delete operations
	DeleteAll() error
	DeleteSession(sessionID string) error
}
