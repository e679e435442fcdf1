package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"qrscanner/internal/config"
	"qrscanner/internal/dto"
	"qrscanner/internal/logger"
	"qrscanner/internal/model"
	"qrscanner/internal/repository"
)

const (
	// DefaultBufferLimit caps how many events are held between flushes.
	DefaultBufferLimit = 64
	// DefaultFlushInterval is how often buffered events are written to the database.
	DefaultFlushInterval = 10 * time.Second
)

// HistoryService buffers detection events in memory and periodically flushes
// them to the detection repository. Notify never touches the database, so it
// is safe to call from the scan loop.
type HistoryService struct {
	events   []model.Detection
	limit    int
	interval time.Duration
	dropped  uint64
	full     chan struct{}
	mu       sync.Mutex
	flushMu  sync.Mutex
	logger   *logger.Logger
	repo     repository.DetectionRepository
}

// NewHistoryService creates a HistoryService writing to repo.
func NewHistoryService(cfg *config.Config, logger *logger.Logger, repo repository.DetectionRepository) *HistoryService {
	limit := cfg.HistoryBufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	interval := cfg.HistoryFlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	return &HistoryService{
		events:   make([]model.Detection, 0, limit),
		limit:    limit,
		interval: interval,
		full:     make(chan struct{}, 1),
		logger:   logger,
		repo:     repo,
	}
}

// Run flushes on every interval, and as soon as the buffer fills, until ctx
// is done. It then flushes once more.
func (s *HistoryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		case <-s.full:
			s.Flush()
		}
	}
}

// Notify records a detection event and wakes Run once the buffer is full.
// Events beyond the buffer limit are dropped until that flush completes.
func (s *HistoryService) Notify(event dto.DetectionEvent) {
	det := toDetection(event)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.limit {
		s.dropped++
		if s.dropped == 1 || s.dropped%100 == 0 {
			s.logger.Warning("History buffer full (%d), dropped %d events", s.limit, s.dropped)
		}
		s.signalFull()
		return
	}
	s.events = append(s.events, det)
	if len(s.events) >= s.limit {
		s.signalFull()
	}
}

func (s *HistoryService) signalFull() {
	select {
	case s.full <- struct{}{}:
	default:
	}
}

// Flush writes buffered events to the repository and returns how many were
// saved. A failed batch is put back at the front of the buffer.
func (s *HistoryService) Flush() int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.events
	s.events = make([]model.Detection, 0, s.limit)
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	if err := s.repo.InsertBatch(batch); err != nil {
		s.logger.Error("Error saving detections to database: %v", err)
		s.requeue(batch)
		return 0
	}

	s.logger.Info("Flushed %d detection events to database", len(batch))
	return len(batch)
}

func (s *HistoryService) requeue(batch []model.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append(batch, s.events...)
	if len(merged) > s.limit {
		s.dropped += uint64(len(merged) - s.limit)
		merged = merged[:s.limit]
	}
	s.events = merged
}

// Pending returns the number of buffered events.
func (s *HistoryService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Dropped returns the number of events lost to a full buffer.
func (s *HistoryService) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func toDetection(event dto.DetectionEvent) model.Detection {
	det := model.Detection{
		SessionID: event.Session,
		Timestamp: event.Timestamp,
	}

	switch event.Type {
	case dto.EventCleared:
		det.Kind = model.KindCleared
		det.Payload = event.Previous
	default:
		det.Kind = model.KindDetected
		det.Payload = event.Data
		det.Version = event.Version
		if event.Location != nil {
			if b, err := json.Marshal(event.Location); err == nil {
				det.Location = string(b)
			}
		}
	}
	return det
}
