package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"qrscanner/internal/config"
	"qrscanner/internal/dto"
	"qrscanner/internal/logger"
	"qrscanner/internal/model"
	"qrscanner/internal/service/decoder"
)

type memoryRepo struct {
	mu      sync.Mutex
	rows    []model.Detection
	failing bool
}

func (r *memoryRepo) Insert(det *model.Detection) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *det)
	return int64(len(r.rows)), nil
}

func (r *memoryRepo) InsertBatch(detections []model.Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("disk full")
	}
	r.rows = append(r.rows, detections...)
	return nil
}

func (r *memoryRepo) GetAll(*dto.DetectionFilters) ([]model.Detection, error) { return r.rows, nil }
func (r *memoryRepo) GetTotalCount(*dto.DetectionFilters) (int, error)        { return len(r.rows), nil }
func (r *memoryRepo) GetPayloadCounts(int) ([]model.PayloadCount, error)      { return nil, nil }
func (r *memoryRepo) GetSessions() ([]string, error)                          { return nil, nil }
func (r *memoryRepo) DeleteAll() error                                        { return nil }
func (r *memoryRepo) DeleteSession(string) error                              { return nil }

func newHistory(limit int, repo *memoryRepo) *HistoryService {
	cfg := &config.Config{HistoryBufferLimit: limit, HistoryFlushInterval: time.Hour}
	return NewHistoryService(cfg, logger.NewWriterLogger(io.Discard), repo)
}

func detected(payload string) dto.DetectionEvent {
	return dto.DetectionEvent{
		Type:      dto.EventDetected,
		Data:      payload,
		Version:   2,
		Location:  &decoder.Location{TopLeft: decoder.Point{X: 1, Y: 2}},
		Session:   "session",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHistory_FlushWritesBuffer(t *testing.T) {
	repo := &memoryRepo{}
	h := newHistory(10, repo)

	h.Notify(detected("a"))
	h.Notify(dto.DetectionEvent{Type: dto.EventCleared, Previous: "a", Session: "session"})

	if h.Pending() != 2 {
		t.Fatalf("Expected 2 pending events, got %d", h.Pending())
	}
	if n := h.Flush(); n != 2 {
		t.Errorf("Expected 2 flushed, got %d", n)
	}
	if h.Pending() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", h.Pending())
	}

	if len(repo.rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(repo.rows))
	}
	if repo.rows[0].Kind != model.KindDetected || repo.rows[0].Payload != "a" || repo.rows[0].Version != 2 {
		t.Errorf("Unexpected detected row: %+v", repo.rows[0])
	}
	if repo.rows[0].Location == "" {
		t.Error("Expected location JSON on detected row")
	}
	if repo.rows[1].Kind != model.KindCleared || repo.rows[1].Payload != "a" {
		t.Errorf("Unexpected cleared row: %+v", repo.rows[1])
	}
}

func TestHistory_BufferLimit(t *testing.T) {
	h := newHistory(2, &memoryRepo{})

	for _, p := range []string{"a", "b", "c", "d"} {
		h.Notify(detected(p))
	}

	if h.Pending() != 2 {
		t.Errorf("Expected 2 pending events, got %d", h.Pending())
	}
	if h.Dropped() != 2 {
		t.Errorf("Expected 2 dropped events, got %d", h.Dropped())
	}
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func TestHistory_FullBufferFlushesEarly(t *testing.T) {
	repo := &memoryRepo{}
	h := newHistory(4, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	waitRows := func(n int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for repo.count() < n {
			if time.Now().After(deadline) {
				t.Fatalf("Expected %d rows before the flush interval, got %d", n, repo.count())
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	for _, p := range []string{"a", "b", "c", "d"} {
		h.Notify(detected(p))
	}
	waitRows(4)

	for _, p := range []string{"e", "f", "g", "h"} {
		h.Notify(detected(p))
	}
	waitRows(8)

	if h.Dropped() != 0 {
		t.Errorf("Expected no dropped events, got %d", h.Dropped())
	}
}

func TestHistory_FailedFlushRequeues(t *testing.T) {
	repo := &memoryRepo{failing: true}
	h := newHistory(3, repo)

	h.Notify(detected("a"))
	h.Notify(detected("b"))

	if n := h.Flush(); n != 0 {
		t.Errorf("Expected nothing flushed, got %d", n)
	}
	if h.Pending() != 2 {
		t.Fatalf("Expected events to be requeued, got %d pending", h.Pending())
	}

	repo.failing = false
	if n := h.Flush(); n != 2 {
		t.Errorf("Expected 2 flushed after recovery, got %d", n)
	}
}

func TestHistory_FlushEmpty(t *testing.T) {
	if n := newHistory(2, &memoryRepo{}).Flush(); n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
}

func TestNewHistoryService_Defaults(t *testing.T) {
	h := NewHistoryService(&config.Config{}, logger.NewWriterLogger(io.Discard), &memoryRepo{})
	if h.limit != DefaultBufferLimit {
		t.Errorf("Expected limit %d, got %d", DefaultBufferLimit, h.limit)
	}
	if h.interval != DefaultFlushInterval {
		t.Errorf("Expected interval %v, got %v", DefaultFlushInterval, h.interval)
	}
}
