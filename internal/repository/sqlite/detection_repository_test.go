package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qrscanner/internal/dto"
	"qrscanner/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	db, err := New(filepath.Join(tempDir, "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, repo *DetectionRepository, base time.Time) {
	t.Helper()

	detections := []model.Detection{
		{SessionID: "s1", Kind: model.KindDetected, Payload: "https://example.com", Version: 3, Location: `{"topLeftCorner":{"x":1,"y":2}}`, Timestamp: base},
		{SessionID: "s1", Kind: model.KindCleared, Payload: "https://example.com", Timestamp: base.Add(2 * time.Second)},
		{SessionID: "s1", Kind: model.KindDetected, Payload: "WIFI:S:home;;", Version: 2, Timestamp: base.Add(3 * time.Second)},
		{SessionID: "s2", Kind: model.KindDetected, Payload: "https://example.com", Version: 3, Timestamp: base.Add(time.Minute)},
	}
	if err := repo.InsertBatch(detections); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
}

func TestDatabase_Connection(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_conn_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDetectionRepository_InsertAndGetAll(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))
	ts := time.Date(2026, 3, 14, 9, 26, 53, 500_000_000, time.UTC)

	id, err := repo.Insert(&model.Detection{
		SessionID: "abc",
		Kind:      model.KindDetected,
		Payload:   "hello",
		Version:   1,
		Location:  `{}`,
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("Expected positive id, got %d", id)
	}

	all, err := repo.GetAll(&dto.DetectionFilters{})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(all))
	}

	got := all[0]
	if got.SessionID != "abc" || got.Kind != model.KindDetected || got.Payload != "hello" || got.Version != 1 {
		t.Errorf("Unexpected row: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, got.Timestamp)
	}
}

func TestDetectionRepository_Filters(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))
	seed(t, repo, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		filter   *dto.DetectionFilters
		expected int
	}{
		{"no filter", &dto.DetectionFilters{}, 4},
		{"nil filter", nil, 4},
		{"session", &dto.DetectionFilters{Session: "s1"}, 3},
		{"payload substring", &dto.DetectionFilters{Payload: "example"}, 3},
		{"kind", &dto.DetectionFilters{Kind: string(model.KindCleared)}, 1},
		{"combined", &dto.DetectionFilters{Session: "s2", Payload: "example", Kind: string(model.KindDetected)}, 1},
		{"no match", &dto.DetectionFilters{Session: "missing"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(rows) != tt.expected {
				t.Errorf("Expected %d rows, got %d", tt.expected, len(rows))
			}

			count, err := repo.GetTotalCount(tt.filter)
			if err != nil {
				t.Fatalf("GetTotalCount failed: %v", err)
			}
			if count != tt.expected {
				t.Errorf("Expected count %d, got %d", tt.expected, count)
			}
		})
	}
}

func TestDetectionRepository_Pagination(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))
	seed(t, repo, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	first, err := repo.GetAll(&dto.DetectionFilters{Limit: 2})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(first))
	}
	if first[0].SessionID != "s2" {
		t.Errorf("Expected newest row first, got session %s", first[0].SessionID)
	}

	second, err := repo.GetAll(&dto.DetectionFilters{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(second))
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Error("Expected pages not to overlap")
	}
}

func TestDetectionRepository_PayloadCounts(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seed(t, repo, base)

	counts, err := repo.GetPayloadCounts(0)
	if err != nil {
		t.Fatalf("GetPayloadCounts failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("Expected 2 payloads, got %d", len(counts))
	}
	if counts[0].Payload != "https://example.com" || counts[0].Count != 2 {
		t.Errorf("Unexpected top payload: %+v", counts[0])
	}
	if !counts[0].LastSeen.Equal(base.Add(time.Minute)) {
		t.Errorf("Expected last seen %v, got %v", base.Add(time.Minute), counts[0].LastSeen)
	}

	limited, err := repo.GetPayloadCounts(1)
	if err != nil {
		t.Fatalf("GetPayloadCounts failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 payload, got %d", len(limited))
	}
}

func TestDetectionRepository_SessionsAndDelete(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))
	seed(t, repo, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	sessions, err := repo.GetSessions()
	if err != nil {
		t.Fatalf("GetSessions failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "s2" {
		t.Errorf("Expected [s2 s1], got %v", sessions)
	}

	if err := repo.DeleteSession("s2"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if count, _ := repo.GetTotalCount(nil); count != 3 {
		t.Errorf("Expected 3 rows after deleting a session, got %d", count)
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if count, _ := repo.GetTotalCount(nil); count != 0 {
		t.Errorf("Expected 0 rows after DeleteAll, got %d", count)
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	repo := NewDetectionRepository(newTestDB(t))

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := repo.Insert(&model.Detection{
				SessionID: "concurrent",
				Kind:      model.KindDetected,
				Payload:   "payload_" + string(rune('a'+idx)),
				Timestamp: time.Now(),
			})
			if err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	count, _ := repo.GetTotalCount(&dto.DetectionFilters{})
	if count != 10 {
		t.Errorf("Expected 10 detections, got %d", count)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2026-01-01 12:00:00+00:00", false},
		{"2026-01-01 12:00:00.5+00:00", false},
		{"2026-01-01T12:00:00", false},
		{"2026-01-01", false},
		{"yesterday", true},
	}

	for _, tt := range tests {
		_, err := parseTimestamp(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimestamp(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
