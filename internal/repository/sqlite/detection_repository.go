package sqlite

import (
	"fmt"

	"qrscanner/internal/dto"
	"qrscanner/internal/model"
)

const insertDetection = `
	INSERT INTO detections (session_id, kind, payload, version, location, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
`

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a new detection record to the database.
func (r *DetectionRepository) Insert(det *model.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertDetection,
		det.SessionID, det.Kind, det.Payload, det.Version, det.Location, det.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.SessionID, det.Kind, det.Payload, det.Version, det.Location, det.Timestamp.UTC()); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

func whereClause(filter *dto.DetectionFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Session != "" {
		query += " AND session_id = ?"
		args = append(args, filter.Session)
	}

	if filter.Payload != "" {
		query += " AND payload LIKE ?"
		args = append(args, "%"+filter.Payload+"%")
	}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}

	return query, args
}

// GetAll retrieves detections based on filter criteria, newest first.
func (r *DetectionRepository) GetAll(filter *dto.DetectionFilters) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT id, session_id, kind, payload, version, location, timestamp FROM detections` +
		where + " ORDER BY timestamp DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.Detection
	for rows.Next() {
		var det model.Detection
		if err := rows.Scan(&det.ID, &det.SessionID, &det.Kind, &det.Payload, &det.Version, &det.Location, &det.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}

// GetTotalCount returns the number of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(filter *dto.DetectionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}

	return count, nil
}

// GetPayloadCounts returns the most frequently detected payloads.
func (r *DetectionRepository) GetPayloadCounts(limit int) ([]model.PayloadCount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT payload, COUNT(*) AS hits, MAX(timestamp)
		FROM detections WHERE kind = ?
		GROUP BY payload
		ORDER BY hits DESC, payload
	`
	args := []interface{}{model.KindDetected}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payload counts: %w", err)
	}
	defer rows.Close()

	var counts []model.PayloadCount
	for rows.Next() {
		var pc model.PayloadCount
		var lastSeen string
		if err := rows.Scan(&pc.Payload, &pc.Count, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan payload count: %w", err)
		}
		if pc.LastSeen, err = parseTimestamp(lastSeen); err != nil {
			return nil, fmt.Errorf("failed to parse last seen: %w", err)
		}
		counts = append(counts, pc)
	}

	return counts, rows.Err()
}

// GetSessions lists scan session ids, most recent first.
func (r *DetectionRepository) GetSessions() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT session_id FROM detections
		GROUP BY session_id
		ORDER BY MAX(timestamp) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, id)
	}

	return sessions, rows.Err()
}

// DeleteAll removes every detection.
func (r *DetectionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}

// DeleteSession removes the detections of one scan session.
func (r *DetectionRepository) DeleteSession(sessionID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session detections: %w", err)
	}
	return nil
}
