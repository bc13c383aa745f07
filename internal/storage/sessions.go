package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CreateSession opens a new work session
func (db *DB) CreateSession(start time.Time) (*Session, error) {
	s := &Session{
		ID:          uuid.NewString(),
		StartTime:   start,
		Categories:  []string{},
		WorkItemIDs: []string{},
	}

	_, err := db.conn.Exec(
		`INSERT INTO sessions (id, start_time, total_active_seconds, idle_seconds, interruption_count, categories, work_item_ids)
		 VALUES (?, ?, 0, 0, 0, '[]', '[]')`,
		s.ID, formatTime(s.StartTime),
	)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return s, nil
}

// GetCurrentSession returns the open session, or nil if none
func (db *DB) GetCurrentSession() (*Session, error) {
	row := db.conn.QueryRow(sessionSelect + " WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1")
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// GetSession returns a session by id, or nil if absent
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.conn.QueryRow(sessionSelect+" WHERE id = ?", id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// UpdateSessionCounters writes the tick-accumulated counters
func (db *DB) UpdateSessionCounters(sessionID string, activeSeconds, idleSeconds, interruptions int64) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET total_active_seconds = ?, idle_seconds = ?, interruption_count = ? WHERE id = ?",
		activeSeconds, idleSeconds, interruptions, sessionID,
	)
	if err != nil {
		return storeErr("update session counters", err)
	}
	return requireRow(res, "update session counters")
}

// UpdateSessionStats recomputes the distinct categories and work item ids
// observed across the session's spans
func (db *DB) UpdateSessionStats(sessionID string) error {
	spans, err := db.GetSpansForSession(sessionID)
	if err != nil {
		return err
	}

	catSet := map[string]bool{}
	itemSet := map[string]bool{}
	var categories, workItems []string
	for _, span := range spans {
		if span.Category != "" && !catSet[span.Category] {
			catSet[span.Category] = true
			categories = append(categories, span.Category)
		}
		if span.WorkItemID != "" && !itemSet[span.WorkItemID] {
			itemSet[span.WorkItemID] = true
			workItems = append(workItems, span.WorkItemID)
		}
	}

	res, err := db.conn.Exec(
		"UPDATE sessions SET categories = ?, work_item_ids = ? WHERE id = ?",
		encodeList(categories), encodeList(workItems), sessionID,
	)
	if err != nil {
		return storeErr("update session stats", err)
	}
	return requireRow(res, "update session stats")
}

// FinalizeSession closes a session at the given instant
func (db *DB) FinalizeSession(sessionID string, end time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET end_time = ? WHERE id = ? AND end_time IS NULL",
		formatTime(end), sessionID,
	)
	if err != nil {
		return storeErr("finalize session", err)
	}
	return requireRow(res, "finalize session")
}

// GetSessionsInRange returns sessions starting within [from, to)
func (db *DB) GetSessionsInRange(from, to time.Time) ([]Session, error) {
	rows, err := db.conn.Query(
		sessionSelect+" WHERE start_time >= ? AND start_time < ? ORDER BY start_time",
		formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

const sessionSelect = `SELECT id, start_time, end_time, total_active_seconds, idle_seconds,
	interruption_count, categories, work_item_ids FROM sessions`

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var startTime string
	var endTime *string
	var categories, workItems string

	err := row.Scan(&s.ID, &startTime, &endTime, &s.TotalActiveSeconds, &s.IdleSeconds,
		&s.InterruptionCount, &categories, &workItems)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan session", err)
	}

	if s.StartTime, err = parseTime(startTime); err != nil {
		return nil, storeErr("parse session start_time", err)
	}
	s.EndTime = parseTimePtr(endTime)
	s.Categories = decodeList(categories)
	s.WorkItemIDs = decodeList(workItems)
	return &s, nil
}
