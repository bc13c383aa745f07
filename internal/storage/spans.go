package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StartSpan opens a new activity span. The caller is responsible for
// finalizing any previously open span first.
func (db *DB) StartSpan(appBundleID, category string, start time.Time, projectID, workItemID, sessionID string, ctx *SpanContext) (*ActivitySpan, error) {
	span := &ActivitySpan{
		ID:          uuid.NewString(),
		AppBundleID: appBundleID,
		Category:    category,
		StartTime:   start,
		ProjectID:   projectID,
		WorkItemID:  workItemID,
		SessionID:   sessionID,
		Context:     ctx,
	}

	_, err := db.conn.Exec(
		`INSERT INTO activity_spans (id, app_bundle_id, category, start_time, duration_seconds, project_id, work_item_id, session_id, context)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		span.ID, span.AppBundleID, span.Category, formatTime(span.StartTime),
		nullable(span.ProjectID), nullable(span.WorkItemID), nullable(span.SessionID),
		encodeSpanContext(span.Context),
	)
	if err != nil {
		return nil, storeErr("start span", err)
	}

	return span, nil
}

// FinalizeSpan closes a span at the given instant and records its duration
func (db *DB) FinalizeSpan(spanID string, end time.Time) error {
	span, err := db.GetSpan(spanID)
	if err != nil {
		return err
	}
	if span == nil {
		return storeErr("finalize span", sql.ErrNoRows)
	}

	duration := int64(end.Sub(span.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	res, err := db.conn.Exec(
		"UPDATE activity_spans SET end_time = ?, duration_seconds = ? WHERE id = ? AND end_time IS NULL",
		formatTime(end), duration, spanID,
	)
	if err != nil {
		return storeErr("finalize span", err)
	}
	return requireRow(res, "finalize span")
}

// UpdateSpanContext replaces the stored context of an open or closed span
func (db *DB) UpdateSpanContext(spanID string, ctx *SpanContext) error {
	res, err := db.conn.Exec(
		"UPDATE activity_spans SET context = ? WHERE id = ?",
		encodeSpanContext(ctx), spanID,
	)
	if err != nil {
		return storeErr("update span context", err)
	}
	return requireRow(res, "update span context")
}

// GetSpan returns a span by id, or nil if absent
func (db *DB) GetSpan(id string) (*ActivitySpan, error) {
	row := db.conn.QueryRow(spanSelect+" WHERE id = ?", id)
	span, err := scanSpan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return span, nil
}

// GetOpenSpan returns the single span with a null end_time, or nil
func (db *DB) GetOpenSpan() (*ActivitySpan, error) {
	row := db.conn.QueryRow(spanSelect + " WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1")
	span, err := scanSpan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return span, nil
}

// GetSpansForDay returns finalized spans whose start falls on the given UTC day
func (db *DB) GetSpansForDay(day time.Time) ([]ActivitySpan, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := db.conn.Query(
		spanSelect+" WHERE end_time IS NOT NULL AND start_time >= ? AND start_time < ? ORDER BY start_time",
		formatTime(dayStart), formatTime(dayEnd),
	)
	if err != nil {
		return nil, storeErr("list spans", err)
	}
	defer rows.Close()

	var spans []ActivitySpan
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, err
		}
		spans = append(spans, *span)
	}
	return spans, rows.Err()
}

// GetSpansForSession returns all spans attached to a session
func (db *DB) GetSpansForSession(sessionID string) ([]ActivitySpan, error) {
	rows, err := db.conn.Query(spanSelect+" WHERE session_id = ? ORDER BY start_time", sessionID)
	if err != nil {
		return nil, storeErr("list session spans", err)
	}
	defer rows.Close()

	var spans []ActivitySpan
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, err
		}
		spans = append(spans, *span)
	}
	return spans, rows.Err()
}

// GetIssueTimeStats aggregates finalized span durations per external issue
func (db *DB) GetIssueTimeStats() ([]IssueTimeStats, error) {
	rows, err := db.conn.Query(
		`SELECT w.external_id, w.external_system, COUNT(s.id), SUM(s.duration_seconds)
		 FROM activity_spans s
		 JOIN work_items w ON s.work_item_id = w.id
		 WHERE s.end_time IS NOT NULL
		 GROUP BY w.external_id, w.external_system
		 HAVING SUM(s.duration_seconds) > 0
		 ORDER BY SUM(s.duration_seconds) DESC`,
	)
	if err != nil {
		return nil, storeErr("issue time stats", err)
	}
	defer rows.Close()

	var stats []IssueTimeStats
	for rows.Next() {
		var s IssueTimeStats
		if err := rows.Scan(&s.IssueID, &s.IssueSystem, &s.SpanCount, &s.TotalSeconds); err != nil {
			return nil, storeErr("scan issue time stats", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

const spanSelect = `SELECT id, app_bundle_id, category, start_time, end_time, duration_seconds,
	COALESCE(project_id, ''), COALESCE(work_item_id, ''), COALESCE(session_id, ''), context FROM activity_spans`

func scanSpan(row rowScanner) (*ActivitySpan, error) {
	var span ActivitySpan
	var startTime string
	var endTime, context *string

	err := row.Scan(&span.ID, &span.AppBundleID, &span.Category, &startTime, &endTime,
		&span.DurationSeconds, &span.ProjectID, &span.WorkItemID, &span.SessionID, &context)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan span", err)
	}

	if span.StartTime, err = parseTime(startTime); err != nil {
		return nil, storeErr("parse span start_time", err)
	}
	span.EndTime = parseTimePtr(endTime)
	span.Context = decodeSpanContext(context)
	return &span, nil
}
