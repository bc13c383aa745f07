package storage

import (
	"time"

	"github.com/google/uuid"
)

// AddProjectTime accrues seconds to the (project, day) accumulator.
// Rows grow monotonically; the unique key makes the upsert a single statement.
func (db *DB) AddProjectTime(projectID string, seconds int64, now time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO project_time (id, project_id, date, duration_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, date) DO UPDATE SET
			duration_seconds = duration_seconds + excluded.duration_seconds,
			updated_at = excluded.updated_at`,
		uuid.NewString(), projectID, dateKey(now), seconds, formatTime(now),
	)
	if err != nil {
		return storeErr("add project time", err)
	}
	return nil
}

// GetProjectTimeForDate returns per-project accumulated time for a UTC day
func (db *DB) GetProjectTimeForDate(day time.Time) ([]ProjectTimeEntry, error) {
	rows, err := db.conn.Query(
		`SELECT pt.project_id, p.name, pt.date, pt.duration_seconds
		 FROM project_time pt
		 JOIN projects p ON pt.project_id = p.id
		 WHERE pt.date = ?
		 ORDER BY pt.duration_seconds DESC`,
		dateKey(day),
	)
	if err != nil {
		return nil, storeErr("get project time", err)
	}
	defer rows.Close()

	return scanProjectTime(rows)
}

// GetProjectTimeRange returns per-project accumulated time for an inclusive
// range of UTC days
func (db *DB) GetProjectTimeRange(from, to time.Time) ([]ProjectTimeEntry, error) {
	rows, err := db.conn.Query(
		`SELECT pt.project_id, p.name, pt.date, pt.duration_seconds
		 FROM project_time pt
		 JOIN projects p ON pt.project_id = p.id
		 WHERE pt.date >= ? AND pt.date <= ?
		 ORDER BY pt.date, pt.duration_seconds DESC`,
		dateKey(from), dateKey(to),
	)
	if err != nil {
		return nil, storeErr("get project time range", err)
	}
	defer rows.Close()

	return scanProjectTime(rows)
}

func scanProjectTime(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]ProjectTimeEntry, error) {
	var entries []ProjectTimeEntry
	for rows.Next() {
		var e ProjectTimeEntry
		if err := rows.Scan(&e.ProjectID, &e.ProjectName, &e.Date, &e.DurationSeconds); err != nil {
			return nil, storeErr("scan project time", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
