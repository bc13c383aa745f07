package storage

import (
	"time"

	"github.com/google/uuid"
)

// List-all queries backing the data exporter. These read whole tables; the
// store is small enough for that to stay cheap.

// ListAllSpans returns every activity span ordered by start time
func (db *DB) ListAllSpans() ([]ActivitySpan, error) {
	rows, err := db.conn.Query(spanSelect + " ORDER BY start_time")
	if err != nil {
		return nil, storeErr("list all spans", err)
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

// ListAllSessions returns every session ordered by start time
func (db *DB) ListAllSessions() ([]Session, error) {
	rows, err := db.conn.Query(sessionSelect + " ORDER BY start_time")
	if err != nil {
		return nil, storeErr("list all sessions", err)
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

// ListAllWorkItems returns every work item
func (db *DB) ListAllWorkItems() ([]WorkItem, error) {
	rows, err := db.conn.Query(workItemSelect + " ORDER BY external_system, external_id")
	if err != nil {
		return nil, storeErr("list all work items", err)
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		var item WorkItem
		var lastSynced *string
		if err := rows.Scan(&item.ID, &item.ExternalID, &item.ExternalSystem, &item.Title,
			&item.Description, &item.Status, &item.Project, &item.Workspace, &lastSynced); err != nil {
			return nil, storeErr("scan work item", err)
		}
		item.LastSynced = parseTimePtr(lastSynced)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListAllCandidates returns every cached issue candidate
func (db *DB) ListAllCandidates() ([]IssueCandidate, error) {
	rows, err := db.conn.Query(candidateSelect + " ORDER BY external_system, external_id")
	if err != nil {
		return nil, storeErr("list all candidates", err)
	}
	defer rows.Close()

	var candidates []IssueCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// ListAllTimeBlocks returns every time block ordered by start time
func (db *DB) ListAllTimeBlocks() ([]TimeBlock, error) {
	rows, err := db.conn.Query(blockSelect + " ORDER BY start_time")
	if err != nil {
		return nil, storeErr("list all time blocks", err)
	}
	defer rows.Close()

	var blocks []TimeBlock
	for rows.Next() {
		b, err := scanTimeBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

// ProjectTimeRow is one raw project_time row for export
type ProjectTimeRow struct {
	ProjectID       string `json:"project_id"`
	Date            string `json:"date"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// ListAllProjectTime returns the raw daily accrual table
func (db *DB) ListAllProjectTime() ([]ProjectTimeRow, error) {
	rows, err := db.conn.Query("SELECT project_id, date, duration_seconds FROM project_time ORDER BY date, project_id")
	if err != nil {
		return nil, storeErr("list all project time", err)
	}
	defer rows.Close()

	var out []ProjectTimeRow
	for rows.Next() {
		var r ProjectTimeRow
		if err := rows.Scan(&r.ProjectID, &r.Date, &r.DurationSeconds); err != nil {
			return nil, storeErr("scan project time", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ImportProjectTime writes one raw accrual row, adding to any existing value
func (db *DB) ImportProjectTime(r *ProjectTimeRow, now time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO project_time (id, project_id, date, duration_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, date) DO UPDATE SET
			duration_seconds = project_time.duration_seconds + excluded.duration_seconds,
			updated_at = excluded.updated_at`,
		uuid.NewString(), r.ProjectID, r.Date, r.DurationSeconds, formatTime(now),
	)
	if err != nil {
		return storeErr("import project time", err)
	}
	return nil
}

// ImportProject writes a full project row preserving its id and linkage
func (db *DB) ImportProject(p *Project) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO projects (id, name, path, description, created_at, last_active,
			pm_system, pm_project_id, pm_workspace)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Path, nullable(p.Description), formatTime(p.CreatedAt),
		formatTime(p.LastActive), nullable(p.PMSystem), nullable(p.PMProjectID), nullable(p.PMWorkspace),
	)
	if err != nil {
		return storeErr("import project", err)
	}
	return nil
}

// ImportSpan writes a full span row preserving its id and timestamps
func (db *DB) ImportSpan(span *ActivitySpan) error {
	var end interface{}
	if span.EndTime != nil {
		end = formatTime(*span.EndTime)
	}
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO activity_spans (id, app_bundle_id, category, start_time, end_time,
			duration_seconds, project_id, work_item_id, session_id, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		span.ID, span.AppBundleID, span.Category, formatTime(span.StartTime), end,
		span.DurationSeconds, nullable(span.ProjectID), nullable(span.WorkItemID),
		nullable(span.SessionID), encodeSpanContext(span.Context),
	)
	if err != nil {
		return storeErr("import span", err)
	}
	return nil
}

// ImportSession writes a full session row preserving its id
func (db *DB) ImportSession(s *Session) error {
	var end interface{}
	if s.EndTime != nil {
		end = formatTime(*s.EndTime)
	}
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO sessions (id, start_time, end_time, total_active_seconds,
			idle_seconds, interruption_count, categories, work_item_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, formatTime(s.StartTime), end, s.TotalActiveSeconds,
		s.IdleSeconds, s.InterruptionCount, encodeList(s.Categories), encodeList(s.WorkItemIDs),
	)
	if err != nil {
		return storeErr("import session", err)
	}
	return nil
}
