package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UpsertWorkItem inserts or refreshes a work item keyed on
// (external_id, external_system) and returns the stored row
func (db *DB) UpsertWorkItem(item *WorkItem) (*WorkItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err := db.conn.Exec(
		`INSERT INTO work_items (id, external_id, external_system, title, description, status, project, workspace, last_synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id, external_system) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			project = excluded.project,
			workspace = excluded.workspace,
			last_synced = excluded.last_synced`,
		item.ID, item.ExternalID, item.ExternalSystem, item.Title, item.Description,
		item.Status, item.Project, item.Workspace, formatTimePtr(item.LastSynced),
	)
	if err != nil {
		return nil, storeErr("upsert work item", err)
	}

	return db.GetWorkItemByExternal(item.ExternalID, item.ExternalSystem)
}

// GetWorkItem returns a work item by id, or nil if absent
func (db *DB) GetWorkItem(id string) (*WorkItem, error) {
	return db.scanWorkItemRow(db.conn.QueryRow(workItemSelect+" WHERE id = ?", id))
}

// GetWorkItemByExternal returns a work item by its external key, or nil
func (db *DB) GetWorkItemByExternal(externalID, externalSystem string) (*WorkItem, error) {
	return db.scanWorkItemRow(db.conn.QueryRow(
		workItemSelect+" WHERE external_id = ? AND external_system = ?",
		externalID, externalSystem,
	))
}

// TouchWorkItem sets last_synced on a work item
func (db *DB) TouchWorkItem(id string, now time.Time) error {
	res, err := db.conn.Exec("UPDATE work_items SET last_synced = ? WHERE id = ?", formatTime(now), id)
	if err != nil {
		return storeErr("touch work item", err)
	}
	return requireRow(res, "touch work item")
}

const workItemSelect = `SELECT id, external_id, external_system, COALESCE(title, ''), COALESCE(description, ''),
	COALESCE(status, ''), COALESCE(project, ''), COALESCE(workspace, ''), last_synced FROM work_items`

func (db *DB) scanWorkItemRow(row *sql.Row) (*WorkItem, error) {
	var item WorkItem
	var lastSynced *string

	err := row.Scan(&item.ID, &item.ExternalID, &item.ExternalSystem, &item.Title,
		&item.Description, &item.Status, &item.Project, &item.Workspace, &lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("scan work item", err)
	}

	item.LastSynced = parseTimePtr(lastSynced)
	return &item, nil
}
