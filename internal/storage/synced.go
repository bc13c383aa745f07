package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// GetSyncedIssue returns the ledger row for a sync triple, or nil
func (db *DB) GetSyncedIssue(sourceRef, targetSystem, targetProject string) (*SyncedIssue, error) {
	row := db.conn.QueryRow(
		syncedSelect+" WHERE source_external_ref = ? AND target_system = ? AND target_project = ?",
		sourceRef, targetSystem, targetProject,
	)
	s, err := scanSyncedIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// UpsertSyncedIssue records a successful sync. Exactly one row exists per
// (source_external_ref, target_system, target_project) triple.
func (db *DB) UpsertSyncedIssue(s *SyncedIssue) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := db.conn.Exec(
		`INSERT INTO synced_issues (id, source_external_ref, source_database_id, target_system,
			target_project, target_issue_id, target_issue_number, target_issue_url, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_external_ref, target_system, target_project) DO UPDATE SET
			target_issue_id = excluded.target_issue_id,
			target_issue_number = excluded.target_issue_number,
			target_issue_url = excluded.target_issue_url,
			title = excluded.title,
			updated_at = excluded.updated_at`,
		s.ID, s.SourceExternalRef, nullable(s.SourceDatabaseID), s.TargetSystem,
		s.TargetProject, s.TargetIssueID, s.TargetIssueNumber, nullable(s.TargetIssueURL),
		nullable(s.Title), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		return storeErr("upsert synced issue", err)
	}
	return nil
}

// ListSyncedIssues returns the full ledger ordered by recency
func (db *DB) ListSyncedIssues() ([]SyncedIssue, error) {
	rows, err := db.conn.Query(syncedSelect + " ORDER BY updated_at DESC")
	if err != nil {
		return nil, storeErr("list synced issues", err)
	}
	defer rows.Close()

	var issues []SyncedIssue
	for rows.Next() {
		s, err := scanSyncedIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *s)
	}
	return issues, rows.Err()
}

const syncedSelect = `SELECT id, source_external_ref, COALESCE(source_database_id, ''), target_system,
	target_project, target_issue_id, target_issue_number, COALESCE(target_issue_url, ''),
	COALESCE(title, ''), created_at, updated_at FROM synced_issues`

func scanSyncedIssue(row rowScanner) (*SyncedIssue, error) {
	var s SyncedIssue
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.SourceExternalRef, &s.SourceDatabaseID, &s.TargetSystem,
		&s.TargetProject, &s.TargetIssueID, &s.TargetIssueNumber, &s.TargetIssueURL,
		&s.Title, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan synced issue", err)
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeErr("parse synced created_at", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, storeErr("parse synced updated_at", err)
	}
	return &s, nil
}
