package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SaveTimeBlock inserts or replaces a time block. Manual blocks are
// auto-confirmed at creation.
func (db *DB) SaveTimeBlock(b *TimeBlock) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Source == SourceManual {
		b.Confirmed = true
	}

	var confidence interface{}
	if b.Confidence != nil {
		confidence = *b.Confidence
	}

	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO time_blocks (id, start_time, end_time, project_id, work_item_ids,
			description, tags, source, confidence, confirmed, synced, source_external_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, formatTime(b.StartTime), formatTime(b.EndTime), nullable(b.ProjectID),
		encodeList(b.WorkItemIDs), b.Description, encodeList(b.Tags), string(b.Source),
		confidence, boolToInt(b.Confirmed), boolToInt(b.Synced),
		nullable(b.SourceExternalRef), formatTime(b.CreatedAt),
	)
	if err != nil {
		return storeErr("save time block", err)
	}
	return nil
}

// GetTimeBlock returns a block by id, or nil if absent
func (db *DB) GetTimeBlock(id string) (*TimeBlock, error) {
	row := db.conn.QueryRow(blockSelect+" WHERE id = ?", id)
	b, err := scanTimeBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// ConfirmTimeBlock marks a block confirmed
func (db *DB) ConfirmTimeBlock(id string) error {
	res, err := db.conn.Exec("UPDATE time_blocks SET confirmed = 1 WHERE id = ?", id)
	if err != nil {
		return storeErr("confirm time block", err)
	}
	return requireRow(res, "confirm time block")
}

// MarkTimeBlockSynced marks a confirmed block as pushed
func (db *DB) MarkTimeBlockSynced(id string) error {
	res, err := db.conn.Exec("UPDATE time_blocks SET synced = 1 WHERE id = ? AND confirmed = 1", id)
	if err != nil {
		return storeErr("mark time block synced", err)
	}
	return requireRow(res, "mark time block synced")
}

// GetConfirmedUnsyncedBlocks returns blocks eligible for push
func (db *DB) GetConfirmedUnsyncedBlocks() ([]TimeBlock, error) {
	rows, err := db.conn.Query(blockSelect + " WHERE confirmed = 1 AND synced = 0 ORDER BY start_time")
	if err != nil {
		return nil, storeErr("list confirmed blocks", err)
	}
	defer rows.Close()

	return collectTimeBlocks(rows)
}

// GetTimeBlocksForDay returns blocks whose start falls on the given UTC day
func (db *DB) GetTimeBlocksForDay(day time.Time) ([]TimeBlock, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := db.conn.Query(
		blockSelect+" WHERE start_time >= ? AND start_time < ? ORDER BY start_time",
		formatTime(dayStart), formatTime(dayEnd),
	)
	if err != nil {
		return nil, storeErr("list day blocks", err)
	}
	defer rows.Close()

	return collectTimeBlocks(rows)
}

const blockSelect = `SELECT id, start_time, end_time, COALESCE(project_id, ''), work_item_ids,
	description, tags, source, confidence, confirmed, synced,
	COALESCE(source_external_ref, ''), created_at FROM time_blocks`

func scanTimeBlock(row rowScanner) (*TimeBlock, error) {
	var b TimeBlock
	var startTime, endTime, createdAt, workItems, tags, source string
	var confidence *float64
	var confirmed, synced int

	err := row.Scan(&b.ID, &startTime, &endTime, &b.ProjectID, &workItems,
		&b.Description, &tags, &source, &confidence, &confirmed, &synced,
		&b.SourceExternalRef, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan time block", err)
	}

	if b.StartTime, err = parseTime(startTime); err != nil {
		return nil, storeErr("parse block start_time", err)
	}
	if b.EndTime, err = parseTime(endTime); err != nil {
		return nil, storeErr("parse block end_time", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeErr("parse block created_at", err)
	}
	b.WorkItemIDs = decodeList(workItems)
	b.Tags = decodeList(tags)
	b.Source = BlockSource(source)
	b.Confidence = confidence
	b.Confirmed = confirmed != 0
	b.Synced = synced != 0
	return &b, nil
}

func collectTimeBlocks(rows *sql.Rows) ([]TimeBlock, error) {
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
