package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AddClassificationRule inserts or replaces a user rule keyed on
// (pattern, pattern_type)
func (db *DB) AddClassificationRule(pattern string, patternType PatternType, category string, priority int64, now time.Time) (*ClassificationRule, error) {
	r := &ClassificationRule{
		ID:          uuid.NewString(),
		Pattern:     pattern,
		PatternType: patternType,
		Category:    category,
		Priority:    priority,
		CreatedAt:   now,
	}

	_, err := db.conn.Exec(
		`INSERT INTO classification_rules (id, pattern, pattern_type, category, priority, created_at, hit_count)
		 VALUES (?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(pattern, pattern_type) DO UPDATE SET
			category = excluded.category,
			priority = excluded.priority`,
		r.ID, r.Pattern, string(r.PatternType), r.Category, r.Priority, formatTime(r.CreatedAt),
	)
	if err != nil {
		return nil, storeErr("add classification rule", err)
	}
	return r, nil
}

// ListClassificationRules returns user rules in match order:
// priority descending, then hit count descending
func (db *DB) ListClassificationRules() ([]ClassificationRule, error) {
	rows, err := db.conn.Query(ruleSelect + " ORDER BY priority DESC, hit_count DESC")
	if err != nil {
		return nil, storeErr("list classification rules", err)
	}
	defer rows.Close()

	var rules []ClassificationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// RecordRuleHit increments a rule's hit counter and stamps last_hit
func (db *DB) RecordRuleHit(ruleID string, now time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE classification_rules SET hit_count = hit_count + 1, last_hit = ? WHERE id = ?",
		formatTime(now), ruleID,
	)
	if err != nil {
		return storeErr("record rule hit", err)
	}
	return requireRow(res, "record rule hit")
}

// DeleteClassificationRule removes a user rule
func (db *DB) DeleteClassificationRule(ruleID string) error {
	res, err := db.conn.Exec("DELETE FROM classification_rules WHERE id = ?", ruleID)
	if err != nil {
		return storeErr("delete classification rule", err)
	}
	return requireRow(res, "delete classification rule")
}

const ruleSelect = `SELECT id, pattern, pattern_type, category, priority, created_at, hit_count, last_hit
	FROM classification_rules`

func scanRule(row rowScanner) (*ClassificationRule, error) {
	var r ClassificationRule
	var patternType, createdAt string
	var lastHit *string

	err := row.Scan(&r.ID, &r.Pattern, &patternType, &r.Category, &r.Priority,
		&createdAt, &r.HitCount, &lastHit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan classification rule", err)
	}

	r.PatternType = PatternType(patternType)
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeErr("parse rule created_at", err)
	}
	r.LastHit = parseTimePtr(lastHit)
	return &r, nil
}
