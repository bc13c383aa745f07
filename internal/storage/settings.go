package storage

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// GetSettings returns the single settings row, creating it with defaults on
// first access
func (db *DB) GetSettings() (*Settings, error) {
	row := db.conn.QueryRow(
		`SELECT id, pause_tracking, excluded_apps, idle_threshold_seconds,
			enable_work_item_tracking, capture_window_title, capture_browser_url,
			url_whitelist, work_start_hour, work_end_hour, session_end_idle_seconds
		 FROM settings LIMIT 1`,
	)

	var s Settings
	var pause, workItems, title, browser int
	var excluded, whitelist string

	err := row.Scan(&s.ID, &pause, &excluded, &s.IdleThresholdSeconds,
		&workItems, &title, &browser, &whitelist,
		&s.WorkStartHour, &s.WorkEndHour, &s.SessionEndIdleSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return db.createDefaultSettings()
	}
	if err != nil {
		return nil, storeErr("get settings", err)
	}

	s.PauseTracking = pause != 0
	s.EnableWorkItemTracking = workItems != 0
	s.CaptureWindowTitle = title != 0
	s.CaptureBrowserURL = browser != 0
	s.ExcludedApps = decodeList(excluded)
	s.URLWhitelist = decodeList(whitelist)
	return &s, nil
}

func (db *DB) createDefaultSettings() (*Settings, error) {
	s := DefaultSettings()
	s.ID = uuid.NewString()

	_, err := db.conn.Exec(
		`INSERT INTO settings (id, pause_tracking, excluded_apps, idle_threshold_seconds,
			enable_work_item_tracking, capture_window_title, capture_browser_url,
			url_whitelist, work_start_hour, work_end_hour, session_end_idle_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, boolToInt(s.PauseTracking), encodeList(s.ExcludedApps), s.IdleThresholdSeconds,
		boolToInt(s.EnableWorkItemTracking), boolToInt(s.CaptureWindowTitle),
		boolToInt(s.CaptureBrowserURL), encodeList(s.URLWhitelist),
		s.WorkStartHour, s.WorkEndHour, s.SessionEndIdleSeconds,
	)
	if err != nil {
		return nil, storeErr("create settings", err)
	}
	return s, nil
}

// UpdateSettings overwrites the settings row
func (db *DB) UpdateSettings(s *Settings) error {
	res, err := db.conn.Exec(
		`UPDATE settings SET pause_tracking = ?, excluded_apps = ?, idle_threshold_seconds = ?,
			enable_work_item_tracking = ?, capture_window_title = ?, capture_browser_url = ?,
			url_whitelist = ?, work_start_hour = ?, work_end_hour = ?, session_end_idle_seconds = ?
		 WHERE id = ?`,
		boolToInt(s.PauseTracking), encodeList(s.ExcludedApps), s.IdleThresholdSeconds,
		boolToInt(s.EnableWorkItemTracking), boolToInt(s.CaptureWindowTitle),
		boolToInt(s.CaptureBrowserURL), encodeList(s.URLWhitelist),
		s.WorkStartHour, s.WorkEndHour, s.SessionEndIdleSeconds, s.ID,
	)
	if err != nil {
		return storeErr("update settings", err)
	}
	return requireRow(res, "update settings")
}
