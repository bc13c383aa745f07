// Package session owns the rules for opening and closing logical work
// sessions and classifying idle gaps.
package session

import (
	"time"

	"toki/internal/logging"
	"toki/internal/storage"
)

// BreakState classifies an idle gap by its length
type BreakState string

const (
	BreakNone     BreakState = "none"
	BreakShort    BreakState = "short"
	BreakCoffee   BreakState = "coffee"
	BreakLunch    BreakState = "lunch"
	BreakExtended BreakState = "extended"
)

// Idle gap thresholds in seconds
const (
	shortBreakSeconds    = 120
	coffeeBreakSeconds   = 300
	extendedBreakSeconds = 1800
)

// ClassifyBreak maps accumulated idle seconds to a break state
func ClassifyBreak(idleSeconds int64) BreakState {
	switch {
	case idleSeconds <= 0:
		return BreakNone
	case idleSeconds < shortBreakSeconds:
		return BreakNone
	case idleSeconds < coffeeBreakSeconds:
		return BreakShort
	case idleSeconds < extendedBreakSeconds:
		return BreakCoffee
	case idleSeconds < 2*extendedBreakSeconds:
		return BreakLunch
	default:
		return BreakExtended
	}
}

// Manager opens and closes sessions against the store
type Manager struct {
	db     *storage.DB
	logger *logging.Logger
}

// New creates a session manager
func New(db *storage.DB, logger *logging.Logger) *Manager {
	return &Manager{db: db, logger: logger}
}

// ShouldStart reports whether a new session may open at the given instant.
// Sessions only open inside the configured work-hours window.
func ShouldStart(settings *storage.Settings, now time.Time) bool {
	hour := int64(now.UTC().Hour())
	return hour >= settings.WorkStartHour && hour < settings.WorkEndHour
}

// ShouldEnd reports whether an open session must close: either the time
// moved outside work hours or idle exceeded the session-end threshold
func ShouldEnd(settings *storage.Settings, idleSeconds int64, now time.Time) bool {
	if !ShouldStart(settings, now) {
		return true
	}
	return idleSeconds >= settings.SessionEndIdleSeconds
}

// Current returns the open session, or nil
func (m *Manager) Current() (*storage.Session, error) {
	return m.db.GetCurrentSession()
}

// Start opens a new session
func (m *Manager) Start(now time.Time) (*storage.Session, error) {
	s, err := m.db.CreateSession(now)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session started", map[string]interface{}{
		"session_id": s.ID,
	})
	return s, nil
}

// End finalizes a session after refreshing its aggregate stats
func (m *Manager) End(sessionID string, now time.Time) error {
	if err := m.db.UpdateSessionStats(sessionID); err != nil {
		m.logger.Warn("failed to update session stats", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	if err := m.db.FinalizeSession(sessionID, now); err != nil {
		return err
	}
	m.logger.Info("session ended", map[string]interface{}{
		"session_id": sessionID,
	})
	return nil
}
