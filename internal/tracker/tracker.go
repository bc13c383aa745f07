// Package tracker implements the daemon tick loop. One logical task wakes
// on a fixed interval, samples the platform monitor, and drives spans,
// project-time and sessions. Nothing else writes tracking state.
package tracker

import (
	"context"
	"sync"
	"time"

	"toki/internal/classify"
	"toki/internal/detect"
	"toki/internal/logging"
	"toki/internal/monitor"
	"toki/internal/session"
	"toki/internal/storage"
)

// Status is the snapshot published for IPC readers
type Status struct {
	Tracking       bool      `json:"tracking"`
	Paused         bool      `json:"paused"`
	AppBundleID    string    `json:"app_bundle_id,omitempty"`
	WindowTitle    string    `json:"window_title,omitempty"`
	ProjectName    string    `json:"project_name,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastTickAt     time.Time `json:"last_tick_at"`
	TicksProcessed int64     `json:"ticks_processed"`
}

// Tracker drives all tracking state transitions from a single task
type Tracker struct {
	db         *storage.DB
	monitor    monitor.Monitor
	detector   *detect.Detector
	classifier *classify.Classifier
	sessions   *session.Manager
	logger     *logging.Logger

	tickInterval time.Duration

	// In-memory tick state, owned exclusively by the loop
	openSpanID     string
	openSpanApp    string
	currentSession string
	activeSeconds  int64
	idleSeconds    int64
	interruptions  int64
	wasIdle        bool

	mu     sync.RWMutex
	status Status

	// Pause requests queued by IPC; applied and persisted by the tick task
	pauseMu      sync.Mutex
	pausePending *bool
	pauseKick    chan struct{}
}

// New creates a tracker
func New(db *storage.DB, mon monitor.Monitor, detector *detect.Detector, classifier *classify.Classifier, sessions *session.Manager, tickInterval time.Duration, logger *logging.Logger) *Tracker {
	return &Tracker{
		db:           db,
		monitor:      mon,
		detector:     detector,
		classifier:   classifier,
		sessions:     sessions,
		logger:       logger,
		tickInterval: tickInterval,
		status:       Status{StartedAt: time.Now().UTC()},
		pauseKick:    make(chan struct{}, 1),
	}
}

// Run executes the tick loop until the context is cancelled, then finalizes
// the open span and session
func (t *Tracker) Run(ctx context.Context) {
	// Resynchronize with any span left open by a previous process
	if open, err := t.db.GetOpenSpan(); err == nil && open != nil {
		t.openSpanID = open.ID
		t.openSpanApp = open.AppBundleID
	}
	if current, err := t.db.GetCurrentSession(); err == nil && current != nil {
		t.currentSession = current.ID
		t.activeSeconds = current.TotalActiveSeconds
		t.idleSeconds = current.IdleSeconds
		t.interruptions = current.InterruptionCount
	}

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Shutdown(time.Now().UTC())
			return
		case now := <-ticker.C:
			t.Tick(now.UTC())
		case <-t.pauseKick:
			// Run the tick early so a pause or resume takes effect without
			// waiting out the interval
			t.Tick(time.Now().UTC())
		}
	}
}

// Tick performs one scheduled iteration. Every tick is best-effort: a
// failure leaves state as if that portion of the tick had not run.
func (t *Tracker) Tick(now time.Time) {
	defer t.publishTick(now)

	settings, err := t.db.GetSettings()
	if err != nil {
		t.logger.Error("tick: failed to load settings", map[string]interface{}{"error": err.Error()})
		return
	}
	t.applyPauseRequest(settings)

	if settings.PauseTracking {
		t.finalizeOpenSpan(now)
		t.endSession(now)
		t.setStatus(func(s *Status) {
			s.Paused = true
			s.Tracking = false
		})
		return
	}
	t.setStatus(func(s *Status) { s.Paused = false })

	idleSample := t.monitor.GetIdleSeconds()
	isIdle := idleSample >= settings.IdleThresholdSeconds

	if t.currentSession == "" && !isIdle && session.ShouldStart(settings, now) {
		s, err := t.sessions.Start(now)
		if err != nil {
			t.logger.Error("tick: failed to start session", map[string]interface{}{"error": err.Error()})
		} else {
			t.currentSession = s.ID
			t.activeSeconds = 0
			t.idleSeconds = 0
			t.interruptions = 0
		}
	}

	if isIdle {
		t.idleSeconds += int64(t.tickInterval.Seconds())
		if !t.wasIdle && t.currentSession != "" {
			t.interruptions++
		}
		t.wasIdle = true

		t.finalizeOpenSpan(now)

		if t.currentSession != "" && session.ShouldEnd(settings, t.idleSeconds, now) {
			t.endSession(now)
		} else {
			t.persistSessionCounters()
		}
		t.setStatus(func(s *Status) { s.Tracking = false })
		return
	}

	t.wasIdle = false
	t.idleSeconds = 0
	t.activeSeconds += int64(t.tickInterval.Seconds())

	app := t.monitor.GetActiveApp()
	if app == nil {
		t.finalizeOpenSpan(now)
		t.persistSessionCounters()
		t.setStatus(func(s *Status) { s.Tracking = false })
		return
	}

	title := ""
	if settings.CaptureWindowTitle {
		title = app.WindowTitle
	}

	if contains(settings.ExcludedApps, app.AppBundleID) {
		t.finalizeOpenSpan(now)
		t.persistSessionCounters()
		t.setStatus(func(s *Status) {
			s.Tracking = false
			s.AppBundleID = app.AppBundleID
		})
		return
	}

	var detected *detect.Result
	if settings.EnableWorkItemTracking {
		detected, err = t.detector.Detect(title, now)
		if err != nil {
			t.logger.Warn("tick: detection failed", map[string]interface{}{"error": err.Error()})
			detected = nil
		}
	}
	if detected == nil {
		detected = &detect.Result{}
	}

	category := t.classifier.Classify(app.AppBundleID, title, now)

	appChanged := t.openSpanID == "" || t.openSpanApp != app.AppBundleID
	if appChanged {
		t.finalizeOpenSpan(now)

		ctx := &storage.SpanContext{GitBranch: detected.GitBranch}
		if detected.WorkItemID != "" {
			ctx.WorkItemIDs = []string{detected.WorkItemID}
		}
		span, err := t.db.StartSpan(app.AppBundleID, category, now,
			detected.ProjectID, detected.WorkItemID, t.currentSession, ctx)
		if err != nil {
			t.logger.Error("tick: failed to start span", map[string]interface{}{"error": err.Error()})
		} else {
			t.openSpanID = span.ID
			t.openSpanApp = span.AppBundleID
		}
	} else if detected.ProjectID != "" {
		// Same app, possibly a different window: attribute this tick to the
		// focused project without breaking the span
		if err := t.db.AddProjectTime(detected.ProjectID, int64(t.tickInterval.Seconds()), now); err != nil {
			t.logger.Warn("tick: failed to accrue project time", map[string]interface{}{"error": err.Error()})
		}
	}

	t.updateSessionState()
	t.setStatus(func(s *Status) {
		s.Tracking = true
		s.AppBundleID = app.AppBundleID
		s.WindowTitle = title
		s.ProjectName = detected.ProjectName
		s.SessionID = t.currentSession
	})
}

// RequestPause queues a pause (or resume) of tracking. The caller never
// touches the store; the tick task persists the flag. Safe to call from
// any goroutine.
func (t *Tracker) RequestPause(paused bool) {
	t.pauseMu.Lock()
	v := paused
	t.pausePending = &v
	t.pauseMu.Unlock()

	select {
	case t.pauseKick <- struct{}{}:
	default:
	}
}

// applyPauseRequest folds a queued pause request into the settings row.
// On a failed write the request stays queued and the next tick retries.
func (t *Tracker) applyPauseRequest(settings *storage.Settings) {
	t.pauseMu.Lock()
	pending := t.pausePending
	t.pauseMu.Unlock()
	if pending == nil {
		return
	}
	want := *pending

	if settings.PauseTracking != want {
		settings.PauseTracking = want
		if err := t.db.UpdateSettings(settings); err != nil {
			t.logger.Error("tick: failed to persist pause flag", map[string]interface{}{"error": err.Error()})
			settings.PauseTracking = !want
			return
		}
	}

	t.pauseMu.Lock()
	if t.pausePending != nil && *t.pausePending == want {
		t.pausePending = nil
	}
	t.pauseMu.Unlock()
}

// Shutdown finalizes the open span and session
func (t *Tracker) Shutdown(now time.Time) {
	t.finalizeOpenSpan(now)
	t.endSession(now)
	t.setStatus(func(s *Status) { s.Tracking = false })
	t.logger.Info("tracker stopped", nil)
}

// Status returns a snapshot of the published status fields
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) setStatus(update func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	update(&t.status)
}

func (t *Tracker) publishTick(now time.Time) {
	t.setStatus(func(s *Status) {
		s.LastTickAt = now
		s.TicksProcessed++
	})
}

// finalizeOpenSpan closes the current span if one is open. On failure the
// span stays open and is retried on the next tick.
func (t *Tracker) finalizeOpenSpan(now time.Time) {
	if t.openSpanID == "" {
		return
	}
	if err := t.db.FinalizeSpan(t.openSpanID, now); err != nil {
		t.logger.Error("failed to finalize span", map[string]interface{}{
			"span_id": t.openSpanID,
			"error":   err.Error(),
		})
		return
	}
	t.openSpanID = ""
	t.openSpanApp = ""
}

func (t *Tracker) endSession(now time.Time) {
	if t.currentSession == "" {
		return
	}
	t.persistSessionCounters()
	if err := t.sessions.End(t.currentSession, now); err != nil {
		t.logger.Error("failed to end session", map[string]interface{}{
			"session_id": t.currentSession,
			"error":      err.Error(),
		})
		return
	}
	t.currentSession = ""
	t.activeSeconds = 0
	t.idleSeconds = 0
	t.interruptions = 0
}

func (t *Tracker) persistSessionCounters() {
	if t.currentSession == "" {
		return
	}
	if err := t.db.UpdateSessionCounters(t.currentSession, t.activeSeconds, t.idleSeconds, t.interruptions); err != nil {
		t.logger.Warn("failed to persist session counters", map[string]interface{}{"error": err.Error()})
	}
}

func (t *Tracker) updateSessionState() {
	if t.currentSession == "" {
		return
	}
	t.persistSessionCounters()
	if err := t.db.UpdateSessionStats(t.currentSession); err != nil {
		t.logger.Warn("failed to update session stats", map[string]interface{}{"error": err.Error()})
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
