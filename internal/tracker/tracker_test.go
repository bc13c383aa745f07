package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"toki/internal/classify"
	"toki/internal/detect"
	"toki/internal/logging"
	"toki/internal/monitor"
	"toki/internal/session"
	"toki/internal/storage"
	"toki/internal/workspace"
)

const tick = 5 * time.Second

type fixture struct {
	db      *storage.DB
	mon     *monitor.Scripted
	tracker *Tracker
}

func newFixture(t *testing.T, stateFiles []string) *fixture {
	t.Helper()

	db, err := storage.Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	classifier, err := classify.New(db, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	resolver := workspace.NewResolverWithFiles(stateFiles, logging.Discard())
	detector := detect.New(db, resolver, logging.Discard())
	sessions := session.New(db, logging.Discard())
	mon := &monitor.Scripted{}

	return &fixture{
		db:      db,
		mon:     mon,
		tracker: New(db, mon, detector, classifier, sessions, tick, logging.Discard()),
	}
}

// writeEditorState creates a storage.json pointing at the given workspace dir
func writeEditorState(t *testing.T, workspaceDir string) string {
	t.Helper()

	state := map[string]interface{}{
		"windowsState": map[string]interface{}{
			"lastActiveWindow": map[string]string{
				"folder": "file://" + workspaceDir,
			},
		},
	}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return file
}

func workHours(minute int) time.Time {
	return time.Date(2026, 8, 30, 10, minute, 0, 0, time.UTC)
}

func TestSameAppContinuesSpan(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)
	f.tracker.Tick(now.Add(tick))
	f.tracker.Tick(now.Add(2 * tick))

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open == nil {
		t.Fatal("expected an open span")
	}
	if open.Category != "Coding" {
		t.Errorf("category = %q", open.Category)
	}

	// No span was finalized yet: three ticks on the same app keep one open span
	spans, err := f.db.GetSpansForDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 0 {
		t.Fatalf("same app must not cycle spans, got %d finalized", len(spans))
	}
}

func TestAppSwitchFinalizesAndOpens(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
		{App: &monitor.ActiveApp{AppBundleID: "com.tinyspeck.slackmacgap", WindowTitle: "general"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)
	f.mon.Advance()
	f.tracker.Tick(now.Add(tick))

	spans, err := f.db.GetSpansForDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 finalized span, got %d", len(spans))
	}
	if spans[0].AppBundleID != "com.microsoft.VSCode" {
		t.Errorf("finalized span app = %q", spans[0].AppBundleID)
	}

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open == nil || open.AppBundleID != "com.tinyspeck.slackmacgap" {
		t.Errorf("open span = %+v", open)
	}
}

func TestProjectTimeAccruesOnContinuedSpan(t *testing.T) {
	projectDir := filepath.Join(t.TempDir(), "toki")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stateFile := writeEditorState(t, projectDir)

	f := newFixture(t, []string{stateFile})
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{
			AppBundleID: "com.microsoft.VSCode",
			WindowTitle: "main.go — toki — Cursor",
		}},
	}

	now := workHours(0)
	f.tracker.Tick(now)
	f.tracker.Tick(now.Add(tick))
	f.tracker.Tick(now.Add(2 * tick))

	entries, err := f.db.GetProjectTimeForDate(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 project-time entry, got %d", len(entries))
	}
	if entries[0].ProjectName != "toki" {
		t.Errorf("project = %q", entries[0].ProjectName)
	}
	// Ticks 2 and 3 continue the span and accrue; tick 1 opened it
	if entries[0].DurationSeconds != 2*int64(tick.Seconds()) {
		t.Errorf("accrued %d seconds", entries[0].DurationSeconds)
	}
}

func TestIdleFinalizesSpanAndEndsSession(t *testing.T) {
	f := newFixture(t, nil)

	settings, err := f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}

	active := monitor.ScriptedSample{
		App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"},
	}
	idle := monitor.ScriptedSample{
		App:         active.App,
		IdleSeconds: settings.IdleThresholdSeconds,
	}
	f.mon.Samples = []monitor.ScriptedSample{active, idle}

	now := workHours(0)
	f.tracker.Tick(now)

	sess, err := f.db.GetCurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil {
		t.Fatal("session should open during work hours")
	}

	f.mon.Advance()

	// Idle ticks until accumulated session idle crosses the end threshold
	ticks := int(settings.SessionEndIdleSeconds/int64(tick.Seconds())) + 1
	at := now
	for i := 0; i < ticks; i++ {
		at = at.Add(tick)
		f.tracker.Tick(at)
	}

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Error("idle should finalize the open span")
	}

	sess, err = f.db.GetCurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Error("sustained idle should end the session")
	}
}

func TestExcludedAppNotTracked(t *testing.T) {
	f := newFixture(t, nil)

	settings, err := f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	settings.ExcludedApps = append(settings.ExcludedApps, "com.1password.1password")
	if err := f.db.UpdateSettings(settings); err != nil {
		t.Fatal(err)
	}

	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
		{App: &monitor.ActiveApp{AppBundleID: "com.1password.1password", WindowTitle: "vault"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)
	f.mon.Advance()
	f.tracker.Tick(now.Add(tick))

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Error("excluded app must not keep a span open")
	}

	spans, err := f.db.GetSpansForDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected only the first span, got %d", len(spans))
	}
}

func TestPauseStopsTracking(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)

	settings, err := f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	settings.PauseTracking = true
	if err := f.db.UpdateSettings(settings); err != nil {
		t.Fatal(err)
	}

	f.tracker.Tick(now.Add(tick))

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Error("pause must finalize the open span")
	}

	status := f.tracker.Status()
	if !status.Paused || status.Tracking {
		t.Errorf("status = %+v", status)
	}
}

func TestPauseRequestPersistedByTick(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)

	// The request alone writes nothing; the next tick persists it
	f.tracker.RequestPause(true)
	settings, err := f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.PauseTracking {
		t.Fatal("request must not write the store before a tick")
	}

	f.tracker.Tick(now.Add(tick))

	settings, err = f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if !settings.PauseTracking {
		t.Error("tick did not persist the pause flag")
	}
	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Error("pause must finalize the open span")
	}
	if status := f.tracker.Status(); !status.Paused {
		t.Errorf("status = %+v", status)
	}

	f.tracker.RequestPause(false)
	f.tracker.Tick(now.Add(2 * tick))

	settings, err = f.db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.PauseTracking {
		t.Error("tick did not persist the resume")
	}
	if status := f.tracker.Status(); status.Paused {
		t.Errorf("status = %+v", status)
	}
}

func TestShutdownFinalizesEverything(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
	}

	now := workHours(0)
	f.tracker.Tick(now)
	f.tracker.Shutdown(now.Add(tick))

	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Error("shutdown must finalize the open span")
	}

	sess, err := f.db.GetCurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Error("shutdown must end the session")
	}
}

func TestNoSessionOutsideWorkHours(t *testing.T) {
	f := newFixture(t, nil)
	f.mon.Samples = []monitor.ScriptedSample{
		{App: &monitor.ActiveApp{AppBundleID: "com.microsoft.VSCode", WindowTitle: "main.go"}},
	}

	night := time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC)
	f.tracker.Tick(night)

	sess, err := f.db.GetCurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Error("no session should open outside work hours")
	}

	// Spans are still tracked outside work hours
	open, err := f.db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open == nil {
		t.Error("spans should still track outside work hours")
	}
}
