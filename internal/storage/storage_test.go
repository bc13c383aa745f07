package storage

import (
	"testing"
	"time"

	"toki/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger := logging.Discard()

	db, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	db.Close()

	db, err = Open(dir, logger)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db.Close()

	cats, err := db.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories() error: %v", err)
	}
	if len(cats) != 11 {
		t.Errorf("expected 11 seeded categories, got %d", len(cats))
	}
}

func TestProjectUpsertByPath(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	p1, err := db.UpsertProjectByPath("/home/u/dev/alpha", "alpha", now)
	if err != nil {
		t.Fatalf("UpsertProjectByPath() error: %v", err)
	}

	later := now.Add(time.Hour)
	p2, err := db.UpsertProjectByPath("/home/u/dev/alpha", "alpha", later)
	if err != nil {
		t.Fatalf("second upsert error: %v", err)
	}

	if p1.ID != p2.ID {
		t.Error("same path should resolve to the same project")
	}
	if !p2.LastActive.Equal(later) {
		t.Errorf("last_active not touched: %v", p2.LastActive)
	}
}

func TestProjectLinkUnlink(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	p, err := db.UpsertProjectByPath("/dev/beta", "beta", now)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.LinkProjectPM(p.ID, "plane", "pm-1", "acme"); err != nil {
		t.Fatalf("LinkProjectPM() error: %v", err)
	}

	linked, err := db.GetProject(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !linked.Linked() || linked.PMSystem != "plane" {
		t.Errorf("project not linked: %+v", linked)
	}

	if err := db.UnlinkProjectPM(p.ID); err != nil {
		t.Fatalf("UnlinkProjectPM() error: %v", err)
	}

	unlinked, err := db.GetProject(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unlinked.Linked() || unlinked.PMSystem != "" {
		t.Errorf("project still linked: %+v", unlinked)
	}

	unlinkedList, err := db.ListUnlinkedProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(unlinkedList) != 1 {
		t.Errorf("expected 1 unlinked project, got %d", len(unlinkedList))
	}
}

func TestSpanLifecycle(t *testing.T) {
	db := testDB(t)
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	span, err := db.StartSpan("com.editor", "Coding", start, "", "", "", nil)
	if err != nil {
		t.Fatalf("StartSpan() error: %v", err)
	}

	open, err := db.GetOpenSpan()
	if err != nil {
		t.Fatal(err)
	}
	if open == nil || open.ID != span.ID {
		t.Fatal("open span not found")
	}

	end := start.Add(10 * time.Second)
	if err := db.FinalizeSpan(span.ID, end); err != nil {
		t.Fatalf("FinalizeSpan() error: %v", err)
	}

	finalized, err := db.GetSpan(span.ID)
	if err != nil {
		t.Fatal(err)
	}
	if finalized.EndTime == nil || !finalized.EndTime.Equal(end) {
		t.Errorf("end_time not set: %+v", finalized)
	}
	if finalized.DurationSeconds != 10 {
		t.Errorf("expected duration 10, got %d", finalized.DurationSeconds)
	}

	// Finalizing twice must fail: the span no longer has a null end_time
	if err := db.FinalizeSpan(span.ID, end.Add(time.Second)); err == nil {
		t.Error("expected error finalizing an already-finalized span")
	}

	if open, _ := db.GetOpenSpan(); open != nil {
		t.Error("no span should remain open")
	}
}

func TestSpanContextRoundTrip(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC()

	ctx := &SpanContext{
		GitBranch:   "feature/TOKI-42-foo",
		GitCommits:  []string{"TOKI-42: wip"},
		EditedFiles: []string{"main.go"},
	}
	span, err := db.StartSpan("com.editor", "Coding", start, "", "", "", ctx)
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.GetSpan(span.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Context == nil || got.Context.GitBranch != "feature/TOKI-42-foo" {
		t.Errorf("context not preserved: %+v", got.Context)
	}
	if len(got.Context.GitCommits) != 1 {
		t.Errorf("commits not preserved: %+v", got.Context)
	}
}

func TestProjectTimeAccrual(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	p, err := db.UpsertProjectByPath("/dev/alpha", "alpha", now)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.AddProjectTime(p.ID, 5, now); err != nil {
		t.Fatalf("AddProjectTime() error: %v", err)
	}
	if err := db.AddProjectTime(p.ID, 5, now.Add(5*time.Second)); err != nil {
		t.Fatal(err)
	}

	entries, err := db.GetProjectTimeForDate(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 accumulator row, got %d", len(entries))
	}
	if entries[0].DurationSeconds != 10 {
		t.Errorf("expected 10 accumulated seconds, got %d", entries[0].DurationSeconds)
	}
	if entries[0].ProjectName != "alpha" {
		t.Errorf("unexpected project name %q", entries[0].ProjectName)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	s, err := db.CreateSession(start)
	if err != nil {
		t.Fatal(err)
	}

	current, err := db.GetCurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if current == nil || current.ID != s.ID {
		t.Fatal("current session not found")
	}

	if err := db.UpdateSessionCounters(s.ID, 300, 20, 2); err != nil {
		t.Fatal(err)
	}

	span, err := db.StartSpan("com.editor", "Coding", start, "", "", s.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinalizeSpan(span.ID, start.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateSessionStats(s.ID); err != nil {
		t.Fatal(err)
	}

	if err := db.FinalizeSession(s.ID, start.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	closed, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if closed.EndTime == nil {
		t.Error("session not finalized")
	}
	if closed.TotalActiveSeconds != 300 || closed.IdleSeconds != 20 {
		t.Errorf("counters not persisted: %+v", closed)
	}
	if len(closed.Categories) != 1 || closed.Categories[0] != "Coding" {
		t.Errorf("categories not collected: %v", closed.Categories)
	}

	if current, _ := db.GetCurrentSession(); current != nil {
		t.Error("no session should remain open")
	}
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	db := testDB(t)

	s, err := db.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error: %v", err)
	}
	if s.IdleThresholdSeconds != 300 {
		t.Errorf("expected default idle threshold 300, got %d", s.IdleThresholdSeconds)
	}
	if s.WorkStartHour != 9 || s.WorkEndHour != 18 || s.SessionEndIdleSeconds != 900 {
		t.Errorf("unexpected session defaults: %+v", s)
	}
	if len(s.URLWhitelist) != 3 {
		t.Errorf("unexpected default whitelist: %v", s.URLWhitelist)
	}

	s.PauseTracking = true
	s.ExcludedApps = []string{"com.1password"}
	if err := db.UpdateSettings(s); err != nil {
		t.Fatalf("UpdateSettings() error: %v", err)
	}

	again, err := db.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if !again.PauseTracking || len(again.ExcludedApps) != 1 {
		t.Errorf("settings not persisted: %+v", again)
	}
}

func TestWorkItemUpsert(t *testing.T) {
	db := testDB(t)

	item, err := db.UpsertWorkItem(&WorkItem{
		ExternalID:     "TOKI-42",
		ExternalSystem: "git",
		Title:          "first",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := db.UpsertWorkItem(&WorkItem{
		ExternalID:     "TOKI-42",
		ExternalSystem: "git",
		Title:          "second",
	})
	if err != nil {
		t.Fatal(err)
	}

	if item.ID != updated.ID {
		t.Error("upsert should preserve the row id")
	}
	if updated.Title != "second" {
		t.Errorf("title not refreshed: %q", updated.Title)
	}
}

func TestIssueCandidateUpsertPreservesEmbedding(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	p, err := db.UpsertProjectByPath("/dev/gamma", "gamma", now)
	if err != nil {
		t.Fatal(err)
	}

	c := &IssueCandidate{
		ProjectID:      p.ID,
		ExternalID:     "TOKI-7",
		ExternalSystem: "plane",
		Title:          "Fix tracker",
		Status:         "open",
		Labels:         []string{"bug"},
		LastSynced:     now,
	}
	if err := db.UpsertIssueCandidate(c); err != nil {
		t.Fatal(err)
	}

	if err := db.SaveCandidateEmbedding(c.ID, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatal(err)
	}

	// Re-sync without an embedding must keep the stored one
	update := &IssueCandidate{
		ProjectID:      p.ID,
		ExternalID:     "TOKI-7",
		ExternalSystem: "plane",
		Title:          "Fix tracker loop",
		Status:         "open",
		LastSynced:     now.Add(time.Minute),
	}
	if err := db.UpsertIssueCandidate(update); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetIssueCandidate("TOKI-7", "plane")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != c.ID {
		t.Error("upsert should preserve the row id")
	}
	if got.Title != "Fix tracker loop" {
		t.Errorf("title not refreshed: %q", got.Title)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("embedding not preserved: %v", got.Embedding)
	}

	missing, err := db.ListCandidatesMissingEmbedding()
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no candidates missing embeddings, got %d", len(missing))
	}
}

func TestTimeBlockEligibility(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	suggested := &TimeBlock{
		StartTime:   now,
		EndTime:     now.Add(30 * time.Minute),
		Description: "work",
		Source:      SourceAISuggested,
	}
	if err := db.SaveTimeBlock(suggested); err != nil {
		t.Fatal(err)
	}

	manual := &TimeBlock{
		StartTime:   now.Add(time.Hour),
		EndTime:     now.Add(2 * time.Hour),
		Description: "manual entry",
		Source:      SourceManual,
	}
	if err := db.SaveTimeBlock(manual); err != nil {
		t.Fatal(err)
	}

	eligible, err := db.GetConfirmedUnsyncedBlocks()
	if err != nil {
		t.Fatal(err)
	}
	if len(eligible) != 1 || eligible[0].ID != manual.ID {
		t.Fatalf("only the manual block should be eligible, got %d", len(eligible))
	}

	// Marking an unconfirmed block synced must fail
	if err := db.MarkTimeBlockSynced(suggested.ID); err == nil {
		t.Error("expected error syncing an unconfirmed block")
	}

	if err := db.ConfirmTimeBlock(suggested.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkTimeBlockSynced(suggested.ID); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetTimeBlock(suggested.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Synced || !got.Confirmed {
		t.Errorf("synced implies confirmed violated: %+v", got)
	}
}

func TestClassificationRuleOrdering(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	low, err := db.AddClassificationRule("github", PatternWindowTitle, "Research", 50, now)
	if err != nil {
		t.Fatal(err)
	}
	high, err := db.AddClassificationRule("slack", PatternBundleID, "Communication", 200, now)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.RecordRuleHit(low.ID, now); err != nil {
		t.Fatal(err)
	}

	rules, err := db.ListClassificationRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].ID != high.ID {
		t.Error("rules not ordered by priority descending")
	}
	if rules[1].HitCount != 1 || rules[1].LastHit == nil {
		t.Errorf("hit not recorded: %+v", rules[1])
	}
}

func TestSyncedIssueLedgerUnique(t *testing.T) {
	db := testDB(t)

	first := &SyncedIssue{
		SourceExternalRef: "page-1",
		TargetSystem:      "github",
		TargetProject:     "owner/repo",
		TargetIssueID:     "i1",
		TargetIssueNumber: 10,
	}
	if err := db.UpsertSyncedIssue(first); err != nil {
		t.Fatal(err)
	}

	second := &SyncedIssue{
		SourceExternalRef: "page-1",
		TargetSystem:      "github",
		TargetProject:     "owner/repo",
		TargetIssueID:     "i1",
		TargetIssueNumber: 11,
	}
	if err := db.UpsertSyncedIssue(second); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListSyncedIssues()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", len(all))
	}
	if all[0].TargetIssueNumber != 11 {
		t.Errorf("ledger row not refreshed: %+v", all[0])
	}

	got, err := db.GetSyncedIssue("page-1", "github", "owner/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("ledger row not found")
	}
}

func TestIntegrationConfigUpsert(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertIntegrationConfig(&IntegrationConfig{
		SystemType: "plane",
		APIURL:     "https://api.plane.so",
		APIKey:     "k1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertIntegrationConfig(&IntegrationConfig{
		SystemType: "plane",
		APIURL:     "https://api.plane.so",
		APIKey:     "k2",
	}); err != nil {
		t.Fatal(err)
	}

	configs, err := db.ListIntegrationConfigs()
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	if configs[0].APIKey != "k2" {
		t.Errorf("api key not refreshed: %q", configs[0].APIKey)
	}
}

func TestIssueTimeStats(t *testing.T) {
	db := testDB(t)
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	item, err := db.UpsertWorkItem(&WorkItem{ExternalID: "TOKI-42", ExternalSystem: "git"})
	if err != nil {
		t.Fatal(err)
	}

	span, err := db.StartSpan("com.editor", "Coding", start, "", item.ID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinalizeSpan(span.ID, start.Add(600*time.Second)); err != nil {
		t.Fatal(err)
	}

	stats, err := db.GetIssueTimeStats()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stats row, got %d", len(stats))
	}
	if stats[0].IssueID != "TOKI-42" || stats[0].TotalSeconds != 600 {
		t.Errorf("unexpected stats: %+v", stats[0])
	}
}
