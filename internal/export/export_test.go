package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"toki/internal/logging"
	"toki/internal/storage"
)

func openStore(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func populate(t *testing.T, db *storage.DB) *storage.Project {
	t.Helper()
	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	project, err := db.UpsertProjectByPath("/home/dev/toki", "toki", day)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddProjectTime(project.ID, 1800, day); err != nil {
		t.Fatal(err)
	}

	session, err := db.CreateSession(day)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinalizeSession(session.ID, day.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	span, err := db.StartSpan("com.todesktop.230313mzl4w4u92", "Coding", day, project.ID, "", session.ID,
		&storage.SpanContext{GitBranch: "feature/TOKI-7"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinalizeSpan(span.ID, day.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if _, err := db.UpsertWorkItem(&storage.WorkItem{
		ExternalID: "TOKI-7", ExternalSystem: "plane", Title: "Fix tick drift",
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.UpsertIssueCandidate(&storage.IssueCandidate{
		ProjectID:      project.ID,
		ExternalID:     "TOKI-8",
		ExternalSystem: "plane",
		Title:          "Archive exports",
		Embedding:      []float32{0.25, 0.5, 0.75},
	}); err != nil {
		t.Fatal(err)
	}

	confidence := 0.9
	if err := db.SaveTimeBlock(&storage.TimeBlock{
		StartTime:   day,
		EndTime:     day.Add(30 * time.Minute),
		ProjectID:   project.ID,
		Description: "Fix tick drift",
		Source:      storage.SourceAISuggested,
		Confidence:  &confidence,
		Confirmed:   true,
	}); err != nil {
		t.Fatal(err)
	}
	return project
}

func TestRoundTrip(t *testing.T) {
	src := openStore(t)
	project := populate(t, src)

	var buf bytes.Buffer
	exported, err := New(src, 3, logging.Discard()).Export(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if exported.Version != ArchiveVersion {
		t.Errorf("version = %d", exported.Version)
	}
	if len(exported.Spans) != 1 || len(exported.TimeBlocks) != 1 {
		t.Fatalf("spans=%d blocks=%d", len(exported.Spans), len(exported.TimeBlocks))
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Error("archive missing zstd frame header")
	}

	dst := openStore(t)
	imported, err := New(dst, 3, logging.Discard()).Import(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(imported.Projects) != 1 {
		t.Fatalf("projects = %d", len(imported.Projects))
	}

	got, err := dst.GetProject(project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "toki" {
		t.Fatalf("project = %+v", got)
	}

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	entries, err := dst.GetProjectTimeForDate(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].DurationSeconds != 1800 {
		t.Errorf("project time = %+v", entries)
	}

	spans, err := dst.GetSpansForDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 || spans[0].Context == nil || spans[0].Context.GitBranch != "feature/TOKI-7" {
		t.Errorf("spans = %+v", spans)
	}

	candidate, err := dst.GetIssueCandidate("TOKI-8", "plane")
	if err != nil {
		t.Fatal(err)
	}
	if candidate == nil || len(candidate.Embedding) != 3 {
		t.Fatalf("candidate = %+v", candidate)
	}

	blocks, err := dst.ListAllTimeBlocks()
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || !blocks[0].Confirmed || blocks[0].Source != storage.SourceAISuggested {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestImportAccruesProjectTime(t *testing.T) {
	src := openStore(t)
	populate(t, src)

	var buf bytes.Buffer
	if _, err := New(src, 1, logging.Discard()).Export(&buf); err != nil {
		t.Fatal(err)
	}
	archive := buf.Bytes()

	dst := openStore(t)
	eng := New(dst, 1, logging.Discard())
	for i := 0; i < 2; i++ {
		if _, err := eng.Import(bytes.NewReader(archive)); err != nil {
			t.Fatal(err)
		}
	}

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	entries, err := dst.GetProjectTimeForDate(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].DurationSeconds != 3600 {
		t.Errorf("double import should accrue: %+v", entries)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	db := openStore(t)
	if _, err := New(db, 3, logging.Discard()).Import(strings.NewReader("not an archive")); err == nil {
		t.Error("garbage accepted")
	}
}
