package classify

import (
	"testing"
	"time"

	"toki/internal/logging"
	"toki/internal/storage"
)

func setup(t *testing.T) (*Classifier, *storage.DB) {
	t.Helper()

	db, err := storage.Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	c, err := New(db, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return c, db
}

func TestBuiltinCategories(t *testing.T) {
	c, _ := setup(t)
	now := time.Now().UTC()

	cases := []struct {
		app   string
		title string
		want  string
	}{
		{"com.microsoft.VSCode", "main.go — toki", "Coding"},
		{"com.todesktop.230313mzl4w4u92", "main.go — toki — Cursor", "Coding"},
		{"com.apple.Terminal", "", "Terminal"},
		{"com.tinyspeck.slackmacgap", "general", "Communication"},
		{"com.figma.Desktop", "design file", "Design"},
		{"org.mozilla.firefox", "stackoverflow - how to", "Research"},
		{"com.unknown.app", "mystery window", "Other"},
	}

	for _, tc := range cases {
		if got := c.Classify(tc.app, tc.title, now); got != tc.want {
			t.Errorf("Classify(%q, %q) = %q, want %q", tc.app, tc.title, got, tc.want)
		}
	}
}

func TestUserRulesWinOverBuiltins(t *testing.T) {
	c, db := setup(t)
	now := time.Now().UTC()

	// Without the rule this would classify as Coding
	if _, err := db.AddClassificationRule("vscode", storage.PatternBundleID, "Writing", 100, now); err != nil {
		t.Fatal(err)
	}

	if got := c.Classify("com.microsoft.VSCode", "notes.txt", now); got != "Writing" {
		t.Errorf("user rule should win, got %q", got)
	}

	rules, err := db.ListClassificationRules()
	if err != nil {
		t.Fatal(err)
	}
	if rules[0].HitCount != 1 {
		t.Errorf("rule hit not recorded: %+v", rules[0])
	}
}

func TestRulePriorityOrder(t *testing.T) {
	c, db := setup(t)
	now := time.Now().UTC()

	if _, err := db.AddClassificationRule("github", storage.PatternWindowTitle, "Research", 50, now); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddClassificationRule("github", storage.PatternWindowTitle, "CodeReview", 200, now); err != nil {
		t.Fatal(err)
	}

	if got := c.Classify("org.mozilla.firefox", "github.com/acme/toki", now); got != "CodeReview" {
		t.Errorf("highest-priority rule should win, got %q", got)
	}
}

func TestTitleRulesNeedTitle(t *testing.T) {
	c, db := setup(t)
	now := time.Now().UTC()

	if _, err := db.AddClassificationRule("anything", storage.PatternWindowTitle, "X", 300, now); err != nil {
		t.Fatal(err)
	}

	// No title: the title rule cannot match, builtin cascade applies
	if got := c.Classify("com.apple.Terminal", "", now); got != "Terminal" {
		t.Errorf("got %q", got)
	}
}

func TestClassifierDeterminism(t *testing.T) {
	c, _ := setup(t)
	now := time.Now().UTC()

	first := c.Classify("org.mozilla.firefox", "youtube.com", now)
	for i := 0; i < 5; i++ {
		if got := c.Classify("org.mozilla.firefox", "youtube.com", now); got != first {
			t.Fatalf("classification not deterministic: %q vs %q", got, first)
		}
	}
}
