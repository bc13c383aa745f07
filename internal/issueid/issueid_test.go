package issueid

import (
	"reflect"
	"testing"
)

func TestExtractCanonical(t *testing.T) {
	refs := Extract("Working on PROJ-123 and TASK-456")

	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ID != "PROJ-123" || refs[0].Project != "PROJ" {
		t.Errorf("unexpected first ref: %+v", refs[0])
	}
	if refs[1].ID != "TASK-456" {
		t.Errorf("unexpected second ref: %+v", refs[1])
	}
}

func TestExtractUppercases(t *testing.T) {
	ids := ExtractIDs("fix toki-42 again")
	if !reflect.DeepEqual(ids, []string{"TOKI-42"}) {
		t.Errorf("lowercase match should canonicalize, got %v", ids)
	}
}

func TestExtractDeduplicatesCaseInsensitively(t *testing.T) {
	ids := ExtractIDs("TOKI-42 toki-42 Toki-42")
	if len(ids) != 1 {
		t.Errorf("expected 1 deduplicated id, got %v", ids)
	}
}

func TestExtractGithubStyle(t *testing.T) {
	refs := Extract("Fix #123 and close #456")
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ID != "123" || refs[0].Project != "" {
		t.Errorf("unexpected ref: %+v", refs[0])
	}
}

func TestExtractUnderscoreStyle(t *testing.T) {
	refs := Extract("Implementing TASK_123")
	found := false
	for _, r := range refs {
		if r.ID == "TASK-123" {
			found = true
		}
	}
	if !found {
		t.Errorf("underscore style not canonicalized: %v", refs)
	}
}

func TestFirst(t *testing.T) {
	if got := First("feature/toki-42-foo"); got != "TOKI-42" {
		t.Errorf("First() = %q", got)
	}
	if got := First("no issues here"); got != "" {
		t.Errorf("First() on plain text = %q", got)
	}
}

func TestMatches(t *testing.T) {
	if !Matches("feature/toki-42-foo", "TOKI-42") {
		t.Error("case-insensitive containment should match")
	}
	if Matches("anything", "") {
		t.Error("empty issue id should never match")
	}
}
