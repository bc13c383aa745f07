package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"toki/internal/logging"
)

func writeState(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractProjectFromTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"main.go — toki — Cursor", "toki"},
		{"main.go - toki - Visual Studio Code", "toki"},
		{"toki – Cursor", "toki"},
		{"Cursor", ""},
		{"", ""},
		{"README.md — docs-site — Code", "docs-site"},
	}

	for _, c := range cases {
		if got := ExtractProjectFromTitle(c.title); got != c.want {
			t.Errorf("ExtractProjectFromTitle(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

func TestLooksLikeFilename(t *testing.T) {
	if !looksLikeFilename("main.go") || !looksLikeFilename("lib.rs") {
		t.Error("known extensions should look like filenames")
	}
	if looksLikeFilename("my.project.name.with.dots.unknownext") {
		t.Error("long unknown extension should not look like a filename")
	}
	if looksLikeFilename("toki") {
		t.Error("plain word should not look like a filename")
	}
}

func TestResolveExactMatch(t *testing.T) {
	dir := t.TempDir()
	state := `{"windowsState":{"lastActiveWindow":{"folder":"file:///home/u/dev/other"},"openedWindows":[{"folder":"file:///home/u/dev/toki"}]}}`
	f := writeState(t, dir, "storage.json", state, time.Now())

	r := NewResolverWithFiles([]string{f}, logging.Discard())
	got := r.Resolve("main.go — toki — Cursor")
	if got != "/home/u/dev/toki" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolveSubstringMatch(t *testing.T) {
	dir := t.TempDir()
	state := `{"windowsState":{"openedWindows":[{"folder":"file:///home/u/dev/toki-daemon"}]}}`
	f := writeState(t, dir, "storage.json", state, time.Now())

	r := NewResolverWithFiles([]string{f}, logging.Discard())
	got := r.Resolve("main.go — toki — Cursor")
	if got != "/home/u/dev/toki-daemon" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolveFallsBackToLastActiveWindow(t *testing.T) {
	dir := t.TempDir()
	older := writeState(t, dir, "old.json",
		`{"windowsState":{"lastActiveWindow":{"folder":"file:///home/u/dev/stale"}}}`,
		time.Now().Add(-time.Hour))
	newer := writeState(t, dir, "new.json",
		`{"windowsState":{"lastActiveWindow":{"folder":"file:///home/u/dev/fresh"}}}`,
		time.Now())

	r := NewResolverWithFiles([]string{older, newer}, logging.Discard())
	got := r.Resolve("Cursor")
	if got != "/home/u/dev/fresh" {
		t.Errorf("expected the newest last-active window, got %q", got)
	}
}

func TestResolveLegacyOpenedPathsList(t *testing.T) {
	dir := t.TempDir()
	state := `{"openedPathsList":{"entries":[{"folderUri":"file:///home/u/dev/legacy-proj"}]}}`
	f := writeState(t, dir, "storage.json", state, time.Now())

	r := NewResolverWithFiles([]string{f}, logging.Discard())
	got := r.Resolve("x.go — legacy-proj — Code")
	if got != "/home/u/dev/legacy-proj" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolveNoStateFiles(t *testing.T) {
	r := NewResolverWithFiles([]string{"/nonexistent/storage.json"}, logging.Discard())
	if got := r.Resolve("main.go — toki — Cursor"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
