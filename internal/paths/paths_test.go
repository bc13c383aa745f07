package paths

import (
	"path/filepath"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	t.Setenv("TOKI_DATA_DIR", "/tmp/toki-test")

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	if dir != "/tmp/toki-test" {
		t.Errorf("expected override dir, got %q", dir)
	}
}

func TestDataDirDefault(t *testing.T) {
	t.Setenv("TOKI_DATA_DIR", "")

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	if filepath.Base(dir) != ".toki" {
		t.Errorf("expected ~/.toki, got %q", dir)
	}
}

func TestDerivedPaths(t *testing.T) {
	dir := "/data/toki"

	cases := []struct {
		got  string
		want string
	}{
		{DatabasePath(dir), "/data/toki/toki.db"},
		{PIDPath(dir), "/data/toki/toki.pid"},
		{SocketPath(dir), "/data/toki/toki.sock"},
		{LogPath(dir), "/data/toki/daemon.log"},
		{ConfigPath(dir), "/data/toki/config.json"},
	}

	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}
