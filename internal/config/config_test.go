package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracker.TickIntervalSeconds != 5 {
		t.Errorf("expected default tick interval 5, got %d", cfg.Tracker.TickIntervalSeconds)
	}
	if cfg.Review.MergeGapMinutes != 10 {
		t.Errorf("expected default merge gap 10, got %d", cfg.Review.MergeGapMinutes)
	}
	if cfg.Embeddings.Dimension != 384 {
		t.Errorf("expected default dimension 384, got %d", cfg.Embeddings.Dimension)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Tracker.TickIntervalSeconds = 10
	cfg.Logging.Level = "debug"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Tracker.TickIntervalSeconds != 10 {
		t.Errorf("tick interval not persisted, got %d", loaded.Tracker.TickIntervalSeconds)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("log level not persisted, got %q", loaded.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	bad := `{"version":1,"tracker":{"tickIntervalSeconds":0}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("expected validation error for zero tick interval")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.Review.MergeGapMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero merge gap")
	}
}
