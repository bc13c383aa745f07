package storage

import (
	"testing"
	"time"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}

	data := encodeEmbedding(vec)
	if len(data) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(data))
	}

	got := decodeEmbedding(data)
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %d", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestDecodeEmbeddingDropsCorruptBlobs(t *testing.T) {
	if got := decodeEmbedding([]byte{1, 2, 3}); got != nil {
		t.Errorf("misaligned blob should decode to nil, got %v", got)
	}
	if got := decodeEmbedding(nil); got != nil {
		t.Errorf("empty blob should decode to nil, got %v", got)
	}
}

func TestListRoundTrip(t *testing.T) {
	if encodeList(nil) != "[]" {
		t.Errorf("nil list should encode as [], got %q", encodeList(nil))
	}

	list := decodeList(encodeList([]string{"a", "b"}))
	if len(list) != 2 || list[0] != "a" {
		t.Errorf("round trip failed: %v", list)
	}

	if got := decodeList("not json"); len(got) != 0 {
		t.Errorf("invalid JSON should decode as empty, got %v", got)
	}
}

func TestParseTimePtrToleratesGarbage(t *testing.T) {
	bad := "yesterday"
	if got := parseTimePtr(&bad); got != nil {
		t.Errorf("garbage timestamp should be treated as absent, got %v", got)
	}

	good := "2026-08-30T09:00:00Z"
	got := parseTimePtr(&good)
	if got == nil || got.Hour() != 9 {
		t.Errorf("valid timestamp dropped: %v", got)
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 8, 30, 23, 59, 0, 0, time.FixedZone("x", 3*3600))
	if dateKey(ts) != "2026-08-30" {
		t.Errorf("dateKey should use UTC, got %q", dateKey(ts))
	}
}
