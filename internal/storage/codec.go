package storage

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"
)

// Timestamps are stored as RFC-3339 strings, lists as embedded JSON strings,
// embedding vectors as raw little-endian f32 blobs.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTimeField decodes a nullable stored timestamp. Un-parseable values in
// non-critical fields are treated as absent.
func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil
	}
	return &t
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(s string) []string {
	if s == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return []string{}
	}
	return list
}

// encodeEmbedding serializes a vector as little-endian f32 bytes
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding deserializes a little-endian f32 blob. Blobs whose length
// is not a multiple of 4 are corrupt and dropped.
func decodeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec
}

func encodeSpanContext(ctx *SpanContext) interface{} {
	if ctx == nil {
		return nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeSpanContext(s *string) *SpanContext {
	if s == nil || *s == "" {
		return nil
	}
	var ctx SpanContext
	if err := json.Unmarshal([]byte(*s), &ctx); err != nil {
		return nil
	}
	return &ctx
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// dateKey formats a timestamp as the YYYY-MM-DD key used by project_time
func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
