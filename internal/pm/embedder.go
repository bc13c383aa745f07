package pm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"toki/internal/logging"
)

// HTTPEmbedder calls an external embedding endpoint. The endpoint accepts
// {"text": ...} and returns {"embedding": [...]} with a fixed dimension.
type HTTPEmbedder struct {
	endpoint  string
	dimension int
	client    *http.Client
	logger    *logging.Logger
}

// NewHTTPEmbedder creates an embedder for the configured endpoint
func NewHTTPEmbedder(endpoint string, dimension int, logger *logging.Logger) *HTTPEmbedder {
	return &HTTPEmbedder{
		endpoint:  endpoint,
		dimension: dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

func (e *HTTPEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if e.dimension > 0 && len(parsed.Embedding) != e.dimension {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(parsed.Embedding), e.dimension)
	}
	return parsed.Embedding, nil
}
