package pm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toki/internal/logging"
	"toki/internal/storage"
)

const (
	planeTimeout     = 15 * time.Second
	planeMaxRetries  = 2
	planeRetryDelay  = 500 * time.Millisecond
	planeMaxBodySize = 8 << 20
	planePageSize    = 100
)

// PlaneClient talks to a Plane workspace over its REST API
type PlaneClient struct {
	baseURL   string
	apiKey    string
	workspace string
	client    *http.Client
	logger    *logging.Logger
}

// NewPlaneClient creates a Plane client from a stored integration config
func NewPlaneClient(cfg *storage.IntegrationConfig, logger *logging.Logger) *PlaneClient {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = "https://api.plane.so"
	}
	return &PlaneClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.APIKey,
		workspace: cfg.WorkspaceSlug,
		client:    &http.Client{Timeout: planeTimeout},
		logger:    logger,
	}
}

func (c *PlaneClient) SystemName() string { return "plane" }

// APIError is a non-2xx response from the PM system
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plane API error %d: %s", e.StatusCode, e.Message)
}

// doRequest performs an HTTP request, retrying on network and 5xx errors
func (c *PlaneClient) doRequest(ctx context.Context, method, path string, body interface{}, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}

	var payload string
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = string(data)
	}

	var lastErr error
	for attempt := 0; attempt <= planeMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(planeRetryDelay * time.Duration(attempt)):
			}
		}

		var reader io.Reader
		if payload != "" {
			reader = strings.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)
		if payload != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, planeMaxBodySize))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: string(data)}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		}
		return data, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", planeMaxRetries, lastErr)
}

func (c *PlaneClient) workspacePath(parts ...string) string {
	path := "/api/v1/workspaces/" + url.PathEscape(c.workspace)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path + "/"
}

// ValidateCredentials checks the API key by listing workspace projects
func (c *PlaneClient) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, c.workspacePath("projects"), nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type planeProject struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

func (c *PlaneClient) ListProjects(ctx context.Context) ([]Project, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.workspacePath("projects"), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []planeProject `json:"results"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		// Some deployments return a bare array
		var list []planeProject
		if err2 := json.Unmarshal(data, &list); err2 != nil {
			return nil, fmt.Errorf("failed to parse projects response: %w", err)
		}
		resp.Results = list
	}

	projects := make([]Project, 0, len(resp.Results))
	for _, p := range resp.Results {
		projects = append(projects, Project{ID: p.ID, Identifier: p.Identifier, Name: p.Name})
	}
	return projects, nil
}

type planeIssue struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description_stripped"`
	State       string   `json:"state"`
	Assignee    string   `json:"assignee"`
	Labels      []string `json:"labels"`
	SequenceID  int64    `json:"sequence_id"`
	Project     string   `json:"project"`
}

func (c *PlaneClient) ListIssuesPaginated(ctx context.Context, projectID, cursor string) (*IssuePage, error) {
	query := url.Values{}
	query.Set("per_page", fmt.Sprintf("%d", planePageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	data, err := c.doRequest(ctx, http.MethodGet,
		c.workspacePath("projects", projectID, "issues"), nil, query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results         []planeIssue `json:"results"`
		NextCursor      string       `json:"next_cursor"`
		NextPageResults bool         `json:"next_page_results"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse issues response: %w", err)
	}

	page := &IssuePage{
		NextCursor:      resp.NextCursor,
		NextPageResults: resp.NextPageResults,
	}
	for _, i := range resp.Results {
		page.Results = append(page.Results, Issue{
			ID:          i.ID,
			Identifier:  fmt.Sprintf("%d", i.SequenceID),
			Name:        i.Name,
			Description: i.Description,
			State:       i.State,
			Assignee:    i.Assignee,
			Labels:      i.Labels,
		})
	}
	return page, nil
}

func (c *PlaneClient) FetchWorkItem(ctx context.Context, id string) (*WorkItemDetails, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.workspacePath("issues", id), nil, nil)
	if err != nil {
		return nil, err
	}

	var issue planeIssue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse issue response: %w", err)
	}
	return &WorkItemDetails{
		ID:          issue.ID,
		Identifier:  fmt.Sprintf("%d", issue.SequenceID),
		Title:       issue.Name,
		Description: issue.Description,
		Status:      issue.State,
	}, nil
}

// AddTimeEntry posts a worklog. Plane accepts a free-form duration string.
func (c *PlaneClient) AddTimeEntry(ctx context.Context, entry *TimeEntry) error {
	if entry.PMProjectID == "" {
		return fmt.Errorf("time entry for %s has no PM project id", entry.WorkItemID)
	}

	body := map[string]interface{}{
		"duration":    FormatDuration(entry.DurationSeconds),
		"description": entry.Description,
	}
	if entry.Category != "" {
		body["description"] = fmt.Sprintf("[%s] %s", entry.Category, entry.Description)
	}
	if !entry.StartedAt.IsZero() {
		body["started_at"] = entry.StartedAt.UTC().Format(time.RFC3339)
	}

	_, err := c.doRequest(ctx, http.MethodPost,
		c.workspacePath("projects", entry.PMProjectID, "issues", entry.WorkItemID, "worklogs"),
		body, nil)
	return err
}

// BatchSync pushes entries one by one; a failure never aborts the batch
func (c *PlaneClient) BatchSync(ctx context.Context, entries []TimeEntry) (*BatchReport, error) {
	report := &BatchReport{}
	for i := range entries {
		if err := c.AddTimeEntry(ctx, &entries[i]); err != nil {
			report.Failed++
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s: %v", entries[i].WorkItemID, err))
			c.logger.Warn("time entry push failed", map[string]interface{}{
				"work_item": entries[i].WorkItemID,
				"error":     err.Error(),
			})
			continue
		}
		report.Succeeded++
	}
	return report, nil
}
