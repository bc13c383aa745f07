package pm

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory ProjectManagementSystem for tests
type Fake struct {
	mu sync.Mutex

	Name      string
	Projects  []Project
	Issues    map[string][]Issue // keyed by project id
	WorkItems map[string]*WorkItemDetails
	PageSize  int
	FailIDs   map[string]bool // work item ids whose push fails

	Entries []TimeEntry
}

// NewFake creates an empty fake PM system
func NewFake() *Fake {
	return &Fake{
		Name:      "fake",
		Issues:    map[string][]Issue{},
		WorkItems: map[string]*WorkItemDetails{},
		FailIDs:   map[string]bool{},
		PageSize:  2,
	}
}

func (f *Fake) SystemName() string { return f.Name }

func (f *Fake) ValidateCredentials(ctx context.Context) (bool, error) { return true, nil }

func (f *Fake) FetchWorkItem(ctx context.Context, id string) (*WorkItemDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.WorkItems[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: "not found"}
	}
	return item, nil
}

func (f *Fake) AddTimeEntry(ctx context.Context, entry *TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailIDs[entry.WorkItemID] {
		return &APIError{StatusCode: 500, Message: "induced failure"}
	}
	f.Entries = append(f.Entries, *entry)
	return nil
}

func (f *Fake) BatchSync(ctx context.Context, entries []TimeEntry) (*BatchReport, error) {
	report := &BatchReport{}
	for i := range entries {
		if err := f.AddTimeEntry(ctx, &entries[i]); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entries[i].WorkItemID, err))
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

func (f *Fake) ListProjects(ctx context.Context) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Project(nil), f.Projects...), nil
}

// ListIssuesPaginated pages through the scripted issues with integer cursors
func (f *Fake) ListIssuesPaginated(ctx context.Context, projectID, cursor string) (*IssuePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	issues := f.Issues[projectID]
	start := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &start); err != nil {
			return nil, &APIError{StatusCode: 400, Message: "bad cursor"}
		}
	}
	if start >= len(issues) {
		return &IssuePage{}, nil
	}

	end := start + f.PageSize
	if end > len(issues) {
		end = len(issues)
	}
	page := &IssuePage{Results: append([]Issue(nil), issues[start:end]...)}
	if end < len(issues) {
		page.NextCursor = fmt.Sprintf("%d", end)
		page.NextPageResults = true
	}
	return page, nil
}

// FakeEmbedder returns deterministic vectors keyed by input text
type FakeEmbedder struct {
	mu        sync.Mutex
	Dimension int
	Vectors   map[string][]float32
	Calls     int
}

// NewFakeEmbedder creates a fake embedding service
func NewFakeEmbedder(dimension int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dimension, Vectors: map[string][]float32{}}
}

// GenerateEmbedding returns the scripted vector for the text, or a
// deterministic hash-derived vector when none is scripted
func (f *FakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if v, ok := f.Vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}

	v := make([]float32, f.Dimension)
	var h uint32 = 2166136261
	for _, b := range []byte(text) {
		h = (h ^ uint32(b)) * 16777619
	}
	for i := range v {
		h = h*1664525 + 1013904223
		v[i] = float32(h%1000) / 1000
	}
	return v, nil
}
