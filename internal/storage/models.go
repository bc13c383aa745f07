package storage

import (
	"time"
)

// Project is a local code workspace, keyed by its filesystem path
type Project struct {
	ID          string
	Name        string
	Path        string
	Description string
	CreatedAt   time.Time
	LastActive  time.Time
	PMSystem    string
	PMProjectID string
	PMWorkspace string
}

// Linked reports whether the project has a PM linkage
func (p *Project) Linked() bool {
	return p.PMSystem != "" && p.PMProjectID != ""
}

// SpanContext carries activity detail captured alongside a span
type SpanContext struct {
	WorkItemIDs []string `json:"work_item_ids,omitempty"`
	EditedFiles []string `json:"edited_files,omitempty"`
	GitCommits  []string `json:"git_commits,omitempty"`
	GitBranch   string   `json:"git_branch,omitempty"`
	BrowserURLs []string `json:"browser_urls,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// ActivitySpan is a continuous interval of foreground use of one application
type ActivitySpan struct {
	ID              string
	AppBundleID     string
	Category        string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	ProjectID       string
	WorkItemID      string
	SessionID       string
	Context         *SpanContext
}

// Session is a logical work session bracketed by long idle gaps
type Session struct {
	ID                 string
	StartTime          time.Time
	EndTime            *time.Time
	TotalActiveSeconds int64
	IdleSeconds        int64
	InterruptionCount  int64
	Categories         []string
	WorkItemIDs        []string
}

// WorkItem is a cached reference to a PM system task
type WorkItem struct {
	ID             string
	ExternalID     string
	ExternalSystem string
	Title          string
	Description    string
	Status         string
	Project        string
	Workspace      string
	LastSynced     *time.Time
}

// Complexity grades an issue's estimated difficulty
type Complexity int

const (
	ComplexityTrivial  Complexity = 1
	ComplexitySimple   Complexity = 2
	ComplexityModerate Complexity = 3
	ComplexityComplex  Complexity = 5
	ComplexityEpic     Complexity = 8
)

// Label returns the display name of a complexity grade
func (c Complexity) Label() string {
	switch c {
	case ComplexityTrivial:
		return "Trivial"
	case ComplexitySimple:
		return "Simple"
	case ComplexityModerate:
		return "Moderate"
	case ComplexityComplex:
		return "Complex"
	case ComplexityEpic:
		return "Epic"
	default:
		return "Unknown"
	}
}

// ParseComplexity converts a stored integer to a Complexity, or 0 if invalid
func ParseComplexity(v int64) Complexity {
	switch Complexity(v) {
	case ComplexityTrivial, ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityEpic:
		return Complexity(v)
	default:
		return 0
	}
}

// IssueCandidate is a cached PM issue enriched for matching and estimation
type IssueCandidate struct {
	ID                string
	ProjectID         string
	ExternalID        string
	ExternalSystem    string
	PMProjectID       string
	SourceExternalRef string
	Title             string
	Description       string
	Status            string
	Labels            []string
	Assignee          string
	Embedding         []float32
	Complexity        Complexity
	ComplexityReason  string
	EstimatedSeconds  int64
	LastSynced        time.Time
}

// EmbeddingText composes the text fed to the embedding service
func (c *IssueCandidate) EmbeddingText() string {
	text := c.ExternalID + "\n" + c.Title
	if c.Description != "" {
		text += "\n" + c.Description
	}
	for _, label := range c.Labels {
		text += "\n" + label
	}
	return text
}

// BlockSource identifies how a time block was produced
type BlockSource string

const (
	SourceManual       BlockSource = "manual"
	SourceAISuggested  BlockSource = "ai_suggested"
	SourceAutoDetected BlockSource = "auto_detected"
)

// TimeBlock is a reviewable, confirmable, syncable interval
type TimeBlock struct {
	ID                string
	StartTime         time.Time
	EndTime           time.Time
	ProjectID         string
	WorkItemIDs       []string
	Description       string
	Tags              []string
	Source            BlockSource
	Confidence        *float64
	Confirmed         bool
	Synced            bool
	SourceExternalRef string
	CreatedAt         time.Time
}

// DurationSeconds returns the block length in whole seconds
func (b *TimeBlock) DurationSeconds() int64 {
	return int64(b.EndTime.Sub(b.StartTime).Seconds())
}

// SyncedIssue is one row of the sync idempotence ledger
type SyncedIssue struct {
	ID                string
	SourceExternalRef string
	SourceDatabaseID  string
	TargetSystem      string
	TargetProject     string
	TargetIssueID     string
	TargetIssueNumber int64
	TargetIssueURL    string
	Title             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PatternType selects what a classification rule matches against
type PatternType string

const (
	PatternDomain      PatternType = "domain"
	PatternWindowTitle PatternType = "window_title"
	PatternBundleID    PatternType = "bundle_id"
	PatternURLPath     PatternType = "url_path"
)

// ClassificationRule is a user-learned category override
type ClassificationRule struct {
	ID          string
	Pattern     string
	PatternType PatternType
	Category    string
	Priority    int64
	CreatedAt   time.Time
	HitCount    int64
	LastHit     *time.Time
}

// Settings is the single-row tracking preferences entity
type Settings struct {
	ID                     string
	PauseTracking          bool
	ExcludedApps           []string
	IdleThresholdSeconds   int64
	EnableWorkItemTracking bool
	CaptureWindowTitle     bool
	CaptureBrowserURL      bool
	URLWhitelist           []string
	WorkStartHour          int64
	WorkEndHour            int64
	SessionEndIdleSeconds  int64
}

// DefaultSettings returns the settings seeded on first open
func DefaultSettings() *Settings {
	return &Settings{
		PauseTracking:          false,
		ExcludedApps:           []string{},
		IdleThresholdSeconds:   300,
		EnableWorkItemTracking: true,
		CaptureWindowTitle:     true,
		CaptureBrowserURL:      false,
		URLWhitelist:           []string{"plane.so", "github.com", "jira.atlassian.com"},
		WorkStartHour:          9,
		WorkEndHour:            18,
		SessionEndIdleSeconds:  900,
	}
}

// IntegrationConfig holds per-PM-system credentials
type IntegrationConfig struct {
	ID            string
	SystemType    string
	APIURL        string
	APIKey        string
	WorkspaceSlug string
	ProjectID     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Category is a built-in regex classification row
type Category struct {
	ID          string
	Name        string
	Pattern     string
	Description string
}

// IssueTimeStats aggregates tracked time per external issue
type IssueTimeStats struct {
	IssueID     string
	IssueSystem string
	SpanCount   int64
	TotalSeconds int64
}

// ProjectTimeEntry is one accumulated (project, date) duration
type ProjectTimeEntry struct {
	ProjectID       string
	ProjectName     string
	Date            string
	DurationSeconds int64
}
