// Package pm defines the capabilities external project-management systems
// and embedding services must provide, plus the concrete clients.
package pm

import (
	"context"
	"fmt"
	"time"

	"toki/internal/errors"
	"toki/internal/logging"
	"toki/internal/storage"
)

// TimeEntry is one unit of work pushed to a PM system
type TimeEntry struct {
	WorkItemID      string
	PMProjectID     string
	DurationSeconds int64
	Description     string
	Category        string
	StartedAt       time.Time
}

// WorkItemDetails is a PM system's view of a single issue
type WorkItemDetails struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	Status      string
	URL         string
}

// Project is a remote PM project
type Project struct {
	ID         string
	Identifier string
	Name       string
}

// Issue is one remote issue as listed by a PM system
type Issue struct {
	ID          string
	Identifier  string
	Name        string
	Description string
	State       string
	Assignee    string
	Labels      []string
}

// IssuePage is one page of a paginated issue listing
type IssuePage struct {
	Results         []Issue
	NextCursor      string
	NextPageResults bool
}

// BatchReport aggregates the outcome of a batch push
type BatchReport struct {
	Succeeded int
	Failed    int
	Errors    []string
}

// ProjectManagementSystem is the capability every PM client implements.
// The sync engine and the auto-linker only depend on this interface.
type ProjectManagementSystem interface {
	FetchWorkItem(ctx context.Context, id string) (*WorkItemDetails, error)
	AddTimeEntry(ctx context.Context, entry *TimeEntry) error
	BatchSync(ctx context.Context, entries []TimeEntry) (*BatchReport, error)
	ValidateCredentials(ctx context.Context) (bool, error)
	SystemName() string

	ListProjects(ctx context.Context) ([]Project, error)
	ListIssuesPaginated(ctx context.Context, projectID, cursor string) (*IssuePage, error)
}

// EmbeddingService turns text into a fixed-dimension vector
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// New returns the client for a stored integration config
func New(cfg *storage.IntegrationConfig, logger *logging.Logger) (ProjectManagementSystem, error) {
	if cfg == nil {
		return nil, errors.New(errors.IntegrationMissing, "no integration configured", nil)
	}
	switch cfg.SystemType {
	case "plane":
		return NewPlaneClient(cfg, logger), nil
	default:
		return nil, errors.New(errors.IntegrationMissing,
			fmt.Sprintf("unsupported PM system %q", cfg.SystemType), nil)
	}
}

// FormatDuration renders seconds as the free-form "HhMm" duration string
// some targets require. Sub-minute remainders are dropped; zero is "0m".
func FormatDuration(seconds int64) string {
	if seconds < 60 {
		return "0m"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
