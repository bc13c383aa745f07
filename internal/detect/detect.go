// Package detect resolves the current foreground window to a local project
// and, when possible, a git-derived work item.
package detect

import (
	"path/filepath"
	"time"

	"toki/internal/gitutil"
	"toki/internal/issueid"
	"toki/internal/logging"
	"toki/internal/storage"
	"toki/internal/workspace"
)

// Result is the outcome of one detection pass
type Result struct {
	ProjectID   string
	ProjectName string
	WorkItemID  string
	GitBranch   string
}

// Detector composes the IDE workspace resolver and the git detector
type Detector struct {
	db       *storage.DB
	resolver *workspace.Resolver
	logger   *logging.Logger
}

// New creates a context detector
func New(db *storage.DB, resolver *workspace.Resolver, logger *logging.Logger) *Detector {
	return &Detector{db: db, resolver: resolver, logger: logger}
}

// Detect resolves a window title to (project, work item). A failed store
// write is returned so the caller can retry on the next tick; a missing
// workspace is not an error.
func (d *Detector) Detect(windowTitle string, now time.Time) (*Result, error) {
	path := d.resolver.Resolve(windowTitle)
	if path == "" {
		return &Result{}, nil
	}

	name := filepath.Base(path)
	project, err := d.db.UpsertProjectByPath(path, name, now)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ProjectID:   project.ID,
		ProjectName: project.Name,
	}

	root := gitutil.FindRepoRoot(path)
	if root == "" {
		return result, nil
	}

	branch := gitutil.CurrentBranch(root)
	if branch == "" {
		return result, nil
	}
	result.GitBranch = branch

	issueID := issueid.First(branch)
	if issueID == "" {
		return result, nil
	}

	item, err := d.db.UpsertWorkItem(&storage.WorkItem{
		ExternalID:     issueID,
		ExternalSystem: "git",
		Project:        project.Name,
	})
	if err != nil {
		// Work item enrichment is optional; the project detection stands
		d.logger.Warn("failed to upsert git work item", map[string]interface{}{
			"issue": issueID,
			"error": err.Error(),
		})
		return result, nil
	}

	result.WorkItemID = item.ID
	return result, nil
}
