// Package syncer pushes confirmed time blocks to a PM system, using the
// synced-issues ledger for idempotence.
package syncer

import (
	"context"
	"fmt"

	"toki/internal/logging"
	"toki/internal/pm"
	"toki/internal/storage"
)

// OutcomeKind enumerates per-block results
type OutcomeKind string

const (
	OutcomeCreated     OutcomeKind = "created"
	OutcomeSkipped     OutcomeKind = "skipped"
	OutcomeFailed      OutcomeKind = "failed"
	OutcomeWouldCreate OutcomeKind = "would_create"
)

// Outcome is the result for one block
type Outcome struct {
	BlockID     string      `json:"block_id"`
	Kind        OutcomeKind `json:"kind"`
	Reason      string      `json:"reason,omitempty"`
	IssueNumber int64       `json:"issue_number,omitempty"`
	IssueURL    string      `json:"issue_url,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Report aggregates one sync run
type Report struct {
	Created  int       `json:"created"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Errors   []string  `json:"errors,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Options control one sync run
type Options struct {
	DryRun bool
	Force  bool
}

// Engine pushes confirmed blocks to the target PM system
type Engine struct {
	db     *storage.DB
	client pm.ProjectManagementSystem
	logger *logging.Logger
}

// New creates a sync engine
func New(db *storage.DB, client pm.ProjectManagementSystem, logger *logging.Logger) *Engine {
	return &Engine{db: db, client: client, logger: logger}
}

// Run syncs all confirmed, unsynced blocks. No retry is attempted; a
// failed block stays eligible for the next run.
func (e *Engine) Run(ctx context.Context, opts Options) (*Report, error) {
	blocks, err := e.db.GetConfirmedUnsyncedBlocks()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for i := range blocks {
		outcome := e.syncBlock(ctx, &blocks[i], opts)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Kind {
		case OutcomeCreated, OutcomeWouldCreate:
			report.Created++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s: %s", outcome.BlockID, outcome.Error))
		}
	}

	e.logger.Info("block sync finished", map[string]interface{}{
		"created": report.Created,
		"skipped": report.Skipped,
		"failed":  report.Failed,
		"dry_run": opts.DryRun,
	})
	return report, nil
}

func (e *Engine) syncBlock(ctx context.Context, block *storage.TimeBlock, opts Options) Outcome {
	targetProject := e.targetProject(block)

	if block.SourceExternalRef != "" && !opts.Force {
		existing, err := e.db.GetSyncedIssue(block.SourceExternalRef, e.client.SystemName(), targetProject)
		if err != nil {
			return Outcome{BlockID: block.ID, Kind: OutcomeFailed, Error: err.Error()}
		}
		if existing != nil {
			return Outcome{
				BlockID: block.ID,
				Kind:    OutcomeSkipped,
				Reason:  fmt.Sprintf("already synced as %s", existing.TargetIssueID),
			}
		}
	}

	if opts.DryRun {
		return Outcome{BlockID: block.ID, Kind: OutcomeWouldCreate}
	}

	workItemID := ""
	if len(block.WorkItemIDs) > 0 {
		workItemID = block.WorkItemIDs[0]
	}
	entry := &pm.TimeEntry{
		WorkItemID:      workItemID,
		PMProjectID:     targetProject,
		DurationSeconds: block.DurationSeconds(),
		Description:     block.Description,
		StartedAt:       block.StartTime,
	}
	if err := e.client.AddTimeEntry(ctx, entry); err != nil {
		return Outcome{BlockID: block.ID, Kind: OutcomeFailed, Error: err.Error()}
	}

	if err := e.db.MarkTimeBlockSynced(block.ID); err != nil {
		return Outcome{BlockID: block.ID, Kind: OutcomeFailed, Error: err.Error()}
	}

	if block.SourceExternalRef != "" {
		synced := &storage.SyncedIssue{
			SourceExternalRef: block.SourceExternalRef,
			TargetSystem:      e.client.SystemName(),
			TargetProject:     targetProject,
			TargetIssueID:     workItemID,
			Title:             block.Description,
		}
		if err := e.db.UpsertSyncedIssue(synced); err != nil {
			// The entry was pushed; record the ledger failure but report success
			e.logger.Warn("failed to record synced issue", map[string]interface{}{
				"block": block.ID,
				"error": err.Error(),
			})
		}
	}

	return Outcome{BlockID: block.ID, Kind: OutcomeCreated}
}

// targetProject resolves the PM project the block's entry lands in
func (e *Engine) targetProject(block *storage.TimeBlock) string {
	if block.ProjectID == "" {
		return ""
	}
	project, err := e.db.GetProject(block.ProjectID)
	if err != nil || project == nil {
		return ""
	}
	return project.PMProjectID
}
