// Package issuesync pulls issues from the configured PM system into the
// local candidate cache and computes missing embeddings.
package issuesync

import (
	"context"
	"fmt"
	"time"

	"toki/internal/logging"
	"toki/internal/pm"
	"toki/internal/storage"
)

// Stats aggregates one sync run
type Stats struct {
	Synced             int      `json:"synced"`
	Updated            int      `json:"updated"`
	EmbeddingsComputed int      `json:"embeddings_computed"`
	Errors             []string `json:"errors,omitempty"`
}

// Syncer pulls remote issues into the candidate cache
type Syncer struct {
	db       *storage.DB
	client   pm.ProjectManagementSystem
	embedder pm.EmbeddingService
	logger   *logging.Logger
}

// New creates an issue syncer. The embedder may be nil, in which case
// embedding computation is skipped.
func New(db *storage.DB, client pm.ProjectManagementSystem, embedder pm.EmbeddingService, logger *logging.Logger) *Syncer {
	return &Syncer{db: db, client: client, embedder: embedder, logger: logger}
}

// Run syncs issue candidates for every linked local project
func (s *Syncer) Run(ctx context.Context, now time.Time) (*Stats, error) {
	projects, err := s.db.ListLinkedProjects()
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for i := range projects {
		s.syncProject(ctx, &projects[i], now, stats)
	}

	if s.embedder != nil {
		s.computeMissingEmbeddings(ctx, stats)
	}

	s.logger.Info("issue sync finished", map[string]interface{}{
		"synced":     stats.Synced,
		"updated":    stats.Updated,
		"embeddings": stats.EmbeddingsComputed,
		"errors":     len(stats.Errors),
	})
	return stats, nil
}

// syncProject paginates one project's remote issues and upserts candidates
func (s *Syncer) syncProject(ctx context.Context, project *storage.Project, now time.Time, stats *Stats) {
	cursor := ""
	for {
		page, err := s.client.ListIssuesPaginated(ctx, project.PMProjectID, cursor)
		if err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("%s: list issues: %v", project.Name, err))
			return
		}

		for i := range page.Results {
			issue := &page.Results[i]
			candidate := s.toCandidate(project, issue, now)

			existing, err := s.db.GetIssueCandidate(candidate.ExternalID, candidate.ExternalSystem)
			if err != nil {
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("%s: lookup %s: %v", project.Name, candidate.ExternalID, err))
				continue
			}

			if err := s.db.UpsertIssueCandidate(candidate); err != nil {
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("%s: upsert %s: %v", project.Name, candidate.ExternalID, err))
				continue
			}
			if existing != nil {
				stats.Updated++
			} else {
				stats.Synced++
			}
		}

		if !page.NextPageResults {
			return
		}
		cursor = page.NextCursor
	}
}

// toCandidate maps one remote issue to a local candidate row
func (s *Syncer) toCandidate(project *storage.Project, issue *pm.Issue, now time.Time) *storage.IssueCandidate {
	externalID := issue.Identifier
	if externalID == "" {
		externalID = issue.ID
	}
	return &storage.IssueCandidate{
		ProjectID:         project.ID,
		ExternalID:        externalID,
		ExternalSystem:    s.client.SystemName(),
		PMProjectID:       project.PMProjectID,
		SourceExternalRef: issue.ID,
		Title:             issue.Name,
		Description:       issue.Description,
		Status:            issue.State,
		Labels:            issue.Labels,
		Assignee:          issue.Assignee,
		LastSynced:        now,
	}
}

// computeMissingEmbeddings synchronously embeds every candidate that lacks
// a vector. One failure does not stop the rest.
func (s *Syncer) computeMissingEmbeddings(ctx context.Context, stats *Stats) {
	missing, err := s.db.ListCandidatesMissingEmbedding()
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("list missing embeddings: %v", err))
		return
	}

	for i := range missing {
		c := &missing[i]
		vector, err := s.embedder.GenerateEmbedding(ctx, c.EmbeddingText())
		if err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("embed %s: %v", c.ExternalID, err))
			continue
		}
		if err := s.db.SaveCandidateEmbedding(c.ID, vector); err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("save embedding %s: %v", c.ExternalID, err))
			continue
		}
		stats.EmbeddingsComputed++
	}
}
