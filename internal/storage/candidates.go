package storage

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// UpsertIssueCandidate inserts or refreshes a cached PM issue keyed on
// (external_id, external_system). Existing row ids and embeddings are
// preserved on update.
func (db *DB) UpsertIssueCandidate(c *IssueCandidate) error {
	existing, err := db.GetIssueCandidate(c.ExternalID, c.ExternalSystem)
	if err != nil {
		return err
	}
	if existing != nil {
		c.ID = existing.ID
		if c.Embedding == nil {
			c.Embedding = existing.Embedding
		}
	} else if c.ID == "" {
		c.ID = uuid.NewString()
	}

	var complexity, estimated interface{}
	if c.Complexity != 0 {
		complexity = int64(c.Complexity)
	}
	if c.EstimatedSeconds > 0 {
		estimated = c.EstimatedSeconds
	}

	_, err = db.conn.Exec(
		`INSERT INTO issue_candidates (id, project_id, external_id, external_system, pm_project_id,
			source_external_ref, title, description, status, labels, assignee, embedding,
			complexity, complexity_reason, estimated_seconds, last_synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id, external_system) DO UPDATE SET
			project_id = excluded.project_id,
			pm_project_id = excluded.pm_project_id,
			source_external_ref = excluded.source_external_ref,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			labels = excluded.labels,
			assignee = excluded.assignee,
			embedding = COALESCE(excluded.embedding, issue_candidates.embedding),
			complexity = COALESCE(excluded.complexity, issue_candidates.complexity),
			complexity_reason = COALESCE(excluded.complexity_reason, issue_candidates.complexity_reason),
			estimated_seconds = COALESCE(excluded.estimated_seconds, issue_candidates.estimated_seconds),
			last_synced = excluded.last_synced`,
		c.ID, c.ProjectID, c.ExternalID, c.ExternalSystem, nullable(c.PMProjectID),
		nullable(c.SourceExternalRef), c.Title, c.Description, c.Status,
		encodeList(c.Labels), nullable(c.Assignee), encodeEmbedding(c.Embedding),
		complexity, nullable(c.ComplexityReason), estimated, formatTime(c.LastSynced),
	)
	if err != nil {
		return storeErr("upsert issue candidate", err)
	}
	return nil
}

// GetIssueCandidate returns a cached issue by external key, or nil
func (db *DB) GetIssueCandidate(externalID, externalSystem string) (*IssueCandidate, error) {
	row := db.conn.QueryRow(
		candidateSelect+" WHERE external_id = ? AND external_system = ?",
		externalID, externalSystem,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListIssueCandidates returns all cached issues for a local project
func (db *DB) ListIssueCandidates(projectID string) ([]IssueCandidate, error) {
	rows, err := db.conn.Query(candidateSelect+" WHERE project_id = ? ORDER BY last_synced DESC", projectID)
	if err != nil {
		return nil, storeErr("list issue candidates", err)
	}
	defer rows.Close()

	return collectCandidates(rows)
}

// ListCandidatesMissingEmbedding returns cached issues without an embedding
func (db *DB) ListCandidatesMissingEmbedding() ([]IssueCandidate, error) {
	rows, err := db.conn.Query(candidateSelect + " WHERE embedding IS NULL")
	if err != nil {
		return nil, storeErr("list candidates missing embedding", err)
	}
	defer rows.Close()

	return collectCandidates(rows)
}

// SaveCandidateEmbedding stores a computed embedding for a cached issue
func (db *DB) SaveCandidateEmbedding(candidateID string, embedding []float32) error {
	res, err := db.conn.Exec(
		"UPDATE issue_candidates SET embedding = ? WHERE id = ?",
		encodeEmbedding(embedding), candidateID,
	)
	if err != nil {
		return storeErr("save candidate embedding", err)
	}
	return requireRow(res, "save candidate embedding")
}

// SaveCandidateEstimate stores an estimate result on a cached issue
func (db *DB) SaveCandidateEstimate(candidateID string, estimatedSeconds int64) error {
	res, err := db.conn.Exec(
		"UPDATE issue_candidates SET estimated_seconds = ? WHERE id = ?",
		estimatedSeconds, candidateID,
	)
	if err != nil {
		return storeErr("save candidate estimate", err)
	}
	return requireRow(res, "save candidate estimate")
}

const candidateSelect = `SELECT id, project_id, external_id, external_system,
	COALESCE(pm_project_id, ''), COALESCE(source_external_ref, ''), title,
	COALESCE(description, ''), status, labels, COALESCE(assignee, ''), embedding,
	complexity, COALESCE(complexity_reason, ''), estimated_seconds, last_synced
	FROM issue_candidates`

func scanCandidate(row rowScanner) (*IssueCandidate, error) {
	var c IssueCandidate
	var labels, lastSynced string
	var embedding []byte
	var complexity, estimated *int64

	err := row.Scan(&c.ID, &c.ProjectID, &c.ExternalID, &c.ExternalSystem,
		&c.PMProjectID, &c.SourceExternalRef, &c.Title, &c.Description, &c.Status,
		&labels, &c.Assignee, &embedding, &complexity, &c.ComplexityReason,
		&estimated, &lastSynced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan issue candidate", err)
	}

	c.Labels = decodeList(labels)
	c.Embedding = decodeEmbedding(embedding)
	if complexity != nil {
		c.Complexity = ParseComplexity(*complexity)
	}
	if estimated != nil {
		c.EstimatedSeconds = *estimated
	}
	if c.LastSynced, err = parseTime(lastSynced); err != nil {
		return nil, storeErr("parse candidate last_synced", err)
	}
	return &c, nil
}

func collectCandidates(rows *sql.Rows) ([]IssueCandidate, error) {
	var candidates []IssueCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}
