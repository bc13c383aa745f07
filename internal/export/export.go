// Package export serializes the full store into a compressed archive
// and restores it. Archives are zstd-compressed JSON so they stay
// inspectable with standard tooling.
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"toki/internal/errors"
	"toki/internal/logging"
	"toki/internal/storage"
)

// ArchiveVersion is written into every archive so future readers can
// reject formats they do not understand.
const ArchiveVersion = 1

// Archive is the on-disk shape of an export
type Archive struct {
	Version     int                      `json:"version"`
	ExportedAt  time.Time                `json:"exported_at"`
	Projects    []storage.Project        `json:"projects,omitempty"`
	Sessions    []storage.Session        `json:"sessions,omitempty"`
	Spans       []storage.ActivitySpan   `json:"spans,omitempty"`
	ProjectTime []storage.ProjectTimeRow `json:"project_time,omitempty"`
	WorkItems   []storage.WorkItem       `json:"work_items,omitempty"`
	Candidates  []storage.IssueCandidate `json:"issue_candidates,omitempty"`
	TimeBlocks  []storage.TimeBlock      `json:"time_blocks,omitempty"`
}

// Engine exports and imports archives against a store
type Engine struct {
	db     *storage.DB
	level  int
	logger *logging.Logger
}

// New creates an export engine. level is a zstd compression level.
func New(db *storage.DB, level int, logger *logging.Logger) *Engine {
	if level <= 0 {
		level = 3
	}
	return &Engine{db: db, level: level, logger: logger}
}

// Export writes every table to w as a compressed archive
func (e *Engine) Export(w io.Writer) (*Archive, error) {
	archive, err := e.collect()
	if err != nil {
		return nil, err
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(e.level)))
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to create compressor", err)
	}

	if err := json.NewEncoder(zw).Encode(archive); err != nil {
		zw.Close()
		return nil, errors.New(errors.InternalError, "failed to encode archive", err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.New(errors.InternalError, "failed to flush archive", err)
	}

	e.logger.Info("Exported archive", map[string]interface{}{
		"projects": len(archive.Projects),
		"sessions": len(archive.Sessions),
		"spans":    len(archive.Spans),
		"blocks":   len(archive.TimeBlocks),
	})
	return archive, nil
}

// Import reads a compressed archive from r and merges it into the
// store. Rows keep their original ids; project time accrues onto any
// existing totals.
func (e *Engine) Import(r io.Reader) (*Archive, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.New(errors.DataCorruption, "failed to open archive", err)
	}
	defer zr.Close()

	var archive Archive
	if err := json.NewDecoder(zr).Decode(&archive); err != nil {
		return nil, errors.New(errors.DataCorruption, "failed to decode archive", err)
	}
	if archive.Version != ArchiveVersion {
		return nil, errors.New(errors.DataCorruption, "unsupported archive version", nil)
	}

	if err := e.restore(&archive); err != nil {
		return nil, err
	}

	e.logger.Info("Imported archive", map[string]interface{}{
		"exportedAt": archive.ExportedAt.Format(time.RFC3339),
		"projects":   len(archive.Projects),
		"spans":      len(archive.Spans),
	})
	return &archive, nil
}

func (e *Engine) collect() (*Archive, error) {
	archive := &Archive{
		Version:    ArchiveVersion,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if archive.Projects, err = e.db.ListProjects(); err != nil {
		return nil, err
	}
	if archive.Sessions, err = e.db.ListAllSessions(); err != nil {
		return nil, err
	}
	if archive.Spans, err = e.db.ListAllSpans(); err != nil {
		return nil, err
	}
	if archive.ProjectTime, err = e.db.ListAllProjectTime(); err != nil {
		return nil, err
	}
	if archive.WorkItems, err = e.db.ListAllWorkItems(); err != nil {
		return nil, err
	}
	if archive.Candidates, err = e.db.ListAllCandidates(); err != nil {
		return nil, err
	}
	if archive.TimeBlocks, err = e.db.ListAllTimeBlocks(); err != nil {
		return nil, err
	}
	return archive, nil
}

func (e *Engine) restore(archive *Archive) error {
	// Projects first so foreign references resolve for readers.
	for i := range archive.Projects {
		if err := e.db.ImportProject(&archive.Projects[i]); err != nil {
			return err
		}
	}
	for i := range archive.Sessions {
		if err := e.db.ImportSession(&archive.Sessions[i]); err != nil {
			return err
		}
	}
	for i := range archive.Spans {
		if err := e.db.ImportSpan(&archive.Spans[i]); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	for i := range archive.ProjectTime {
		if err := e.db.ImportProjectTime(&archive.ProjectTime[i], now); err != nil {
			return err
		}
	}
	for i := range archive.WorkItems {
		if _, err := e.db.UpsertWorkItem(&archive.WorkItems[i]); err != nil {
			return err
		}
	}
	for i := range archive.Candidates {
		if err := e.db.UpsertIssueCandidate(&archive.Candidates[i]); err != nil {
			return err
		}
	}
	for i := range archive.TimeBlocks {
		if err := e.db.SaveTimeBlock(&archive.TimeBlocks[i]); err != nil {
			return err
		}
	}
	return nil
}
