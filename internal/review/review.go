// Package review groups a day's finalized spans into suggested time blocks
// by work-pattern heuristics and adjacency.
package review

import (
	"fmt"
	"strings"
	"time"

	"toki/internal/issueid"
	"toki/internal/logging"
	"toki/internal/storage"
)

// WorkPattern labels what kind of work a block represents
type WorkPattern string

const (
	SingleFocus   WorkPattern = "single_focus"
	MultiTasking  WorkPattern = "multi_tasking"
	Exploration   WorkPattern = "exploration"
	Maintenance   WorkPattern = "maintenance"
	CodeReview    WorkPattern = "code_review"
	Debugging     WorkPattern = "debugging"
	Meeting       WorkPattern = "meeting"
	Documentation WorkPattern = "documentation"
	Unknown       WorkPattern = "unknown"
)

// Issue source confidences
const (
	confBranch = 0.9
	confCommit = 0.8
	confURL    = 0.7
)

// Defaults, overridable through config
const (
	DefaultMergeGap   = 10 * time.Minute
	DefaultMinBlock   = 5 * time.Minute
	multiTaskingFiles = 5
)

// ExtractedIssue is a candidate issue pulled from block context
type ExtractedIssue struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// SuggestedBlock is one reviewable time block
type SuggestedBlock struct {
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	ProjectID   string           `json:"project_id,omitempty"`
	ProjectName string           `json:"project_name,omitempty"`
	Pattern     WorkPattern      `json:"pattern"`
	Issues      []ExtractedIssue `json:"issues,omitempty"`
	Confidence  float64          `json:"confidence"`
	Description string           `json:"description"`

	branches []string
	commits  []string
	urls     []string
}

// DurationSeconds returns the block length in whole seconds
func (b *SuggestedBlock) DurationSeconds() int64 {
	return int64(b.EndTime.Sub(b.StartTime).Seconds())
}

// Engine turns a day's spans into suggested blocks
type Engine struct {
	db       *storage.DB
	logger   *logging.Logger
	mergeGap time.Duration
	minBlock time.Duration
}

// New creates a review engine with default thresholds
func New(db *storage.DB, logger *logging.Logger) *Engine {
	return &Engine{db: db, logger: logger, mergeGap: DefaultMergeGap, minBlock: DefaultMinBlock}
}

// WithThresholds overrides the merge gap and minimum block duration
func (e *Engine) WithThresholds(mergeGap, minBlock time.Duration) *Engine {
	e.mergeGap = mergeGap
	e.minBlock = minBlock
	return e
}

// SuggestForDay builds suggested blocks from the day's finalized spans
func (e *Engine) SuggestForDay(day time.Time) ([]SuggestedBlock, error) {
	spans, err := e.db.GetSpansForDay(day)
	if err != nil {
		return nil, err
	}
	return e.Suggest(spans)
}

// Suggest builds suggested blocks from finalized spans ordered by start time
func (e *Engine) Suggest(spans []storage.ActivitySpan) ([]SuggestedBlock, error) {
	var blocks []SuggestedBlock
	for i := range spans {
		span := &spans[i]
		if span.EndTime == nil {
			continue
		}
		segment := e.toSegment(span)

		if n := len(blocks); n > 0 && e.canMerge(&blocks[n-1], &segment) {
			mergeInto(&blocks[n-1], &segment)
			continue
		}
		blocks = append(blocks, segment)
	}

	var out []SuggestedBlock
	for i := range blocks {
		b := &blocks[i]
		if b.EndTime.Sub(b.StartTime) < e.minBlock {
			continue
		}
		b.Issues = extractIssues(b)
		b.Confidence = blockConfidence(b)
		b.Description = e.describe(b)
		out = append(out, *b)
	}
	return out, nil
}

func (e *Engine) toSegment(span *storage.ActivitySpan) SuggestedBlock {
	b := SuggestedBlock{
		StartTime: span.StartTime,
		EndTime:   *span.EndTime,
		ProjectID: span.ProjectID,
	}
	if span.Context != nil {
		b.branches = appendNonEmpty(nil, span.Context.GitBranch)
		b.commits = append([]string(nil), span.Context.GitCommits...)
		b.urls = append([]string(nil), span.Context.BrowserURLs...)
		b.Pattern = detectPattern(span.Category, span.Context)
	} else {
		b.Pattern = detectPattern(span.Category, &storage.SpanContext{})
	}

	if b.ProjectID != "" {
		if project, err := e.db.GetProject(b.ProjectID); err == nil && project != nil {
			b.ProjectName = project.Name
		}
	}
	return b
}

// canMerge joins adjacent segments with the same pattern when the gap is
// strictly under the merge threshold
func (e *Engine) canMerge(prev *SuggestedBlock, next *SuggestedBlock) bool {
	if prev.Pattern != next.Pattern {
		return false
	}
	gap := next.StartTime.Sub(prev.EndTime)
	return gap >= 0 && gap < e.mergeGap
}

func mergeInto(block *SuggestedBlock, segment *SuggestedBlock) {
	if segment.EndTime.After(block.EndTime) {
		block.EndTime = segment.EndTime
	}
	if block.ProjectID == "" {
		block.ProjectID = segment.ProjectID
		block.ProjectName = segment.ProjectName
	}
	block.branches = append(block.branches, segment.branches...)
	block.commits = append(block.commits, segment.commits...)
	block.urls = append(block.urls, segment.urls...)
}

// detectPattern classifies one segment, in order of signal precedence
func detectPattern(category string, ctx *storage.SpanContext) WorkPattern {
	for _, f := range ctx.EditedFiles {
		lower := strings.ToLower(f)
		if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
			return Debugging
		}
		if strings.Contains(lower, "readme") || strings.Contains(lower, "doc") ||
			strings.Contains(lower, "changelog") {
			return Documentation
		}
	}

	for _, c := range ctx.GitCommits {
		lower := strings.ToLower(c)
		switch {
		case strings.Contains(lower, "fix") || strings.Contains(lower, "bug"):
			return Debugging
		case strings.Contains(lower, "refactor") || strings.Contains(lower, "clean"):
			return Maintenance
		case strings.Contains(lower, "docs") || strings.Contains(lower, "readme"):
			return Documentation
		case strings.Contains(lower, "review"):
			return CodeReview
		}
	}

	for _, u := range ctx.BrowserURLs {
		lower := strings.ToLower(u)
		switch {
		case strings.Contains(lower, "pull") || strings.Contains(lower, "merge"):
			return CodeReview
		case strings.Contains(lower, "issue") || strings.Contains(lower, "ticket"):
			return SingleFocus
		}
	}

	if len(ctx.EditedFiles) > multiTaskingFiles {
		return MultiTasking
	}

	if category == "Browser" && hasLearningURL(ctx.BrowserURLs) {
		return Exploration
	}
	if category == "Communication" {
		return Meeting
	}
	return SingleFocus
}

func hasLearningURL(urls []string) bool {
	for _, u := range urls {
		lower := strings.ToLower(u)
		if strings.Contains(lower, "stackoverflow") || strings.Contains(lower, "docs") ||
			strings.Contains(lower, "learn") {
			return true
		}
	}
	return false
}

// extractIssues pulls issue IDs from branches, commits and URLs, tagged
// with the source confidence; deduplicated keeping the highest
func extractIssues(b *SuggestedBlock) []ExtractedIssue {
	best := map[string]ExtractedIssue{}
	collect := func(texts []string, source string, confidence float64) {
		for _, text := range texts {
			for _, id := range issueid.ExtractIDs(text) {
				if existing, ok := best[id]; !ok || confidence > existing.Confidence {
					best[id] = ExtractedIssue{ID: id, Source: source, Confidence: confidence}
				}
			}
		}
	}
	collect(b.branches, "branch", confBranch)
	collect(b.commits, "commit", confCommit)
	collect(b.urls, "url", confURL)

	if len(best) == 0 {
		return nil
	}
	var out []ExtractedIssue
	for _, texts := range [][]string{b.branches, b.commits, b.urls} {
		for _, text := range texts {
			for _, id := range issueid.ExtractIDs(text) {
				if issue, ok := best[id]; ok {
					out = append(out, issue)
					delete(best, id)
				}
			}
		}
	}
	return out
}

// blockConfidence is the max issue confidence, or a pattern default
func blockConfidence(b *SuggestedBlock) float64 {
	max := 0.0
	for _, issue := range b.Issues {
		if issue.Confidence > max {
			max = issue.Confidence
		}
	}
	if max > 0 {
		return max
	}

	switch b.Pattern {
	case Exploration, Maintenance, Documentation:
		return 0.6
	case Meeting, CodeReview:
		return 0.7
	default:
		return 0.3
	}
}

// describe renders the human-readable block description
func (e *Engine) describe(b *SuggestedBlock) string {
	project := b.ProjectName
	if project == "" {
		project = "unknown project"
	}

	switch b.Pattern {
	case SingleFocus:
		if len(b.commits) > 0 {
			return b.commits[0]
		}
		return fmt.Sprintf("Development on %s", project)
	case MultiTasking:
		return fmt.Sprintf("Multi-tasking - %s", project)
	case Exploration:
		return "Exploration/Learning"
	case Maintenance:
		return fmt.Sprintf("%s maintenance/refactoring", project)
	case CodeReview:
		return "Code Review"
	case Debugging:
		return fmt.Sprintf("%s debugging", project)
	case Meeting:
		return "Meeting/Communication"
	case Documentation:
		return "Documentation"
	default:
		return fmt.Sprintf("Work on %s", project)
	}
}

// ToTimeBlock converts a suggestion into a storable block awaiting
// confirmation
func (b *SuggestedBlock) ToTimeBlock() *storage.TimeBlock {
	confidence := b.Confidence
	var ids []string
	sourceRef := ""
	for _, issue := range b.Issues {
		ids = append(ids, issue.ID)
		if sourceRef == "" {
			sourceRef = issue.ID
		}
	}
	return &storage.TimeBlock{
		StartTime:         b.StartTime,
		EndTime:           b.EndTime,
		ProjectID:         b.ProjectID,
		WorkItemIDs:       ids,
		Description:       b.Description,
		Source:            storage.SourceAISuggested,
		Confidence:        &confidence,
		SourceExternalRef: sourceRef,
	}
}

func appendNonEmpty(list []string, s string) []string {
	if s == "" {
		return list
	}
	return append(list, s)
}
