// Package match scores issue candidates against observed activity signals.
package match

import (
	"sort"
	"strings"

	"toki/internal/issueid"
	"toki/internal/storage"
)

// Signal weights; scores are additive and capped at 1.0 when reported
const (
	weightBranch    = 0.9
	weightURL       = 0.8
	weightCommit    = 0.7
	weightFilePath  = 0.5
	weightTitle     = 0.4
	weightAssigned  = 0.3
	weightSemantic  = 0.5
	overlapMinimum  = 0.3
	minKeywordLen   = 4
	defaultMaxMatch = 5
)

// Reason names the signal that contributed to a match
type Reason struct {
	Kind   ReasonKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}

// ReasonKind enumerates the signal sources
type ReasonKind string

const (
	ReasonBranchName      ReasonKind = "branch_name"
	ReasonBrowserURL      ReasonKind = "browser_url"
	ReasonCommitMessage   ReasonKind = "commit_message"
	ReasonFilePath        ReasonKind = "file_path"
	ReasonWindowTitle     ReasonKind = "window_title"
	ReasonAssigned        ReasonKind = "assigned"
	ReasonSemanticOverlap ReasonKind = "semantic_overlap"
)

// Signals is the observed activity fed to the matcher
type Signals struct {
	RecentCommits []string
	EditedFiles   []string
	BrowserURLs   []string
	WindowTitles  []string
	GitBranch     string
	CurrentUser   string
}

// Match is one scored candidate
type Match struct {
	Candidate  *storage.IssueCandidate `json:"candidate"`
	Confidence float64                 `json:"confidence"`
	Reasons    []Reason                `json:"reasons"`
}

// Top scores candidates against the signals and returns up to maxResults
// matches ordered by confidence descending, ties kept in input order
func Top(signals *Signals, candidates []storage.IssueCandidate, maxResults int) []Match {
	if maxResults <= 0 {
		maxResults = defaultMaxMatch
	}

	var matches []Match
	for i := range candidates {
		if m := score(signals, &candidates[i]); m != nil {
			matches = append(matches, *m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

func score(signals *Signals, candidate *storage.IssueCandidate) *Match {
	id := strings.ToUpper(candidate.ExternalID)
	if id == "" {
		return nil
	}

	total := 0.0
	var reasons []Reason
	add := func(weight float64, kind ReasonKind, detail string) {
		total += weight
		reasons = append(reasons, Reason{Kind: kind, Detail: detail})
	}

	if signals.GitBranch != "" && containsIssueID(signals.GitBranch, id) {
		add(weightBranch, ReasonBranchName, signals.GitBranch)
	}
	for _, u := range signals.BrowserURLs {
		if containsIssueID(u, id) {
			add(weightURL, ReasonBrowserURL, u)
			break
		}
	}
	for _, c := range signals.RecentCommits {
		if containsIssueID(c, id) {
			add(weightCommit, ReasonCommitMessage, c)
			break
		}
	}
	for _, f := range signals.EditedFiles {
		if containsIssueID(f, id) {
			add(weightFilePath, ReasonFilePath, f)
			break
		}
	}
	for _, t := range signals.WindowTitles {
		if containsIssueID(t, id) {
			add(weightTitle, ReasonWindowTitle, t)
			break
		}
	}
	if signals.CurrentUser != "" && strings.EqualFold(candidate.Assignee, signals.CurrentUser) {
		add(weightAssigned, ReasonAssigned, "")
	}

	if overlap := semanticOverlap(signals, candidate); overlap > overlapMinimum {
		add(weightSemantic*overlap, ReasonSemanticOverlap, "")
	}

	if total == 0 {
		return nil
	}
	if total > 1.0 {
		total = 1.0
	}
	return &Match{Candidate: candidate, Confidence: total, Reasons: reasons}
}

// containsIssueID reports whether the text carries the candidate's issue ID
func containsIssueID(text, id string) bool {
	for _, ref := range issueid.Extract(text) {
		if ref.ID == id {
			return true
		}
	}
	return false
}

// semanticOverlap measures keyword overlap between the candidate and the
// concatenated signal text. Keywords come from the issue title and
// description (words longer than 3 characters). Labels add double to the
// matched count but never to the denominator, so a labeled candidate can
// exceed plain keyword overlap.
func semanticOverlap(signals *Signals, candidate *storage.IssueCandidate) float64 {
	keywords := extractKeywords(candidate.Title + " " + candidate.Description)
	keywordCount := len(keywords)
	if keywordCount == 0 {
		keywordCount = 1
	}

	var haystack strings.Builder
	for _, f := range signals.EditedFiles {
		haystack.WriteString(strings.ToLower(f))
		haystack.WriteByte(' ')
	}
	for _, c := range signals.RecentCommits {
		haystack.WriteString(strings.ToLower(c))
		haystack.WriteByte(' ')
	}
	for _, t := range signals.WindowTitles {
		haystack.WriteString(strings.ToLower(t))
		haystack.WriteByte(' ')
	}
	text := haystack.String()

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	for _, label := range candidate.Labels {
		if strings.Contains(text, strings.ToLower(label)) {
			matches += 2
		}
	}

	return float64(matches) / float64(keywordCount)
}

func extractKeywords(text string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if len(word) >= minKeywordLen {
			keywords = append(keywords, word)
		}
	}
	return keywords
}
