// Package estimate produces heuristic time estimates for issue candidates
// from historical tracking data and complexity ratings.
package estimate

import (
	"fmt"
	"math"
	"sort"

	"toki/internal/logging"
	"toki/internal/storage"
)

// Estimation methods
type Method string

const (
	MethodSimilarIssues Method = "similar_issues"
	MethodComplexity    Method = "complexity"
	MethodCombined      Method = "combined"
)

const (
	similarityThreshold = 0.5
	maxSimilarIssues    = 5
	ciZ                 = 1.28 // 80 percent confidence interval

	blendSimilar    = 0.7
	blendComplexity = 0.3
)

// Estimate is one produced estimate with its confidence interval
type Estimate struct {
	Seconds       int64     `json:"seconds"`
	LowSeconds    int64     `json:"low_seconds"`
	HighSeconds   int64     `json:"high_seconds"`
	Confidence    float64   `json:"confidence"`
	Method        Method    `json:"method"`
	SimilarCount  int       `json:"similar_count,omitempty"`
	Breakdown     Breakdown `json:"breakdown"`
	FormattedTime string    `json:"formatted_time"`
}

// Breakdown splits an estimate into phases
type Breakdown struct {
	ImplementationSeconds int64 `json:"implementation_seconds"`
	TestingSeconds        int64 `json:"testing_seconds"`
	DocumentationSeconds  int64 `json:"documentation_seconds"`
}

// TrackedIssue is one historical issue with its total tracked time
type TrackedIssue struct {
	IssueID      string
	Embedding    []float32
	TotalSeconds int64
}

// Estimator scores candidates against tracked history
type Estimator struct {
	db     *storage.DB
	logger *logging.Logger
}

// New creates an estimator
func New(db *storage.DB, logger *logging.Logger) *Estimator {
	return &Estimator{db: db, logger: logger}
}

// ForCandidate estimates the candidate from similar tracked issues, a
// complexity table, or a blend of both
func (e *Estimator) ForCandidate(candidate *storage.IssueCandidate) (*Estimate, error) {
	history, err := e.trackedHistory()
	if err != nil {
		return nil, err
	}

	similar := similarIssues(candidate, history)
	if len(similar) == 0 {
		if candidate.Complexity == 0 {
			return nil, fmt.Errorf("candidate %s has neither similar issues nor a complexity rating", candidate.ExternalID)
		}
		est := fromComplexity(candidate.Complexity)
		return est, nil
	}

	est := fromSimilar(similar)
	if candidate.Complexity != 0 {
		complexity := fromComplexity(candidate.Complexity)
		est.Seconds = int64(blendSimilar*float64(est.Seconds) + blendComplexity*float64(complexity.Seconds))
		est.Method = MethodCombined
		clampInterval(est)
	}
	finish(est)
	return est, nil
}

// trackedHistory joins per-issue tracked time with cached embeddings
func (e *Estimator) trackedHistory() ([]TrackedIssue, error) {
	stats, err := e.db.GetIssueTimeStats()
	if err != nil {
		return nil, err
	}

	var history []TrackedIssue
	for _, s := range stats {
		issue := TrackedIssue{IssueID: s.IssueID, TotalSeconds: s.TotalSeconds}
		if c, err := e.db.GetIssueCandidate(s.IssueID, s.IssueSystem); err == nil && c != nil {
			issue.Embedding = c.Embedding
		}
		history = append(history, issue)
	}
	return history, nil
}

type scoredIssue struct {
	issue      TrackedIssue
	similarity float64
}

// similarIssues keeps the top issues by cosine similarity above threshold
func similarIssues(candidate *storage.IssueCandidate, history []TrackedIssue) []scoredIssue {
	if len(candidate.Embedding) == 0 {
		return nil
	}

	var scored []scoredIssue
	for _, issue := range history {
		if len(issue.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(candidate.Embedding, issue.Embedding)
		if sim > similarityThreshold {
			scored = append(scored, scoredIssue{issue: issue, similarity: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].similarity > scored[j].similarity })
	if len(scored) > maxSimilarIssues {
		scored = scored[:maxSimilarIssues]
	}
	return scored
}

// fromSimilar builds an estimate as a similarity-weighted mean with an 80
// percent confidence interval. The interval spread is the unweighted
// variance of the samples around that weighted mean.
func fromSimilar(similar []scoredIssue) *Estimate {
	var weightSum, weightedSeconds float64
	for _, s := range similar {
		weightSum += s.similarity
		weightedSeconds += s.similarity * float64(s.issue.TotalSeconds)
	}
	mean := weightedSeconds / weightSum

	var variance float64
	for _, s := range similar {
		d := float64(s.issue.TotalSeconds) - mean
		variance += d * d
	}
	variance /= float64(len(similar))
	sigma := math.Sqrt(variance)

	avgSim := weightSum / float64(len(similar))
	est := &Estimate{
		Seconds:      int64(mean),
		LowSeconds:   int64(mean - ciZ*sigma),
		HighSeconds:  int64(mean + ciZ*sigma),
		Confidence:   avgSim * math.Min(float64(len(similar))/float64(maxSimilarIssues), 1),
		Method:       MethodSimilarIssues,
		SimilarCount: len(similar),
	}
	clampInterval(est)
	finish(est)
	return est
}

// complexitySeconds is the fixed fallback table
var complexitySeconds = map[storage.Complexity]int64{
	storage.ComplexityTrivial:  5 * 60,
	storage.ComplexitySimple:   30 * 60,
	storage.ComplexityModerate: 2 * 3600,
	storage.ComplexityComplex:  6 * 3600,
	storage.ComplexityEpic:     20 * 3600,
}

// fromComplexity builds an estimate from the fixed table; low is half the
// estimate, high is double (Epic stretches further)
func fromComplexity(c storage.Complexity) *Estimate {
	seconds := complexitySeconds[c]
	highFactor := 2.0
	if c == storage.ComplexityEpic {
		highFactor = 2.5
	}
	est := &Estimate{
		Seconds:     seconds,
		LowSeconds:  seconds / 2,
		HighSeconds: int64(float64(seconds) * highFactor),
		Confidence:  0.5,
		Method:      MethodComplexity,
	}
	finish(est)
	return est
}

// clampInterval keeps the interval sane around the point estimate
func clampInterval(est *Estimate) {
	if est.LowSeconds < 0 {
		est.LowSeconds = 0
	}
	if est.LowSeconds > est.Seconds {
		est.LowSeconds = est.Seconds
	}
	if est.HighSeconds < est.Seconds {
		est.HighSeconds = est.Seconds
	}
}

func finish(est *Estimate) {
	est.Breakdown = Breakdown{
		ImplementationSeconds: est.Seconds * 60 / 100,
		TestingSeconds:        est.Seconds * 30 / 100,
		DocumentationSeconds:  est.Seconds * 10 / 100,
	}
	est.FormattedTime = FormatSeconds(est.Seconds)
}

// CosineSimilarity returns 0 for mismatched lengths, empty vectors, or a
// zero norm
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FormatSeconds renders a duration for humans: "2h 30m", "2h", "45m",
// "30s", or "< 1m" for a sub-minute but nonzero count of seconds rounded
// away below
func FormatSeconds(seconds int64) string {
	switch {
	case seconds >= 3600:
		hours := seconds / 3600
		minutes := (seconds % 3600) / 60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	case seconds >= 60:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds > 0:
		return fmt.Sprintf("%ds", seconds)
	default:
		return "< 1m"
	}
}
