package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"toki/internal/estimate"
	"toki/internal/issuesync"
	"toki/internal/logging"
	"toki/internal/match"
	"toki/internal/pm"
	"toki/internal/storage"
)

var (
	issuesSystem     string
	issuesComplexity string

	matchBranch  string
	matchUser    string
	matchCommits []string
	matchURLs    []string
	matchTitles  []string
	matchFiles   []string
	matchLimit   int
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Work with cached PM issues",
}

var issuesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the issue cache from linked projects",
	Run:   runIssuesSync,
}

var issuesMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match current activity against cached issues",
	Long: `Match scores cached issues against activity signals. Signals can be
given explicitly (--branch, --commit, --url, --title, --file) and are
weighted by how strongly each one identifies an issue.`,
	Run: runIssuesMatch,
}

var issuesEstimateCmd = &cobra.Command{
	Use:   "estimate <issue-id>",
	Short: "Estimate effort for a cached issue",
	Long: `Estimate predicts effort from similar tracked issues and, when given,
a complexity rating (trivial, simple, moderate, complex, epic). With both
signals available the result blends them.`,
	Args: cobra.ExactArgs(1),
	Run:  runIssuesEstimate,
}

func init() {
	issuesCmd.PersistentFlags().StringVar(&issuesSystem, "system", "plane", "Source system")
	issuesEstimateCmd.Flags().StringVar(&issuesComplexity, "complexity", "", "Complexity rating")
	issuesMatchCmd.Flags().StringVar(&matchBranch, "branch", "", "Current git branch")
	issuesMatchCmd.Flags().StringVar(&matchUser, "user", "", "Current user for assignment matching")
	issuesMatchCmd.Flags().StringArrayVar(&matchCommits, "commit", nil, "Recent commit message")
	issuesMatchCmd.Flags().StringArrayVar(&matchURLs, "url", nil, "Recently visited URL")
	issuesMatchCmd.Flags().StringArrayVar(&matchTitles, "title", nil, "Window title")
	issuesMatchCmd.Flags().StringArrayVar(&matchFiles, "file", nil, "Recently edited file")
	issuesMatchCmd.Flags().IntVar(&matchLimit, "limit", 5, "Maximum matches")
	issuesCmd.AddCommand(issuesSyncCmd, issuesEstimateCmd, issuesMatchCmd)
	rootCmd.AddCommand(issuesCmd)
}

func runIssuesSync(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	client := loadPMClient(db, issuesSystem, logger)

	var embedder pm.EmbeddingService
	if cfg.Embeddings.Endpoint != "" {
		embedder = pm.NewHTTPEmbedder(cfg.Embeddings.Endpoint, cfg.Embeddings.Dimension, logger)
	}

	stats, err := issuesyncRun(db, client, embedder, logger)
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(stats)
		return
	}
	fmt.Printf("Synced %d new, updated %d, embeddings %d, errors %d\n",
		stats.Synced, stats.Updated, stats.EmbeddingsComputed, len(stats.Errors))
}

func runIssuesEstimate(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	candidate, err := db.GetIssueCandidate(strings.ToUpper(args[0]), issuesSystem)
	if err != nil {
		fatal(err)
	}
	if candidate == nil {
		fatal(fmt.Errorf("issue %q not cached, run: toki issues sync", args[0]))
	}

	if issuesComplexity != "" {
		complexity, err := parseComplexityLabel(issuesComplexity)
		if err != nil {
			fatal(err)
		}
		candidate.Complexity = complexity
	}

	est, err := estimate.New(db, logger).ForCandidate(candidate)
	if err != nil {
		fatal(err)
	}
	if err := db.SaveCandidateEstimate(candidate.ID, est.Seconds); err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(est)
		return
	}
	fmt.Printf("%s: %s (%s - %s)\n", candidate.ExternalID, est.FormattedTime,
		estimate.FormatSeconds(est.LowSeconds), estimate.FormatSeconds(est.HighSeconds))
	fmt.Printf("Method: %s, confidence %.0f%%", est.Method, est.Confidence*100)
	if est.SimilarCount > 0 {
		fmt.Printf(", %d similar issues", est.SimilarCount)
	}
	fmt.Println()
	fmt.Printf("Breakdown: implementation %s, testing %s, documentation %s\n",
		estimate.FormatSeconds(est.Breakdown.ImplementationSeconds),
		estimate.FormatSeconds(est.Breakdown.TestingSeconds),
		estimate.FormatSeconds(est.Breakdown.DocumentationSeconds))
}

func runIssuesMatch(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	candidates, err := db.ListAllCandidates()
	if err != nil {
		fatal(err)
	}

	signals := &match.Signals{
		GitBranch:     matchBranch,
		CurrentUser:   matchUser,
		RecentCommits: matchCommits,
		BrowserURLs:   matchURLs,
		WindowTitles:  matchTitles,
		EditedFiles:   matchFiles,
	}
	matches := match.Top(signals, candidates, matchLimit)

	if jsonOutput {
		printJSON(matches)
		return
	}
	if len(matches) == 0 {
		fmt.Println("No matches")
		return
	}
	for _, m := range matches {
		fmt.Printf("%-12s %.0f%%  %s\n", m.Candidate.ExternalID, m.Confidence*100, m.Candidate.Title)
		for _, reason := range m.Reasons {
			fmt.Printf("    %s %s\n", reason.Kind, reason.Detail)
		}
	}
}

func parseComplexityLabel(label string) (storage.Complexity, error) {
	switch strings.ToLower(label) {
	case "trivial":
		return storage.ComplexityTrivial, nil
	case "simple":
		return storage.ComplexitySimple, nil
	case "moderate":
		return storage.ComplexityModerate, nil
	case "complex":
		return storage.ComplexityComplex, nil
	case "epic":
		return storage.ComplexityEpic, nil
	default:
		return 0, fmt.Errorf("unknown complexity %q", label)
	}
}

// issuesyncRun wraps the sync run with a bounded context
func issuesyncRun(db *storage.DB, client pm.ProjectManagementSystem, embedder pm.EmbeddingService, logger *logging.Logger) (*issuesync.Stats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return issuesync.New(db, client, embedder, logger).Run(ctx, time.Now().UTC())
}
