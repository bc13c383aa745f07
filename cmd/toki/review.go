package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"toki/internal/estimate"
	"toki/internal/review"
)

var (
	reviewDate  string
	reviewApply bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Suggest reviewable time blocks for a day",
	Long: `Review groups a day's finalized activity spans into suggested time
blocks with a detected work pattern, extracted issue ids and a confidence.
With --apply the suggestions are saved for confirmation.`,
	Run: runReview,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <block-id>...",
	Short: "Confirm saved time blocks for syncing",
	Args:  cobra.MinimumNArgs(1),
	Run:   runConfirm,
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List saved time blocks",
	Run:   runBlocks,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewDate, "date", "", "Day to review (YYYY-MM-DD, default today)")
	reviewCmd.Flags().BoolVar(&reviewApply, "apply", false, "Save suggestions as time blocks")
	rootCmd.AddCommand(reviewCmd, confirmCmd, blocksCmd)
}

func runReview(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	day := time.Now().UTC()
	if reviewDate != "" {
		parsed, err := time.Parse("2006-01-02", reviewDate)
		if err != nil {
			fatal(fmt.Errorf("invalid --date %q: %w", reviewDate, err))
		}
		day = parsed
	}

	engine := review.New(db, logger).WithThresholds(
		time.Duration(cfg.Review.MergeGapMinutes)*time.Minute,
		time.Duration(cfg.Review.MinBlockMinutes)*time.Minute,
	)
	blocks, err := engine.SuggestForDay(day)
	if err != nil {
		fatal(err)
	}

	if reviewApply {
		saved := make([]string, 0, len(blocks))
		for i := range blocks {
			block := blocks[i].ToTimeBlock()
			if err := db.SaveTimeBlock(block); err != nil {
				fatal(err)
			}
			saved = append(saved, block.ID)
		}
		if jsonOutput {
			printJSON(map[string]interface{}{"saved": saved})
			return
		}
		fmt.Printf("Saved %d time blocks\n", len(saved))
		for _, id := range saved {
			fmt.Printf("  %s\n", id)
		}
		return
	}

	if jsonOutput {
		printJSON(blocks)
		return
	}
	if len(blocks) == 0 {
		fmt.Printf("No suggestions for %s\n", day.Format("2006-01-02"))
		return
	}
	for i := range blocks {
		b := &blocks[i]
		fmt.Printf("%s - %s  %-13s %.0f%%  %s\n",
			b.StartTime.Format("15:04"), b.EndTime.Format("15:04"),
			b.Pattern, b.Confidence*100, b.Description)
		for _, issue := range b.Issues {
			fmt.Printf("    issue %s (%s, %.0f%%)\n", issue.ID, issue.Source, issue.Confidence*100)
		}
	}
}

func runConfirm(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	for _, id := range args {
		if err := db.ConfirmTimeBlock(id); err != nil {
			fatal(err)
		}
	}
	fmt.Printf("Confirmed %d blocks\n", len(args))
}

func runBlocks(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	blocks, err := db.ListAllTimeBlocks()
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(blocks)
		return
	}
	if len(blocks) == 0 {
		fmt.Println("No time blocks")
		return
	}
	for i := range blocks {
		b := &blocks[i]
		state := "pending"
		switch {
		case b.Synced:
			state = "synced"
		case b.Confirmed:
			state = "confirmed"
		}
		fmt.Printf("%s  %s  %-9s %-12s %s\n",
			b.ID, b.StartTime.Format("2006-01-02 15:04"), state, b.Source,
			estimate.FormatSeconds(int64(b.EndTime.Sub(b.StartTime).Seconds())))
	}
}
