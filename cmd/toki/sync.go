package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"toki/internal/syncer"
)

var (
	syncSystem string
	syncDryRun bool
	syncForce  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push confirmed time blocks to the project management system",
	Run:   runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSystem, "system", "plane", "Target system")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report what would sync without pushing")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Re-push blocks already in the sync ledger")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	client := loadPMClient(db, syncSystem, logger)
	report, err := syncer.New(db, client, logger).Run(context.Background(), syncer.Options{
		DryRun: syncDryRun,
		Force:  syncForce,
	})
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(report)
		return
	}

	verb := "Synced"
	if syncDryRun {
		verb = "Would sync"
	}
	fmt.Printf("%s %d blocks, skipped %d, failed %d\n", verb, report.Created, report.Skipped, report.Failed)
	for _, outcome := range report.Outcomes {
		switch outcome.Kind {
		case syncer.OutcomeSkipped:
			fmt.Printf("  %s skipped: %s\n", outcome.BlockID, outcome.Reason)
		case syncer.OutcomeFailed:
			fmt.Printf("  %s failed: %s\n", outcome.BlockID, outcome.Error)
		}
	}
}
