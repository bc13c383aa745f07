package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"toki/internal/linker"
)

var (
	linkSystem        string
	linkApply         bool
	linkMinConfidence float64
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Suggest links between local projects and PM projects",
	Long: `Link compares unlinked local projects against the configured project
management system's projects by name, git remote and browser activity.
With --apply, suggestions at or above --min-confidence are persisted.`,
	Run: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkSystem, "system", "plane", "Source system")
	linkCmd.Flags().BoolVar(&linkApply, "apply", false, "Persist confident suggestions")
	linkCmd.Flags().Float64Var(&linkMinConfidence, "min-confidence", 0.8, "Apply threshold")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	client := loadPMClient(db, linkSystem, logger)
	suggestions, err := linker.New(db, client, logger).Suggest(context.Background(), nil)
	if err != nil {
		fatal(err)
	}

	if linkApply {
		applied := 0
		l := linker.New(db, client, logger)
		for i := range suggestions {
			if suggestions[i].Confidence < linkMinConfidence {
				continue
			}
			if err := l.Apply(&suggestions[i]); err != nil {
				fatal(err)
			}
			applied++
		}
		fmt.Printf("Linked %d projects\n", applied)
		return
	}

	if jsonOutput {
		printJSON(suggestions)
		return
	}
	if len(suggestions) == 0 {
		fmt.Println("No link suggestions")
		return
	}
	for _, s := range suggestions {
		fmt.Printf("%-20s -> %-12s %s  %.0f%%  (%s)\n",
			s.ProjectName, s.PMIdentifier, s.PMName, s.Confidence*100, s.Reason)
	}
}
