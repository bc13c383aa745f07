package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"toki/internal/config"
	"toki/internal/logging"
	"toki/internal/paths"
	"toki/internal/storage"
	"toki/internal/version"
)

var (
	// dataDirFlag overrides TOKI_DATA_DIR and the ~/.toki default
	dataDirFlag string
	// jsonOutput switches command output to JSON
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "toki",
	Short: "Toki - personal time tracking",
	Long: `Toki is a personal time tracking daemon. It samples the foreground window,
classifies activity into categories, groups it into work sessions and suggests
reviewable time blocks that can be pushed to a project management system.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("toki version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Data directory (default: $TOKI_DATA_DIR or ~/.toki)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON")
}

// resolveDataDir returns the effective data directory, creating it if
// needed. Precedence: --data-dir flag > TOKI_DATA_DIR > ~/.toki
func resolveDataDir() string {
	if dataDirFlag != "" {
		if err := os.MkdirAll(dataDirFlag, 0700); err != nil {
			fatal(fmt.Errorf("failed to create data directory: %w", err))
		}
		return dataDirFlag
	}

	dir, err := paths.EnsureDataDir()
	if err != nil {
		fatal(err)
	}
	return dir
}

func loadConfig(dataDir string) *config.Config {
	cfg, err := config.Load(dataDir)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

func openStore(dataDir string, logger *logging.Logger) *storage.DB {
	db, err := storage.Open(dataDir, logger)
	if err != nil {
		fatal(err)
	}
	return db
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
