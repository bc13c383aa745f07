package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"toki/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all tracked data to a compressed archive",
	Args:  cobra.ExactArgs(1),
	Run:   runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge an exported archive into the store",
	Args:  cobra.ExactArgs(1),
	Run:   runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	f, err := os.Create(args[0])
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	archive, err := export.New(db, cfg.Export.CompressionLevel, logger).Export(f)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Exported %d projects, %d sessions, %d spans, %d blocks to %s\n",
		len(archive.Projects), len(archive.Sessions), len(archive.Spans),
		len(archive.TimeBlocks), args[0])
}

func runImport(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)
	db := openStore(dataDir, logger)
	defer db.Close()

	f, err := os.Open(args[0])
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	archive, err := export.New(db, cfg.Export.CompressionLevel, logger).Import(f)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Imported %d projects, %d sessions, %d spans, %d blocks from %s\n",
		len(archive.Projects), len(archive.Sessions), len(archive.Spans),
		len(archive.TimeBlocks), args[0])
}
