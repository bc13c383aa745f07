package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"toki/internal/logging"
	"toki/internal/pm"
	"toki/internal/secrets"
	"toki/internal/storage"
)

// passphraseEnv holds the key used to encrypt integration credentials
// at rest. Without it keys are stored as given.
const passphraseEnv = "TOKI_PASSPHRASE"

var (
	integrationSystem    string
	integrationURL       string
	integrationAPIKey    string
	integrationWorkspace string
	integrationProject   string
)

var integrationsCmd = &cobra.Command{
	Use:   "integrations",
	Short: "Manage project management integrations",
}

var integrationsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Add or update an integration",
	Run:   runIntegrationsSet,
}

var integrationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured integrations",
	Run:   runIntegrationsList,
}

var integrationsDeleteCmd = &cobra.Command{
	Use:   "delete <system>",
	Short: "Remove an integration",
	Args:  cobra.ExactArgs(1),
	Run:   runIntegrationsDelete,
}

var integrationsImportCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Import integrations from a TOML file",
	Args:  cobra.ExactArgs(1),
	Run:   runIntegrationsImport,
}

func init() {
	integrationsSetCmd.Flags().StringVar(&integrationSystem, "system", "plane", "System type")
	integrationsSetCmd.Flags().StringVar(&integrationURL, "url", "", "API base URL")
	integrationsSetCmd.Flags().StringVar(&integrationAPIKey, "api-key", "", "API key")
	integrationsSetCmd.Flags().StringVar(&integrationWorkspace, "workspace", "", "Workspace slug")
	integrationsSetCmd.Flags().StringVar(&integrationProject, "project", "", "Default project id")
	integrationsCmd.AddCommand(integrationsSetCmd, integrationsListCmd, integrationsDeleteCmd, integrationsImportCmd)
	rootCmd.AddCommand(integrationsCmd)
}

func runIntegrationsSet(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	if integrationAPIKey == "" {
		fatal(fmt.Errorf("--api-key is required"))
	}
	saveIntegration(db, &storage.IntegrationConfig{
		SystemType:    integrationSystem,
		APIURL:        integrationURL,
		APIKey:        integrationAPIKey,
		WorkspaceSlug: integrationWorkspace,
		ProjectID:     integrationProject,
	})
	fmt.Printf("Integration %q saved\n", integrationSystem)
}

func runIntegrationsList(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	configs, err := db.ListIntegrationConfigs()
	if err != nil {
		fatal(err)
	}

	// Keys never leave the store.
	type row struct {
		SystemType    string    `json:"system_type"`
		APIURL        string    `json:"api_url,omitempty"`
		WorkspaceSlug string    `json:"workspace_slug,omitempty"`
		ProjectID     string    `json:"project_id,omitempty"`
		UpdatedAt     time.Time `json:"updated_at"`
	}
	rows := make([]row, 0, len(configs))
	for _, c := range configs {
		rows = append(rows, row{
			SystemType:    c.SystemType,
			APIURL:        c.APIURL,
			WorkspaceSlug: c.WorkspaceSlug,
			ProjectID:     c.ProjectID,
			UpdatedAt:     c.UpdatedAt,
		})
	}

	if jsonOutput {
		printJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No integrations configured")
		return
	}
	for _, r := range rows {
		fmt.Printf("%-10s %s workspace=%s project=%s\n", r.SystemType, r.APIURL, r.WorkspaceSlug, r.ProjectID)
	}
}

func runIntegrationsDelete(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	if err := db.DeleteIntegrationConfig(args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Integration %q removed\n", args[0])
}

// integrationsFile is the TOML import shape:
//
//	[[integration]]
//	system = "plane"
//	url = "https://api.plane.so"
//	api_key = "..."
//	workspace = "acme"
type integrationsFile struct {
	Integrations []struct {
		System    string `toml:"system"`
		URL       string `toml:"url"`
		APIKey    string `toml:"api_key"`
		Workspace string `toml:"workspace"`
		Project   string `toml:"project"`
	} `toml:"integration"`
}

func runIntegrationsImport(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	db := openStore(dataDir, newLogger(cfg))
	defer db.Close()

	var file integrationsFile
	if _, err := toml.DecodeFile(args[0], &file); err != nil {
		fatal(fmt.Errorf("failed to parse %s: %w", args[0], err))
	}

	for _, entry := range file.Integrations {
		if entry.System == "" || entry.APIKey == "" {
			fatal(fmt.Errorf("integration entries need system and api_key"))
		}
		saveIntegration(db, &storage.IntegrationConfig{
			SystemType:    entry.System,
			APIURL:        entry.URL,
			APIKey:        entry.APIKey,
			WorkspaceSlug: entry.Workspace,
			ProjectID:     entry.Project,
		})
	}
	fmt.Printf("Imported %d integrations\n", len(file.Integrations))
}

func saveIntegration(db *storage.DB, cfg *storage.IntegrationConfig) {
	if passphrase := os.Getenv(passphraseEnv); passphrase != "" {
		sealed, err := secrets.Encrypt(cfg.APIKey, passphrase)
		if err != nil {
			fatal(err)
		}
		cfg.APIKey = sealed
	}
	if err := db.UpsertIntegrationConfig(cfg); err != nil {
		fatal(err)
	}
}

// loadPMClient builds a client for the named system, decrypting the
// stored API key when a passphrase is present.
func loadPMClient(db *storage.DB, systemType string, logger *logging.Logger) pm.ProjectManagementSystem {
	cfg, err := db.GetIntegrationConfig(systemType)
	if err != nil {
		fatal(err)
	}
	if cfg == nil {
		fatal(fmt.Errorf("no %q integration configured, run: toki integrations set", systemType))
	}

	if passphrase := os.Getenv(passphraseEnv); passphrase != "" {
		plain, err := secrets.Decrypt(cfg.APIKey, passphrase)
		if err != nil {
			fatal(fmt.Errorf("failed to decrypt API key for %q: %w", systemType, err))
		}
		cfg.APIKey = plain
	}

	client, err := pm.New(cfg, logger)
	if err != nil {
		fatal(err)
	}
	return client
}
