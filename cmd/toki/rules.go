package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"toki/internal/storage"
)

var (
	rulePattern  string
	ruleType     string
	ruleCategory string
	rulePriority int64
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage classification rules",
	Long: `Classification rules override the built-in category patterns. Rules
match on bundle id, window title, URL domain or URL path and are applied
in priority order before the built-ins.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List classification rules",
	Run:   runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a classification rule",
	Run:   runRulesAdd,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Delete a classification rule",
	Args:  cobra.ExactArgs(1),
	Run:   runRulesDelete,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export <file.toml>",
	Short: "Write all rules to a TOML file",
	Args:  cobra.ExactArgs(1),
	Run:   runRulesExport,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Add rules from a TOML file",
	Args:  cobra.ExactArgs(1),
	Run:   runRulesImport,
}

func init() {
	rulesAddCmd.Flags().StringVar(&rulePattern, "pattern", "", "Pattern to match")
	rulesAddCmd.Flags().StringVar(&ruleType, "type", string(storage.PatternBundleID),
		"Pattern type: bundle_id, window_title, domain, url_path")
	rulesAddCmd.Flags().StringVar(&ruleCategory, "category", "", "Category to assign")
	rulesAddCmd.Flags().Int64Var(&rulePriority, "priority", 0, "Rule priority (higher wins)")
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesDeleteCmd, rulesExportCmd, rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	rules, err := db.ListClassificationRules()
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(rules)
		return
	}
	if len(rules) == 0 {
		fmt.Println("No rules")
		return
	}
	for _, r := range rules {
		fmt.Printf("%s  %-12s %-24s -> %-14s priority=%d hits=%d\n",
			r.ID, r.PatternType, r.Pattern, r.Category, r.Priority, r.HitCount)
	}
}

func runRulesAdd(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	if rulePattern == "" || ruleCategory == "" {
		fatal(fmt.Errorf("--pattern and --category are required"))
	}
	patternType, err := parsePatternType(ruleType)
	if err != nil {
		fatal(err)
	}

	rule, err := db.AddClassificationRule(rulePattern, patternType, ruleCategory, rulePriority, time.Now().UTC())
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Rule %s added\n", rule.ID)
}

func runRulesDelete(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	if err := db.DeleteClassificationRule(args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Rule %s deleted\n", args[0])
}

// ruleTOML is one rule in the export format
type ruleTOML struct {
	Pattern  string `toml:"pattern"`
	Type     string `toml:"type"`
	Category string `toml:"category"`
	Priority int64  `toml:"priority"`
}

type rulesFile struct {
	Rules []ruleTOML `toml:"rules"`
}

func runRulesExport(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	rules, err := db.ListClassificationRules()
	if err != nil {
		fatal(err)
	}

	file := rulesFile{Rules: make([]ruleTOML, 0, len(rules))}
	for _, r := range rules {
		file.Rules = append(file.Rules, ruleTOML{
			Pattern:  r.Pattern,
			Type:     string(r.PatternType),
			Category: r.Category,
			Priority: r.Priority,
		})
	}

	data, err := toml.Marshal(file)
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		fatal(err)
	}
	fmt.Printf("Exported %d rules to %s\n", len(file.Rules), args[0])
}

func runRulesImport(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal(err)
	}
	var file rulesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		fatal(fmt.Errorf("failed to parse %s: %w", args[0], err))
	}

	now := time.Now().UTC()
	for _, r := range file.Rules {
		patternType, err := parsePatternType(r.Type)
		if err != nil {
			fatal(err)
		}
		if _, err := db.AddClassificationRule(r.Pattern, patternType, r.Category, r.Priority, now); err != nil {
			fatal(err)
		}
	}
	fmt.Printf("Imported %d rules\n", len(file.Rules))
}

func parsePatternType(s string) (storage.PatternType, error) {
	switch storage.PatternType(s) {
	case storage.PatternBundleID, storage.PatternWindowTitle, storage.PatternDomain, storage.PatternURLPath:
		return storage.PatternType(s), nil
	default:
		return "", fmt.Errorf("unknown pattern type %q", s)
	}
}

// openStoreFromFlags opens the store for commands that only need it
func openStoreFromFlags() *storage.DB {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	return openStore(dataDir, newLogger(cfg))
}
