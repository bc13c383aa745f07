package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"toki/internal/estimate"
	"toki/internal/reports"
)

var (
	reportFormat string
	reportFrom   string
	reportTo     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate summaries of tracked time",
}

var reportStandupCmd = &cobra.Command{
	Use:   "standup",
	Short: "Summarize yesterday and today",
	Run:   runReportStandup,
}

var reportInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Aggregate a date range",
	Run:   runReportInsights,
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportFormat, "format", "text", "Output format (text, json, yaml)")
	reportInsightsCmd.Flags().StringVar(&reportFrom, "from", "", "Range start (YYYY-MM-DD, default 7 days ago)")
	reportInsightsCmd.Flags().StringVar(&reportTo, "to", "", "Range end (YYYY-MM-DD, default today)")
	reportCmd.AddCommand(reportStandupCmd, reportInsightsCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportStandup(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	standup, err := reports.New(db).Standup(time.Now().UTC())
	if err != nil {
		fatal(err)
	}

	switch reportFormat {
	case "json":
		printJSON(standup)
	case "yaml":
		printYAML(standup)
	default:
		printStandupText(standup)
	}
}

func runReportInsights(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now
	var err error
	if reportFrom != "" {
		if from, err = time.Parse("2006-01-02", reportFrom); err != nil {
			fatal(fmt.Errorf("invalid --from %q: %w", reportFrom, err))
		}
	}
	if reportTo != "" {
		if to, err = time.Parse("2006-01-02", reportTo); err != nil {
			fatal(fmt.Errorf("invalid --to %q: %w", reportTo, err))
		}
	}

	insights, err := reports.New(db).Insights(from, to)
	if err != nil {
		fatal(err)
	}

	switch reportFormat {
	case "json":
		printJSON(insights)
	case "yaml":
		printYAML(insights)
	default:
		printInsightsText(insights)
	}
}

func printStandupText(s *reports.Standup) {
	printStandupDay("Yesterday", &s.Yesterday)
	printStandupDay("Today", &s.Today)
	if len(s.TopCategories) > 0 {
		fmt.Println("Top categories:")
		for _, c := range s.TopCategories {
			fmt.Printf("  %-16s %s\n", c.Name, c.Formatted)
		}
	}
}

func printStandupDay(label string, day *reports.StandupDay) {
	fmt.Printf("%s (%s), %d sessions:\n", label, day.Date, day.Sessions)
	if len(day.Projects) == 0 {
		fmt.Println("  no tracked time")
	}
	for _, p := range day.Projects {
		fmt.Printf("  %-20s %s\n", p.Name, p.Formatted)
	}
	if len(day.WorkItems) > 0 {
		fmt.Printf("  work items: %v\n", day.WorkItems)
	}
}

func printInsightsText(ins *reports.Insights) {
	fmt.Printf("Range %s to %s\n", ins.From, ins.To)
	fmt.Printf("Active %s, idle %s, %d interruptions over %d sessions\n",
		estimate.FormatSeconds(ins.ActiveSeconds), estimate.FormatSeconds(ins.IdleSeconds),
		ins.Interruptions, ins.Sessions)
	if ins.BusiestHour >= 0 {
		fmt.Printf("Busiest hour: %02d:00 UTC (%s)\n", ins.BusiestHour,
			estimate.FormatSeconds(ins.BusiestHourSeconds))
	}
	if len(ins.Categories) > 0 {
		fmt.Println("Categories:")
		for _, c := range ins.Categories {
			fmt.Printf("  %-16s %s\n", c.Name, c.Formatted)
		}
	}
	if len(ins.Projects) > 0 {
		fmt.Println("Projects:")
		for _, p := range ins.Projects {
			fmt.Printf("  %-20s %s\n", p.Name, p.Formatted)
		}
	}
	if len(ins.Breaks) > 0 {
		fmt.Println("Breaks:")
		for kind, count := range ins.Breaks {
			fmt.Printf("  %-8s %d\n", kind, count)
		}
	}
}

func printYAML(v interface{}) {
	data, err := yaml.Marshal(v)
	if err != nil {
		fatal(err)
	}
	fmt.Print(string(data))
}
