package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"toki/internal/storage"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change tracking preferences",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show all settings",
	Run:   runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Keys: pause_tracking, excluded_apps, idle_threshold_seconds,
enable_work_item_tracking, capture_window_title, capture_browser_url,
url_whitelist, work_start_hour, work_end_hour, session_end_idle_seconds.
List values are comma-separated.`,
	Args: cobra.ExactArgs(2),
	Run:  runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	settings, err := db.GetSettings()
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(settings)
		return
	}
	fmt.Printf("pause_tracking             %t\n", settings.PauseTracking)
	fmt.Printf("excluded_apps              %s\n", strings.Join(settings.ExcludedApps, ","))
	fmt.Printf("idle_threshold_seconds     %d\n", settings.IdleThresholdSeconds)
	fmt.Printf("enable_work_item_tracking  %t\n", settings.EnableWorkItemTracking)
	fmt.Printf("capture_window_title       %t\n", settings.CaptureWindowTitle)
	fmt.Printf("capture_browser_url        %t\n", settings.CaptureBrowserURL)
	fmt.Printf("url_whitelist              %s\n", strings.Join(settings.URLWhitelist, ","))
	fmt.Printf("work_start_hour            %d\n", settings.WorkStartHour)
	fmt.Printf("work_end_hour              %d\n", settings.WorkEndHour)
	fmt.Printf("session_end_idle_seconds   %d\n", settings.SessionEndIdleSeconds)
}

func runSettingsSet(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	settings, err := db.GetSettings()
	if err != nil {
		fatal(err)
	}
	if err := applySetting(settings, args[0], args[1]); err != nil {
		fatal(err)
	}
	if err := db.UpdateSettings(settings); err != nil {
		fatal(err)
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
}

func applySetting(s *storage.Settings, key, value string) error {
	switch key {
	case "pause_tracking":
		return setBool(&s.PauseTracking, value)
	case "excluded_apps":
		s.ExcludedApps = splitList(value)
	case "idle_threshold_seconds":
		return setInt(&s.IdleThresholdSeconds, value)
	case "enable_work_item_tracking":
		return setBool(&s.EnableWorkItemTracking, value)
	case "capture_window_title":
		return setBool(&s.CaptureWindowTitle, value)
	case "capture_browser_url":
		return setBool(&s.CaptureBrowserURL, value)
	case "url_whitelist":
		s.URLWhitelist = splitList(value)
	case "work_start_hour":
		return setInt(&s.WorkStartHour, value)
	case "work_end_hour":
		return setInt(&s.WorkEndHour, value)
	case "session_end_idle_seconds":
		return setInt(&s.SessionEndIdleSeconds, value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func setBool(dst *bool, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", value)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int64, value string) error {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", value)
	}
	*dst = parsed
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
