package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"toki/internal/ipc"
	"toki/internal/paths"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current tracking status",
	Run:   runStatus,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause tracking",
	Run:   func(cmd *cobra.Command, args []string) { sendControl(ipc.CommandPause, "Tracking paused") },
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume tracking",
	Run:   func(cmd *cobra.Command, args []string) { sendControl(ipc.CommandResume, "Tracking resumed") },
}

func init() {
	rootCmd.AddCommand(statusCmd, pauseCmd, resumeCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	resp, err := ipc.Send(paths.SocketPath(dataDir), ipc.CommandStatus)
	if err != nil {
		fatal(err)
	}
	if !resp.OK {
		fatal(fmt.Errorf("%s", resp.Error))
	}

	if jsonOutput {
		printJSON(resp.Status)
		return
	}

	s := resp.Status
	switch {
	case s.Paused:
		fmt.Println("Tracking: paused")
	case s.Tracking:
		fmt.Println("Tracking: active")
	default:
		fmt.Println("Tracking: idle")
	}
	if s.AppBundleID != "" {
		fmt.Printf("App:      %s\n", s.AppBundleID)
	}
	if s.WindowTitle != "" {
		fmt.Printf("Window:   %s\n", s.WindowTitle)
	}
	if s.ProjectName != "" {
		fmt.Printf("Project:  %s\n", s.ProjectName)
	}
	if s.SessionID != "" {
		fmt.Printf("Session:  %s\n", s.SessionID)
	}
	fmt.Printf("Uptime:   since %s, %d ticks\n", s.StartedAt.Format("15:04:05"), s.TicksProcessed)
}

func sendControl(command, confirmation string) {
	dataDir := resolveDataDir()
	resp, err := ipc.Send(paths.SocketPath(dataDir), command)
	if err != nil {
		fatal(err)
	}
	if !resp.OK {
		fatal(fmt.Errorf("%s", resp.Error))
	}
	fmt.Println(confirmation)
}
