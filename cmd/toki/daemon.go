package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"toki/internal/daemon"
	"toki/internal/monitor"
	"toki/internal/paths"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the tracking daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the tracking daemon in the foreground",
	Run:   runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	Run:   runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	Run:   runDaemonStatus,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	cfg := loadConfig(dataDir)
	logger := newLogger(cfg)

	// Platform window samplers register here; without one the daemon
	// still runs and serves the control socket.
	d, err := daemon.New(dataDir, cfg, monitor.Null{}, logger)
	if err != nil {
		fatal(err)
	}

	if err := d.Start(); err != nil {
		fatal(err)
	}
	d.Wait()
	if err := d.Stop(); err != nil {
		fatal(err)
	}
}

func runDaemonStop(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	if err := daemon.StopRemote(dataDir, 10*time.Second); err != nil {
		fatal(err)
	}
	fmt.Println("Daemon stopped")
}

func runDaemonStatus(cmd *cobra.Command, args []string) {
	dataDir := resolveDataDir()
	running, pid, err := daemon.NewPIDFile(paths.PIDPath(dataDir)).IsRunning()
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"running": running, "pid": pid})
		return
	}
	if running {
		fmt.Printf("Daemon running (pid %d)\n", pid)
	} else {
		fmt.Println("Daemon not running")
	}
}
