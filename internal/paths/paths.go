package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDir returns the per-user toki data directory.
// TOKI_DATA_DIR overrides the default of ~/.toki.
func DataDir() (string, error) {
	if dir := os.Getenv("TOKI_DATA_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return filepath.Join(home, ".toki"), nil
}

// EnsureDataDir resolves the data directory and creates it if missing
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dir, nil
}

// DatabasePath returns the path of the SQLite database file
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, "toki.db")
}

// PIDPath returns the path of the daemon PID file
func PIDPath(dataDir string) string {
	return filepath.Join(dataDir, "toki.pid")
}

// SocketPath returns the path of the daemon IPC socket
func SocketPath(dataDir string) string {
	return filepath.Join(dataDir, "toki.sock")
}

// LogPath returns the path of the daemon log file
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, "daemon.log")
}

// ConfigPath returns the path of the JSON config file
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}
