// Package daemon runs the always-on tracking process: PID file, control
// socket, signal handling and the tracker loop.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"toki/internal/classify"
	"toki/internal/config"
	"toki/internal/detect"
	"toki/internal/ipc"
	"toki/internal/logging"
	"toki/internal/monitor"
	"toki/internal/paths"
	"toki/internal/session"
	"toki/internal/storage"
	"toki/internal/tracker"
	"toki/internal/workspace"
)

// Daemon is the toki tracking process
type Daemon struct {
	dataDir string
	cfg     *config.Config
	logger  *logging.Logger

	db      *storage.DB
	tracker *tracker.Tracker
	server  *ipc.Server
	pid     *PIDFile

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New wires the daemon's components. The monitor is injected so platform
// integrations and tests can supply their own.
func New(dataDir string, cfg *config.Config, mon monitor.Monitor, logger *logging.Logger) (*Daemon, error) {
	db, err := storage.Open(dataDir, logger)
	if err != nil {
		return nil, err
	}

	classifier, err := classify.New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	resolver := workspace.NewResolver(logger)
	detector := detect.New(db, resolver, logger)
	sessions := session.New(db, logger)

	tickInterval := time.Duration(cfg.Tracker.TickIntervalSeconds) * time.Second
	trk := tracker.New(db, mon, detector, classifier, sessions, tickInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		dataDir:    dataDir,
		cfg:        cfg,
		logger:     logger,
		db:         db,
		tracker:    trk,
		pid:        NewPIDFile(paths.PIDPath(dataDir)),
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
	}
	d.server = ipc.NewServer(paths.SocketPath(dataDir), d, logger)
	return d, nil
}

// Start acquires the PID file and launches the control socket and the
// tracker loop
func (d *Daemon) Start() error {
	if err := d.pid.Acquire(); err != nil {
		return err
	}

	if err := d.server.Start(d.ctx); err != nil {
		_ = d.pid.Release()
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.tracker.Run(d.ctx)
	}()

	d.logger.Info("daemon started", map[string]interface{}{
		"pid":      os.Getpid(),
		"data_dir": d.dataDir,
	})
	return nil
}

// Wait blocks until a termination signal or a shutdown command arrives
func (d *Daemon) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		d.logger.Info("received signal", map[string]interface{}{"signal": sig.String()})
	case <-d.shutdownCh:
		d.logger.Info("shutdown requested over control socket", nil)
	}
}

// Stop tears the daemon down: tracker first so the open span and session
// are finalized, then the socket, PID file and store
func (d *Daemon) Stop() error {
	d.cancel()
	d.wg.Wait()

	d.server.Close()
	if err := d.pid.Release(); err != nil {
		d.logger.Warn("failed to release PID file", map[string]interface{}{"error": err.Error()})
	}
	if err := d.db.Close(); err != nil {
		return err
	}
	d.logger.Info("daemon stopped", nil)
	return nil
}

// Status implements ipc.Handler
func (d *Daemon) Status() tracker.Status {
	return d.tracker.Status()
}

// Pause implements ipc.Handler by queueing the request with the tracker.
// The socket path never writes the store; the tick task persists the flag.
func (d *Daemon) Pause() error {
	d.tracker.RequestPause(true)
	return nil
}

// Resume implements ipc.Handler
func (d *Daemon) Resume() error {
	d.tracker.RequestPause(false)
	return nil
}

// RequestShutdown implements ipc.Handler
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// StopRemote signals a running daemon to stop and waits for it to exit
func StopRemote(dataDir string, timeout time.Duration) error {
	pidFile := NewPIDFile(paths.PIDPath(dataDir))
	running, pid, err := pidFile.IsRunning()
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal daemon: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processExists(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not exit within %s", pid, timeout)
}
