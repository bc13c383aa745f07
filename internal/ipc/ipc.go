// Package ipc implements the daemon control socket. The protocol is
// newline-delimited JSON over a unix socket: one request line in, one
// response line out, connection closed.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"toki/internal/logging"
	"toki/internal/tracker"
)

// Commands understood by the daemon
const (
	CommandStatus   = "status"
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandShutdown = "shutdown"
)

// Request is one client command
type Request struct {
	Command string `json:"command"`
}

// Response is the daemon's reply
type Response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Status *tracker.Status `json:"status,omitempty"`
}

// Handler executes commands on behalf of the socket server
type Handler interface {
	Status() tracker.Status
	Pause() error
	Resume() error
	RequestShutdown()
}

// Server listens on the control socket
type Server struct {
	socketPath string
	handler    Handler
	logger     *logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a control socket server
func NewServer(socketPath string, handler Handler, logger *logging.Logger) *Server {
	return &Server{socketPath: socketPath, handler: handler, logger: logger}
}

// Start binds the socket and serves connections until the context is
// cancelled. A stale socket file from a dead daemon is removed first.
func (s *Server) Start(ctx context.Context) error {
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to bind control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	go s.acceptLoop(ctx)
	s.logger.Info("control socket listening", map[string]interface{}{
		"path": s.socketPath,
	})
	return nil
}

// Close stops the listener and removes the socket file
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
		_ = os.Remove(s.socketPath)
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Warn("accept failed", map[string]interface{}{"error": err.Error()})
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		s.reply(conn, Response{OK: false, Error: "malformed request"})
		return
	}
	s.reply(conn, s.dispatch(&req))
}

func (s *Server) dispatch(req *Request) Response {
	switch req.Command {
	case CommandStatus:
		status := s.handler.Status()
		return Response{OK: true, Status: &status}
	case CommandPause:
		if err := s.handler.Pause(); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case CommandResume:
		if err := s.handler.Resume(); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case CommandShutdown:
		s.handler.RequestShutdown()
		return Response{OK: true}
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (s *Server) reply(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

// Send connects to a running daemon's socket and executes one command
func Send(socketPath, command string) (*Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable: %w", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	data, err := json.Marshal(Request{Command: command})
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("daemon closed the connection")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &resp, nil
}
