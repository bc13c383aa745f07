// Package monitor abstracts platform-specific foreground window sampling.
// Concrete OS integrations satisfy Monitor; the daemon only depends on the
// interface and must tolerate "no active app" samples.
package monitor

import (
	"sync"
)

// ActiveApp is one foreground window sample
type ActiveApp struct {
	AppBundleID string
	WindowTitle string
}

// Monitor reports the current foreground window and user idle time.
// Implementations must return quickly; a tick cannot wait on a slow sample.
type Monitor interface {
	// GetActiveApp returns the current sample, or nil when unavailable
	GetActiveApp() *ActiveApp
	// GetIdleSeconds returns seconds since last user input
	GetIdleSeconds() int64
	// IsIdle reports whether idle time meets the threshold
	IsIdle(thresholdSeconds int64) bool
}

// Null is a monitor that never observes anything. Used when no platform
// integration is available.
type Null struct{}

func (Null) GetActiveApp() *ActiveApp    { return nil }
func (Null) GetIdleSeconds() int64       { return 0 }
func (Null) IsIdle(threshold int64) bool { return false }

// Scripted is a test monitor that replays a fixed sequence of samples.
// After the sequence is exhausted it keeps returning the last sample.
type Scripted struct {
	mu      sync.Mutex
	Samples []ScriptedSample
	pos     int
}

// ScriptedSample is one scripted tick observation
type ScriptedSample struct {
	App         *ActiveApp
	IdleSeconds int64
}

func (s *Scripted) current() ScriptedSample {
	if len(s.Samples) == 0 {
		return ScriptedSample{}
	}
	if s.pos >= len(s.Samples) {
		return s.Samples[len(s.Samples)-1]
	}
	return s.Samples[s.pos]
}

// Advance moves to the next scripted sample
func (s *Scripted) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos++
}

func (s *Scripted) GetActiveApp() *ActiveApp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().App
}

func (s *Scripted) GetIdleSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().IdleSeconds
}

func (s *Scripted) IsIdle(threshold int64) bool {
	return s.GetIdleSeconds() >= threshold
}
