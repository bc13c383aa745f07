package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StoreFailure indicates a database operation failed
	StoreFailure ErrorCode = "STORE_FAILURE"
	// DaemonAlreadyRunning indicates a daemon process already holds the PID file
	DaemonAlreadyRunning ErrorCode = "DAEMON_ALREADY_RUNNING"
	// DaemonNotRunning indicates no daemon process was found
	DaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"
	// IntegrationMissing indicates a required PM integration is not configured
	IntegrationMissing ErrorCode = "INTEGRATION_MISSING"
	// PMAPIFailure indicates a PM system call failed
	PMAPIFailure ErrorCode = "PM_API_FAILURE"
	// MonitorUnavailable indicates the platform monitor returned no sample
	MonitorUnavailable ErrorCode = "MONITOR_UNAVAILABLE"
	// DataCorruption indicates a stored value could not be decoded
	DataCorruption ErrorCode = "DATA_CORRUPTION"
	// InvalidInput indicates a bad argument from the CLI or IPC
	InvalidInput ErrorCode = "INVALID_INPUT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// TokiError represents a toki error with code, message, and suggestions
type TokiError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new TokiError with fixes looked up from ErrorActions
func New(code ErrorCode, message string, cause error) *TokiError {
	return &TokiError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *TokiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TokiError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TokiError) WithDetails(details interface{}) *TokiError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	DaemonNotRunning: {
		{
			Type:        RunCommand,
			Command:     "toki daemon start",
			Safe:        true,
			Description: "Start the tracking daemon",
		},
	},
	DaemonAlreadyRunning: {
		{
			Type:        RunCommand,
			Command:     "toki daemon status",
			Safe:        true,
			Description: "Check the running daemon",
		},
	},
	IntegrationMissing: {
		{
			Type:        RunCommand,
			Command:     "toki integrations add",
			Safe:        true,
			Description: "Configure a PM system integration",
		},
	},
	StoreFailure: {
		{
			Type:        RunCommand,
			Command:     "toki status",
			Safe:        true,
			Description: "Check database health",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
