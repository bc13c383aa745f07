package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New(StoreFailure, "failed to finalize span", cause)

	msg := err.Error()
	if !strings.Contains(msg, "STORE_FAILURE") || !strings.Contains(msg, "disk full") {
		t.Errorf("unexpected message: %q", msg)
	}
	if !stderrors.Is(err, cause) {
		t.Error("Unwrap chain broken")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := New(DaemonNotRunning, "daemon is not running", nil)

	if strings.Contains(err.Error(), "<nil>") {
		t.Errorf("nil cause leaked into message: %q", err.Error())
	}
	if len(err.SuggestedFixes) == 0 {
		t.Error("expected a suggested fix for DAEMON_NOT_RUNNING")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(IntegrationMissing); len(fixes) == 0 {
		t.Error("expected fixes for INTEGRATION_MISSING")
	}
	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Error("expected no fixes for INTERNAL_ERROR")
	}
}
