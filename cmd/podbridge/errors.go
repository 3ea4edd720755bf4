package main

import (
	"fmt"

	"github.com/d2verb/podbridge/internal/protocol"
)

// Exit codes for CLI commands.
const (
	exitSuccess          = 0
	exitError            = 1
	exitBridgeNotRunning = 2
	exitRequestFailed    = 3
	exitUnauthorized     = 4
	exitNoAction         = 5
)

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func errBridgeNotRunning(address string) *ExitError {
	return &ExitError{
		Code:    exitBridgeNotRunning,
		Message: fmt.Sprintf("Bridge is not running on %s.\nRun: podbridge serve", address),
	}
}

func errNoAction(kind string) *ExitError {
	return &ExitError{
		Code:    exitNoAction,
		Message: fmt.Sprintf("Intent '%s' has no bridge action.", kind),
	}
}

// errForStatus returns nil for SUCCESS. The response itself has already been
// printed, so the error carries no message.
func errForStatus(status protocol.Status) error {
	switch status {
	case protocol.StatusSuccess:
		return nil
	case protocol.StatusUnauthorized:
		return &ExitError{Code: exitUnauthorized}
	default:
		return &ExitError{Code: exitRequestFailed}
	}
}
