package matcher

import (
	"fmt"
	"strings"
)

// ScanExecutionError reports a scanner process that could not be started
// or exited with a non-zero status. No output is parsed when it is returned.
type ScanExecutionError struct {
	Command  []string // executable followed by its arguments
	ExitCode int      // -1 when the process never ran or was killed by a signal
	Output   string   // diagnostic text: stderr, or stdout when stderr was empty
	Err      error
}

func (e *ScanExecutionError) Error() string {
	var msg string
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("running %s: %v", e.name(), e.Err)
	} else {
		msg = fmt.Sprintf("%s exited with status %d", e.name(), e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ScanExecutionError) Unwrap() error {
	return e.Err
}

func (e *ScanExecutionError) name() string {
	if len(e.Command) == 0 {
		return Executable
	}
	return e.Command[0]
}

// IOError reports a failure creating, writing or removing a temporary file.
type IOError struct {
	Op   string // "create", "write", "close", "rename", "remove"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s temp file %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
