package matcher

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a program with a discrete argument vector and waits for
// it to exit.
type Runner interface {
	// Run returns the captured stdout and stderr. A non-zero exit status is
	// reported as an error with an ExitCode() int method, such as
	// *exec.ExitError, alongside whatever output was captured.
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs programs with os/exec. Arguments are passed straight to
// the process; no shell is involved, so nothing needs escaping.
type ExecRunner struct {
	// Env, if non-nil, replaces the child's environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
