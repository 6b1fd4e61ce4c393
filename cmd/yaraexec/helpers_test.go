package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
)

const eicar = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

// fakeRunner stands in for yara: it reports eicar_test_file when the item
// file contains the EICAR marker.
type fakeRunner struct {
	exitCode int
	stderr   string
}

type fakeExitError struct{ code int }

func (e *fakeExitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *fakeExitError) ExitCode() int { return e.code }

func (r *fakeRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	if r.exitCode != 0 {
		return nil, []byte(r.stderr), &fakeExitError{code: r.exitCode}
	}
	item := args[len(args)-1]
	content, err := os.ReadFile(item)
	if err != nil {
		return nil, nil, err
	}
	if bytes.Contains(content, []byte("EICAR-STANDARD-ANTIVIRUS-TEST-FILE")) {
		return []byte("eicar_test_file " + item + "\n"), nil, nil
	}
	return nil, nil, nil
}

// useRunner installs r for the duration of the test.
func useRunner(t *testing.T, r *fakeRunner) {
	t.Helper()
	prev := runner
	runner = r
	t.Cleanup(func() { runner = prev })
}

// resetScanFlags restores scan flag defaults.
func resetScanFlags(t *testing.T) {
	t.Helper()
	scanRulesPath = ""
	scanRulesInclude = ""
	scanRulesExclude = ""
	scanRuleset = ""
	scanOutputPath = ":memory:"
	scanOutputFormat = "human"
	scanColor = "never"
	scanGit = false
	scanRevision = "HEAD"
	scanMaxFileSize = 10 * 1024 * 1024
	scanIncludeHidden = false
	scanExtractArchives = false
	scanIncremental = false
	scanWorkers = 2
}
