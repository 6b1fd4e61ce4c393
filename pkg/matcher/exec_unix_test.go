//go:build !windows

package matcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYara stands in for the real scanner. The last two arguments are the
// rule file and the item file. Rules containing FAIL make it exit 1, items
// containing MATCH produce two matches, and items containing SLEEP block.
const fakeYara = `#!/bin/sh
rules=""
item=""
for arg; do rules="$item"; item="$arg"; done
echo "$@" >> "$(dirname "$0")/calls.log"
if grep -q FAIL "$rules"; then
	echo "error: $rules(1): syntax error" >&2
	exit 1
fi
if grep -q SLEEP "$item"; then
	exec sleep 5
fi
if grep -q MATCH "$item"; then
	echo "A $item"
	echo "B $item"
fi
exit 0
`

func installFakeYara(t *testing.T) (prefix string) {
	t.Helper()
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "yara"), []byte(fakeYara), 0o755))
	return bin + string(filepath.Separator)
}

func loggedArgs(t *testing.T, prefix string) [][]string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(prefix, "calls.log"))
	require.NoError(t, err)

	var calls [][]string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		calls = append(calls, strings.Fields(line))
	}
	return calls
}

func TestExecRunner_Match(t *testing.T) {
	prefix := installFakeYara(t)
	tempDir := t.TempDir()
	m := New(DefaultConfig().WithPath(prefix), WithTempDir(tempDir))

	matches, err := m.Match(context.Background(), []string{"rule A { condition: true }"}, []byte("please MATCH"))
	require.NoError(t, err)

	calls := loggedArgs(t, prefix)
	require.Len(t, calls, 1)
	args := calls[0]
	require.Len(t, args, 3)
	assert.Equal(t, "-w", args[0])
	itemFile := args[2]

	require.Len(t, matches, 2)
	assert.Equal(t, "A", matches[0].Rule)
	assert.Equal(t, []string{"A", itemFile}, matches[0].Raw)
	assert.Equal(t, "B", matches[1].Rule)

	assert.NoFileExists(t, args[1])
	assert.NoFileExists(t, itemFile)
	assertDirEmpty(t, tempDir)
}

func TestExecRunner_NoMatch(t *testing.T) {
	prefix := installFakeYara(t)
	m := New(DefaultConfig().WithPath(prefix), WithTempDir(t.TempDir()))

	matches, err := m.Match(context.Background(), []string{}, []byte(""))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestExecRunner_FailureCleansUp(t *testing.T) {
	prefix := installFakeYara(t)
	tempDir := t.TempDir()
	m := New(DefaultConfig().WithPath(prefix), WithTempDir(tempDir))

	matches, err := m.Match(context.Background(), []string{"FAIL"}, []byte("MATCH"))
	require.Error(t, err)
	assert.Nil(t, matches)

	var scanErr *ScanExecutionError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, 1, scanErr.ExitCode)
	assert.Contains(t, scanErr.Output, "syntax error")

	assertDirEmpty(t, tempDir)
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	prefix := t.TempDir() + string(filepath.Separator)
	tempDir := t.TempDir()
	m := New(DefaultConfig().WithPath(prefix), WithTempDir(tempDir))

	_, err := m.Match(context.Background(), nil, []byte("x"))

	var scanErr *ScanExecutionError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, -1, scanErr.ExitCode)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assertDirEmpty(t, tempDir)
}

func TestExecRunner_ContextTimeout(t *testing.T) {
	prefix := installFakeYara(t)
	tempDir := t.TempDir()
	m := New(DefaultConfig().WithPath(prefix), WithTempDir(tempDir))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Match(ctx, nil, []byte("SLEEP"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
	assertDirEmpty(t, tempDir)
}

func TestExecRunner_ArgumentsAreNotShellInterpreted(t *testing.T) {
	prefix := installFakeYara(t)
	marker := filepath.Join(t.TempDir(), "pwned")
	cfg := DefaultConfig().WithPath(prefix).WithFlag("$(touch " + marker + ")")
	m := New(cfg, WithTempDir(t.TempDir()))

	_, err := m.Match(context.Background(), nil, []byte("x"))
	require.NoError(t, err)
	assert.NoFileExists(t, marker)
}
