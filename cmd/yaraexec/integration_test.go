//go:build integration && !windows

package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integrationYara stands in for the scanner binary: items containing MATCH
// produce one record per rule file, rules containing FAIL exit 1.
const integrationYara = `#!/bin/sh
rules=""
item=""
for arg; do rules="$item"; item="$arg"; done
if grep -q FAIL "$rules"; then
	echo "error: $rules(1): syntax error" >&2
	exit 1
fi
if grep -q MATCH "$item"; then
	echo "integration_rule $item"
fi
exit 0
`

// buildBinary compiles the CLI into a temporary directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..", "..")

	bin := filepath.Join(t.TempDir(), "yaraexec")
	build := exec.Command("go", "build", "-o", bin, "./cmd/yaraexec")
	build.Dir = root
	output, err := build.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(output))
	return bin
}

// installYara writes the stand-in scanner and returns its path prefix.
func installYara(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yara"), []byte(integrationYara), 0o755))
	return dir + string(filepath.Separator)
}

type serveProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
}

func startServe(t *testing.T) *serveProcess {
	t.Helper()
	bin := buildBinary(t)
	prefix := installYara(t)

	cmd := exec.Command(bin, "serve", "--yara-path", prefix)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	p := &serveProcess{cmd: cmd, stdin: stdin, lines: make(chan string, 16)}
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		close(p.lines)
	}()
	t.Cleanup(func() {
		stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return p
}

func (p *serveProcess) send(t *testing.T, request string) {
	t.Helper()
	_, err := p.stdin.Write([]byte(request + "\n"))
	require.NoError(t, err)
}

func (p *serveProcess) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case line, ok := <-p.lines:
		require.True(t, ok, "server closed stdout")
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		return resp
	case <-time.After(60 * time.Second):
		t.Fatal("timeout waiting for response")
		return nil
	}
}

func TestServeIntegration_ReadySignal(t *testing.T) {
	p := startServe(t)

	ready := p.next(t)
	assert.Equal(t, true, ready["success"])
	assert.Equal(t, "ready", ready["type"])
}

func TestServeIntegration_Match(t *testing.T) {
	p := startServe(t)
	p.next(t)

	p.send(t, `{"type":"match","payload":{"source":"upload.bin","content":"please MATCH me"}}`)
	resp := p.next(t)
	require.Equal(t, true, resp["success"], "error: %v", resp["error"])
	assert.Equal(t, "match", resp["type"])

	data := resp["data"].(map[string]any)
	matches := data["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "integration_rule", matches[0].(map[string]any)["rule"])

	p.send(t, `{"type":"match","payload":{"source":"clean.bin","content":"nothing here"}}`)
	resp = p.next(t)
	require.Equal(t, true, resp["success"])
	assert.Empty(t, resp["data"].(map[string]any)["matches"])
}

func TestServeIntegration_CustomRulesFailure(t *testing.T) {
	p := startServe(t)
	p.next(t)

	p.send(t, `{"type":"match","payload":{"rules":["rule FAIL {"],"source":"x","content":"MATCH"}}`)
	resp := p.next(t)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "syntax error")
}

func TestServeIntegration_MatchBatch(t *testing.T) {
	p := startServe(t)
	p.next(t)

	p.send(t, `{"type":"match_batch","payload":{"items":[{"source":"a","content":"clean"},{"source":"b","content":"MATCH"}]}}`)
	resp := p.next(t)
	require.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Len(t, data["results"], 2)
}

func TestServeIntegration_Close(t *testing.T) {
	p := startServe(t)
	p.next(t)

	p.send(t, `{"type":"close"}`)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err, "process should exit cleanly")
	case <-time.After(30 * time.Second):
		t.Fatal("server did not exit after close")
	}
}

func TestScanIntegration_JSON(t *testing.T) {
	bin := buildBinary(t)
	prefix := installYara(t)

	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "hit.txt"), []byte("MATCH"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "miss.txt"), []byte("clean"), 0o644))

	cmd := exec.Command(bin, "scan", target, "--yara-path", prefix, "--output", ":memory:", "--format", "json")
	out, err := cmd.Output()
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out, &results))
	require.Len(t, results, 1)
	paths := results[0]["paths"].([]any)
	assert.True(t, strings.HasSuffix(paths[0].(string), "hit.txt"))
}
