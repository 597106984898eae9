package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/ui"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NVIM", "")
	t.Setenv("NVIM_LISTEN_ADDRESS", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeResponse(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootAppliesFile(t *testing.T) {
	dir := t.TempDir()
	reply := writeResponse(t, "---- a.txt ----\nhello\n---- b/c.txt ----\nworld\n")

	out, err := run(t, "--dir", dir, "--yes", reply)
	require.NoError(t, err)

	assert.Contains(t, out, "created  a.txt (update)")
	assert.Contains(t, out, "applied 2, skipped 0, failed 0")
	data, err := os.ReadFile(filepath.Join(dir, "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestApplyDeleteMissingExitsZero(t *testing.T) {
	dir := t.TempDir()
	reply := writeResponse(t, `{"changes":[{"file_path":"x.txt","operation":"delete"}]}`)

	out, err := run(t, "apply", "-C", dir, "-y", reply)
	require.NoError(t, err)
	assert.Equal(t, cli.ExitOK, cli.ExitCode(err))
	assert.Contains(t, out, "[warn: nothing to delete]")
}

func TestApplyBatchErrorExitCode(t *testing.T) {
	reply := writeResponse(t, "no changes in here\n")

	_, err := run(t, "apply", "-C", t.TempDir(), "-y", reply)
	assert.Equal(t, cli.ExitBatch, cli.ExitCode(err))
}

func TestApplyDeclinedOnClosedInput(t *testing.T) {
	dir := t.TempDir()
	reply := writeResponse(t, "---- a.txt ----\nhello\n")

	// The plain prompt reads an empty stdin, which counts as "no".
	stdin := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = stdin; r.Close() })

	_, err = run(t, "-C", dir, "--ui", "plain", reply)
	assert.Equal(t, cli.ExitDeclined, cli.ExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
}

func TestApplyDryRun(t *testing.T) {
	dir := t.TempDir()
	reply := writeResponse(t, "---- a.txt ----\nhello\n")

	out, err := run(t, "-C", dir, "--dry-run", reply)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped  a.txt (update): dry run")
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
}

func TestApplyStrict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	reply := writeResponse(t, "---- sub ----\nnot a file\n")

	// A directory target is skipped, not failed, so strict mode still passes.
	_, err := run(t, "-C", dir, "-y", "--strict", reply)
	require.NoError(t, err)
}

func TestPatchToolMissing(t *testing.T) {
	dir := t.TempDir()
	diff := filepath.Join(dir, "change.diff")
	require.NoError(t, os.WriteFile(diff, []byte("--- a/f\n+++ b/f\n@@ -1 +1 @@\n-a\n+b\n"), 0644))

	_, err := run(t, "patch", "-C", dir, "-y", "--patch-command", "promp-no-such-tool", diff)
	assert.ErrorContains(t, err, "promp-no-such-tool")
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
}

func TestPatchListsPatchedFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake patch tool is a shell script")
	}
	dir := t.TempDir()
	tool := filepath.Join(t.TempDir(), "fake-patch")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\ncat > /dev/null\necho patching file f.txt\n"), 0755))
	diff := filepath.Join(dir, "change.diff")
	require.NoError(t, os.WriteFile(diff, []byte("--- a/f.txt\n+++ b/f.txt\n@@ -1 +1 @@\n-a\n+b\n"), 0644))

	var status bytes.Buffer
	ui.Out = &status
	t.Cleanup(func() { ui.Out = os.Stderr })

	out, err := run(t, "patch", "-C", dir, "-y", "--patch-command", tool, diff)
	require.NoError(t, err)
	assert.Contains(t, out, "patching file f.txt")
	assert.Contains(t, status.String(), "Patched 1 file(s):")
	assert.Contains(t, status.String(), "  f.txt")

	status.Reset()
	_, err = run(t, "patch", "-C", dir, "-n", "--patch-command", tool, diff)
	require.NoError(t, err)
	assert.Contains(t, status.String(), "Dry run: 1 file(s) checked, nothing was changed.")
}

func TestPatchOutputDiffFix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("a\nb\n"), 0644))
	diff := filepath.Join(dir, "change.diff")
	require.NoError(t, os.WriteFile(diff, []byte("--- a/f.txt\n+++ b/f.txt\n@@ -7 +7 @@\n-b\n+c\n"), 0644))

	out, err := run(t, "patch", "-C", dir, "-o", diff)
	require.NoError(t, err)
	assert.Equal(t, "--- a/f.txt\n+++ b/f.txt\n@@ -2,1 +2,1 @@\n-b\n+c\n", out)
	data, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestConfigCommand(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("PROMP_STAGING_DIR", "inbox")

	out, err := run(t, "config", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "staging_dir: inbox\n")
	assert.Contains(t, out, "strict: true\n")
	assert.Contains(t, out, "strip: 1\n")
	assert.False(t, strings.Contains(out, "clipboard"))
}
