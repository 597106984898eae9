package patcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/promp/internal/fs"
	"github.com/sokinpui/promp/model"
)

const sampleDiff = `Some explanation the model added.
--- a/src/app.go
+++ b/src/app.go
@@ -10,3 +10,3 @@
 func main() {
-	println("old")
+	println("new")
 }
--- a/docs/old.md
+++ /dev/null
@@ -1 +0,0 @@
-gone
`

func newRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	resolver, err := fs.NewPathResolver(root)
	require.NoError(t, err)
	return New(resolver), root
}

// fakeTool writes an executable shell script standing in for patch.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake patch tool is a shell script")
	}
	path := filepath.Join(t.TempDir(), "fake-patch")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func writeDiff(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "change.diff")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []string{"src/app.go", "docs/old.md"}, Targets(sampleDiff, 1))
	assert.Equal(t, []string{"b/src/app.go", "a/docs/old.md"}, Targets(sampleDiff, 0))
}

func TestSplitFiles(t *testing.T) {
	preamble, blocks := SplitFiles(sampleDiff, 1)

	assert.Equal(t, "Some explanation the model added.\n", preamble)
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0].RawContent, "--- a/src/app.go\n+++ b/src/app.go\n@@"))
	assert.Equal(t, sampleDiff, preamble+blocks[0].RawContent+blocks[1].RawContent)
}

func TestCorrectDiffHunks(t *testing.T) {
	source := strings.Split("package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"a\")\n\tfmt.Println(\"b\")\n}\n", "\n")
	raw := "--- a/main.go\n+++ b/main.go\n@@ -40,3 +40,4 @@\n func main() {\n \tfmt.Println(\"a\")\n+\tfmt.Println(\"x\")\n \tfmt.Println(\"b\")\n"

	got, err := correctDiffHunks(source, raw)
	require.NoError(t, err)
	assert.Equal(t, "--- a/main.go\n+++ b/main.go\n@@ -5,3 +5,4 @@\n func main() {\n \tfmt.Println(\"a\")\n+\tfmt.Println(\"x\")\n \tfmt.Println(\"b\")\n", got)
}

func TestCorrectDiffHunksOffsetsFollowEarlierHunks(t *testing.T) {
	source := []string{"a", "b", "c", "d", "e", "f"}
	raw := "--- a/f\n+++ b/f\n@@ -1 +1 @@\n a\n+a2\n@@ -9 +9 @@\n e\n-f\n"

	got, err := correctDiffHunks(source, raw)
	require.NoError(t, err)
	assert.Contains(t, got, "@@ -1,1 +1,2 @@\n")
	assert.Contains(t, got, "@@ -5,2 +6,1 @@\n")
}

func TestCorrectDiffHunksNoMatch(t *testing.T) {
	_, err := correctDiffHunks([]string{"x"}, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-missing\n+new\n")
	assert.Error(t, err)
}

func TestApplyToolNotFound(t *testing.T) {
	r, _ := newRunner(t)
	r.Command = "promp-no-such-patch-tool"

	_, err := r.Apply(context.Background(), writeDiff(t, sampleDiff))
	assert.ErrorIs(t, err, model.ErrToolNotFound)
}

func TestApplyForwardsDiff(t *testing.T) {
	r, root := newRunner(t)
	r.Command = fakeTool(t, `echo "$@" > args.txt
cat > input.txt
echo "patching file src/app.go"
`)
	r.DryRun = true

	res, err := r.Apply(context.Background(), writeDiff(t, sampleDiff))
	require.NoError(t, err)
	assert.Equal(t, "patching file src/app.go\n", res.Stdout)
	assert.Equal(t, []string{"src/app.go", "docs/old.md"}, res.Targets)

	args, err := os.ReadFile(filepath.Join(root, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-p1 --forward --batch --dry-run\n", string(args))

	input, err := os.ReadFile(filepath.Join(root, "input.txt"))
	require.NoError(t, err)
	assert.Equal(t, sampleDiff, string(input))
}

func TestApplyRejected(t *testing.T) {
	r, _ := newRunner(t)
	r.Command = fakeTool(t, `cat > /dev/null
echo "1 out of 1 hunk FAILED -- saving rejects to file src/app.go.rej" >&2
exit 1
`)

	_, err := r.Apply(context.Background(), writeDiff(t, sampleDiff))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPatchRejected)

	var rejected *model.PatchRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, 1, rejected.ExitCode)
	assert.Equal(t, "1 out of 1 hunk FAILED -- saving rejects to file src/app.go.rej\n", rejected.Stderr)
}

func TestApplyFixHunks(t *testing.T) {
	r, root := newRunner(t)
	r.Command = fakeTool(t, "cat > input.txt\n")
	r.FixHunks = true
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\nthree\n"), 0644))

	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -7,2 +7,2 @@\n two\n-three\n+THREE\n"
	res, err := r.Apply(context.Background(), writeDiff(t, diff))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	input, err := os.ReadFile(filepath.Join(root, "input.txt"))
	require.NoError(t, err)
	assert.Equal(t, "--- a/f.txt\n+++ b/f.txt\n@@ -2,2 +2,2 @@\n two\n-three\n+THREE\n", string(input))
}

func TestApplyFixHunksFallsBack(t *testing.T) {
	r, root := newRunner(t)
	r.Command = fakeTool(t, "cat > input.txt\n")
	r.FixHunks = true

	diff := "--- a/missing.txt\n+++ b/missing.txt\n@@ -1 +1 @@\n-a\n+b\n"
	res, err := r.Apply(context.Background(), writeDiff(t, diff))
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)

	input, err := os.ReadFile(filepath.Join(root, "input.txt"))
	require.NoError(t, err)
	assert.Equal(t, diff, string(input))
}

func TestApplyRealPatch(t *testing.T) {
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch is not installed")
	}
	r, root := newRunner(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello\nworld\n"), 0644))

	diff := "--- a/hello.txt\n+++ b/hello.txt\n@@ -1,2 +1,2 @@\n hello\n-world\n+gopher\n"
	_, err := r.Apply(context.Background(), writeDiff(t, diff))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\ngopher\n", string(data))
}
