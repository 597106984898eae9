package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestLatestStaged(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, map[string]string{
		"in-20250101-090000.txt": "old",
		"in-20250301-120000.txt": "newest",
		"in-20250201-120000.txt": "middle",
		"out-20251231-000000.txt": "not an input",
		"notes.txt":              "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "in-zzz-dir"), 0755))

	got, err := LatestStaged(dir, "in-")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "in-20250301-120000.txt"), got)
}

func TestLatestStagedEmpty(t *testing.T) {
	_, err := LatestStaged(t.TempDir(), "in-")
	assert.ErrorIs(t, err, ErrNoStagedFile)
}

func TestLatestStagedMissingDir(t *testing.T) {
	_, err := LatestStaged(filepath.Join(t.TempDir(), "nope"), "in-")
	assert.Error(t, err)
}

func TestLatestStagedEscapesPrefix(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, map[string]string{"[x]-1.txt": "a", "x-2.txt": "b"})

	got, err := LatestStaged(dir, "[x]-")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "[x]-1.txt"), got)
}

func TestGetContent(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, map[string]string{
		"in-1.txt":  "staged one",
		"in-2.txt":  "staged two",
		"reply.txt": "explicit",
	})

	sp := New(dir, "in-")
	sp.stdin = strings.NewReader("from stdin")
	sp.readClipboard = func() (string, error) { return "from clipboard", nil }

	tests := []struct {
		name      string
		arg       string
		clipboard bool
		want      string
	}{
		{name: "latest staged", want: "staged two"},
		{name: "explicit file", arg: filepath.Join(dir, "reply.txt"), want: "explicit"},
		{name: "stdin", arg: "-", want: "from stdin"},
		{name: "clipboard wins", arg: "ignored.txt", clipboard: true, want: "from clipboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sp.GetContent(tt.arg, tt.clipboard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestGetContentErrors(t *testing.T) {
	sp := New(t.TempDir(), "in-")
	sp.readClipboard = func() (string, error) { return "", errors.New("no display") }

	_, err := sp.GetContent("", false)
	assert.ErrorIs(t, err, ErrNoStagedFile)

	_, err = sp.GetContent("does-not-exist.txt", false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = sp.GetContent("", true)
	assert.ErrorContains(t, err, "no display")
}
