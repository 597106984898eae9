package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func TestResolve(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	r, err := NewPathResolver(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain", input: "a.txt", want: filepath.Join(root, "a.txt")},
		{name: "nested", input: "b/c.txt", want: filepath.Join(root, "b", "c.txt")},
		{name: "dot segments", input: "./b/../a.txt", want: filepath.Join(root, "a.txt")},
		{name: "empty", input: "  ", wantErr: ErrEmptyPath},
		{name: "parent", input: "../escape.txt", wantErr: ErrOutsideRoot},
		{name: "hidden parent", input: "b/../../escape.txt", wantErr: ErrOutsideRoot},
		{name: "root itself", input: ".", wantErr: ErrOutsideRoot},
		{name: "absolute", input: "/etc/passwd", wantErr: ErrOutsideRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFollowsSymlinks(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	outside, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("old"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "realdir"), 0755))
	symlink(t, "real.txt", filepath.Join(root, "link.txt"))
	symlink(t, "realdir", filepath.Join(root, "dirlink"))
	symlink(t, outside, filepath.Join(root, "out"))
	symlink(t, filepath.Join(outside, "secret.txt"), filepath.Join(root, "leak.txt"))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0644))

	r, err := NewPathResolver(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "file link", input: "link.txt", want: filepath.Join(root, "real.txt")},
		{name: "directory link", input: "dirlink", want: filepath.Join(root, "realdir")},
		{name: "new file below directory link", input: "dirlink/new.txt", want: filepath.Join(root, "realdir", "new.txt")},
		{name: "directory link leaving root", input: "out/pwned.txt", wantErr: ErrOutsideRoot},
		{name: "missing path below escaping link", input: "out/a/b.txt", wantErr: ErrOutsideRoot},
		{name: "file link leaving root", input: "leak.txt", wantErr: ErrOutsideRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	entry, err := r.ResolveEntry("link.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "link.txt"), entry)

	entry, err = r.ResolveEntry("leak.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "leak.txt"), entry)

	_, err = r.ResolveEntry("out/secret.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFileAtomicPreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on Windows")
	}
	path := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	require.NoError(t, WriteFileAtomic(path, []byte("#!/bin/sh\necho hi\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	removed, err := RemoveFile(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = RemoveFile(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStat(t *testing.T) {
	dir := t.TempDir()

	exists, isDir, err := Stat(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, isDir)

	exists, isDir, err = Stat(dir)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir)
}
