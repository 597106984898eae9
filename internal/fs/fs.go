package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned for a record without a path.
	ErrEmptyPath = errors.New("missing path")
	// ErrOutsideRoot is returned for absolute paths or paths climbing out of the root.
	ErrOutsideRoot = errors.New("outside working directory")
)

// PathResolver maps record paths onto absolute paths under a root directory.
// Symlinks are followed, and a path whose real location leaves the root is
// rejected.
type PathResolver struct {
	root string
}

// NewPathResolver creates a PathResolver rooted at dir, or at the current
// working directory when dir is empty.
func NewPathResolver(dir string) (*PathResolver, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid root directory '%s': %w", dir, err)
	}
	root, err := evalExisting(abs)
	if err != nil {
		return nil, fmt.Errorf("invalid root directory '%s': %w", dir, err)
	}
	return &PathResolver{root: root}, nil
}

// Root returns the absolute root directory, with symlinks evaluated.
func (r *PathResolver) Root() string {
	return r.root
}

// Resolve returns the real path a record path refers to. Symlinks are
// followed all the way, so writes land on the file a link points to and a
// link to a directory resolves to that directory.
func (r *PathResolver) Resolve(relativePath string) (string, error) {
	abs, err := r.lexical(relativePath)
	if err != nil {
		return "", err
	}
	return r.confine(abs)
}

// ResolveEntry is like Resolve but does not follow a symlink in the last
// path element, so removing the result removes the link itself.
func (r *PathResolver) ResolveEntry(relativePath string) (string, error) {
	abs, err := r.lexical(relativePath)
	if err != nil {
		return "", err
	}
	dir, err := r.confine(filepath.Dir(abs))
	if err != nil && !(errors.Is(err, ErrOutsideRoot) && dir == r.root) {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

func (r *PathResolver) lexical(relativePath string) (string, error) {
	if strings.TrimSpace(relativePath) == "" {
		return "", ErrEmptyPath
	}
	p := filepath.FromSlash(relativePath)
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" || strings.HasPrefix(p, string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	abs := filepath.Join(r.root, p)
	if !r.within(abs) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// confine evaluates the symlinks in abs and checks the result is still
// below the root. On ErrOutsideRoot the evaluated path is returned too.
func (r *PathResolver) confine(abs string) (string, error) {
	resolved, err := evalExisting(abs)
	if err != nil {
		return "", err
	}
	if !r.within(resolved) {
		return resolved, ErrOutsideRoot
	}
	return resolved, nil
}

// within reports whether path lies strictly below the root.
func (r *PathResolver) within(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting evaluates symlinks in the longest existing prefix of path and
// appends the missing elements unchanged.
func evalExisting(path string) (string, error) {
	var missing []string
	for p := path; ; {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path, nil
		}
		missing = append([]string{filepath.Base(p)}, missing...)
		p = parent
	}
}

// Stat reports what currently sits at path. A missing file is not an error.
func Stat(path string) (exists, isDir bool, err error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// EnsureParent creates the parent directories of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory '%s': %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written file. The mode
// of an existing file is preserved.
func WriteFileAtomic(path string, data []byte) error {
	perm := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".promp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// RemoveFile deletes path. It reports false without error when there was
// nothing to delete.
func RemoveFile(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
