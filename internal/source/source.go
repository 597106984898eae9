package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/sokinpui/promp/internal/ui"
)

const (
	// DefaultStagingDir holds the empty response files created with each prompt.
	DefaultStagingDir = ".promp-in"
	// DefaultPrefix starts every staged response file name (in-YYYYmmdd-HHMMSS.txt).
	DefaultPrefix = "in-"
	// Stdin is the argument that selects standard input.
	Stdin = "-"
)

// ErrNoStagedFile is returned when the staging directory has no response file.
var ErrNoStagedFile = errors.New("no staged response file")

// Content is the raw response text and where it came from.
type Content struct {
	Text   string
	Origin string
}

// SourceProvider determines and retrieves the response text.
type SourceProvider struct {
	StagingDir string
	Prefix     string

	stdin         io.Reader
	readClipboard func() (string, error)
}

// New creates a SourceProvider reading the real stdin and clipboard.
func New(stagingDir, prefix string) *SourceProvider {
	if stagingDir == "" {
		stagingDir = DefaultStagingDir
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SourceProvider{
		StagingDir:    stagingDir,
		Prefix:        prefix,
		stdin:         os.Stdin,
		readClipboard: clipboard.ReadAll,
	}
}

// GetContent reads the response from, in order of precedence: the
// clipboard when fromClipboard is set, stdin when arg is "-", the file named
// by arg, or the latest staged response file.
func (sp *SourceProvider) GetContent(arg string, fromClipboard bool) (*Content, error) {
	switch {
	case fromClipboard:
		ui.Header("--- Reading from clipboard ---")
		text, err := sp.readClipboard()
		if err != nil {
			return nil, fmt.Errorf("failed to read from clipboard: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			ui.Warning("Clipboard is empty.")
		}
		return &Content{Text: text, Origin: "clipboard"}, nil

	case arg == Stdin:
		ui.Header("--- Reading from stdin ---")
		data, err := io.ReadAll(sp.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return &Content{Text: string(data), Origin: "stdin"}, nil

	case arg == "":
		latest, err := LatestStaged(sp.StagingDir, sp.Prefix)
		if err != nil {
			return nil, err
		}
		arg = latest
	}

	ui.Header("--- Reading %s ---", arg)
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read response file: %w", err)
	}
	return &Content{Text: string(data), Origin: arg}, nil
}

// LatestStaged returns the path of the lexicographically latest regular file
// in dir whose name starts with prefix. Staged names embed their creation
// timestamp, so this is also the most recently created one.
func LatestStaged(dir, prefix string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), escapeMeta(prefix)+"*", doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("failed to search staging directory '%s': %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w matching '%s*' in '%s'", ErrNoStagedFile, prefix, dir)
	}
	sort.Strings(matches)
	return filepath.Join(dir, filepath.FromSlash(matches[len(matches)-1])), nil
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\*?[]{}`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
