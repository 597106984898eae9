package patcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sokinpui/promp/internal/fs"
	"github.com/sokinpui/promp/model"
)

// DefaultCommand is the external unified-diff utility.
const DefaultCommand = "patch"

// Runner forwards a diff file to the external patch utility. It never
// writes files itself.
type Runner struct {
	// Command is the patch executable, looked up in PATH when not absolute.
	Command string
	// Strip is the -p level handed to the tool.
	Strip int
	// DryRun asks the tool to check the diff without changing files.
	DryRun bool
	// FixHunks rewrites hunk line numbers against the current sources first.
	FixHunks bool

	resolver *fs.PathResolver
}

// Result is the outcome of a successful patch run.
type Result struct {
	Stdout   string
	Stderr   string
	Targets  []string
	Warnings []string
}

// New creates a Runner working in resolver's root directory.
func New(resolver *fs.PathResolver) *Runner {
	return &Runner{Command: DefaultCommand, Strip: 1, resolver: resolver}
}

// Apply runs the patch tool with the contents of diffPath on stdin.
func (r *Runner) Apply(ctx context.Context, diffPath string) (*Result, error) {
	data, err := os.ReadFile(diffPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}

	name := r.Command
	if name == "" {
		name = DefaultCommand
	}
	tool, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrToolNotFound, name, err)
	}

	res := &Result{Targets: Targets(string(data), r.Strip)}
	input := data
	if r.FixHunks {
		var warnings []string
		input, warnings = r.fixHunks(string(data))
		res.Warnings = warnings
	}

	args := []string{"-p" + strconv.Itoa(r.Strip), "--forward", "--batch"}
	if r.DryRun {
		args = append(args, "--dry-run")
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = r.resolver.Root()
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running patch tool", "tool", tool, "args", args, "dir", cmd.Dir, "targets", res.Targets)
	err = cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &model.PatchRejectedError{
				ExitCode: exitErr.ExitCode(),
				Stdout:   res.Stdout,
				Stderr:   res.Stderr,
			}
		}
		return res, fmt.Errorf("`%s` command failed: %w", name, err)
	}
	return res, nil
}

func (r *Runner) fixHunks(diff string) ([]byte, []string) {
	preamble, blocks := SplitFiles(diff, r.Strip)
	var warnings []string

	var out strings.Builder
	out.WriteString(preamble)
	for _, block := range blocks {
		corrected, err := r.CorrectDiff(block)
		if err != nil || corrected == "" {
			if err != nil {
				msg := fmt.Sprintf("could not correct hunks for %s, forwarding as is: %v", block.FilePath, err)
				slog.Warn(msg)
				warnings = append(warnings, msg)
			}
			out.WriteString(block.RawContent)
			continue
		}
		out.WriteString(corrected)
	}
	return []byte(out.String()), warnings
}

// CorrectDiff rewrites the hunk headers of one file section by locating
// each hunk's context in the current source file.
func (r *Runner) CorrectDiff(block model.DiffBlock) (string, error) {
	if block.FilePath == "" || block.FilePath == devNull {
		return "", fmt.Errorf("no source file to match against")
	}
	sourcePath, err := r.resolver.Resolve(block.FilePath)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}
	sourceLines := strings.Split(string(content), "\n")
	return correctDiffHunks(sourceLines, block.RawContent)
}

const devNull = "/dev/null"

// Targets lists the files a unified diff touches, with strip leading
// components removed the way `patch -p<strip>` does.
func Targets(diff string, strip int) []string {
	_, blocks := SplitFiles(diff, strip)
	targets := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.FilePath != "" {
			targets = append(targets, b.FilePath)
		}
	}
	return targets
}

// SplitFiles breaks a unified diff into one block per file. A block starts at
// a `--- ` line directly followed by a `+++ ` line. Text before the first
// block is returned as the preamble.
func SplitFiles(diff string, strip int) (string, []model.DiffBlock) {
	lines := strings.SplitAfter(diff, "\n")
	var (
		preamble strings.Builder
		blocks   []model.DiffBlock
		current  *strings.Builder
		path     string
	)
	flush := func() {
		if current != nil {
			blocks = append(blocks, model.DiffBlock{FilePath: path, RawContent: current.String()})
		}
	}

	for i, line := range lines {
		if strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ") {
			flush()
			current = &strings.Builder{}
			path = headerPath(lines[i+1], strip)
			if path == devNull {
				path = headerPath(line, strip)
			}
		}
		if current == nil {
			preamble.WriteString(line)
			continue
		}
		current.WriteString(line)
	}
	flush()
	return preamble.String(), blocks
}

// headerPath extracts the file name from a `--- ` or `+++ ` line.
func headerPath(line string, strip int) string {
	name := strings.TrimRight(line[4:], "\r\n")
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == devNull {
		return devNull
	}
	return stripComponents(name, strip)
}

func stripComponents(name string, strip int) string {
	name = filepath.ToSlash(name)
	for i := 0; i < strip; i++ {
		j := strings.IndexByte(name, '/')
		if j < 0 {
			break
		}
		name = name[j+1:]
	}
	return name
}
