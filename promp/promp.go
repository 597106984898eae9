package promp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/engine"
	"github.com/sokinpui/promp/internal/extract"
	"github.com/sokinpui/promp/internal/fs"
	"github.com/sokinpui/promp/internal/nvim"
	"github.com/sokinpui/promp/internal/parser"
	"github.com/sokinpui/promp/internal/patcher"
	"github.com/sokinpui/promp/internal/source"
	"github.com/sokinpui/promp/internal/tui"
	"github.com/sokinpui/promp/internal/ui"
	"github.com/sokinpui/promp/model"
)

// App orchestrates the entire application logic.
type App struct {
	cfg            *cli.Config
	sourceProvider *source.SourceProvider
	engine         *engine.Engine
	patcher        *patcher.Runner
	reloader       *nvim.Reloader
	confirmer      engine.Confirmer

	// stdinRead is set once the response has been read from stdin, which
	// leaves nothing there for a line prompt to answer from.
	stdinRead bool
	openTTY   func() (*os.File, error)
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance rooted at cfg.Dir.
func New(cfg *cli.Config) (*App, error) {
	pathResolver, err := fs.NewPathResolver(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	stagingDir := cfg.StagingDir
	if stagingDir != "" && !filepath.IsAbs(stagingDir) {
		stagingDir = filepath.Join(pathResolver.Root(), stagingDir)
	}

	runner := patcher.New(pathResolver)
	runner.Command = cfg.Patch.Command
	runner.Strip = cfg.Patch.Strip
	runner.FixHunks = cfg.Patch.FixHunks
	runner.DryRun = cfg.DryRun

	addr := ""
	if cfg.NvimReload {
		addr = nvim.Address()
	}

	a := &App{
		cfg:            cfg,
		sourceProvider: source.New(stagingDir, cfg.StagingPrefix),
		patcher:        runner,
		reloader:       nvim.New(addr),
		openTTY:        openTTY,
	}
	a.confirmer = a.defaultConfirmer()
	a.engine = engine.New(pathResolver, engine.ConfirmFunc(a.confirm), engine.Options{
		DryRun:       cfg.DryRun,
		FinalNewline: cfg.FinalNewline,
	})
	return a, nil
}

// SetConfirmer replaces the confirmation gate chosen from the config.
func (a *App) SetConfirmer(c engine.Confirmer) {
	a.confirmer = c
}

// SetProgressCallback sets a function to be called for each finished record.
func (a *App) SetProgressCallback(cb engine.ProgressUpdate) {
	a.engine.SetProgressCallback(cb)
}

func (a *App) confirm(ctx context.Context, pending []model.Pending) (bool, error) {
	if a.confirmer == nil {
		return false, nil
	}
	if pc, ok := a.confirmer.(*ui.PromptConfirmer); ok && a.stdinRead && pc.In == os.Stdin {
		tty, err := a.openTTY()
		if err != nil {
			slog.Debug("no terminal to confirm on", "error", err)
			return false, model.ErrNoTerminal
		}
		defer tty.Close()
		return (&ui.PromptConfirmer{In: tty, Out: pc.Out}).Confirm(ctx, pending)
	}
	return a.confirmer.Confirm(ctx, pending)
}

// openTTY opens the controlling terminal for reading.
func openTTY() (*os.File, error) {
	if runtime.GOOS == "windows" {
		return os.Open("CONIN$")
	}
	return os.Open("/dev/tty")
}

// defaultConfirmer picks the confirmation gate: none with --yes, the TUI
// when stderr is a terminal, a plain (y/N) line prompt otherwise.
func (a *App) defaultConfirmer() engine.Confirmer {
	if a.cfg.Yes {
		return engine.AutoConfirm
	}
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd())
	stdinTTY := isatty.IsTerminal(os.Stdin.Fd())

	switch a.cfg.UI {
	case cli.UIPlain:
		return ui.NewPromptConfirmer()
	case cli.UITUI:
		return tui.NewConfirmer(tea.WithInputTTY())
	}
	if !stderrTTY {
		return ui.NewPromptConfirmer()
	}
	if !stdinTTY {
		// The response itself is being piped in, so read keys from the terminal.
		return tui.NewConfirmer(tea.WithInputTTY())
	}
	return tui.NewConfirmer()
}

// ReadSource returns the response text selected by arg and the config.
func (a *App) ReadSource(arg string) (*source.Content, error) {
	content, err := a.sourceProvider.GetContent(arg, a.cfg.Clipboard)
	if err == nil && arg == source.Stdin && !a.cfg.Clipboard {
		a.stdinRead = true
	}
	return content, err
}

// Parse extracts the change batch from a raw response.
func (a *App) Parse(content string) (*model.Batch, error) {
	payload, err := extract.Extract(content, a.cfg.Dialect())
	if err != nil {
		return nil, err
	}
	batch, err := parser.Parse(payload)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed batch", "dialect", batch.Dialect, "records", len(batch.Records), "warnings", len(batch.Warnings))
	return batch, nil
}

// Plan validates a batch against the working directory without writing.
func (a *App) Plan(batch *model.Batch) []model.Pending {
	return a.engine.Plan(batch)
}

// Apply confirms and applies a parsed batch, then asks a surrounding Neovim
// to reload the files that changed.
func (a *App) Apply(ctx context.Context, batch *model.Batch) (*model.Report, error) {
	report, err := a.engine.Run(ctx, batch)
	if err != nil {
		return nil, err
	}
	a.reload(report.AppliedPaths())
	return report, nil
}

// Execute reads the response selected by arg, parses it and applies it.
func (a *App) Execute(ctx context.Context, arg string) (report *model.Report, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	content, err := a.ReadSource(arg)
	if err != nil {
		return nil, err
	}
	slog.Debug("read response", "origin", content.Origin, "bytes", len(content.Text))

	batch, err := a.Parse(content.Text)
	if err != nil {
		return nil, err
	}
	return a.Apply(ctx, batch)
}

// Patch forwards a unified diff to the external patch tool after listing
// its targets in the confirmation gate.
func (a *App) Patch(ctx context.Context, diffPath string) (res *patcher.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	data, err := os.ReadFile(diffPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}
	targets := patcher.Targets(string(data), a.cfg.Patch.Strip)

	if !a.cfg.DryRun {
		pending := make([]model.Pending, 0, len(targets))
		for _, t := range targets {
			pending = append(pending, model.Pending{
				Record: model.ChangeRecord{Path: t, Operation: model.OpPatch},
			})
		}
		ok, err := a.confirm(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return nil, model.ErrDeclined
		}
	}

	res, err = a.patcher.Apply(ctx, diffPath)
	if err != nil {
		return res, err
	}
	if !a.cfg.DryRun {
		a.reload(res.Targets)
	}
	return res, nil
}

// WriteFixedDiff corrects the hunk headers of every file section in
// diffPath and writes the result to w without applying it. Sections that
// cannot be corrected are written unchanged.
func (a *App) WriteFixedDiff(w io.Writer, diffPath string) error {
	data, err := os.ReadFile(diffPath)
	if err != nil {
		return fmt.Errorf("failed to read diff: %w", err)
	}

	preamble, blocks := patcher.SplitFiles(string(data), a.cfg.Patch.Strip)
	if _, err := io.WriteString(w, preamble); err != nil {
		return err
	}
	for _, block := range blocks {
		corrected, err := a.patcher.CorrectDiff(block)
		if err != nil || corrected == "" {
			slog.Debug("diff section left as is", "path", block.FilePath, "error", err)
			corrected = block.RawContent
		}
		if _, err := io.WriteString(w, corrected); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) reload(paths []string) {
	if len(paths) == 0 || !a.reloader.Enabled() {
		return
	}
	if err := a.reloader.Reload(paths); err != nil {
		slog.Warn("failed to reload nvim buffers", "error", err)
	}
}
