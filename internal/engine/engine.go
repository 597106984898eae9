// Package engine applies a validated batch of change records to the file
// tree. Application is best-effort: a failing record never aborts or rolls
// back its siblings.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sokinpui/promp/internal/fs"
	"github.com/sokinpui/promp/internal/validate"
	"github.com/sokinpui/promp/model"
)

// Confirmer is asked once, before anything is written, to approve the
// pending records.
type Confirmer interface {
	Confirm(ctx context.Context, pending []model.Pending) (bool, error)
}

// ConfirmFunc adapts an ordinary function to Confirmer.
type ConfirmFunc func(ctx context.Context, pending []model.Pending) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, pending []model.Pending) (bool, error) {
	return f(ctx, pending)
}

// AutoConfirm approves every batch without asking.
var AutoConfirm = ConfirmFunc(func(context.Context, []model.Pending) (bool, error) {
	return true, nil
})

// ProgressUpdate is called with each result as soon as it is known.
type ProgressUpdate func(res model.ApplyResult, current, total int)

// Options tune an Engine.
type Options struct {
	// DryRun validates and reports without prompting or writing.
	DryRun bool
	// FinalNewline appends "\n" to non-empty content that lacks one.
	FinalNewline bool
}

const (
	reasonCreated   = "created"
	reasonUpdated   = "updated"
	reasonDeleted   = "deleted"
	reasonDryRun    = "dry run"
	reasonCancelled = "cancelled"
)

// Engine executes change records against the filesystem.
type Engine struct {
	resolver  *fs.PathResolver
	validator *validate.Validator
	confirmer Confirmer
	opts      Options
	progress  ProgressUpdate
}

// New creates an Engine. A nil confirmer declines every batch.
func New(resolver *fs.PathResolver, confirmer Confirmer, opts Options) *Engine {
	return &Engine{
		resolver:  resolver,
		validator: validate.New(resolver),
		confirmer: confirmer,
		opts:      opts,
	}
}

// SetProgressCallback sets a function to be called for each finished record.
func (e *Engine) SetProgressCallback(cb ProgressUpdate) {
	e.progress = cb
}

// Plan validates a batch without touching the filesystem.
func (e *Engine) Plan(batch *model.Batch) []model.Pending {
	return e.validator.Batch(batch)
}

// Run validates batch, asks for confirmation and applies every actionable
// record in order. It returns model.ErrDeclined, with nothing written, when
// the confirmer says no.
func (e *Engine) Run(ctx context.Context, batch *model.Batch) (*model.Report, error) {
	pending := e.Plan(batch)
	report := &model.Report{Warnings: batch.Warnings}

	actionable := 0
	for _, p := range pending {
		if p.Actionable() {
			actionable++
		}
	}

	switch {
	case actionable == 0:
		for i, p := range pending {
			e.record(report, skipped(p, p.Flag.Reason), i, len(pending))
		}
		report.Message = "Nothing to apply."
		return report, nil
	case e.opts.DryRun:
		for i, p := range pending {
			reason := p.Flag.Reason
			if p.Actionable() {
				reason = reasonDryRun
			}
			e.record(report, skipped(p, reason), i, len(pending))
		}
		report.Message = "Dry run, no files were changed."
		return report, nil
	}

	if e.confirmer == nil {
		return nil, model.ErrDeclined
	}
	ok, err := e.confirmer.Confirm(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		slog.Debug("batch declined", "records", len(pending))
		return nil, model.ErrDeclined
	}

	done := e.Execute(ctx, pending)
	done.Warnings = batch.Warnings
	return done, nil
}

// Execute applies already confirmed records. Records flagged skip are
// reported and left alone; a cancelled context skips whatever remains.
func (e *Engine) Execute(ctx context.Context, pending []model.Pending) *model.Report {
	report := &model.Report{}
	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			e.record(report, skipped(p, reasonCancelled), i, len(pending))
			continue
		}
		e.record(report, e.applyOne(p), i, len(pending))
	}
	return report
}

func (e *Engine) record(report *model.Report, res model.ApplyResult, i, total int) {
	report.Add(res)
	if e.progress != nil {
		e.progress(res, i+1, total)
	}
}

func (e *Engine) applyOne(p model.Pending) model.ApplyResult {
	if !p.Actionable() {
		return skipped(p, p.Flag.Reason)
	}
	r := p.Record

	resolve := e.resolver.Resolve
	if r.Operation == model.OpDelete {
		resolve = e.resolver.ResolveEntry
	}
	target, err := resolve(r.Path)
	if err != nil {
		return failed(p, err)
	}

	switch r.Operation {
	case model.OpCreate:
		exists, _, err := fs.Stat(target)
		if err != nil {
			return failed(p, err)
		}
		if exists {
			return skipped(p, validate.ReasonAlreadyExists)
		}
		if err := e.write(target, r.Content); err != nil {
			return failed(p, err)
		}
		return applied(p, reasonCreated)

	case model.OpUpdate:
		if err := e.write(target, r.Content); err != nil {
			return failed(p, err)
		}
		if p.Flag.Reason == validate.ReasonWillCreate {
			return applied(p, reasonCreated)
		}
		return applied(p, reasonUpdated)

	case model.OpDelete:
		removed, err := fs.RemoveFile(target)
		if err != nil {
			return failed(p, err)
		}
		if !removed {
			return applied(p, validate.ReasonNothingToDelete)
		}
		return applied(p, reasonDeleted)
	}

	return skipped(p, validate.ReasonUnrecognized)
}

func (e *Engine) write(target, content string) error {
	if e.opts.FinalNewline && content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := fs.EnsureParent(target); err != nil {
		return err
	}
	return fs.WriteFileAtomic(target, []byte(content))
}

func applied(p model.Pending, reason string) model.ApplyResult {
	slog.Debug("record applied", "path", p.Record.Path, "operation", p.Record.Operation, "result", reason)
	return model.ApplyResult{Record: p.Record, Flag: p.Flag, Status: model.StatusApplied, Reason: reason}
}

func skipped(p model.Pending, reason string) model.ApplyResult {
	return model.ApplyResult{Record: p.Record, Flag: p.Flag, Status: model.StatusSkipped, Reason: reason}
}

func failed(p model.Pending, err error) model.ApplyResult {
	slog.Warn("record failed", "path", p.Record.Path, "operation", p.Record.Operation, "error", err)
	return model.ApplyResult{Record: p.Record, Flag: p.Flag, Status: model.StatusFailed, Reason: err.Error()}
}
