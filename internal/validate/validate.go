// Package validate checks each change record against the current state of
// the file tree. It annotates records; it never fails a batch.
package validate

import (
	"log/slog"
	"os"

	"github.com/sokinpui/promp/internal/fs"
	"github.com/sokinpui/promp/internal/preview"
	"github.com/sokinpui/promp/model"
)

// Reasons attached to flags. They are part of the user-visible report.
const (
	ReasonAlreadyExists   = "already exists"
	ReasonWillCreate      = "will create"
	ReasonNothingToDelete = "nothing to delete"
	ReasonUnrecognized    = "unrecognized operation"
	ReasonMissingContent  = "missing content"
	ReasonTargetIsDir     = "target is a directory"
)

// Validator annotates records with ok/warn/skip flags.
type Validator struct {
	resolver *fs.PathResolver
}

// New creates a Validator resolving paths with resolver.
func New(resolver *fs.PathResolver) *Validator {
	return &Validator{resolver: resolver}
}

// Batch validates every record of b, in order.
func (v *Validator) Batch(b *model.Batch) []model.Pending {
	pending := make([]model.Pending, 0, len(b.Records))
	for _, r := range b.Records {
		p := v.Check(r)
		if p.Flag.Level != model.LevelOK {
			slog.Debug("record flagged", "path", r.Path, "operation", r.Operation, "flag", p.Flag.String())
		}
		pending = append(pending, p)
	}
	return pending
}

// Check validates a single record.
func (v *Validator) Check(r model.ChangeRecord) model.Pending {
	p := model.Pending{Record: r}
	skip := func(reason string) model.Pending {
		p.Flag = model.Flag{Level: model.LevelSkip, Reason: reason}
		return p
	}
	warn := func(reason string) {
		p.Flag = model.Flag{Level: model.LevelWarn, Reason: reason}
	}

	// A delete removes a symlink itself; everything else goes through it.
	resolve := v.resolver.Resolve
	if r.Operation == model.OpDelete {
		resolve = v.resolver.ResolveEntry
	}
	target, err := resolve(r.Path)
	if err != nil {
		return skip(err.Error())
	}
	if r.Operation == model.OpUnknown {
		return skip(ReasonUnrecognized)
	}
	if r.NeedsContent() && !r.HasContent {
		return skip(ReasonMissingContent)
	}

	exists, isDir, err := fs.Stat(target)
	if err != nil {
		return skip(err.Error())
	}
	if isDir {
		return skip(ReasonTargetIsDir)
	}

	switch r.Operation {
	case model.OpCreate:
		if exists {
			return skip(ReasonAlreadyExists)
		}
		p.Added, _ = preview.LineDelta("", r.Content)
	case model.OpUpdate:
		if !exists {
			warn(ReasonWillCreate)
			p.Added, _ = preview.LineDelta("", r.Content)
			break
		}
		if current, err := os.ReadFile(target); err == nil {
			p.Added, p.Removed = preview.LineDelta(string(current), r.Content)
		}
	case model.OpDelete:
		if !exists {
			warn(ReasonNothingToDelete)
		}
	}
	return p
}
