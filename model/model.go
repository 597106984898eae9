package model

import "fmt"

// Dialect names a payload encoding accepted in an LLM response.
type Dialect string

const (
	// DialectAuto lets the extractor pick a dialect from the text.
	DialectAuto Dialect = "auto"
	// DialectBlocks is the `---- path ----` delimited-block format.
	DialectBlocks Dialect = "blocks"
	// DialectJSON is the structured {"changes": [...]} list.
	DialectJSON Dialect = "json"
)

// ParseDialect maps a user-supplied name onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case "", DialectAuto:
		return DialectAuto, nil
	case DialectBlocks, DialectJSON:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown format %q (want auto, blocks or json)", s)
}

// Operation is the kind of mutation a record asks for.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpUnknown Operation = "unknown"
	// OpPatch marks a file touched by a forwarded unified diff. The change
	// parser never produces it.
	OpPatch Operation = "patch"
)

// ChangeRecord represents a single requested change to a file.
// Create and update always carry the entire new file contents.
type ChangeRecord struct {
	Path      string
	Operation Operation
	// RawOperation keeps the operation as written in the payload, so an
	// unknown value can be reported back to the user.
	RawOperation string
	Content      string
	// HasContent is false when a structured record omitted `content`.
	HasContent bool
}

// NeedsContent reports whether the operation writes file contents.
func (r ChangeRecord) NeedsContent() bool {
	return r.Operation == OpCreate || r.Operation == OpUpdate
}

// Batch is the ordered set of records parsed from one response.
type Batch struct {
	Dialect  Dialect
	Records  []ChangeRecord
	Warnings []string
}

// Level is the outcome of validating one record.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelSkip
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelSkip:
		return "skip"
	default:
		return "ok"
	}
}

// Flag annotates a record with its validation outcome.
type Flag struct {
	Level  Level
	Reason string
}

func (f Flag) String() string {
	if f.Reason == "" {
		return f.Level.String()
	}
	return f.Level.String() + ": " + f.Reason
}

// Pending is a validated record waiting for confirmation.
type Pending struct {
	Record ChangeRecord
	Flag   Flag
	// Added and Removed are line counts against the current file, filled
	// for records that overwrite existing content.
	Added   int
	Removed int
}

// Actionable reports whether the record will touch the filesystem once confirmed.
func (p Pending) Actionable() bool {
	return p.Flag.Level != LevelSkip
}

// Status is the terminal state of a record after an apply run.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ApplyResult is the per-record outcome of one engine run.
type ApplyResult struct {
	Record ChangeRecord
	Flag   Flag
	Status Status
	Reason string
}

// Summary holds the batch-level counts for display.
type Summary struct {
	Applied int
	Skipped int
	Failed  int
	Warned  int
}

func (s Summary) String() string {
	return fmt.Sprintf("applied %d, skipped %d, failed %d", s.Applied, s.Skipped, s.Failed)
}

// Report is everything an apply run produced.
type Report struct {
	Results  []ApplyResult
	Summary  Summary
	Warnings []string
	Message  string
}

// Add records a result and updates the summary counts.
func (r *Report) Add(res ApplyResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusApplied:
		r.Summary.Applied++
	case StatusSkipped:
		r.Summary.Skipped++
	case StatusFailed:
		r.Summary.Failed++
	}
	if res.Flag.Level == LevelWarn {
		r.Summary.Warned++
	}
}

// AppliedPaths returns the paths of records that reached the applied state.
func (r *Report) AppliedPaths() []string {
	var paths []string
	for _, res := range r.Results {
		if res.Status == StatusApplied {
			paths = append(paths, res.Record.Path)
		}
	}
	return paths
}

// DiffBlock represents one file section of a unified diff.
type DiffBlock struct {
	FilePath   string
	RawContent string
}
