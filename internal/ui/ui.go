package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/promp/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
	FaintColor   = color.New(color.Faint)
)

// Out receives every message printed by this package.
var Out io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Out, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Out, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Out, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Out, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Out, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Out, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// FlagColor picks the color a validation flag is shown in.
func FlagColor(level model.Level) *color.Color {
	switch level {
	case model.LevelWarn:
		return WarningColor
	case model.LevelSkip:
		return ErrorColor
	default:
		return SuccessColor
	}
}

// PendingLine renders one pending record: operation, path, flag and line delta.
func PendingLine(p model.Pending) string {
	op := string(p.Record.Operation)
	if p.Record.Operation == model.OpUnknown && p.Record.RawOperation != "" {
		op = p.Record.RawOperation
	}
	line := fmt.Sprintf("%-7s %s", op, p.Record.Path)
	if p.Flag.Level != model.LevelOK || p.Flag.Reason != "" {
		line += "  " + FlagColor(p.Flag.Level).Sprintf("[%s]", p.Flag)
	}
	if p.Actionable() && (p.Added > 0 || p.Removed > 0) {
		line += "  " + SuccessColor.Sprintf("+%d", p.Added) + " " + ErrorColor.Sprintf("-%d", p.Removed)
	}
	return line
}

// PrintPending lists a validated batch before confirmation.
func PrintPending(w io.Writer, pending []model.Pending) {
	HeaderColor.Fprintf(w, "\n--- Pending Changes ---\n")
	if len(pending) == 0 {
		FaintColor.Fprintln(w, "Nothing to do.")
		return
	}
	for _, p := range pending {
		fmt.Fprintf(w, "  %s\n", PendingLine(p))
	}
}

// ResultLine renders the outcome of one record as
// "<verb> <path> (<operation>)", followed by the reason or flag.
func ResultLine(res model.ApplyResult) string {
	verb, c := string(res.Status), ErrorColor
	switch res.Status {
	case model.StatusApplied:
		verb, c = appliedVerb(res), SuccessColor
	case model.StatusSkipped:
		c = WarningColor
	}

	op := string(res.Record.Operation)
	if res.Record.Operation == model.OpUnknown && res.Record.RawOperation != "" {
		op = res.Record.RawOperation
	}
	line := c.Sprintf("%-8s", verb) + " " + res.Record.Path + FaintColor.Sprintf(" (%s)", op)

	switch {
	case res.Status != model.StatusApplied && res.Reason != "":
		line += ": " + res.Reason
	case res.Flag.Level == model.LevelWarn:
		line += " " + WarningColor.Sprintf("[%s]", res.Flag)
	}
	return line
}

func appliedVerb(res model.ApplyResult) string {
	switch res.Reason {
	case "created", "updated", "deleted":
		return res.Reason
	}
	switch res.Record.Operation {
	case model.OpCreate:
		return "created"
	case model.OpUpdate:
		return "updated"
	case model.OpDelete:
		return "deleted"
	}
	return string(res.Status)
}

// PrintReport prints every per-record outcome followed by the summary line.
func PrintReport(w io.Writer, report *model.Report) {
	HeaderColor.Fprintf(w, "\n--- Apply Summary ---\n")
	for _, warning := range report.Warnings {
		WarningColor.Fprintf(w, "warning: %s\n", warning)
	}
	if report.Message != "" {
		InfoColor.Fprintln(w, report.Message)
	}
	if len(report.Results) == 0 {
		FaintColor.Fprintln(w, "No files were changed.")
		return
	}
	for _, res := range report.Results {
		fmt.Fprintf(w, "  %s\n", ResultLine(res))
	}

	c := SuccessColor
	if report.Summary.Failed > 0 {
		c = ErrorColor
	} else if report.Summary.Skipped > 0 {
		c = WarningColor
	}
	c.Fprintln(w, report.Summary.String())
}

// PrintPatchOutput relays what the patch tool printed.
func PrintPatchOutput(w io.Writer, stdout, stderr string) {
	if out := strings.TrimRight(stdout, "\n"); out != "" {
		fmt.Fprintln(w, out)
	}
	if out := strings.TrimRight(stderr, "\n"); out != "" {
		ErrorColor.Fprintln(w, out)
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	w       io.Writer
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{w: Out, total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Finish() {
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(p.w, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
