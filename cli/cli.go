package cli

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/sokinpui/promp/model"
)

// AddGlobalFlags defines the flags shared by every command.
func AddGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Config file (default .promp.yaml, then ~/.config/promp/config.yaml).")
	fs.StringP("dir", "C", "", "Working directory every path is resolved against (default: current directory).")
	fs.BoolP("yes", "y", false, "Apply without asking for confirmation.")
	fs.BoolP("dry-run", "n", false, "Validate and report without writing anything.")
	fs.String("ui", UIAuto, "Confirmation prompt: auto, tui or plain.")
	fs.Bool("nvim-reload", true, "Ask the surrounding Neovim to reload changed buffers.")
	fs.Bool("strict", false, "Exit non-zero when any record failed.")
	fs.BoolP("verbose", "v", false, "Enable debug logging.")
}

// AddApplyFlags defines the flags of the apply command.
func AddApplyFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "auto", "Payload format: auto, blocks or json.")
	fs.Bool("clipboard", false, "Read the response from the system clipboard.")
	fs.String("staging-dir", ".promp-in", "Directory searched for the latest staged response.")
	fs.String("staging-prefix", "in-", "File name prefix of staged responses.")
	fs.Bool("final-newline", false, "Append a trailing newline to written content that lacks one.")
}

// AddPatchFlags defines the flags of the patch command.
func AddPatchFlags(fs *pflag.FlagSet) {
	fs.String("patch-command", "patch", "Patch executable to run.")
	fs.IntP("strip", "p", 1, "Leading path components to strip from diff file names.")
	fs.Bool("fix-hunks", false, "Correct hunk line numbers against the current files first.")
	fs.BoolP("output-diff-fix", "o", false, "Print the corrected diff instead of applying it.")
}

const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitBatch    = 2
	ExitDeclined = 3
)

// ErrRecordsFailed is returned under --strict when at least one record failed.
var ErrRecordsFailed = errors.New("one or more records failed")

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrDeclined):
		return ExitDeclined
	case errors.Is(err, model.ErrNoPayloadFound),
		errors.Is(err, model.ErrMalformedBatch),
		errors.Is(err, model.ErrInvalidEncoding):
		return ExitBatch
	default:
		return ExitFailure
	}
}
