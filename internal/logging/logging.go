package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "15:04:05.000"

// NewHandler builds a tint handler writing to w. Colors are enabled only
// when w is a terminal.
func NewHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    !isTerminal(w),
	})
}

// Setup installs the default logger. Diagnostics go to stderr so stdout
// stays free for the report.
func Setup(verbose bool) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, verbose))
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
