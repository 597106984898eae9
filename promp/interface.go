package promp

import (
	"context"
	"fmt"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/engine"
	"github.com/sokinpui/promp/model"
)

// Config for using promp as a library.
type Config struct {
	// Directory the record paths are resolved against (default: current directory).
	Dir string
	// Payload dialect: auto, blocks or json.
	Format model.Dialect
	// Validate and report without writing.
	DryRun bool
	// Append a trailing newline to written content that lacks one.
	FinalNewline bool
}

// Apply parses content and applies every actionable record without asking
// for confirmation. Batch-level failures are returned as *model.BatchError.
func Apply(ctx context.Context, content string, config Config) (*model.Report, error) {
	cliCfg := &cli.Config{
		Dir:           config.Dir,
		StagingPrefix: "in-",
		Format:        string(config.Format),
		Yes:           true,
		DryRun:        config.DryRun,
		FinalNewline:  config.FinalNewline,
		UI:            cli.UIPlain,
	}

	app, err := New(cliCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize promp app: %w", err)
	}
	app.SetConfirmer(engine.AutoConfirm)

	batch, err := app.Parse(content)
	if err != nil {
		return nil, err
	}
	return app.Apply(ctx, batch)
}
