package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/logging"
	"github.com/sokinpui/promp/internal/ui"
	"github.com/sokinpui/promp/model"
	"github.com/sokinpui/promp/promp"
)

// command carries the configuration loaded before any subcommand runs.
type command struct {
	cfg *cli.Config
}

func newRootCmd() *cobra.Command {
	c := &command{}
	root := &cobra.Command{
		Use:   "promp [file|-]",
		Short: "Apply the file changes in an LLM response to the working tree",
		Long: `promp reads an LLM response, extracts the file changes it carries
("---- path ----" blocks or a {"changes":[...]} JSON document), shows them
for confirmation and writes them to the working tree.

With no argument the latest staged response (.promp-in/in-*) is used; "-"
reads stdin and --clipboard reads the system clipboard.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
		RunE:              c.runApply,
	}
	root.PersistentFlags().SortFlags = false
	root.Flags().SortFlags = false
	cli.AddGlobalFlags(root.PersistentFlags())
	cli.AddApplyFlags(root.Flags())

	root.AddCommand(c.newApplyCmd(), c.newPatchCmd(), c.newConfigCmd())
	return root
}

func (c *command) load(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := cli.Load(cmd.Flags(), configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Verbose)
	c.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(err)
	}
	os.Exit(cli.ExitCode(err))
}

func printError(err error) {
	var detailed *promp.DetailedError
	var rejected *model.PatchRejectedError
	switch {
	case errors.Is(err, model.ErrDeclined):
		ui.Warning("Cancelled, no files were changed.")
	case errors.As(err, &detailed):
		ui.Error("Error: %v", err)
		fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
	case errors.As(err, &rejected):
		ui.Error("patch failed with exit status %d", rejected.ExitCode)
	default:
		ui.Error("Error: %v", err)
	}
}
