package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/ui"
	"github.com/sokinpui/promp/model"
	"github.com/sokinpui/promp/promp"
)

func (c *command) newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [file|-]",
		Short: "Apply the changes in a response (the default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runApply,
	}
	cmd.Flags().SortFlags = false
	cli.AddApplyFlags(cmd.Flags())
	return cmd
}

func (c *command) runApply(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	app, err := promp.New(c.cfg)
	if err != nil {
		return err
	}

	if !c.cfg.Verbose && isatty.IsTerminal(os.Stderr.Fd()) {
		var bar *ui.ProgressBar
		app.SetProgressCallback(func(_ model.ApplyResult, current, total int) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Applying")
				bar.Start()
			}
			bar.Set(current)
			if current == total {
				bar.Finish()
			}
		})
	}

	report, err := app.Execute(cmd.Context(), arg)
	if err != nil {
		return err
	}

	ui.PrintReport(cmd.OutOrStdout(), report)
	if c.cfg.Strict && report.Summary.Failed > 0 {
		return cli.ErrRecordsFailed
	}
	return nil
}
