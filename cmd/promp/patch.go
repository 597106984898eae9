package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sokinpui/promp/cli"
	"github.com/sokinpui/promp/internal/ui"
	"github.com/sokinpui/promp/model"
	"github.com/sokinpui/promp/promp"
)

func (c *command) newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <diff>",
		Short: "Forward a unified diff to the external patch tool",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runPatch,
	}
	cmd.Flags().SortFlags = false
	cli.AddPatchFlags(cmd.Flags())
	return cmd
}

func (c *command) runPatch(cmd *cobra.Command, args []string) error {
	app, err := promp.New(c.cfg)
	if err != nil {
		return err
	}

	if fix, _ := cmd.Flags().GetBool("output-diff-fix"); fix {
		return app.WriteFixedDiff(cmd.OutOrStdout(), args[0])
	}

	res, err := app.Patch(cmd.Context(), args[0])
	var rejected *model.PatchRejectedError
	switch {
	case errors.As(err, &rejected):
		ui.PrintPatchOutput(cmd.ErrOrStderr(), rejected.Stdout, rejected.Stderr)
		return err
	case err != nil:
		return err
	}

	for _, w := range res.Warnings {
		ui.Warning("warning: %s", w)
	}
	ui.PrintPatchOutput(cmd.OutOrStdout(), res.Stdout, res.Stderr)

	if c.cfg.DryRun {
		ui.Info("Dry run: %d file(s) checked, nothing was changed.", len(res.Targets))
		return nil
	}
	ui.Success("Patched %d file(s):", len(res.Targets))
	for _, target := range res.Targets {
		ui.Path("%s", target)
	}
	return nil
}
