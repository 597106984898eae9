package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *command) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(c.cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if c.cfg.ConfigFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", c.cfg.ConfigFile)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
