package main

import (
	"os"

	"github.com/spf13/cobra"

	"qledger/config"
)

func dumpConfigCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dumpconfig [file]",
		Short: "Shows configuration values",
		Long:  "The dumpconfig command writes the effective configuration as TOML to stdout or to file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return config.Dump(c.OutOrStdout(), &e.cfg)
			}

			dump, err := os.OpenFile(args[0], os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer dump.Close()
			return config.Dump(dump, &e.cfg)
		},
	}
}
