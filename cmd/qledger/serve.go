package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qledger/node"
)

const AddrKey = "addr"

func serveCommand(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serves the ledger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg := e.cfg
			if c.Flags().Changed(AddrKey) {
				var err error
				if cfg.HTTP.Addr, err = c.Flags().GetString(AddrKey); err != nil {
					return err
				}
			}

			n, err := node.NewFullNode(cfg, e.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := n.Stop(); err != nil {
					e.log.Error("failed to stop node", zap.Error(err))
				}
			}()

			return n.Start(c.Context())
		},
	}
	c.Flags().String(AddrKey, "", "HTTP listen address")
	return c
}
