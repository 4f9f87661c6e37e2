package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var errChainInvalid = errors.New("chain failed validation")

func validateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Rehashes the stored chain and checks every link",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			l, err := e.openLedger(nil)
			if err != nil {
				return err
			}
			defer l.Close()

			if !printVerdict(c.OutOrStdout(), l) {
				return errChainInvalid
			}
			return nil
		},
	}
}

func printCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Prints the stored chain as a table",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			l, err := e.openLedger(nil)
			if err != nil {
				return err
			}
			defer l.Close()

			return l.Print(c.OutOrStdout())
		},
	}
}
