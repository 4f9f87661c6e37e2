package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qledger/ledger"
	"qledger/tamper"
	qtesting "qledger/testing"
)

const (
	BlocksKey      = "blocks"
	TamperIndexKey = "tamper-index"
)

func demoCommand(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "demo",
		Short: "Admits sample transactions, prints the chain and attacks one block",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runDemo(c, e)
		},
	}
	flags := c.Flags()
	flags.Int(BlocksKey, 5, "Number of sample transactions to submit")
	flags.Uint64(TamperIndexKey, 1, "Block to tamper with after the chain is built")
	AddTamperFlags(flags)
	return c
}

func runDemo(c *cobra.Command, e *env) error {
	flags := c.Flags()
	blocks, err := flags.GetInt(BlocksKey)
	if err != nil {
		return err
	}
	index, err := flags.GetUint64(TamperIndexKey)
	if err != nil {
		return err
	}
	tcfg, err := parseTamperFlags(flags, e.cfg.Tamper)
	if err != nil {
		return err
	}

	l, err := e.openLedger(nil)
	if err != nil {
		return err
	}
	defer l.Close()

	out := c.OutOrStdout()
	ctx := c.Context()

	// 1. Build the chain
	result, err := qtesting.AddSampleBlocks(ctx, l, blocks)
	if err != nil {
		return err
	}
	for _, r := range result.Receipts {
		fmt.Fprintf(out, "block %d admitted", r.Block.Index)
		switch {
		case r.Decision.Accuracy != nil:
			fmt.Fprintf(out, " with pattern %s at %.2f%%", r.Decision.Pattern, *r.Decision.Accuracy)
		default:
			fmt.Fprintf(out, " after %d proof-of-work attempts", r.Decision.Attempts)
		}
		if r.Protocol != "" {
			fmt.Fprintf(out, ", %s key of %d bits, error rate %.3f", r.Protocol, len(r.Key), r.ErrorRate)
		}
		fmt.Fprintln(out)
		if r.EavesdropSuspected {
			color.New(color.FgYellow).Fprintf(out, "  eavesdropping suspected on block %d\n", r.Block.Index)
		}
	}
	for _, rej := range result.Rejected {
		color.New(color.FgYellow).Fprintf(out, "%v\n", rej)
	}
	fmt.Fprintln(out)

	// 2. Print and validate
	if err := l.Print(out); err != nil {
		return err
	}
	printVerdict(out, l)

	// 3. Attack
	height, err := l.Height()
	if err != nil {
		return err
	}
	if index >= height {
		color.New(color.FgYellow).Fprintf(out, "chain has %d blocks, skipping tamper simulation of block %d\n", height, index)
		return nil
	}
	report, err := tamper.New(l, tcfg, e.log, nil).Run(ctx, index)
	if report != nil {
		printReport(out, report)
	}
	if err != nil && (report == nil || !report.Exhausted) {
		return err
	}
	return nil
}

// printVerdict validates l and reports the result in colour.
func printVerdict(out io.Writer, l *ledger.Ledger) bool {
	if err := l.Validate(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(out, "Chain is invalid: %v\n", err)
		return false
	}
	color.New(color.FgGreen, color.Bold).Fprintln(out, "Chain is valid")
	return true
}
