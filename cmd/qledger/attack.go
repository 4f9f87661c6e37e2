package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"qledger/blockchain"
	"qledger/tamper"
)

const (
	PatternKey     = "pattern"
	SentinelKey    = "sentinel"
	InstallHashKey = "install-forged-hash"
	AttemptsKey    = "max-attempts"
)

func AddTamperFlags(flags *pflag.FlagSet) {
	flags.String(PatternKey, "", "Hash pattern the forged block must match (prefix:N or suffix:N)")
	flags.String(SentinelKey, "", "Payload written into the attacked block")
	flags.Bool(InstallHashKey, false, "Store the forged hash in the attacked block")
	flags.Uint64(AttemptsKey, 0, "Maximum forging attempts")
}

func parseTamperFlags(flags *pflag.FlagSet, cfg tamper.Config) (tamper.Config, error) {
	if flags.Changed(PatternKey) {
		s, err := flags.GetString(PatternKey)
		if err != nil {
			return cfg, err
		}
		if cfg.Pattern, err = blockchain.ParsePattern(s); err != nil {
			return cfg, err
		}
	}
	if flags.Changed(SentinelKey) {
		s, err := flags.GetString(SentinelKey)
		if err != nil {
			return cfg, err
		}
		cfg.Sentinel = s
	}
	if flags.Changed(InstallHashKey) {
		b, err := flags.GetBool(InstallHashKey)
		if err != nil {
			return cfg, err
		}
		cfg.InstallForgedHash = b
	}
	if flags.Changed(AttemptsKey) {
		n, err := flags.GetUint64(AttemptsKey)
		if err != nil {
			return cfg, err
		}
		cfg.MaxAttempts = n
	}
	return cfg, nil
}

func attackCommand(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "attack <index>",
		Short: "Tampers with a committed block and checks that validation notices",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block index %q: %w", args[0], err)
			}
			cfg, err := parseTamperFlags(c.Flags(), e.cfg.Tamper)
			if err != nil {
				return err
			}

			l, err := e.openLedger(nil)
			if err != nil {
				return err
			}
			defer l.Close()

			report, err := tamper.New(l, cfg, e.log, nil).Run(c.Context(), index)
			if report != nil {
				printReport(c.OutOrStdout(), report)
			}
			return err
		},
	}
	AddTamperFlags(c.Flags())
	return c
}

func printReport(out io.Writer, r *tamper.Report) {
	fmt.Fprintf(out, "Tampered with block %d: forged hash %s (%s) after %d attempts in %s\n",
		r.Index, r.ForgedHash, r.Pattern, r.Attempts, r.Elapsed)
	if r.Exhausted {
		color.New(color.FgYellow).Fprintln(out, "Forgery search exhausted before the pattern matched")
	}

	if r.Detected() {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "Tampering detected: %v\n", *r.Violation)
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(out, "Tampering went unnoticed")
	}

	switch {
	case !r.Restored:
		color.New(color.FgRed).Fprintln(out, "Original block was not restored")
	case r.ValidAfterRestore:
		color.New(color.FgGreen).Fprintln(out, "Original block restored, chain is valid")
	default:
		color.New(color.FgRed).Fprintln(out, "Original block restored, chain is still invalid")
	}
}
