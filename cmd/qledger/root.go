package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"qledger/config"
	"qledger/ledger"
	"qledger/metrics"
	"qledger/node"
)

const (
	ConfigKey   = "config"
	LogLevelKey = "log-level"
	DevLogKey   = "dev-log"
	StoreKey    = "store"
	DataDirKey  = "datadir"
	ModeKey     = "mode"
	OracleKey   = "oracle"
	ProtocolKey = "protocol"
)

// env is what every subcommand shares once the root has loaded the
// configuration.
type env struct {
	cfg config.Config
	log *zap.Logger
}

func rootCommand() *cobra.Command {
	e := &env{}
	c := &cobra.Command{
		Use:           "qledger",
		Short:         "A hash-linked ledger with simulated quantum key agreement and admission",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return e.load(c.Flags())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.log != nil {
				e.log.Sync()
			}
		},
	}
	AddGlobalFlags(c.PersistentFlags())

	c.AddCommand(
		demoCommand(e),
		serveCommand(e),
		validateCommand(e),
		printCommand(e),
		attackCommand(e),
		keygenCommand(e),
		dumpConfigCommand(e),
	)
	return c
}

func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.String(ConfigKey, "", "TOML configuration file")
	flags.String(LogLevelKey, "", "Log level (debug, info, warn, error)")
	flags.Bool(DevLogKey, false, "Human-readable console logs")
	flags.String(StoreKey, "", "Chain store (memory, leveldb)")
	flags.String(DataDirKey, "", "LevelDB directory")
	flags.String(ModeKey, "", "Admission mode (oracle, pow)")
	flags.String(OracleKey, "", "Oracle kind (static, grover, command)")
	flags.String(ProtocolKey, "", "Key agreement protocol (bb84, b92)")
}

// load applies defaults, the config file and then any explicitly set flags.
func (e *env) load(flags *pflag.FlagSet) error {
	e.cfg = config.Defaults()

	file, err := flags.GetString(ConfigKey)
	if err != nil {
		return err
	}
	if file != "" {
		if err := config.Load(file, &e.cfg); err != nil {
			return err
		}
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{LogLevelKey, &e.cfg.Log.Level},
		{StoreKey, &e.cfg.Store.Kind},
		{DataDirKey, &e.cfg.Store.Path},
		{OracleKey, &e.cfg.Oracle.Kind},
		{ProtocolKey, &e.cfg.KeyAgreement.Protocol},
	}
	for _, o := range overrides {
		if !flags.Changed(o.key) {
			continue
		}
		if *o.dst, err = flags.GetString(o.key); err != nil {
			return err
		}
	}
	if flags.Changed(ModeKey) {
		mode, err := flags.GetString(ModeKey)
		if err != nil {
			return err
		}
		e.cfg.Ledger.Mode = ledger.Mode(mode)
	}
	if flags.Changed(DevLogKey) {
		if e.cfg.Log.Development, err = flags.GetBool(DevLogKey); err != nil {
			return err
		}
	}

	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	e.log, err = e.cfg.Logger()
	return err
}

// openLedger builds a ledger over the configured store. The caller closes it.
func (e *env) openLedger(m *metrics.Metrics) (*ledger.Ledger, error) {
	return node.OpenLedger(e.cfg, e.log, m)
}
