// Package config loads the ledger's TOML configuration and builds the
// components it describes.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"
	"go.uber.org/zap"

	"qledger/admission"
	"qledger/blockchain/store"
	"qledger/ledger"
	"qledger/logging"
	"qledger/qkd"
	"qledger/tamper"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

const (
	OracleStatic  = "static"
	OracleGrover  = "grover"
	OracleCommand = "command"

	ProtocolBB84 = "bb84"
	ProtocolB92  = "b92"

	StoreMemory  = "memory"
	StoreLevelDB = "leveldb"
)

type OracleConfig struct {
	Kind string

	// static
	Accuracy float64

	// grover
	Noise float64

	// command
	Command string
	Args    []string `toml:",omitempty"`
	Timeout time.Duration

	// Seed feeds the grover sampler. Zero draws from crypto/rand.
	Seed uint64
}

type KeyAgreementConfig struct {
	Protocol string

	// bb84
	Eavesdrop bool

	// b92
	ErrorProbability float64
	TestFraction     float64

	// Seed zero draws from crypto/rand.
	Seed uint64
}

type StoreConfig struct {
	Kind      string
	Path      string `toml:",omitempty"`
	CacheSize int
}

type LogConfig struct {
	Level       string
	Development bool
}

type HTTPConfig struct {
	Addr    string
	Metrics bool
}

// Config is the top-level configuration file layout.
type Config struct {
	Ledger       ledger.Config
	Tamper       tamper.Config
	Oracle       OracleConfig
	KeyAgreement KeyAgreementConfig
	Store        StoreConfig
	Log          LogConfig
	HTTP         HTTPConfig
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	b92 := qkd.DefaultB92Options()
	return Config{
		Ledger: ledger.DefaultConfig(),
		Tamper: tamper.DefaultConfig(),
		Oracle: OracleConfig{
			Kind:     OracleGrover,
			Accuracy: 100,
			Timeout:  10 * time.Second,
		},
		KeyAgreement: KeyAgreementConfig{
			Protocol:         ProtocolBB84,
			ErrorProbability: b92.ErrorProbability,
			TestFraction:     b92.TestFraction,
		},
		Store: StoreConfig{
			Kind:      StoreMemory,
			Path:      "qledger-data",
			CacheSize: 128,
		},
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr:    ":8372",
			Metrics: true,
		},
	}
}

// Load decodes file over cfg. Fields absent from the file keep their values.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Dump writes cfg as TOML.
func Dump(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Validate reports every problem with c.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Ledger.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ledger: %w", err))
	}
	if c.Tamper.MaxAttempts == 0 && c.Tamper.Timeout <= 0 {
		errs = append(errs, errors.New("tamper: needs MaxAttempts or Timeout"))
	}

	switch c.Oracle.Kind {
	case OracleStatic:
		if c.Oracle.Accuracy < 0 || c.Oracle.Accuracy > 100 {
			errs = append(errs, errors.New("oracle: accuracy must be within [0, 100]"))
		}
	case OracleGrover:
		if c.Oracle.Noise < 0 || c.Oracle.Noise > 1 {
			errs = append(errs, errors.New("oracle: noise must be within [0, 1]"))
		}
	case OracleCommand:
		if c.Oracle.Command == "" {
			errs = append(errs, errors.New("oracle: command oracle needs a Command"))
		}
	default:
		errs = append(errs, fmt.Errorf("oracle: unknown kind %q", c.Oracle.Kind))
	}

	switch c.KeyAgreement.Protocol {
	case ProtocolBB84, ProtocolB92:
	default:
		errs = append(errs, fmt.Errorf("key agreement: unknown protocol %q", c.KeyAgreement.Protocol))
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreLevelDB:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store: leveldb needs a Path"))
		}
	default:
		errs = append(errs, fmt.Errorf("store: unknown kind %q", c.Store.Kind))
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}

func bitSource(seed uint64) qkd.BitSource {
	if seed == 0 {
		return qkd.NewCryptoSource()
	}
	return qkd.NewSeededSource(seed)
}

// BuildOracle creates the admission oracle described by c.Oracle.
func (c *Config) BuildOracle() (admission.Oracle, error) {
	switch c.Oracle.Kind {
	case OracleStatic:
		return admission.StaticOracle{Accuracy: c.Oracle.Accuracy}, nil
	case OracleGrover:
		return admission.NewGroverSimulator(bitSource(c.Oracle.Seed), c.Oracle.Noise), nil
	case OracleCommand:
		return admission.NewCommandOracle(c.Oracle.Command, c.Oracle.Args, c.Oracle.Timeout)
	default:
		return nil, fmt.Errorf("unknown oracle kind %q", c.Oracle.Kind)
	}
}

// BuildKeyAgreement creates the key agreement protocol described by
// c.KeyAgreement.
func (c *Config) BuildKeyAgreement() (qkd.KeyAgreement, error) {
	src := bitSource(c.KeyAgreement.Seed)
	switch c.KeyAgreement.Protocol {
	case ProtocolBB84:
		return qkd.NewBB84(src, qkd.BB84Options{Eavesdrop: c.KeyAgreement.Eavesdrop}), nil
	case ProtocolB92:
		return qkd.NewB92(src, qkd.B92Options{
			ErrorProbability: c.KeyAgreement.ErrorProbability,
			TestFraction:     c.KeyAgreement.TestFraction,
		}), nil
	default:
		return nil, fmt.Errorf("unknown key agreement protocol %q", c.KeyAgreement.Protocol)
	}
}

// OpenStore opens the chain store described by c.Store.
func (c *Config) OpenStore(log *zap.Logger) (store.ChainStore, error) {
	switch c.Store.Kind {
	case StoreMemory:
		return store.NewMemoryChainStore(), nil
	case StoreLevelDB:
		return store.OpenLevelDB(c.Store.Path, c.Store.CacheSize, log)
	default:
		return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
}

func (c *Config) Logger() (*zap.Logger, error) {
	return logging.New(c.Log.Level, c.Log.Development)
}
