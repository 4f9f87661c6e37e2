package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qledger/admission"
	"qledger/blockchain"
	"qledger/blockchain/store"
	"qledger/ledger"
	"qledger/qkd"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qledger.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestDumpLoadRoundTrip(t *testing.T) {
	want := Defaults()
	want.Ledger.Mode = ledger.ModeProofOfWork
	want.Ledger.Difficulty = 3
	want.Tamper.Pattern = blockchain.Pattern{Anchor: blockchain.AnchorSuffix, Zeros: 2}
	want.Oracle.Args = []string{"--shots", "8192"}
	want.KeyAgreement.Protocol = ProtocolB92
	want.KeyAgreement.Seed = 99

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, &want))
	require.Contains(t, buf.String(), "[Ledger]")

	got := Defaults()
	require.NoError(t, Load(writeFile(t, buf.String()), &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	path := writeFile(t, `
[Ledger]
Mode = "oracle"
Threshold = 55.0

[Tamper]
Pattern = "suffix:3"

[Store]
Kind = "leveldb"
Path = "/var/lib/qledger"
`)

	cfg := Defaults()
	require.NoError(t, Load(path, &cfg))
	require.Equal(t, 55.0, cfg.Ledger.Threshold)
	require.Equal(t, admission.DefaultPatternBits, cfg.Ledger.PatternBits)
	require.Equal(t, blockchain.Pattern{Anchor: blockchain.AnchorSuffix, Zeros: 3}, cfg.Tamper.Pattern)
	require.Equal(t, StoreLevelDB, cfg.Store.Kind)
	require.Equal(t, "/var/lib/qledger", cfg.Store.Path)
	require.Equal(t, 30*time.Second, cfg.Ledger.SearchTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeFile(t, "[Ledger]\nDifficulty = 2\nReward = 50\n")

	cfg := Defaults()
	err := Load(path, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Reward")
	require.True(t, strings.HasPrefix(err.Error(), path))
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Defaults()
	require.ErrorIs(t, Load(filepath.Join(t.TempDir(), "absent.toml"), &cfg), os.ErrNotExist)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Ledger.Mode = "stake"
	cfg.Oracle.Kind = "crystal-ball"
	cfg.KeyAgreement.Protocol = "e91"
	cfg.Store.Kind = "leveldb"
	cfg.Store.Path = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"ledger", "oracle", "key agreement", "store", "log"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestBuildOracle(t *testing.T) {
	cfg := Defaults()

	cfg.Oracle.Kind = OracleStatic
	cfg.Oracle.Accuracy = 81
	oracle, err := cfg.BuildOracle()
	require.NoError(t, err)
	require.Equal(t, admission.StaticOracle{Accuracy: 81}, oracle)

	cfg.Oracle.Kind = OracleGrover
	cfg.Oracle.Seed = 5
	oracle, err = cfg.BuildOracle()
	require.NoError(t, err)
	require.IsType(t, &admission.GroverSimulator{}, oracle)

	cfg.Oracle.Kind = OracleCommand
	cfg.Oracle.Command = "qledger-no-such-oracle"
	_, err = cfg.BuildOracle()
	require.Error(t, err)
}

func TestBuildKeyAgreement(t *testing.T) {
	cfg := Defaults()
	cfg.KeyAgreement.Seed = 11

	ka, err := cfg.BuildKeyAgreement()
	require.NoError(t, err)
	require.Equal(t, "bb84", ka.Name())

	cfg.KeyAgreement.Protocol = ProtocolB92
	ka, err = cfg.BuildKeyAgreement()
	require.NoError(t, err)
	require.IsType(t, &qkd.B92{}, ka)
}

func TestOpenStore(t *testing.T) {
	cfg := Defaults()

	s, err := cfg.OpenStore(zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &store.MemoryChainStore{}, s)
	require.NoError(t, s.Close())

	cfg.Store.Kind = StoreLevelDB
	cfg.Store.Path = filepath.Join(t.TempDir(), "chain")
	s, err = cfg.OpenStore(zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &store.LevelDBChainStore{}, s)
	require.NoError(t, s.Close())
}
