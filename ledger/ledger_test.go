package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"qledger/admission"
	"qledger/blockchain"
	"qledger/blockchain/store"
	"qledger/mocks"
	"qledger/qkd"
	"qledger/streamcipher"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func candidate(index uint64, sender, recipient string, amount uint64) *blockchain.Block {
	return blockchain.NewBlock(blockchain.BlockCreationParams{
		Index:        index,
		Transaction:  &blockchain.Transaction{Sender: sender, Recipient: recipient, Amount: amount},
		PreviousHash: "stale",
		Timestamp:    1700000100 + float64(index),
	})
}

func newOracleLedger(t *testing.T, accuracy float64) *Ledger {
	t.Helper()
	l, err := New(Params{
		Config:       DefaultConfig(),
		KeyAgreement: qkd.NewBB84(qkd.NewSeededSource(1), qkd.BB84Options{}),
		Oracle:       admission.StaticOracle{Accuracy: accuracy},
		Now:          fixedClock(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestGenesisOnlyLedgerIsValid(t *testing.T) {
	l := newOracleLedger(t, 100)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	genesis, err := l.Block(0)
	require.NoError(t, err)
	require.True(t, blockchain.IsGenesis(genesis))
	require.Equal(t, blockchain.HashBlock(genesis), genesis.Hash)
	require.True(t, l.IsChainValid())
}

func TestOracleGate(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().Name().Return("mock").AnyTimes()

	l, err := New(Params{
		Config:       DefaultConfig(),
		KeyAgreement: qkd.NewBB84(qkd.NewSeededSource(2), qkd.BB84Options{}),
		Oracle:       oracle,
	})
	require.NoError(t, err)
	defer l.Close()

	t.Run("accuracy at or above threshold appends", func(t *testing.T) {
		oracle.EXPECT().Measure(gomock.Any(), "001").Return(81.25, nil)

		receipt, err := l.AddBlock(context.Background(), candidate(1, "Alice", "Bob", 1))
		require.NoError(t, err)
		require.NotNil(t, receipt.Block.MiningAccuracy)
		require.Equal(t, 81.25, *receipt.Block.MiningAccuracy)

		stored, err := l.Block(1)
		require.NoError(t, err)
		require.Equal(t, receipt.Block, stored)

		genesis, err := l.Block(0)
		require.NoError(t, err)
		require.Equal(t, genesis.Hash, stored.PreviousHash)
		require.True(t, l.IsChainValid())
	})

	t.Run("accuracy below threshold leaves chain unchanged", func(t *testing.T) {
		before, err := l.Blocks()
		require.NoError(t, err)

		oracle.EXPECT().Measure(gomock.Any(), "010").Return(69.9, nil)
		_, err = l.AddBlock(context.Background(), candidate(2, "Bob", "Carol", 2))

		var rejected AdmissionRejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, uint64(2), rejected.Index)
		require.Equal(t, 69.9, rejected.Accuracy)
		require.Equal(t, 70.0, rejected.Threshold)

		after, err := l.Blocks()
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("oracle failure leaves chain unchanged", func(t *testing.T) {
		oracle.EXPECT().Measure(gomock.Any(), "010").Return(0.0, errors.New("backend offline"))
		_, err := l.AddBlock(context.Background(), candidate(2, "Bob", "Carol", 2))
		require.ErrorContains(t, err, "backend offline")

		height, err := l.Height()
		require.NoError(t, err)
		require.Equal(t, uint64(2), height)
	})

	t.Run("index wraps after eight blocks", func(t *testing.T) {
		oracle.EXPECT().Measure(gomock.Any(), gomock.Any()).Return(90.0, nil).Times(7)
		for i := uint64(2); i <= 8; i++ {
			_, err := l.AddBlock(context.Background(), candidate(i, "Alice", "Bob", i))
			require.NoError(t, err)
		}

		oracle.EXPECT().Measure(gomock.Any(), "001").Return(90.0, nil)
		_, err := l.AddBlock(context.Background(), candidate(9, "Alice", "Bob", 9))
		require.NoError(t, err)
		require.True(t, l.IsChainValid())
	})
}

func TestProofOfWorkScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeProofOfWork
	cfg.Encrypt = false

	l, err := New(Params{Config: cfg, Now: fixedClock()})
	require.NoError(t, err)
	defer l.Close()

	receipt, err := l.AddBlock(context.Background(), candidate(1, "Alice", "Bob", 1))
	require.NoError(t, err)

	block := receipt.Block
	require.Equal(t, "00", block.Hash[:2])
	require.Nil(t, block.MiningAccuracy)
	require.Equal(t, blockchain.RecordPayload(blockchain.Transaction{Sender: "Alice", Recipient: "Bob", Amount: 1}), block.Transactions)

	blocks, err := l.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, blocks[0].Hash, blocks[1].PreviousHash)
	require.True(t, l.IsChainValid())
}

func TestProofOfWorkDifficulty(t *testing.T) {
	for _, difficulty := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("difficulty %d", difficulty), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = ModeProofOfWork
			cfg.Difficulty = difficulty

			l, err := New(Params{
				Config:       cfg,
				KeyAgreement: qkd.NewB92(qkd.NewSeededSource(uint64(difficulty)), qkd.DefaultB92Options()),
				Now:          fixedClock(),
			})
			require.NoError(t, err)
			defer l.Close()

			for i := uint64(1); i <= 3; i++ {
				receipt, err := l.AddBlock(context.Background(), candidate(i, fmt.Sprintf("sender_%d", i), fmt.Sprintf("recipient_%d", i), i*100))
				require.NoError(t, err)
				require.True(t, blockchain.HashMeetsDifficulty(receipt.Block.Hash, difficulty))
			}
			require.True(t, l.IsChainValid())
		})
	}
}

func TestProofOfWorkExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeProofOfWork
	cfg.Encrypt = false
	cfg.Difficulty = 64
	cfg.MaxAttempts = 10

	l, err := New(Params{Config: cfg})
	require.NoError(t, err)
	defer l.Close()

	_, err = l.AddBlock(context.Background(), candidate(1, "Alice", "Bob", 1))
	var exhausted blockchain.SearchExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, uint64(10), exhausted.Attempts)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
}

func TestEncryptedPayloadRoundTrip(t *testing.T) {
	agreements := []qkd.KeyAgreement{
		qkd.NewBB84(qkd.NewSeededSource(5), qkd.BB84Options{}),
		qkd.NewB92(qkd.NewSeededSource(5), qkd.DefaultB92Options()),
	}
	for _, ka := range agreements {
		t.Run(ka.Name(), func(t *testing.T) {
			l, err := New(Params{Config: DefaultConfig(), KeyAgreement: ka, Oracle: admission.StaticOracle{Accuracy: 75}})
			require.NoError(t, err)
			defer l.Close()

			tx := blockchain.Transaction{Sender: "Zoë", Recipient: "Bob", Amount: 42}
			c := candidate(1, tx.Sender, tx.Recipient, tx.Amount)
			receipt, err := l.AddBlock(context.Background(), c)
			require.NoError(t, err)

			require.Equal(t, ka.Name(), receipt.Protocol)
			require.Equal(t, blockchain.PayloadOpaque, receipt.Block.Transactions.Kind)
			require.NotEmpty(t, receipt.Key)

			payload, err := receipt.Plaintext()
			require.NoError(t, err)
			require.Equal(t, blockchain.RecordPayload(tx), payload)

			// the caller's candidate is not touched
			require.Equal(t, blockchain.PayloadRecord, c.Transactions.Kind)
			require.True(t, l.IsChainValid())
		})
	}
}

func TestEmptyKeyIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	keys := mocks.NewMockKeyAgreement(ctrl)
	keys.EXPECT().Name().Return("mock").AnyTimes()
	keys.EXPECT().Generate(gomock.Any()).Return(qkd.Result{Key: qkd.Key{}})

	l, err := New(Params{Config: DefaultConfig(), KeyAgreement: keys, Oracle: admission.StaticOracle{Accuracy: 100}})
	require.NoError(t, err)
	defer l.Close()

	_, err = l.AddBlock(context.Background(), candidate(1, "Alice", "Bob", 1))
	var kaErr KeyAgreementError
	require.ErrorAs(t, err, &kaErr)
	require.ErrorIs(t, err, streamcipher.ErrEmptyKey)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
}

func TestKeyLengthFollowsPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	keys := mocks.NewMockKeyAgreement(ctrl)
	keys.EXPECT().Name().Return("mock").AnyTimes()

	c := candidate(1, "Alice", "Bob", 1)
	want := len(c.Transactions.Canonical()) * 8
	keys.EXPECT().Generate(want).Return(qkd.Result{Key: qkd.Key{1, 0, 1, 1}, ErrorRate: 0.5})

	l, err := New(Params{Config: DefaultConfig(), KeyAgreement: keys, Oracle: admission.StaticOracle{Accuracy: 100}})
	require.NoError(t, err)
	defer l.Close()

	receipt, err := l.AddBlock(context.Background(), c)
	require.NoError(t, err)
	require.True(t, receipt.EavesdropSuspected)
	require.Equal(t, 0.5, receipt.ErrorRate)
}

func TestIndexMismatch(t *testing.T) {
	l := newOracleLedger(t, 100)

	for _, index := range []uint64{0, 2, 7} {
		_, err := l.AddBlock(context.Background(), candidate(index, "Alice", "Bob", 1))
		var mismatch IndexMismatchError
		require.ErrorAs(t, err, &mismatch)
		require.Equal(t, uint64(1), mismatch.Height)
	}

	_, err := l.AddBlock(context.Background(), nil)
	require.Error(t, err)
}

func TestValidateDetectsMutation(t *testing.T) {
	mutations := map[string]func(b *blockchain.Block){
		"transactions": func(b *blockchain.Block) {
			b.Transactions = blockchain.OpaquePayload("Altered Transactions")
		},
		"timestamp": func(b *blockchain.Block) {
			b.Timestamp += 1
		},
	}

	for name, mutate := range mutations {
		for _, target := range []uint64{0, 1, 2, 3} {
			t.Run(fmt.Sprintf("%s of block %d", name, target), func(t *testing.T) {
				l := newOracleLedger(t, 100)
				for i := uint64(1); i <= 3; i++ {
					_, err := l.AddBlock(context.Background(), candidate(i, "Alice", "Bob", i))
					require.NoError(t, err)
				}

				err := l.Exclusive(func(v *View) error {
					b, err := v.Block(target)
					if err != nil {
						return err
					}
					mutate(b)
					return v.Replace(b)
				})
				require.NoError(t, err)

				err = l.Validate()
				var violation blockchain.IntegrityViolation
				require.ErrorAs(t, err, &violation)
				require.Equal(t, target, violation.Index)
				require.Equal(t, blockchain.HashMismatch, violation.Kind)
				require.False(t, l.IsChainValid())
			})
		}
	}
}

func TestLookupOutOfRange(t *testing.T) {
	l := newOracleLedger(t, 100)

	_, err := l.Block(3)
	var outOfRange blockchain.IndexOutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
	require.Equal(t, uint64(3), outOfRange.Index)

	head, err := l.Head()
	require.NoError(t, err)
	byHash, err := l.BlockByHash(head.Hash)
	require.NoError(t, err)
	require.Equal(t, head, byHash)
}

func TestPrintDoesNotMutate(t *testing.T) {
	l := newOracleLedger(t, 88)
	_, err := l.AddBlock(context.Background(), candidate(1, "Alice", "Bob", 1))
	require.NoError(t, err)

	before, err := l.Blocks()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.Print(&buf))
	require.Contains(t, buf.String(), "88.00%")
	require.Contains(t, buf.String(), "N/A")

	after, err := l.Blocks()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPersistentLedger(t *testing.T) {
	dir := t.TempDir()

	open := func() *Ledger {
		s, err := store.OpenLevelDB(dir, 16, nil)
		require.NoError(t, err)
		l, err := New(Params{
			Config:       DefaultConfig(),
			Store:        s,
			KeyAgreement: qkd.NewBB84(qkd.NewSeededSource(3), qkd.BB84Options{}),
			Oracle:       admission.StaticOracle{Accuracy: 90},
		})
		require.NoError(t, err)
		return l
	}

	l := open()
	for i := uint64(1); i <= 4; i++ {
		_, err := l.AddBlock(context.Background(), candidate(i, "Alice", "Bob", i))
		require.NoError(t, err)
	}
	before, err := l.Blocks()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l = open()
	defer l.Close()
	after, err := l.Blocks()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.True(t, l.IsChainValid())

	_, err = l.AddBlock(context.Background(), candidate(5, "Alice", "Bob", 5))
	require.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Mode = "quantum"
	require.ErrorIs(t, cfg.Validate(), errUnknownMode)

	cfg = DefaultConfig()
	cfg.Threshold = 120
	cfg.KeyLength = -1
	err := cfg.Validate()
	require.ErrorIs(t, err, errThresholdRange)
	require.ErrorIs(t, err, errKeyLength)

	cfg = DefaultConfig()
	cfg.Mode = ModeProofOfWork
	cfg.MaxAttempts = 0
	cfg.SearchTimeout = 0
	require.ErrorIs(t, cfg.Validate(), errUnboundedSearch)

	_, err = New(Params{Config: DefaultConfig()})
	require.Error(t, err)
}
