package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"qledger/admission"
	"qledger/api/handlers"
	"qledger/blockchain"
	"qledger/ledger"
	"qledger/metrics"
	"qledger/qkd"
	"qledger/tamper"
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Ledger) {
	t.Helper()

	m, err := metrics.New()
	require.NoError(t, err)

	l, err := ledger.New(ledger.Params{
		Config:       ledger.DefaultConfig(),
		KeyAgreement: qkd.NewBB84(qkd.NewSeededSource(3), qkd.BB84Options{}),
		Oracle:       admission.StaticOracle{Accuracy: 88},
		Metrics:      m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	cfg := tamper.DefaultConfig()
	cfg.Pattern = blockchain.Pattern{Anchor: blockchain.AnchorPrefix, Zeros: 2}
	sim := tamper.New(l, cfg, nil, m)

	server := httptest.NewServer(NewServer(l, sim, m, "", nil).Handler())
	t.Cleanup(server.Close)
	return server, l
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestAPIIntegration(t *testing.T) {
	server, l := newTestServer(t)

	t.Run("GET /api/chain/height", func(t *testing.T) {
		var response map[string]uint64
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/chain/height", &response))
		// genesis only
		require.Equal(t, uint64(1), response["height"])
	})

	t.Run("GET /api/chain/head", func(t *testing.T) {
		var block blockchain.Block
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/chain/head", &block))
		require.True(t, blockchain.IsGenesis(&block))
	})

	t.Run("POST /api/transactions", func(t *testing.T) {
		for i, body := range []string{
			`{"sender":"alice","recipient":"bob","amount":5}`,
			`{"sender":"bob","recipient":"carol","amount":3}`,
		} {
			resp, err := http.Post(server.URL+"/api/transactions", "application/json", strings.NewReader(body))
			require.NoError(t, err)

			var response handlers.SubmitResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
			resp.Body.Close()

			require.Equal(t, http.StatusCreated, resp.StatusCode)
			require.Equal(t, "admitted", response.Status)
			require.Equal(t, uint64(i+1), response.Block.Index)
			require.NotNil(t, response.Block.MiningAccuracy)
			require.Equal(t, 88.0, *response.Block.MiningAccuracy)
		}
	})

	t.Run("GET /api/transactions is not routed", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/transactions")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("GET /api/blocks", func(t *testing.T) {
		var blocks []*blockchain.Block
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/blocks", &blocks))
		require.Len(t, blocks, 3)
		require.Equal(t, blocks[1].Hash, blocks[2].PreviousHash)
	})

	t.Run("GET /api/blocks/{index}", func(t *testing.T) {
		var block blockchain.Block
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/blocks/2", &block))
		require.Equal(t, uint64(2), block.Index)

		require.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/blocks/7", nil))
	})

	t.Run("GET /api/blocks/hash/{hash}", func(t *testing.T) {
		want, err := l.Block(1)
		require.NoError(t, err)

		var block blockchain.Block
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/blocks/hash/"+want.Hash, &block))
		require.Equal(t, want.Hash, block.Hash)
	})

	t.Run("GET /api/chain/validate", func(t *testing.T) {
		var response handlers.ValidationResponse
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/chain/validate", &response))
		require.True(t, response.Valid)
		require.Nil(t, response.Violation)
	})

	t.Run("POST /api/tamper/{index}", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/tamper/1", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		var response handlers.TamperResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, response.Detected)
		require.Equal(t, uint64(1), response.Violation.Index)
		require.Equal(t, blockchain.HashMismatch, response.Violation.Kind)
		require.True(t, strings.HasPrefix(response.ForgedHash, "00"))
		require.True(t, response.ValidAfterRestore)
		require.True(t, l.IsChainValid())
	})

	t.Run("GET /api/chain/print", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/chain/print")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "PREVIOUS HASH")
		require.Contains(t, string(body), "88.00%")
	})

	t.Run("GET /metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.True(t, bytes.Contains(body, []byte("qledger_blocks_admitted_total")))
	})
}
