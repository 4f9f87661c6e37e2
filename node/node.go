// Package node assembles a running ledger service from a configuration: the
// chain store, the ledger with its admission gate, the tamper simulator, the
// metrics registry and the HTTP API.
package node

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"qledger/admission"
	"qledger/api"
	"qledger/config"
	"qledger/ledger"
	"qledger/logging"
	"qledger/metrics"
	"qledger/tamper"
)

// FullNode owns every component of a ledger service
type FullNode struct {
	config config.Config
	log    *zap.Logger

	// Core ledger; it owns the chain store
	ledger *ledger.Ledger

	metrics *metrics.Metrics
	tamper  *tamper.Simulator
	server  *api.Server
}

// NewFullNode opens the configured store and builds the ledger and its
// services. The caller must Stop the node.
func NewFullNode(cfg config.Config, log *zap.Logger) (*FullNode, error) {
	log = logging.OrNop(log)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	n := &FullNode{config: cfg, log: log}

	// 1. Metrics
	if cfg.HTTP.Metrics {
		m, err := metrics.New()
		if err != nil {
			return nil, err
		}
		n.metrics = m
	}

	// 2. Store and ledger
	l, err := OpenLedger(cfg, log, n.metrics)
	if err != nil {
		return nil, err
	}
	n.ledger = l

	// 3. Services over the ledger
	n.tamper = tamper.New(l, cfg.Tamper, log, n.metrics)
	n.server = api.NewServer(l, n.tamper, n.metrics, cfg.HTTP.Addr, log)

	return n, nil
}

// OpenLedger builds a ledger over the store cfg describes. Closing the ledger
// closes the store.
func OpenLedger(cfg config.Config, log *zap.Logger, m *metrics.Metrics) (*ledger.Ledger, error) {
	st, err := cfg.OpenStore(log)
	if err != nil {
		return nil, err
	}

	params := ledger.Params{
		Config:  cfg.Ledger,
		Store:   st,
		Logger:  log,
		Metrics: m,
	}
	if cfg.Ledger.Encrypt {
		if params.KeyAgreement, err = cfg.BuildKeyAgreement(); err != nil {
			return nil, errors.Join(err, st.Close())
		}
	}
	if cfg.Ledger.Mode == ledger.ModeOracle {
		var oracle admission.Oracle
		if oracle, err = cfg.BuildOracle(); err != nil {
			return nil, errors.Join(err, st.Close())
		}
		params.Oracle = oracle
	}

	l, err := ledger.New(params)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}
	return l, nil
}

// Start serves the HTTP API until ctx is cancelled.
func (n *FullNode) Start(ctx context.Context) error {
	height, err := n.ledger.Height()
	if err != nil {
		return err
	}
	n.log.Info("full node started",
		zap.String("addr", n.config.HTTP.Addr),
		zap.String("store", n.config.Store.Kind),
		zap.String("mode", string(n.config.Ledger.Mode)),
		zap.Uint64("height", height),
	)
	return n.server.Start(ctx)
}

// Stop closes the ledger and its store.
func (n *FullNode) Stop() error {
	n.log.Info("stopping full node")
	return n.ledger.Close()
}

func (n *FullNode) Ledger() *ledger.Ledger { return n.ledger }

func (n *FullNode) Tamper() *tamper.Simulator { return n.tamper }

func (n *FullNode) Server() *api.Server { return n.server }
