// Package metrics exposes ledger activity as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qledger"

// Rejection reasons.
const (
	ReasonBelowThreshold = "below_threshold"
	ReasonKeyAgreement   = "key_agreement"
	ReasonSearch         = "search_exhausted"
	ReasonOracle         = "oracle_error"
	ReasonIndex          = "index_mismatch"
)

// Metrics is safe to use through a nil pointer, in which case every
// observation is dropped.
type Metrics struct {
	registry *prometheus.Registry

	blocksAdmitted *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	accuracy       prometheus.Histogram
	keyErrorRate   prometheus.Histogram
	keyLength      prometheus.Histogram
	powAttempts    prometheus.Histogram
	chainHeight    prometheus.Gauge
	validations    *prometheus.CounterVec
	tamperRuns     *prometheus.CounterVec
	tamperAttempts prometheus.Histogram
}

// New registers the ledger collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blocksAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_admitted_total",
			Help:      "Number of blocks appended to the chain",
		}, []string{"gate"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_failures_total",
			Help:      "Number of candidates discarded, by reason",
		}, []string{"reason"}),
		accuracy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_accuracy_percent",
			Help:      "Accuracy reported by the admission oracle",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		keyErrorRate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_error_rate",
			Help:      "Error rate estimated by key agreement",
			Buckets:   []float64{0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.5, 1},
		}),
		keyLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_length_bits",
			Help:      "Length of the sifted key used to encrypt a payload",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		powAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pow_attempts",
			Help:      "Hash evaluations needed to mine a block",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		chainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "Number of blocks in the chain, genesis included",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Number of full chain validations, by result",
		}, []string{"result"}),
		tamperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tamper_runs_total",
			Help:      "Number of tamper simulations, by whether the validator caught them",
		}, []string{"detected"}),
		tamperAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tamper_attempts",
			Help:      "Timestamp bumps needed to forge a matching hash",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 14),
		}),
	}

	err := errors.Join(
		m.registry.Register(collectors.NewGoCollector()),
		m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
		m.registry.Register(m.blocksAdmitted),
		m.registry.Register(m.rejections),
		m.registry.Register(m.accuracy),
		m.registry.Register(m.keyErrorRate),
		m.registry.Register(m.keyLength),
		m.registry.Register(m.powAttempts),
		m.registry.Register(m.chainHeight),
		m.registry.Register(m.validations),
		m.registry.Register(m.tamperRuns),
		m.registry.Register(m.tamperAttempts),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) BlockAdmitted(gate string, height uint64) {
	if m == nil {
		return
	}
	m.blocksAdmitted.WithLabelValues(gate).Inc()
	m.chainHeight.Set(float64(height))
}

func (m *Metrics) AdmissionFailed(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) OracleAccuracy(accuracy float64) {
	if m == nil {
		return
	}
	m.accuracy.Observe(accuracy)
}

func (m *Metrics) KeyAgreed(bits int, errorRate float64) {
	if m == nil {
		return
	}
	m.keyLength.Observe(float64(bits))
	m.keyErrorRate.Observe(errorRate)
}

func (m *Metrics) Mined(attempts uint64) {
	if m == nil {
		return
	}
	m.powAttempts.Observe(float64(attempts))
}

func (m *Metrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.chainHeight.Set(float64(height))
}

func (m *Metrics) Validated(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) TamperRun(attempts uint64, detected bool) {
	if m == nil {
		return
	}
	label := "false"
	if detected {
		label = "true"
	}
	m.tamperRuns.WithLabelValues(label).Inc()
	m.tamperAttempts.Observe(float64(attempts))
}
