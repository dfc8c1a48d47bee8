// Package metrics provides Prometheus metrics collection for rewardctl.
package metrics

import (
	"time"

	"github.com/artpar/rewardctl/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rewardctl"

// Collector holds all Prometheus metrics for rewardctl.
// A nil *Collector is valid; its helper methods do nothing.
type Collector struct {
	// Gateway request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Codec metrics
	CodecOps *prometheus.CounterVec

	// Transaction metrics
	TxTotal    *prometheus.CounterVec
	TxDuration *prometheus.HistogramVec
	TxGasUsed  *prometheus.CounterVec

	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of gateway requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Gateway request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of gateway requests currently being processed",
			},
		),

		CodecOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "codec_operations_total",
				Help:      "Total number of encode and decode operations",
			},
			[]string{"op", "type", "result"},
		),

		TxTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transactions submitted",
			},
			[]string{"type", "result"},
		),
		TxDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Time from signing to confirmation in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"type"},
		),
		TxGasUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_gas_used_total",
				Help:      "Total gas used by committed transactions",
			},
			[]string{"type"},
		),

		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of chain queries",
			},
			[]string{"query", "result"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Chain query duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"query"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// Result labels.
const (
	ResultOK     = ports.OutcomeOK
	ResultError  = ports.OutcomeError
	ResultFailed = ports.OutcomeFailed
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// CodecOp counts one encode or decode of typeName.
func (c *Collector) CodecOp(op, typeName string, err error) {
	if c == nil {
		return
	}
	c.CodecOps.WithLabelValues(op, typeName, result(err)).Inc()
}

// Tx records a submitted transaction. res is one of the Result labels.
func (c *Collector) Tx(typeName, res string, d time.Duration, gasUsed int64) {
	if c == nil {
		return
	}
	c.TxTotal.WithLabelValues(typeName, res).Inc()
	c.TxDuration.WithLabelValues(typeName).Observe(d.Seconds())
	if gasUsed > 0 {
		c.TxGasUsed.WithLabelValues(typeName).Add(float64(gasUsed))
	}
}

// Query records a chain query.
func (c *Collector) Query(name string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.QueriesTotal.WithLabelValues(name, result(err)).Inc()
	c.QueryDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ConfigReloaded records a config reload attempt.
func (c *Collector) ConfigReloaded(at time.Time, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

var _ ports.Metrics = (*Collector)(nil)
