package structs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricConst string

const (
	MetricSignalReceived   MetricConst = "ecb_signal_received_total"
	MetricSignalRejected   MetricConst = "ecb_signal_rejected_total"
	MetricOrderPlaced      MetricConst = "ecb_order_placed_total"
	MetricOrderFailed      MetricConst = "ecb_order_failed_total"
	MetricOrderCancelled   MetricConst = "ecb_order_cancelled_total"
	MetricPositionOpened   MetricConst = "ecb_position_activated_total"
	MetricPositionClosed   MetricConst = "ecb_position_closed_total"
	MetricTrailingAdjusted MetricConst = "ecb_trailing_stop_adjusted_total"
	MetricCycleFailed      MetricConst = "ecb_reconcile_cycle_failed_total"
	MetricQuoteMissing     MetricConst = "ecb_quote_missing_total"

	MetricCycleDuration MetricConst = "ecb_reconcile_cycle_seconds"
)

func (m MetricConst) ToString() string {
	return string(m)
}

var counters = []MetricConst{
	MetricSignalReceived,
	MetricSignalRejected,
	MetricOrderPlaced,
	MetricOrderFailed,
	MetricOrderCancelled,
	MetricPositionOpened,
	MetricPositionClosed,
	MetricTrailingAdjusted,
	MetricCycleFailed,
	MetricQuoteMissing,
}

type Metrics struct {
	Counter       map[MetricConst]prometheus.Counter
	CycleDuration prometheus.Histogram
}

// NewMetrics registers every metric with reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := Metrics{Counter: map[MetricConst]prometheus.Counter{}}
	for _, name := range counters {
		m.Counter[name] = factory.NewCounter(prometheus.CounterOpts{
			Name: name.ToString(),
			Help: name.ToString(),
		})
	}

	m.CycleDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricCycleDuration.ToString(),
		Help:    "Duration of one reconciliation cycle.",
		Buckets: prometheus.DefBuckets,
	})

	return &m
}

func (m *Metrics) Inc(name MetricConst) {
	if m == nil {
		return
	}
	if c, ok := m.Counter[name]; ok {
		c.Inc()
	}
}
