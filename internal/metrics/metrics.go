// Package metrics exposes the Prometheus counters and gauges that make
// the scheduler's and store's internal invariants observable from the
// outside: how many probes are in flight, how often a target misses its
// tick deadline, how far behind the roll-up jobs have fallen, and how
// often a write to the store fails.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pingmedaddy",
		Name:      "probes_inflight",
		Help:      "Number of probe goroutines currently holding the concurrency gate.",
	})

	ProbesMissedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingmedaddy",
		Name:      "probes_missed_ticks_total",
		Help:      "Number of times a target's probe loop overran its tick interval.",
	}, []string{"target_id"})

	RollupLagSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pingmedaddy",
		Name:      "rollup_lag_seconds",
		Help:      "Seconds between now and the most recently materialized bucket, per resolution level.",
	}, []string{"resolution"})

	StoreWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pingmedaddy",
		Name:      "store_write_errors_total",
		Help:      "Number of failed writes to the time-series store.",
	})
)
