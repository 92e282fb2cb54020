// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collector histograms. A nil *Metrics records nothing.
type Metrics struct {
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg, if reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gnmibuddy",
			Subsystem: "collector",
			Name:      "duration_seconds",
			Help:      "Duration of collector runs by operation and status.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Duration)
	}
	return m
}

func (m *Metrics) observe(op Operation, status Status, d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(string(op), string(status)).Observe(d.Seconds())
}
