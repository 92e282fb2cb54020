// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import "github.com/prometheus/client_golang/prometheus"

// Preflight outcomes as recorded in the preflight counter.
const (
	OutcomeSuccess              = "success"
	OutcomeWarning              = "warning"
	OutcomeEncodingNotSupported = "encoding_not_supported"
	OutcomeModelNotSupported    = "model_not_supported"
	OutcomeTransportError       = "transport_error"
)

// Metrics holds the capability collectors. A nil *Metrics records nothing.
type Metrics struct {
	CacheLookups *prometheus.CounterVec
	Fetches      *prometheus.CounterVec
	Preflights   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, if reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gnmibuddy",
			Subsystem: "capabilities",
			Name:      "cache_lookups_total",
			Help:      "Capability cache lookups by result (hit or miss).",
		}, []string{"result"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gnmibuddy",
			Subsystem: "capabilities",
			Name:      "fetches_total",
			Help:      "Capabilities RPCs by result (success or error).",
		}, []string{"result"}),
		Preflights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gnmibuddy",
			Subsystem: "capabilities",
			Name:      "preflight_total",
			Help:      "Preflight checks by outcome.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheLookups, m.Fetches, m.Preflights)
	}
	return m
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) fetch(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Fetches.WithLabelValues("error").Inc()
		return
	}
	m.Fetches.WithLabelValues("success").Inc()
}

func (m *Metrics) preflight(outcome string) {
	if m == nil {
		return
	}
	m.Preflights.WithLabelValues(outcome).Inc()
}

// preflightOutcome maps a result to its counter label.
func preflightOutcome(res CheckResult) string {
	switch {
	case res.Success && len(res.Warnings) > 0:
		return OutcomeWarning
	case res.Success:
		return OutcomeSuccess
	case res.ErrorKind == EncodingNotSupported:
		return OutcomeEncodingNotSupported
	default:
		return OutcomeModelNotSupported
	}
}
