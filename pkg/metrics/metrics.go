// Package metrics exposes adapter outcomes as Prometheus collectors.
package metrics

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oneinch-swapper/pkg/swapper"
)

// Metrics implements swapper.Recorder
type Metrics struct {
	registry *prometheus.Registry

	swaps    *prometheus.CounterVec
	volumeIn *prometheus.CounterVec
	surplus  *prometheus.CounterVec
	paused   prometheus.Gauge
	pauses   *prometheus.CounterVec
}

var _ swapper.Recorder = (*Metrics)(nil)

// New registers the adapter collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		swaps: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "swapper_swaps_total", Help: "Swap calls by outcome"},
			[]string{"outcome"},
		),
		volumeIn: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "swapper_amount_in_total", Help: "Source units taken into custody by settled swaps"},
			[]string{"token"},
		),
		surplus: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "swapper_surplus_total", Help: "Destination units retained as surplus"},
			[]string{"token"},
		),
		paused: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "swapper_paused", Help: "1 while the adapter is paused"},
		),
		pauses: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "swapper_pause_transitions_total", Help: "Pause and unpause transitions"},
			[]string{"to"},
		),
	}
	m.registry.MustRegister(m.swaps, m.volumeIn, m.surplus, m.paused, m.pauses)
	return m
}

// SwapSettled counts a successful swap
func (m *Metrics) SwapSettled(s *swapper.Settlement) {
	m.swaps.WithLabelValues("ok").Inc()
	in, _ := new(big.Float).SetInt(s.AmountIn).Float64()
	m.volumeIn.WithLabelValues(s.SrcToken.Hex()).Add(in)
	sur, _ := new(big.Float).SetInt(s.Surplus).Float64()
	m.surplus.WithLabelValues(s.DstToken.Hex()).Add(sur)
}

// SwapFailed counts a failed swap by reason
func (m *Metrics) SwapFailed(reason string) {
	m.swaps.WithLabelValues(reason).Inc()
}

// PauseChanged tracks the gate
func (m *Metrics) PauseChanged(paused bool) {
	if paused {
		m.paused.Set(1)
		m.pauses.WithLabelValues("paused").Inc()
		return
	}
	m.paused.Set(0)
	m.pauses.WithLabelValues("active").Inc()
}

// SetPaused initialises the gauge from restored state
func (m *Metrics) SetPaused(paused bool) {
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
