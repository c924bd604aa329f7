// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports cache engine events as Prometheus series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staranto/kvcache/internal/codec"
)

// Namespace prefixes every series.
const Namespace = "kvcache"

// Prometheus implements cache.Metrics on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	evictions *prometheus.CounterVec
	fallbacks *prometheus.CounterVec

	total  prometheus.Gauge
	active prometheus.Gauge
}

// New builds the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),

		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "hits_total",
			Help:      "Lookups that found a live entry.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "misses_total",
			Help:      "Lookups that found nothing or an expired entry.",
		}),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sets_total",
			Help:      "Entries written, by effective compression method.",
		}, []string{"method"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stored_bytes_total",
			Help:      "Payload bytes written, by effective compression method.",
		}, []string{"method"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "evictions_total",
			Help:      "Entries removed by the engine, by reason.",
		}, []string{"reason"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "codec",
			Name:      "fallbacks_total",
			Help:      "Compression method substitutions.",
		}, []string{"from", "to"}),

		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "entries",
			Help:      "Stored entries at the last stats scan, expired included.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "entries_active",
			Help:      "Live entries at the last stats scan.",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.hits, p.misses, p.sets, p.bytes, p.evictions, p.fallbacks, p.total, p.active,
	)

	return p
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Hit()  { p.hits.Inc() }
func (p *Prometheus) Miss() { p.misses.Inc() }

func (p *Prometheus) Stored(m codec.Method, size int) {
	p.sets.WithLabelValues(m.String()).Inc()
	p.bytes.WithLabelValues(m.String()).Add(float64(size))
}

func (p *Prometheus) Evicted(reason string) {
	p.evictions.WithLabelValues(reason).Inc()
}

func (p *Prometheus) Fallback(from, to codec.Method) {
	p.fallbacks.WithLabelValues(from.String(), to.String()).Inc()
}

func (p *Prometheus) Entries(total, active int) {
	p.total.Set(float64(total))
	p.active.Set(float64(active))
}
