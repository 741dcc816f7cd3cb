package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are declared next to the code they instrument and queued
// here from init funcs. Nothing reaches Prometheus until MustRegister
// flushes the queue, so importing this package has no side effects on
// the default registry.

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister flushes every queued collector into the default
// Prometheus registry. Safe to call more than once; only the first
// call registers.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
		pending = nil
	})
}
