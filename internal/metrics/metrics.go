// Package metrics exposes the ambient operational counters and gauges for
// treekv using VictoriaMetrics' metrics library, registering them against
// the library's default registry. This is ambient instrumentation, not
// part of the client or operator protocol, and has no effect on command
// semantics.
package metrics

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/treekv/internal/registry"
)

// Metrics bundles the counters and gauges treekv reports.
type Metrics struct {
	commandsTotal *metrics.Counter
	addedTotal    *metrics.Counter
	removedTotal  *metrics.Counter
	illFormed     *metrics.Counter
	pauseTotal    *metrics.Counter
	resumeTotal   *metrics.Counter
}

// New registers treekv's metric set against the default VictoriaMetrics
// registry and wires a lock-free gauge sampling reg's active worker count.
func New(reg *registry.Registry) *Metrics {
	m := &Metrics{
		commandsTotal: metrics.NewCounter("treekv_commands_total"),
		addedTotal:    metrics.NewCounter(`treekv_commands_total{verb="a",outcome="added"}`),
		removedTotal:  metrics.NewCounter(`treekv_commands_total{verb="d",outcome="removed"}`),
		illFormed:     metrics.NewCounter(`treekv_commands_total{outcome="ill_formed"}`),
		pauseTotal:    metrics.NewCounter("treekv_pause_total"),
		resumeTotal:   metrics.NewCounter("treekv_resume_total"),
	}

	metrics.NewGauge("treekv_active_workers", func() float64 {
		return float64(reg.ActiveGauge())
	})

	return m
}

// ObserveCommand records one interpreted command line and its reply, for
// the per-verb counters.
func (m *Metrics) ObserveCommand(reply string) {
	m.commandsTotal.Inc()
	switch reply {
	case "added":
		m.addedTotal.Inc()
	case "removed":
		m.removedTotal.Inc()
	case "ill-formed command":
		m.illFormed.Inc()
	}
}

// ObservePause records an operator "s" command.
func (m *Metrics) ObservePause() { m.pauseTotal.Inc() }

// ObserveResume records an operator "g" command.
func (m *Metrics) ObserveResume() { m.resumeTotal.Inc() }

// ServeHTTP exposes the default registry in Prometheus text format on the
// optional --metrics-addr listener.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return http.ListenAndServe(addr, mux)
}
