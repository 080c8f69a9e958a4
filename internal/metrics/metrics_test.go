package metrics

import (
	"bytes"
	"testing"

	vmetrics "github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/treekv/internal/registry"
)

// TestMetrics registers treekv's metric set once and exercises every
// observation path against it; VictoriaMetrics/metrics panics on a
// duplicate registration, so this stays a single test rather than one
// call to New per test function.
func TestMetrics(t *testing.T) {
	reg := registry.New()
	m := New(reg)
	defer vmetrics.UnregisterAllMetrics()

	m.ObserveCommand("added")
	m.ObserveCommand("removed")
	m.ObserveCommand("ill-formed command")
	m.ObserveCommand("not found")
	m.ObservePause()
	m.ObserveResume()

	var buf bytes.Buffer
	vmetrics.WritePrometheus(&buf, false)
	out := buf.String()

	for _, want := range []string{
		"treekv_commands_total",
		`treekv_commands_total{verb="a",outcome="added"}`,
		`treekv_commands_total{verb="d",outcome="removed"}`,
		`treekv_commands_total{outcome="ill_formed"}`,
		"treekv_pause_total",
		"treekv_resume_total",
		"treekv_active_workers",
	} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("Prometheus output missing %q", want)
		}
	}
}
