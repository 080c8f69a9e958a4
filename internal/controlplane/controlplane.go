// Package controlplane implements the operator console and the shutdown
// orchestration: pause/resume, on-demand snapshots, cancel-all on
// interrupt, and the seven-step shutdown sequence triggered by
// end-of-input on the operator console.
package controlplane

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/ValentinKolb/treekv/internal/gate"
	"github.com/ValentinKolb/treekv/internal/registry"
	"github.com/ValentinKolb/treekv/internal/tree"
)

// PauseMetricsSink receives one observation per operator pause/resume
// command. It is optional; a nil ControlPlane.metrics disables it.
type PauseMetricsSink interface {
	ObservePause()
	ObserveResume()
}

// ControlPlane owns the accept flag and wires operator commands to the
// gate, the registry, and the tree's snapshot operation. It never touches
// the tree for anything but Snapshot and the final Shutdown call.
type ControlPlane struct {
	registry *registry.Registry
	gate     *gate.Gate
	tr       *tree.Tree
	log      logger.ILogger
	metrics  PauseMetricsSink

	mu        sync.Mutex
	accepting bool
}

// New creates a ControlPlane that accepts connections until Shutdown runs.
func New(reg *registry.Registry, g *gate.Gate, tr *tree.Tree, log logger.ILogger) *ControlPlane {
	return &ControlPlane{registry: reg, gate: g, tr: tr, log: log, accepting: true}
}

// WithMetrics attaches a metrics sink and returns the receiver for
// chaining at construction time.
func (c *ControlPlane) WithMetrics(m PauseMetricsSink) *ControlPlane {
	c.metrics = m
	return c
}

// Accepting implements worker.AcceptGate.
func (c *ControlPlane) Accepting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepting
}

func (c *ControlPlane) stopAccepting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accepting = false
}

// RunConsole reads operator lines from in until end-of-input, dispatching
// p/s/g commands, then runs the shutdown sequence. monitor and
// stopListener are retired as part of that sequence (steps 1 and 7).
func (c *ControlPlane) RunConsole(in io.Reader, out io.Writer, monitor *SignalMonitor, stopListener func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.dispatch(strings.TrimSpace(scanner.Text()), out)
	}
	c.Shutdown(monitor, stopListener)
}

func (c *ControlPlane) dispatch(line string, out io.Writer) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "p":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		c.snapshot(path, out)
	case "s":
		c.gate.Stop()
		if c.metrics != nil {
			c.metrics.ObservePause()
		}
	case "g":
		c.gate.Resume()
		if c.metrics != nil {
			c.metrics.ObserveResume()
		}
	}
}

// snapshot implements the operator "p [PATH]" command. A file open
// failure is logged and the console loop continues - this is a
// recoverable error, not a reason to abort.
func (c *ControlPlane) snapshot(path string, out io.Writer) {
	if path == "" {
		if err := c.tr.Snapshot(out); err != nil {
			c.log.Errorf("snapshot to stdout: %v", err)
		}
		return
	}

	f, err := os.Create(path)
	if err != nil {
		c.log.Errorf("p %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := c.tr.Snapshot(f); err != nil {
		c.log.Errorf("snapshot to %s: %v", path, err)
	}
}

// Shutdown runs the seven-step shutdown sequence. Its ordering is
// load-bearing: stopAccepting (step 2) must run before
// CancelAll (step 3) so no worker joins the registry after the cancel
// sweep, which is what lets WaitAllGone (step 4) terminate; tr.Shutdown
// (step 6) may only run once WaitAllGone has proven no worker still holds
// a tree lock.
func (c *ControlPlane) Shutdown(monitor *SignalMonitor, stopListener func()) {
	// 1. destroy the signal-monitor task
	monitor.StopAndJoin()

	// 2. stop accepting new connections
	c.stopAccepting()

	// 3. cancel-all
	c.registry.CancelAll()

	// 4. wait for active == 0
	c.registry.WaitAllGone()

	// 5. assert the registry is empty
	if n := c.registry.Len(); n != 0 {
		c.log.Errorf("registry not empty at shutdown: %d stragglers", n)
	}

	// 6. free the tree
	c.tr.Shutdown()

	// 7. cancel and join the listener
	stopListener()
}
