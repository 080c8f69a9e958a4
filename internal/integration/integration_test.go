// Package integration wires a real internal/server.Server to a real
// internal/controlplane.ControlPlane and SignalMonitor over a live TCP
// socket, exercising end-to-end behavior that a single package's unit
// tests can't reach on their own: pause/resume as seen by a connected
// client, and the cancel-all sweep the signal monitor runs on an
// interrupt.
package integration

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/treekv/internal/controlplane"
	"github.com/ValentinKolb/treekv/internal/gate"
	"github.com/ValentinKolb/treekv/internal/interp"
	"github.com/ValentinKolb/treekv/internal/logging"
	"github.com/ValentinKolb/treekv/internal/registry"
	"github.com/ValentinKolb/treekv/internal/server"
	"github.com/ValentinKolb/treekv/internal/tree"
	"github.com/ValentinKolb/treekv/internal/worker"
)

type app struct {
	srv     *server.Server
	cp      *controlplane.ControlPlane
	monitor *controlplane.SignalMonitor
	reg     *registry.Registry
	g       *gate.Gate
}

func newApp(t *testing.T) app {
	t.Helper()
	tr := tree.New()
	reg := registry.New()
	g := gate.New()
	in := interp.New(tr)
	log := logging.New("integration-test")
	cp := controlplane.New(reg, g, tr, log)
	monitor := controlplane.NewSignalMonitor(reg, log)
	monitor.Start()

	deps := worker.Deps{
		Registry:    reg,
		Gate:        g,
		Accept:      cp,
		Interpreter: in,
		Log:         log,
	}

	srv, err := server.Listen("127.0.0.1:0", deps, log)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Run()

	return app{srv: srv, cp: cp, monitor: monitor, reg: reg, g: g}
}

func dial(t *testing.T, a app) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", a.srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return conn, bufio.NewReader(conn)
}

func send(t *testing.T, conn net.Conn, reader *bufio.Reader, cmd string) string {
	t.Helper()
	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		t.Fatalf("write %q: %v", cmd, err)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply to %q: %v", cmd, err)
	}
	return line[:len(line)-1]
}

// TestPauseResumeAtGate checks that stopping the pause gate (what an
// operator "s" does) holds a connected client's next command, and resuming
// it (what "g" does) releases it, as observed by a client blocked on a
// reply.
func TestPauseResumeAtGate(t *testing.T) {
	a := newApp(t)
	defer a.srv.Stop()

	conn, reader := dial(t, a)
	defer conn.Close()

	// drive pause/resume directly through the gate, as the operator
	// console's dispatch would from a "s"/"g" line.
	if _, err := conn.Write([]byte("a apple red\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if line, err := reader.ReadString('\n'); err != nil || line[:len(line)-1] != "added" {
		t.Fatalf("a apple red = %q, %v; want added", line, err)
	}

	a.g.Stop()

	done := make(chan string, 1)
	go func() {
		done <- send(t, conn, reader, "q apple")
	}()

	select {
	case <-done:
		t.Fatal("query completed while gate was stopped")
	case <-time.After(100 * time.Millisecond):
	}

	a.g.Resume()

	select {
	case got := <-done:
		if got != "red" {
			t.Fatalf("q apple = %q; want red", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("query never completed after resume")
	}
}

// TestCancelAllClosesConnections checks that cancel-all (what the signal
// monitor runs on an interrupt) cancels every registered worker's
// context, which unblocks any pending read and drops
// the connection, without the server itself shutting down.
func TestCancelAllClosesConnections(t *testing.T) {
	a := newApp(t)
	defer a.srv.Stop()

	conn, reader := dial(t, a)
	defer conn.Close()

	if got := send(t, conn, reader, "a apple red"); got != "added" {
		t.Fatalf("a apple red = %q; want added", got)
	}

	a.reg.CancelAll()

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected connection to be closed after cancel-all")
	}
}

// TestShutdownSequenceDrainsWorkers exercises the full seven-step
// shutdown sequence driven by operator end-of-input: a connected
// client's pending command is unblocked and the listener stops
// accepting new connections once Shutdown returns.
func TestShutdownSequenceDrainsWorkers(t *testing.T) {
	a := newApp(t)

	conn, reader := dial(t, a)
	if got := send(t, conn, reader, "a apple red"); got != "added" {
		t.Fatalf("a apple red = %q; want added", got)
	}

	stopped := make(chan struct{})
	go func() {
		a.cp.Shutdown(a.monitor, a.srv.Stop)
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown never returned")
	}

	if a.cp.Accepting() {
		t.Fatal("control plane should not be accepting after Shutdown")
	}
	if n := a.reg.Len(); n != 0 {
		t.Fatalf("registry.Len() = %d after Shutdown; want 0", n)
	}

	conn.Close()

	if _, err := net.DialTimeout("tcp", a.srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Fatal("listener should be closed after Shutdown")
	}
}
