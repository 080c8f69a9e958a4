package server

import (
	"bufio"
	"net"
	"testing"

	"github.com/ValentinKolb/treekv/internal/controlplane"
	"github.com/ValentinKolb/treekv/internal/gate"
	"github.com/ValentinKolb/treekv/internal/interp"
	"github.com/ValentinKolb/treekv/internal/logging"
	"github.com/ValentinKolb/treekv/internal/registry"
	"github.com/ValentinKolb/treekv/internal/tree"
	"github.com/ValentinKolb/treekv/internal/worker"
)

type testHarness struct {
	srv *Server
	cp  *controlplane.ControlPlane
	reg *registry.Registry
	g   *gate.Gate
}

func newTestServer(t *testing.T) testHarness {
	t.Helper()
	tr := tree.New()
	reg := registry.New()
	g := gate.New()
	in := interp.New(tr)
	log := logging.New("server-test")
	cp := controlplane.New(reg, g, tr, log)

	deps := worker.Deps{
		Registry:    reg,
		Gate:        g,
		Accept:      cp,
		Interpreter: in,
		Log:         log,
	}

	srv, err := Listen("127.0.0.1:0", deps, log)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Run()
	return testHarness{srv: srv, cp: cp, reg: reg, g: g}
}

// TestScenarioOneOverSocket sends add/query/query-miss commands over a
// real socket against a Server whose control plane serves only as the
// accept gate (no operator console or signal monitor runs).
func TestScenarioOneOverSocket(t *testing.T) {
	h := newTestServer(t)
	defer h.srv.Stop()

	conn, err := net.Dial("tcp", h.srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	send := func(cmd string) string {
		conn.Write([]byte(cmd + "\n"))
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply: %v", err)
		}
		return line[:len(line)-1]
	}

	if got := send("a apple red"); got != "added" {
		t.Fatalf("a apple red = %q; want added", got)
	}
	if got := send("q apple"); got != "red" {
		t.Fatalf("q apple = %q; want red", got)
	}
	if got := send("q banana"); got != "not found" {
		t.Fatalf("q banana = %q; want not found", got)
	}
}

// TestAddDuplicateOverSocket checks that adding an already-present key
// leaves its value unchanged and reports the duplicate.
func TestAddDuplicateOverSocket(t *testing.T) {
	h := newTestServer(t)
	defer h.srv.Stop()

	conn, err := net.Dial("tcp", h.srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	send := func(cmd string) string {
		conn.Write([]byte(cmd + "\n"))
		line, _ := reader.ReadString('\n')
		return line[:len(line)-1]
	}

	if got := send("a apple red"); got != "added" {
		t.Fatalf("a apple red = %q; want added", got)
	}
	if got := send("a apple green"); got != "already in database" {
		t.Fatalf("a apple green = %q; want already in database", got)
	}
	if got := send("q apple"); got != "red" {
		t.Fatalf("q apple = %q; want red", got)
	}
}
