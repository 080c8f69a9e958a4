// Package worker implements the per-connection worker task: admission,
// registration, the command serve loop, and guaranteed cleanup.
package worker

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sourcegraph/conc/panics"

	"github.com/ValentinKolb/treekv/internal/gate"
	"github.com/ValentinKolb/treekv/internal/registry"
)

// Interpreter is the subset of interp.Interpreter a worker needs. Taking
// an interface here (rather than depending on the concrete type) keeps
// this package testable without a real tree.
type Interpreter interface {
	Interpret(ctx context.Context, line string) string
}

// AcceptGate reports whether new connections are currently admitted. It
// is consulted once, at admission, before a worker is registered.
type AcceptGate interface {
	Accepting() bool
}

// MetricsSink receives one observation per interpreted command. It is
// optional; a nil Deps.Metrics disables command metrics entirely.
type MetricsSink interface {
	ObserveCommand(reply string)
}

// Deps bundles the shared lifecycle state a worker is wired against.
type Deps struct {
	Registry    *registry.Registry
	Gate        *gate.Gate
	Accept      AcceptGate
	Interpreter Interpreter
	Log         logger.ILogger
	Metrics     MetricsSink
}

// Serve runs one worker for conn until the connection is closed, an
// unrecoverable read error occurs, or ctx (derived from a per-worker
// CancelFunc registered with deps.Registry) is cancelled. Serve always
// closes conn and always unregisters the worker's record before
// returning, on every exit path - normal, cancelled, or panicking.
//
// cancel is the CancelFunc for ctx; Serve stores it on the registry
// record so the control plane can cancel this worker later. The caller
// retains ownership of conn only until Serve is invoked; Serve closes it.
func Serve(ctx context.Context, cancel context.CancelFunc, conn net.Conn, deps Deps) {
	if !deps.Accept.Accepting() {
		conn.Close()
		return
	}

	rec := &registry.Record{ID: uuid.New(), Conn: conn, Cancel: cancel}
	deps.Registry.Register(rec)
	defer deps.Registry.Unregister(rec)
	defer conn.Close()

	var catcher panics.Catcher
	catcher.Try(func() { serveLoop(ctx, conn, deps) })
	if recovered := catcher.Recovered(); recovered != nil {
		deps.Log.Errorf("worker %s panicked: %v", rec.ID, recovered.Value)
	}
}

// serveLoop reads a command, passes it through the pause gate, interprets
// it, writes the reply, and repeats until end-of-stream or cancellation.
func serveLoop(ctx context.Context, conn net.Conn, deps Deps) {
	reader := bufio.NewReader(conn)

	for {
		line, err := readLine(ctx, reader)
		if err != nil {
			return
		}

		if err := deps.Gate.Pass(ctx); err != nil {
			return
		}

		reply := deps.Interpreter.Interpret(ctx, line)
		if deps.Metrics != nil {
			deps.Metrics.ObserveCommand(reply)
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			// A broken pipe or reset connection is an ordinary disconnect
			// from this worker's point of view, not a fatal error - treekv
			// has no process-wide SIGPIPE mask to install, so a write
			// failure is simply treated the same as EOF.
			return
		}
	}
}

// readLine reads one newline-terminated command, unblocking early if ctx
// is cancelled while the read is outstanding.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-resultCh:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", r.err
		}
		if r.err != nil && r.line == "" {
			return "", io.EOF
		}
		return trimNewline(r.line), nil
	}
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
