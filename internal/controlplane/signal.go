package controlplane

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"

	"github.com/ValentinKolb/treekv/internal/registry"
)

// SignalMonitor is the dedicated task that waits for an interrupt and, on
// receipt, cancels every registered worker.
//
// Go has no process-wide signal mask to route SIGINT to exactly one task
// the way a synchronous sigwait does, so this instead uses
// signal.Notify's channel delivery - functionally equivalent, since only
// this monitor ever reads from its channel.
//
// Broken-pipe handling needs no code here: Go's runtime only raises
// SIGPIPE as a terminating signal for writes to file descriptors 1 and 2;
// a write to a disconnected socket instead returns a syscall.EPIPE error,
// which internal/worker already treats as an ordinary disconnect.
type SignalMonitor struct {
	registry *registry.Registry
	log      logger.ILogger
	sigCh    chan os.Signal
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSignalMonitor creates a monitor bound to reg. Start must be called
// before it does anything.
func NewSignalMonitor(reg *registry.Registry, log logger.ILogger) *SignalMonitor {
	return &SignalMonitor{
		registry: reg,
		log:      log,
		sigCh:    make(chan os.Signal, 1),
		done:     make(chan struct{}),
	}
}

// Start begins listening for os.Interrupt in a background goroutine.
func (m *SignalMonitor) Start() {
	signal.Notify(m.sigCh, os.Interrupt)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

func (m *SignalMonitor) run(ctx context.Context) {
	defer close(m.done)
	defer signal.Stop(m.sigCh)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-m.sigCh:
			m.log.Infof("%s received, cancelling all clients", signalName(sig))
			m.registry.CancelAll()
		}
	}
}

// signalName renders sig the way the operator console log line wants it
// ("SIGINT received, ..."); it falls back to the default os.Signal string
// form for anything unix.SignalName doesn't recognize.
func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(unix.Signal(s)); name != "" {
			return name
		}
	}
	return sig.String()
}

// StopAndJoin cancels the monitor and waits for its goroutine to exit.
// This is shutdown step 1: the monitor must be retired before accepting
// is turned off, or a signal racing shutdown could call CancelAll against
// a registry that is already being drained.
func (m *SignalMonitor) StopAndJoin() {
	m.cancel()
	<-m.done
}
