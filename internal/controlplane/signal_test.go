package controlplane

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ValentinKolb/treekv/internal/logging"
	"github.com/ValentinKolb/treekv/internal/registry"
)

func TestSignalMonitorCancelsOnSignal(t *testing.T) {
	reg := registry.New()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &registry.Record{ID: uuid.New(), Cancel: cancel}
	reg.Register(rec)

	m := NewSignalMonitor(reg, logging.New("signal-test"))
	m.Start()
	defer m.StopAndJoin()

	m.sigCh <- testSignal{}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("worker was not cancelled after signal delivery")
	}
}

func TestSignalMonitorStopAndJoin(t *testing.T) {
	reg := registry.New()
	m := NewSignalMonitor(reg, logging.New("signal-test"))
	m.Start()

	done := make(chan struct{})
	go func() {
		m.StopAndJoin()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopAndJoin did not return")
	}
}

type testSignal struct{}

func (testSignal) String() string { return "TESTSIG" }
func (testSignal) Signal()        {}
