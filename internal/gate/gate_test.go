package gate

import (
	"context"
	"testing"
	"time"
)

func TestPassThroughWhenOpen(t *testing.T) {
	g := New()
	if err := g.Pass(context.Background()); err != nil {
		t.Fatalf("Pass on open gate: %v", err)
	}
}

func TestStopBlocksThenResumeReleases(t *testing.T) {
	g := New()
	g.Stop()

	done := make(chan error, 1)
	go func() {
		done <- g.Pass(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Pass returned before Resume")
	case <-time.After(50 * time.Millisecond):
	}

	g.Resume()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Pass after Resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pass did not return after Resume")
	}
}

func TestPassCancellation(t *testing.T) {
	g := New()
	g.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Pass(ctx)
	}()

	select {
	case <-done:
		t.Fatal("Pass returned before cancellation")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Pass should report the context error after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Pass did not unblock on cancellation")
	}
}

// TestGateLiveness exercises P4: after g, every worker waiting at the gate
// makes progress within finite time.
func TestGateLiveness(t *testing.T) {
	g := New()
	g.Stop()

	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_ = g.Pass(context.Background())
			done <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	g.Resume()

	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("worker %d did not make progress after Resume", i)
		}
	}
}

func TestStoppedReportsState(t *testing.T) {
	g := New()
	if g.Stopped() {
		t.Fatal("new gate should be open")
	}
	g.Stop()
	if !g.Stopped() {
		t.Fatal("gate should report stopped after Stop")
	}
	g.Resume()
	if g.Stopped() {
		t.Fatal("gate should report open after Resume")
	}
}
