// Package gate implements the pause gate: a condition-variable-guarded
// flag that blocks every worker passing through it while the operator has
// paused the server.
package gate

import (
	"context"
	"sync"
)

// Gate is the shared pause/resume flag. The zero value is not usable;
// construct one with New.
type Gate struct {
	mu         sync.Mutex
	stopped    bool
	resumeCond *sync.Cond
}

// New creates an open Gate.
func New() *Gate {
	g := &Gate{}
	g.resumeCond = sync.NewCond(&g.mu)
	return g
}

// Pass blocks the caller while the gate is stopped. It returns early with
// ctx.Err() if ctx is cancelled while waiting. The mutex is always
// released before Pass returns, on every path.
func (g *Gate) Pass(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.stopped {
		return nil
	}

	// sync.Cond has no context-aware Wait, so a cancellation watcher
	// goroutine nudges the condition by broadcasting when ctx is done;
	// every waiter re-checks both g.stopped and ctx.Err() after waking.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.resumeCond.Broadcast()
			g.mu.Unlock()
		case <-done:
		}
	}()

	for g.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.resumeCond.Wait()
	}
	return ctx.Err()
}

// Stop makes every future Pass call block until Resume is called. Workers
// already past the gate are unaffected.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
}

// Resume releases every worker currently waiting in Pass and lets future
// callers through immediately.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = false
	g.resumeCond.Broadcast()
}

// Stopped reports whether the gate is currently closed.
func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}
