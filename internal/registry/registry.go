// Package registry tracks live worker records in a doubly linked list,
// guarded by one mutex that also protects an active-worker counter and the
// quiescence condition the shutdown sequence waits on.
package registry

import (
	"container/list"
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Record is one registered worker: its connection, its cancellation func,
// and the identifier used in log lines. Registry owns the list element a
// Record lives in; callers never touch list.Element directly.
type Record struct {
	ID     uuid.UUID
	Conn   net.Conn
	Cancel context.CancelFunc

	elem *list.Element
}

// Registry is the shared worker list plus the quiescence barrier.
//
// Lock order: Registry's mutex is never held while acquiring a tree lock;
// it is always the outermost or only lock held at any call site in this
// package.
type Registry struct {
	mu      sync.Mutex
	workers *list.List
	active  int
	allGone *sync.Cond

	// activeGauge mirrors active without taking mu, so internal/metrics can
	// sample it on a scrape request without contending with the registry's
	// own hot path.
	activeGauge *xsync.Counter
}

// New creates an empty Registry.
func New() *Registry {
	r := &Registry{workers: list.New(), activeGauge: xsync.NewCounter()}
	r.allGone = sync.NewCond(&r.mu)
	return r
}

// Register adds rec to the registry and increments the active count. It
// must be called before the worker enters its serve loop.
func (r *Registry) Register(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.elem = r.workers.PushFront(rec)
	r.active++
	r.activeGauge.Inc()
}

// Unregister removes rec from the registry and decrements the active
// count, waking any waiter in WaitAllGone if the count reaches zero. It
// must run on every worker exit path: normal disconnect, cancellation, or
// shutdown.
func (r *Registry) Unregister(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers.Remove(rec.elem)
	r.active--
	r.activeGauge.Dec()
	if r.active == 0 {
		r.allGone.Broadcast()
	}
}

// CancelAll requests cancellation of every currently registered worker.
// It does not remove anything from the registry - workers remove
// themselves via Unregister as their cleanup runs.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for e := r.workers.Front(); e != nil; e = e.Next() {
		e.Value.(*Record).Cancel()
	}
}

// WaitAllGone blocks until active reaches zero. It is the quiescence
// barrier the shutdown sequence relies on.
func (r *Registry) WaitAllGone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.active > 0 {
		r.allGone.Wait()
	}
}

// Len reports the current registry length, which always equals Active -
// a consistency check exercised by tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workers.Len()
}

// Active reports the current active count.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ActiveGauge reports the same quantity as Active, sampled from the
// lock-free striped counter instead of under the registry mutex. Use this
// on a metrics-scrape hot path; use Active where exact linearizability
// with Register/Unregister matters.
func (r *Registry) ActiveGauge() int64 {
	return r.activeGauge.Value()
}
