// Package server implements the communication boundary: the TCP listener
// and accept loop that hands each new connection to internal/worker. Its
// responsibility is framing connections, not interpreting them.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/ValentinKolb/treekv/internal/worker"
)

// Server owns the listening socket and spawns one worker goroutine per
// accepted connection. The zero value is not usable; construct one with
// Listen.
type Server struct {
	listener net.Listener
	deps     worker.Deps
	log      logger.ILogger

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Listen binds addr (host:port, or :port) and returns a Server ready to
// Run. Binding happens here, synchronously, so callers can detect a
// port-in-use error before starting the accept loop.
func Listen(addr string, deps worker.Deps, log logger.ILogger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	rootCtx, cancel := context.WithCancel(context.Background())
	return &Server{listener: ln, deps: deps, log: log, rootCtx: rootCtx, cancel: cancel}, nil
}

// Addr returns the listener's bound address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until Stop is called, spawning a worker.Serve
// goroutine per connection. Every spawned worker's context is a child of
// Server's own root context, so Stop cancelling that context also
// requests cancellation of every still-running worker, redundantly with
// the control plane's own cancel-all (Stop normally only runs after the
// control plane has already driven every worker to quiescence).
func (s *Server) Run() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.rootCtx.Err() != nil {
				return
			}
			s.log.Errorf("accept error: %v", err)
			continue
		}

		workerCtx, workerCancel := context.WithCancel(s.rootCtx)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			worker.Serve(workerCtx, workerCancel, conn, s.deps)
		}()
	}
}

// Stop closes the listener, cancels every worker's context, and waits for
// every in-flight worker goroutine to return. By the time Stop is called
// the control plane has usually already driven every worker to exit via
// cancel-all and WaitAllGone, so the Wait here returns immediately in
// practice.
func (s *Server) Stop() {
	s.cancel()
	s.listener.Close()
	s.wg.Wait()
}
