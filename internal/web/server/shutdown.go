package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ubiquits/ubiquits/internal/logging"
)

// ShutdownHook is called during graceful shutdown, after the servers have
// stopped accepting requests
type ShutdownHook func(ctx context.Context) error

// GracefulShutdown runs a group of servers and stops them together
type GracefulShutdown struct {
	servers []*Server
	hooks   []ShutdownHook
	timeout time.Duration
	log     logging.Logger

	mu           sync.Mutex
	shutdownOnce sync.Once
	done         chan struct{}
	err          error
}

// DefaultShutdownTimeout bounds the graceful phase
const DefaultShutdownTimeout = 30 * time.Second

// NewGracefulShutdown creates a shutdown handler for servers. A zero timeout
// uses DefaultShutdownTimeout.
func NewGracefulShutdown(logger logging.Logger, timeout time.Duration, servers ...*Server) *GracefulShutdown {
	if logger == nil {
		logger = logging.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &GracefulShutdown{
		servers: servers,
		timeout: timeout,
		log:     logger.Source("server"),
		done:    make(chan struct{}),
	}
}

// RegisterHook registers a hook; hooks run in registration order
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook)
}

// Run binds every server, serves them and blocks until ctx is done or one
// server fails, then shuts all of them down
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	for _, s := range gs.servers {
		if err := s.Listen(); err != nil {
			gs.Shutdown()
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	errCh := make(chan error, len(gs.servers))
	for _, s := range gs.servers {
		go func(s *Server) {
			gs.log.Info("server started", "server", s.Name(), "addr", s.Addr())
			if err := s.Serve(); err != nil {
				errCh <- fmt.Errorf("%s: %w", s.Name(), err)
			}
		}(s)
	}

	var runErr error
	select {
	case <-ctx.Done():
		gs.log.Info("shutdown signal received")
	case runErr = <-errCh:
		gs.log.Error("server failed", "error", runErr)
	}

	return errors.Join(runErr, gs.Shutdown())
}

// Shutdown stops the servers and runs the hooks. It is safe to call more
// than once; later calls wait for the first and return its result.
func (gs *GracefulShutdown) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		defer close(gs.done)
		gs.log.Info("initiating graceful shutdown", "timeout", gs.timeout)

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		var errs []error
		for _, s := range gs.servers {
			if err := s.Shutdown(ctx); err != nil {
				gs.log.Error("server shutdown failed", "server", s.Name(), "error", err)
				errs = append(errs, fmt.Errorf("%s shutdown: %w", s.Name(), err))
			}
		}

		gs.mu.Lock()
		hooks := make([]ShutdownHook, len(gs.hooks))
		copy(hooks, gs.hooks)
		gs.mu.Unlock()

		for i, hook := range hooks {
			if err := hook(ctx); err != nil {
				gs.log.Error("shutdown hook failed", "hook", i, "error", err)
				errs = append(errs, err)
			}
		}

		gs.err = errors.Join(errs...)
		gs.log.Info("shutdown complete")
	})

	<-gs.done
	return gs.err
}

// Wait blocks until shutdown is complete
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}
