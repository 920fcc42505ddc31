// Package internal contains the runtime implementation.
package internal

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.eggybyte.com/settings/core/log"
)

// Service is anything with a start/stop lifecycle.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedServer struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// Runtime starts services in order, then serves every server, and tears
// both down in reverse.
type Runtime struct {
	logger          log.Logger
	services        []Service
	servers         []*namedServer
	shutdownTimeout time.Duration

	mu      sync.Mutex
	started []Service
	errCh   chan error
}

// NewRuntime creates a runtime.
func NewRuntime(logger log.Logger, services []Service, shutdownTimeout time.Duration) *Runtime {
	return &Runtime{
		logger:          logger,
		services:        services,
		shutdownTimeout: shutdownTimeout,
		errCh:           make(chan error, 8),
	}
}

// AddServer registers srv under name. Call before Start.
func (r *Runtime) AddServer(name string, srv *http.Server) {
	r.servers = append(r.servers, &namedServer{name: name, srv: srv})
}

// Start starts services, then binds every listener, then serves. Any
// failure unwinds what was already started.
func (r *Runtime) Start(ctx context.Context) error {
	for i, svc := range r.services {
		if err := svc.Start(ctx); err != nil {
			r.stopServices(ctx)
			return fmt.Errorf("service %d start failed: %w", i, err)
		}
		r.mu.Lock()
		r.started = append(r.started, svc)
		r.mu.Unlock()
	}

	for _, s := range r.servers {
		ln, err := net.Listen("tcp", s.srv.Addr)
		if err != nil {
			r.closeListeners()
			r.stopServices(ctx)
			return fmt.Errorf("%s server listen on %s: %w", s.name, s.srv.Addr, err)
		}
		s.ln = ln
	}

	for _, s := range r.servers {
		r.logger.Info("server listening", log.Str("server", s.name), log.Str("addr", s.ln.Addr().String()))
		go func(s *namedServer) {
			if err := s.srv.Serve(s.ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				r.logger.Error(err, "server failed", log.Str("server", s.name))
				select {
				case r.errCh <- fmt.Errorf("%s server: %w", s.name, err):
				default:
				}
			}
		}(s)
	}
	return nil
}

// Errors reports servers that stopped serving on their own.
func (r *Runtime) Errors() <-chan error {
	return r.errCh
}

// Addr returns the bound address of the named server, or "".
func (r *Runtime) Addr(name string) string {
	for _, s := range r.servers {
		if s.name == name && s.ln != nil {
			return s.ln.Addr().String()
		}
	}
	return ""
}

// Stop shuts servers down, then stops services in reverse start order,
// all within the shutdown timeout.
func (r *Runtime) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(r.servers) - 1; i >= 0; i-- {
		s := r.servers[i]
		if s.ln == nil {
			continue
		}
		if err := s.srv.Shutdown(ctx); err != nil {
			r.logger.Error(err, "server shutdown failed", log.Str("server", s.name))
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
		}
	}
	errs = append(errs, r.stopServices(ctx)...)
	r.logger.Info("runtime stopped")
	return stderrors.Join(errs...)
}

func (r *Runtime) stopServices(ctx context.Context) []error {
	r.mu.Lock()
	started := r.started
	r.started = nil
	r.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			r.logger.Error(err, "service stop failed", log.Int("index", i))
			errs = append(errs, fmt.Errorf("service %d stop: %w", i, err))
		}
	}
	return errs
}

func (r *Runtime) closeListeners() {
	for _, s := range r.servers {
		if s.ln != nil {
			_ = s.ln.Close()
			s.ln = nil
		}
	}
}
