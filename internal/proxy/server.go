package proxy

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/gns3/gns3-proxy/internal/accesslog"
	"github.com/gns3/gns3-proxy/internal/auth"
	"github.com/gns3/gns3-proxy/internal/clog"
	"github.com/gns3/gns3-proxy/internal/config"
	"github.com/gns3/gns3-proxy/internal/policy"
)

// Server owns the listening socket and the pool of in-flight connection
// workers it has spawned. It is built once from a config.Snapshot and
// exposes the process-level Start/Stop lifecycle described in spec.md §5:
// no reload, no shared session state, a single grace period on shutdown.
type Server struct {
	snap   *config.Snapshot
	worker *worker

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer compiles the policy tables (mapping, deny rules, project
// filters, IP whitelist) and the user store from snap, wiring them into a
// single worker shared (read-only) by every accepted connection. access
// receives one access-log line per completed or aborted request exchange.
func NewServer(snap *config.Snapshot, access *accesslog.Logger) (*Server, error) {
	mapping, err := policy.NewMapping(mappingSpecs(snap.Mappings))
	if err != nil {
		return nil, fmt.Errorf("compile mappings: %w", err)
	}
	filters, err := policy.NewProjectFilters(projectFilterSpecs(snap.ProjectFilters))
	if err != nil {
		return nil, fmt.Errorf("compile project filters: %w", err)
	}
	deny, err := policy.NewDenyRules(denyRuleSpecs(snap.DenyRules))
	if err != nil {
		return nil, fmt.Errorf("compile deny rules: %w", err)
	}
	whitelist, err := policy.NewIPWhitelist(snap.AuthWhitelist)
	if err != nil {
		return nil, fmt.Errorf("compile auth whitelist: %w", err)
	}

	w := &worker{
		snap:           snap,
		mapping:        mapping,
		projectFilters: filters,
		denyRules:      deny,
		whitelist:      whitelist,
		users:          auth.NewUserStore(snap.Users),
		access:         access,
	}

	return &Server{snap: snap, worker: w}, nil
}

func mappingSpecs(entries []config.MappingEntry) []policy.MappingSpec {
	specs := make([]policy.MappingSpec, len(entries))
	for i, e := range entries {
		specs[i] = policy.MappingSpec{ID: e.ID, UserPattern: e.UserPattern, ServerName: e.ServerName}
	}
	return specs
}

func projectFilterSpecs(entries []config.ProjectFilterEntry) []policy.ProjectFilterSpec {
	specs := make([]policy.ProjectFilterSpec, len(entries))
	for i, e := range entries {
		specs[i] = policy.ProjectFilterSpec{ID: e.ID, UserPattern: e.UserPattern, ProjectPattern: e.ProjectPattern}
	}
	return specs
}

func denyRuleSpecs(entries []config.DenyRuleEntry) []policy.DenyRuleSpec {
	specs := make([]policy.DenyRuleSpec, len(entries))
	for i, e := range entries {
		specs[i] = policy.DenyRuleSpec{
			ID:            e.ID,
			UserPattern:   e.UserPattern,
			MethodPattern: e.MethodPattern,
			URLPattern:    e.URLPattern,
			HeaderPattern: e.HeaderPattern,
			BodyPattern:   e.BodyPattern,
		}
	}
	return specs
}

// Start binds the listening socket (spec.md §4.1) and begins accepting
// connections in the background. It returns once the socket is bound;
// BIND_FAILED is reported as a plain error for the caller to translate into
// the process's bind-failure exit code.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.snap.BindAddr, s.snap.BindPort)
	ln, err := listen(addr, s.snap.Backlog, s.snap.OpenFileLimit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go acceptLoop(ln, s.handle)
	return nil
}

// Addr returns the address the server is actually listening on, useful
// when BindPort is 0 (ephemeral port, as in tests).
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handle wraps worker.handle with the wait-group bookkeeping Stop needs to
// know when every in-flight connection has drained.
func (s *Server) handle(conn net.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()
	s.worker.handle(conn)
}

// Stop closes the listener, so no new connections are accepted, then waits
// for in-flight workers to finish on their own (each bounded by the
// inactivity timeout and the request timeouts in spec.md §5) until ctx is
// done, at which point it returns without forcibly closing client sockets
// beyond what Go's process exit will do.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		if err := ln.Close(); err != nil {
			clog.Warn("proxy: close listener: %v", err)
		}
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		clog.Warn("proxy: shutdown grace period elapsed with workers still in flight")
		return ctx.Err()
	}
}
