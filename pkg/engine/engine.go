package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getmockd/replayd/pkg/logging"
)

// Options configures an Engine.
type Options struct {
	// Port to listen on. Zero picks an ephemeral port.
	Port int
	// MappingsDir holds the mappings/ and __files/ subdirectories.
	MappingsDir string
	// ProxyTimeout bounds each forwarded request. Defaults to DefaultProxyTimeout.
	ProxyTimeout time.Duration
	// ExtractThreshold is the response body size above which recorded bodies
	// are detached into a payload file. Zero or less keeps bodies inline.
	ExtractThreshold int
	// Logger for engine events. Nil discards them.
	Logger *slog.Logger
}

// Engine is a loopback mock HTTP server with record and playback support.
type Engine struct {
	opts   Options
	log    *slog.Logger
	client *http.Client

	mu         sync.RWMutex
	server     *http.Server
	port       int
	target     *url.URL
	stubs      []*Stub
	rules      []ignoreRule
	requests   []RecordedRequest
	recordings []*Recording
}

// New creates an engine. It does not listen until Start is called.
func New(opts Options) *Engine {
	if opts.ProxyTimeout <= 0 {
		opts.ProxyTimeout = DefaultProxyTimeout
	}
	return &Engine{
		opts: opts,
		log:  logging.Component(opts.Logger, "engine"),
		client: &http.Client{
			Timeout: opts.ProxyTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start begins listening on 127.0.0.1 and serving in the background.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(e.opts.Port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	port := ln.Addr().(*net.TCPAddr).Port
	e.server = srv
	e.port = port

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("server stopped unexpectedly", "port", port, "error", err)
		}
	}()

	e.log.Debug("engine started", "port", port, "mappingsDir", e.opts.MappingsDir)
	return nil
}

// Stop gracefully shuts the server down. Stopping a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	e.server = nil
	e.mu.Unlock()

	if srv == nil {
		return nil
	}

	e.client.CloseIdleConnections()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop engine: %w", err)
	}
	e.log.Debug("engine stopped", "port", e.Port())
	return nil
}

// Running reports whether the engine is serving.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.server != nil
}

// Port returns the bound port, or the configured port before Start.
func (e *Engine) Port() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.port != 0 {
		return e.port
	}
	return e.opts.Port
}

// BaseURL returns the root URL clients use to reach the engine.
func (e *Engine) BaseURL() string {
	return "http://127.0.0.1:" + strconv.Itoa(e.Port())
}

// MappingsDir returns the directory stubs are loaded from.
func (e *Engine) MappingsDir() string {
	return e.opts.MappingsDir
}

// ProxyAllTo forwards every request without a matching stub to target.
func (e *Engine) ProxyAllTo(target string) error {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	e.mu.Lock()
	e.target = u
	e.mu.Unlock()
	return nil
}

// AddIgnorePattern registers a pattern applied to every subsequent body match.
func (e *Engine) AddIgnorePattern(pattern string) error {
	rule, err := compileRule(pattern)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rules {
		if r.pattern == pattern {
			return nil
		}
	}
	e.rules = append(e.rules, rule)
	return nil
}

// IgnorePatterns returns the registered patterns in registration order.
func (e *Engine) IgnorePatterns() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.pattern
	}
	return out
}

// AddStub registers an in-memory stub. Stubs are matched in insertion order.
func (e *Engine) AddStub(s *Stub) error {
	rules, err := compileRules(s.Request.IgnorePatterns)
	if err != nil {
		return err
	}
	s.rules = rules

	e.mu.Lock()
	e.stubs = append(e.stubs, s)
	e.mu.Unlock()
	return nil
}

// Stubs returns the registered stubs.
func (e *Engine) Stubs() []*Stub {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Stub, len(e.stubs))
	copy(out, e.stubs)
	return out
}

// RecordedRequests returns every request received, in arrival order.
func (e *Engine) RecordedRequests() []RecordedRequest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RecordedRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

// Recordings returns the forwarded exchanges, in arrival order.
func (e *Engine) Recordings() []*Recording {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Recording, len(e.recordings))
	copy(out, e.recordings)
	return out
}

// Reset drops stubs, patterns and captured traffic. The proxy target is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stubs = nil
	e.rules = nil
	e.requests = nil
	e.recordings = nil
}
