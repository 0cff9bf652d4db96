package replaytest

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/getmockd/replayd/pkg/config"
	"github.com/getmockd/replayd/pkg/identity"
	"github.com/getmockd/replayd/pkg/session"
)

// Option configures a session started by Start or StartClass.
type Option func(*options)

type options struct {
	targets []string
	mode    session.Mode
	ignore  []string
	manager *session.Manager
}

// WithTargets sets the upstream services to record. Each target gets its own
// mock server; the first one backs Client and Endpoint.
func WithTargets(urls ...string) Option {
	return func(o *options) {
		o.targets = append(o.targets, urls...)
	}
}

// WithMode overrides the configured mode for this session.
func WithMode(mode session.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithIgnore registers extra ignore patterns. Playback matches with them and
// recording stamps them into the saved stubs.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// WithManager uses m instead of the process-wide manager.
func WithManager(m *session.Manager) Option {
	return func(o *options) {
		o.manager = m
	}
}

var (
	defaultOnce    sync.Once
	defaultManager *session.Manager
	defaultErr     error
)

// DefaultManager returns the process-wide manager built from the environment
// and replayd.yaml on first use.
func DefaultManager() (*session.Manager, error) {
	defaultOnce.Do(func() {
		cfg, err := config.Load("")
		if err != nil {
			defaultErr = err
			return
		}
		defaultManager = session.NewManager(session.Options{
			Config: cfg,
			Logger: cfg.Logger(os.Stderr),
		})
	})
	return defaultManager, defaultErr
}

// Start begins a method-scoped session for t and stops it when t finishes.
// A session that cannot start fails the test.
func Start(t testing.TB, opts ...Option) *session.Session {
	t.Helper()
	return begin(t, session.ScopeMethod, opts)
}

// StartClass begins a class-scoped session for t, shared by its subtests.
func StartClass(t testing.TB, opts ...Option) *session.Session {
	t.Helper()
	return begin(t, session.ScopeClass, opts)
}

func begin(t testing.TB, scope session.Scope, opts []Option) *session.Session {
	t.Helper()

	o := apply(t, opts)
	s, err := o.manager.Begin(t.Context(), session.Spec{
		Identity:       identity.FromTestName(t.Name()),
		Mode:           o.mode,
		Scope:          scope,
		TargetURLs:     o.targets,
		IgnorePatterns: o.ignore,
	})
	if err != nil {
		t.Fatalf("%v", err)
	}

	o.manager.Registry().Bind(t.Name(), s)
	t.Cleanup(func() {
		// t.Context is already canceled here.
		if err := o.manager.End(context.Background(), s); err != nil {
			t.Errorf("stopping mock session %s: %v", s, err)
		}
	})
	return s
}

func apply(t testing.TB, opts []Option) *options {
	t.Helper()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.manager == nil {
		m, err := DefaultManager()
		if err != nil {
			t.Fatalf("loading replayd configuration: %v", err)
		}
		o.manager = m
	}
	return o
}

// Endpoint returns the late-bound endpoint of the session running for t (or
// an enclosing test). Without one it resolves to the configured BaseURL.
// Only WithManager is meaningful here.
func Endpoint(t testing.TB, opts ...Option) session.Endpoint {
	t.Helper()

	o := apply(t, opts)
	return session.Endpoint{
		Key:      t.Name(),
		Registry: o.manager.Registry(),
		Fallback: o.manager.Config().BaseURL,
	}
}

// Client returns an HTTP client whose requests are rewritten to Endpoint.
// Request URLs keep their path and query; scheme and host are replaced.
func Client(t testing.TB, opts ...Option) *http.Client {
	t.Helper()
	return session.NewClient(Endpoint(t, opts...))
}
