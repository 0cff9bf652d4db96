package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/getmockd/replayd/pkg/engine"
	"github.com/getmockd/replayd/pkg/identity"
)

// Engine is the part of the mock engine a session drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ProxyAllTo(target string) error
	LoadMappings() error
	AddIgnorePattern(pattern string) error
	SnapshotRecordedStubs(target string) []*engine.Stub
}

// EngineFactory builds the engine for one session target.
type EngineFactory func(opts engine.Options) Engine

// NewEngine is the default EngineFactory.
func NewEngine(opts engine.Options) Engine {
	return engine.New(opts)
}

// PortAllocator hands out free loopback ports.
type PortAllocator interface {
	FindFree() (int, error)
}

// Spec describes the session a test asks for.
type Spec struct {
	// Identity names the test. Class-scoped sessions ignore Method.
	Identity identity.Identity
	// Mode overrides the configured mode when set.
	Mode Mode
	// Scope defaults to ScopeMethod.
	Scope Scope
	// TargetURLs are the real services. Record mode needs at least one.
	TargetURLs []string
	// IgnorePatterns are registered in playback on top of the detected ones.
	IgnorePatterns []string
}

// Target is one running engine of a session.
type Target struct {
	// URL is the upstream service; empty in playback without targets.
	URL string
	// Port the engine listens on.
	Port int
	// BaseURL clients use to reach the engine.
	BaseURL string
	// MappingsDir holds the target's mappings/ and __files/.
	MappingsDir string
	// Identity keys the target's snapshot history and detection result.
	// Each recorded request narrows it with Identity.WithRequest.
	Identity identity.Identity

	engine   Engine
	started  bool
	patterns []string // accepted by the engine at start
}

// Session is one bounded mock server lifetime.
type Session struct {
	id      identity.Identity
	mode    Mode
	scope   Scope
	spec    Spec
	targets []*Target

	mu    sync.Mutex
	state State
}

func newSession(spec Spec, defaultMode Mode) *Session {
	id := spec.Identity
	if spec.Scope == ScopeClass {
		id.Method = ""
	}
	mode := spec.Mode
	if mode == "" {
		mode = defaultMode
	}
	if mode == "" {
		mode = ModePlayback
	}
	return &Session{
		id:    id,
		mode:  mode,
		scope: spec.Scope,
		spec:  spec,
		state: StateCreated,
	}
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}

// Identity returns the identity the session records under.
func (s *Session) Identity() identity.Identity {
	return s.id
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Scope returns the session scope.
func (s *Session) Scope() Scope {
	return s.scope
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether the session is serving.
func (s *Session) Running() bool {
	return s.State() == StateRunning
}

// Port returns the port of the first target.
func (s *Session) Port() int {
	if len(s.targets) == 0 {
		return 0
	}
	return s.targets[0].Port
}

// BaseURL returns the base URL of the first target.
func (s *Session) BaseURL() string {
	return s.BaseURLAt(0)
}

// BaseURLAt returns the base URL of target i, or "" when out of range.
func (s *Session) BaseURLAt(i int) string {
	if i < 0 || i >= len(s.targets) {
		return ""
	}
	return s.targets[i].BaseURL
}

// TargetURL returns the first upstream URL.
func (s *Session) TargetURL() string {
	if len(s.targets) == 0 {
		return ""
	}
	return s.targets[0].URL
}

// MappingsDir returns the mapping directory of the first target.
func (s *Session) MappingsDir() string {
	if len(s.targets) == 0 {
		return ""
	}
	return s.targets[0].MappingsDir
}

// Targets returns a copy of the session's targets.
func (s *Session) Targets() []Target {
	out := make([]Target, len(s.targets))
	for i, t := range s.targets {
		out[i] = *t
		out[i].engine = nil
	}
	return out
}

// String describes the session for logs.
func (s *Session) String() string {
	return s.id.String() + "[" + s.mode.String() + "@" + strconv.Itoa(s.Port()) + "]"
}

// snapshotIdentity keys the history of target i among total. A lone target
// keeps the test's own identity.
func snapshotIdentity(id identity.Identity, i, total int) identity.Identity {
	if total <= 1 {
		return id
	}
	return id.WithIndex(i + 1)
}
