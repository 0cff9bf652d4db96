package session

import (
	"context"
	"strings"
	"sync"
)

// Registry binds sessions to string keys, typically the test name, so code
// that only knows the key can find the running session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Bind associates key with s, replacing any earlier binding.
func (r *Registry) Bind(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = s
}

// Lookup returns the session bound to key.
func (r *Registry) Lookup(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Nearest returns the session bound to key or, failing that, to the closest
// enclosing test name ("TestA/b/c" -> "TestA/b" -> "TestA").
func (r *Registry) Nearest(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for {
		if s, ok := r.sessions[key]; ok {
			return s, true
		}
		i := strings.LastIndexByte(key, '/')
		if i < 0 {
			return nil, false
		}
		key = key[:i]
	}
}

// Unbind removes the binding of key.
func (r *Registry) Unbind(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// UnbindSession removes every key bound to s.
func (r *Registry) UnbindSession(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, bound := range r.sessions {
		if bound == s {
			delete(r.sessions, key)
		}
	}
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type contextKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
