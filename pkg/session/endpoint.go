package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is a base URL resolved at the moment it is needed, not when it
// is configured. Clients built before a session exists stay correct because
// every request resolves again.
type Endpoint struct {
	// Key is looked up in Registry when the context carries no session. A
	// subtest name also finds the session bound to its parent test.
	Key string
	// Registry defaults to DefaultRegistry.
	Registry *Registry
	// Fallback is used when no running session is found (config BaseURL).
	Fallback string
	// Target selects which session target to address.
	Target int
}

// Resolve returns the base URL for ctx: the session carried by ctx, then the
// session bound to Key, then Fallback.
func (e Endpoint) Resolve(ctx context.Context) (string, error) {
	if s, ok := FromContext(ctx); ok && s.Running() {
		return e.targetURL(s)
	}

	reg := e.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	if e.Key != "" {
		if s, ok := reg.Nearest(e.Key); ok && s.Running() {
			return e.targetURL(s)
		}
	}

	if e.Fallback != "" {
		return e.Fallback, nil
	}
	return "", ErrNoSession
}

func (e Endpoint) targetURL(s *Session) (string, error) {
	u := s.BaseURLAt(e.Target)
	if u == "" {
		return "", fmt.Errorf("%w: session %s has no target %d", ErrNoSession, s.Identity(), e.Target)
	}
	return u, nil
}

// Transport rewrites each request to the endpoint resolved for it and hands
// it to Base.
type Transport struct {
	Endpoint Endpoint
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base, err := t.Endpoint.Resolve(req.Context())
	if err != nil {
		closeBody(req)
		return nil, err
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		closeBody(req)
		return nil, fmt.Errorf("invalid endpoint %q", base)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = u.Scheme
	out.URL.Host = u.Host
	if prefix := strings.TrimSuffix(u.Path, "/"); prefix != "" {
		out.URL.Path = prefix + req.URL.Path
		out.URL.RawPath = ""
	}
	out.Host = ""

	rt := t.Base
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(out)
}

// NewClient returns an HTTP client whose requests go to e.
func NewClient(e Endpoint) *http.Client {
	return &http.Client{Transport: &Transport{Endpoint: e}}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
