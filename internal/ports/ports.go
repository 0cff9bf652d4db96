// Package ports provides port availability checking and free-port allocation.
package ports

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"
)

// ErrExhausted is returned when no free port could be obtained after all retries.
var ErrExhausted = errors.New("no free port available")

// Allocation defaults.
const (
	DefaultAttempts   = 10
	DefaultMinBackoff = 10 * time.Millisecond
	DefaultMaxBackoff = 50 * time.Millisecond
)

// listen is swapped in tests to simulate bind failures.
var listen = net.Listen

// Allocator hands out free local TCP ports. The zero value is ready to use.
//
// A port returned by FindFree has already been released again, so another
// process may claim it before the caller binds it. Retries with a short
// randomized backoff keep collisions rare when many tests start at once.
type Allocator struct {
	// Host is the interface to probe. Defaults to 127.0.0.1.
	Host string
	// Attempts bounds the number of bind attempts. Defaults to DefaultAttempts.
	Attempts int
	// MinBackoff and MaxBackoff bound the random pause between attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	mu sync.Mutex
}

var defaultAllocator Allocator

// Default returns the process-wide allocator shared by every session.
func Default() *Allocator {
	return &defaultAllocator
}

// FindFree returns a free port using the process-wide allocator.
func FindFree() (int, error) {
	return defaultAllocator.FindFree()
}

// FindFree binds an ephemeral listener on port 0, reads back the assigned
// port and releases it.
func (a *Allocator) FindFree() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	host := a.Host
	if host == "" {
		host = "127.0.0.1"
	}
	attempts := a.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(a.backoff())
		}
		port, err := probe(host)
		if err == nil {
			return port, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func (a *Allocator) backoff() time.Duration {
	lo, hi := a.MinBackoff, a.MaxBackoff
	if lo <= 0 {
		lo = DefaultMinBackoff
	}
	if hi < lo {
		hi = DefaultMaxBackoff
		if hi < lo {
			hi = lo
		}
	}
	if hi == lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

func probe(host string) (int, error) {
	ln, err := listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer func() { _ = ln.Close() }()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok || addr.Port == 0 {
		return 0, fmt.Errorf("unexpected listener address %v", ln.Addr())
	}
	return addr.Port, nil
}

// IsAvailable checks if a port is available for binding.
func IsAvailable(port int) bool {
	return Check(port) == nil
}

// Check checks if a port is available and returns an error if not.
func Check(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	_ = ln.Close()
	return nil
}
