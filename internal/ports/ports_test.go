package ports

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFree_ReturnsBindablePort(t *testing.T) {
	port, err := FindFree()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.True(t, IsAvailable(port), "released port should be bindable again")
}

func TestFindFree_Concurrent(t *testing.T) {
	var (
		wg   sync.WaitGroup
		errs = make(chan error, 32)
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := FindFree(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("FindFree failed: %v", err)
	}
}

func TestFindFree_RetriesThenSucceeds(t *testing.T) {
	orig := listen
	t.Cleanup(func() { listen = orig })

	calls := 0
	listen = func(network, address string) (net.Listener, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("address in use")
		}
		return orig(network, address)
	}

	a := &Allocator{MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	port, err := a.FindFree()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.Equal(t, 3, calls)
}

func TestFindFree_Exhausted(t *testing.T) {
	orig := listen
	t.Cleanup(func() { listen = orig })

	calls := 0
	listen = func(string, string) (net.Listener, error) {
		calls++
		return nil, errors.New("address in use")
	}

	a := &Allocator{MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	_, err := a.FindFree()
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, DefaultAttempts, calls)
}

func TestCheck_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.Error(t, Check(port))
	assert.False(t, IsAvailable(port))
}
