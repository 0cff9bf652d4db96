package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/identity"
)

// runningSession builds a RUNNING session with one target per base URL.
func runningSession(t *testing.T, baseURLs ...string) *Session {
	t.Helper()
	s := newSession(Spec{Identity: identity.New("OrdersTest", "create")}, ModePlayback)
	for i, u := range baseURLs {
		s.targets = append(s.targets, &Target{Port: 30000 + i, BaseURL: u})
	}
	require.NoError(t, s.transition(StateStarting))
	require.NoError(t, s.transition(StateRunning))
	return s
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := runningSession(t, "http://127.0.0.1:1")
	b := runningSession(t, "http://127.0.0.1:2")

	r.Bind("TestA", a)
	r.Bind("TestA/sub", a)
	r.Bind("TestB", b)
	assert.Equal(t, 3, r.Len())

	got, ok := r.Lookup("TestA")
	require.True(t, ok)
	assert.Same(t, a, got)

	r.Bind("TestB", a)
	got, _ = r.Lookup("TestB")
	assert.Same(t, a, got, "rebinding replaces")

	r.Unbind("TestB")
	_, ok = r.Lookup("TestB")
	assert.False(t, ok)

	r.Bind("TestB", b)
	r.UnbindSession(a)
	assert.Equal(t, 1, r.Len())
	got, ok = r.Lookup("TestB")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestContextBinding(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	//nolint:staticcheck // nil context is accepted
	_, ok = FromContext(nil)
	assert.False(t, ok)

	_, ok = FromContext(WithSession(context.Background(), nil))
	assert.False(t, ok)

	s := runningSession(t, "http://127.0.0.1:1")
	got, ok := FromContext(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestRegistryNearest(t *testing.T) {
	r := NewRegistry()
	class := runningSession(t, "http://127.0.0.1:1")
	method := runningSession(t, "http://127.0.0.1:2")
	r.Bind("TestOrders", class)
	r.Bind("TestOrders/create", method)

	got, ok := r.Nearest("TestOrders/create/ok")
	require.True(t, ok)
	assert.Same(t, method, got)

	got, ok = r.Nearest("TestOrders/list")
	require.True(t, ok)
	assert.Same(t, class, got)

	_, ok = r.Nearest("TestUsers/list")
	assert.False(t, ok)
}
