package id

import (
	"regexp"
	"sync"
	"testing"
)

func TestUUID_Format(t *testing.T) {
	id := UUID()

	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("UUID() = %q, does not match UUID v4 format", id)
	}
}

func TestShort_Format(t *testing.T) {
	id := Short()
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(id) {
		t.Errorf("Short() = %q, want 16 hex characters", id)
	}
}

func TestShort_Concurrent(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := Short()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d unique ids, got %d", n, len(seen))
	}
}

func TestStubName(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/users/123", "get-users-123"},
		{"POST", "/v1/orders/", "post-v1-orders"},
		{"get", "/search?q=x", "get-search"},
		{"DELETE", "/", "delete-root"},
		{"", "", "any-root"},
		{"PUT", "/Items#frag", "put-items"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if got := StubName(tt.method, tt.path); got != tt.want {
				t.Errorf("StubName(%q, %q) = %q, want %q", tt.method, tt.path, got, tt.want)
			}
		})
	}
}
