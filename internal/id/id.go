package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// UUID generates a random UUID v4 string.
func UUID() string {
	return uuid.NewString()
}

// Short generates a short random hex ID (16 characters).
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StubName derives a readable stub name from an HTTP method and request path,
// e.g. ("POST", "/v1/orders/42") -> "post-v1-orders-42". A root or empty path
// yields "<method>-root". The result is lower case and may still need
// util.SafeFileName before it is used as a file name.
func StubName(method, path string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "any"
	}

	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return method + "-root"
	}
	return method + "-" + strings.Join(parts, "-")
}
