// Package snapshot keeps a bounded, append-only history of request bodies per
// test identity. The history is the input of field detection.
package snapshot

import "errors"

// DefaultLimit is the number of snapshots retained per identity.
const DefaultLimit = 10

// ErrCorrupted indicates a history file that could not be decoded.
var ErrCorrupted = errors.New("snapshot history corrupted")

// RequestSnapshot is one captured request. Immutable once recorded.
type RequestSnapshot struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Body   string `json:"body"`
	// ContentType is the request's declared media type, if any. Detection
	// sniffs the body when it is empty.
	ContentType string `json:"contentType,omitempty"`
}

// History is an ordered sequence of snapshots, oldest first.
type History []RequestSnapshot

// Bound returns the most recent limit snapshots of h, dropping from the front.
func (h History) Bound(limit int) History {
	if limit <= 0 || len(h) <= limit {
		return h
	}
	out := make(History, limit)
	copy(out, h[len(h)-limit:])
	return out
}
