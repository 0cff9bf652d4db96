package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/getmockd/replayd/internal/atomicfile"
	"github.com/getmockd/replayd/pkg/identity"
	"github.com/getmockd/replayd/pkg/logging"
)

// Options configures a Store.
type Options struct {
	// Root is the directory all identities are laid out under.
	Root string
	// Limit bounds the history length. Defaults to DefaultLimit.
	Limit int
	// Logger receives warnings about corrupt history files.
	Logger *slog.Logger
}

// Store persists snapshot histories, one file per identity.
type Store struct {
	root   string
	limit  int
	log    *slog.Logger
	writer atomicfile.Writer

	locks sync.Map // history path -> *sync.Mutex
}

// NewStore creates a snapshot store rooted at opts.Root.
func NewStore(opts Options) *Store {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	log := logging.Component(opts.Logger, "snapshot")
	return &Store{
		root:   opts.Root,
		limit:  opts.Limit,
		log:    log,
		writer: atomicfile.Writer{Logger: log},
	}
}

// Limit returns the configured history bound.
func (s *Store) Limit() int {
	return s.limit
}

// Path returns the history file of id.
func (s *Store) Path(id identity.Identity) string {
	return id.SnapshotPath(s.root)
}

// Append adds snap to the history of id, evicting the oldest entries beyond
// the limit, and persists the result atomically. It returns the new history.
func (s *Store) Append(id identity.Identity, snap RequestSnapshot) (History, error) {
	path := s.Path(id)
	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	history := s.load(id, path)
	history = append(history, snap).Bound(s.limit)

	if err := s.writer.WriteJSON(path, history); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot history for %s: %w", id, err)
	}
	return history, nil
}

// Load returns the history of id. A missing or corrupt file yields an empty
// history; corruption is logged, never returned.
func (s *Store) Load(id identity.Identity) History {
	path := s.Path(id)
	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()
	return s.load(id, path)
}

func (s *Store) load(id identity.Identity, path string) History {
	history, err := ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("ignoring unreadable snapshot history", "identity", id.String(), "path", path, "error", err)
		}
		return History{}
	}
	return history
}

func (s *Store) lock(path string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ReadFile decodes a history file. Decoding failures wrap ErrCorrupted.
func ReadFile(path string) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var history History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupted, path, err)
	}
	if history == nil {
		history = History{}
	}
	return history, nil
}
