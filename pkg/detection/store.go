package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/getmockd/replayd/internal/atomicfile"
	"github.com/getmockd/replayd/pkg/identity"
	"github.com/getmockd/replayd/pkg/logging"
)

// ResultStoreOptions configures a ResultStore.
type ResultStoreOptions struct {
	// Root is the directory all identities are laid out under.
	Root string
	// Logger receives warnings about unreadable result files.
	Logger *slog.Logger
}

// ResultStore persists detection results, one detected-fields file per
// identity. A save always replaces the previous result.
type ResultStore struct {
	root   string
	log    *slog.Logger
	writer atomicfile.Writer
}

// NewResultStore creates a result store rooted at opts.Root.
func NewResultStore(opts ResultStoreOptions) *ResultStore {
	log := logging.Component(opts.Logger, "detection")
	return &ResultStore{
		root:   opts.Root,
		log:    log,
		writer: atomicfile.Writer{Logger: log},
	}
}

// Path returns the detection file of id.
func (s *ResultStore) Path(id identity.Identity) string {
	return id.DetectionPath(s.root)
}

// Save atomically writes result for id, replacing any earlier file.
func (s *ResultStore) Save(id identity.Identity, result *Result) error {
	if result == nil {
		return errors.New("detection result cannot be nil")
	}
	stored := *result
	stored.Identity = id
	if stored.DynamicFields == nil {
		stored.DynamicFields = []Candidate{}
	}
	if stored.IgnorePatterns == nil {
		stored.IgnorePatterns = []string{}
	}
	if err := s.writer.WriteJSON(s.Path(id), &stored); err != nil {
		return fmt.Errorf("failed to save detection result for %s: %w", id, err)
	}
	return nil
}

// Load returns the stored result for id. The second return value is false
// when no usable result exists; unreadable files are logged.
func (s *ResultStore) Load(id identity.Identity) (*Result, bool) {
	path := s.Path(id)
	result, err := ReadResultFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("ignoring unreadable detection result", "identity", id.String(), "path", path, "error", err)
		}
		return nil, false
	}
	return result, true
}

// IgnorePatterns returns the stored patterns for id, or nil.
func (s *ResultStore) IgnorePatterns(id identity.Identity) []string {
	result, ok := s.Load(id)
	if !ok {
		return nil
	}
	return result.IgnorePatterns
}

// ReadResultFile decodes a detected-fields file.
func ReadResultFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &result, nil
}
