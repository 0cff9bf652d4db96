package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/replayd/internal/atomicfile"
	"github.com/getmockd/replayd/internal/id"
	"github.com/getmockd/replayd/internal/ports"
	"github.com/getmockd/replayd/pkg/config"
	"github.com/getmockd/replayd/pkg/detection"
	"github.com/getmockd/replayd/pkg/engine"
	"github.com/getmockd/replayd/pkg/logging"
	"github.com/getmockd/replayd/pkg/snapshot"
	"github.com/getmockd/replayd/pkg/util"
)

// Options configures a Manager. Nil collaborators default to the real
// implementations rooted at Config.RootDir.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	NewEngine EngineFactory
	Ports     PortAllocator
	Snapshots *snapshot.Store
	Results   *detection.ResultStore
	Detector  *detection.Detector
	Registry  *Registry
}

// Manager starts and stops sessions.
type Manager struct {
	cfg       config.Config
	log       *slog.Logger
	base      *slog.Logger // handed to collaborators, untagged
	newEngine EngineFactory
	ports     PortAllocator
	snapshots *snapshot.Store
	results   *detection.ResultStore
	detector  *detection.Detector
	registry  *Registry
	writer    atomicfile.Writer

	mu   sync.Mutex
	live map[string]int // class directory -> live sessions
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = opts.Config
	}
	log := logging.Component(opts.Logger, "session")

	m := &Manager{
		cfg:       *cfg,
		log:       log,
		base:      opts.Logger,
		newEngine: opts.NewEngine,
		ports:     opts.Ports,
		snapshots: opts.Snapshots,
		results:   opts.Results,
		detector:  opts.Detector,
		registry:  opts.Registry,
		writer:    atomicfile.Writer{Logger: log},
		live:      make(map[string]int),
	}
	if m.newEngine == nil {
		m.newEngine = NewEngine
	}
	if m.ports == nil {
		m.ports = ports.Default()
	}
	if m.snapshots == nil {
		m.snapshots = snapshot.NewStore(snapshot.Options{Root: cfg.RootDir, Limit: cfg.HistoryLimit, Logger: opts.Logger})
	}
	if m.results == nil {
		m.results = detection.NewResultStore(detection.ResultStoreOptions{Root: cfg.RootDir, Logger: opts.Logger})
	}
	if m.detector == nil {
		m.detector = detection.New(detection.Options{Logger: opts.Logger})
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	return m
}

// Config returns the manager's configuration.
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Registry returns the registry sessions are unbound from on End.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Begin starts a session for spec. Any failure is fatal for the session: it
// is left STOPPED and a *StartError names the missing precondition.
func (m *Manager) Begin(ctx context.Context, spec Spec) (*Session, error) {
	s := newSession(spec, m.cfg.Mode)
	if err := s.transition(StateStarting); err != nil {
		return nil, err
	}

	classDir := s.id.ClassDir(m.cfg.RootDir)
	m.acquire(classDir)

	if err := m.start(ctx, s); err != nil {
		_ = m.stopEngines(ctx, s)
		_ = s.transition(StateStopped)
		m.release(classDir)
		m.log.Error("session failed to start", "identity", s.id.String(), "mode", s.mode.String(), "error", err)
		return nil, &StartError{Identity: s.id, Err: err}
	}

	if err := s.transition(StateRunning); err != nil {
		return nil, err
	}
	m.log.Info("session started", "identity", s.id.String(), "mode", s.mode.String(),
		"scope", s.scope.String(), "port", s.Port())
	return s, nil
}

func (m *Manager) start(ctx context.Context, s *Session) error {
	urls := s.spec.TargetURLs
	record := s.mode.IsRecord()
	if record && len(urls) == 0 {
		return ErrNoTargetURL
	}

	total := max(1, len(urls))
	for i := range total {
		t := &Target{
			MappingsDir: s.id.MappingsDir(m.cfg.RootDir, i, total),
			Identity:    snapshotIdentity(s.id, i, total),
		}
		if i < len(urls) {
			t.URL = urls[i]
		}

		if record {
			if err := prepareMappingsDir(t.MappingsDir); err != nil {
				return fmt.Errorf("%w: %w", ErrDirectory, err)
			}
		} else if _, err := os.Stat(t.MappingsDir); errors.Is(err, fs.ErrNotExist) {
			m.log.Warn("no recordings for playback", "identity", t.Identity.String(), "path", t.MappingsDir)
		}

		port, err := m.ports.FindFree()
		if err != nil {
			return err
		}
		t.Port = port
		t.BaseURL = "http://127.0.0.1:" + strconv.Itoa(port)
		t.engine = m.newEngine(engine.Options{
			Port:             port,
			MappingsDir:      t.MappingsDir,
			ProxyTimeout:     m.cfg.ProxyTimeout,
			ExtractThreshold: m.cfg.ExtractThreshold,
			Logger:           m.base,
		})
		s.targets = append(s.targets, t)

		if record {
			if err := t.engine.ProxyAllTo(t.URL); err != nil {
				return err
			}
		} else if err := t.engine.LoadMappings(); err != nil {
			m.log.Warn("failed to load mappings", "identity", t.Identity.String(), "path", t.MappingsDir, "error", err)
		}
		m.registerIgnorePatterns(t, s.spec.IgnorePatterns)

		if err := t.engine.Start(ctx); err != nil {
			return err
		}
		t.started = true
	}

	if d := m.cfg.StartupDelay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func prepareMappingsDir(dir string) error {
	for _, sub := range []string{engine.MappingsDirName, engine.FilesDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), atomicfile.DefaultDirPerm); err != nil {
			return err
		}
	}
	return nil
}

// registerIgnorePatterns hands the persisted and explicit patterns to the
// engine in both modes. The accepted ones are stamped into every stub the
// session records.
func (m *Manager) registerIgnorePatterns(t *Target, explicit []string) {
	patterns := append(m.results.IgnorePatterns(t.Identity), explicit...)
	for _, p := range patterns {
		if err := t.engine.AddIgnorePattern(p); err != nil {
			m.log.Warn("ignoring invalid pattern", "identity", t.Identity.String(), "pattern", p, "error", err)
			continue
		}
		t.patterns = appendUnique(t.patterns, p)
	}
}

func appendUnique(dst []string, src ...string) []string {
	for _, p := range src {
		if !slices.Contains(dst, p) {
			dst = append(dst, p)
		}
	}
	return dst
}

// End runs the STOPPING path: persist recordings (record mode), stop every
// engine and clear the session's bindings. Persistence failures are logged
// only; the returned error reports engine shutdown problems. Ending a
// stopped session is a no-op.
func (m *Manager) End(ctx context.Context, s *Session) error {
	if s == nil || s.State() == StateStopped {
		return nil
	}
	if err := s.transition(StateStopping); err != nil {
		return err
	}

	if s.mode.IsRecord() {
		m.persist(s)
	}

	err := m.stopEngines(ctx, s)
	m.registry.UnbindSession(s)
	_ = s.transition(StateStopped)
	m.release(s.id.ClassDir(m.cfg.RootDir))

	m.log.Info("session stopped", "identity", s.id.String(), "mode", s.mode.String())
	return err
}

func (m *Manager) stopEngines(ctx context.Context, s *Session) error {
	var errs []error
	for _, t := range s.targets {
		if !t.started {
			continue
		}
		if err := t.engine.Stop(ctx); err != nil {
			m.log.Warn("failed to stop engine", "identity", t.Identity.String(), "port", t.Port, "error", err)
			errs = append(errs, err)
		}
		t.started = false
	}
	return errors.Join(errs...)
}

// persist writes every target's stubs and request history. It never fails
// the caller.
func (m *Manager) persist(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic while persisting recordings", "identity", s.id.String(), "panic", r)
		}
	}()

	for _, t := range s.targets {
		stubs := t.engine.SnapshotRecordedStubs(t.URL)

		var errs []error
		for _, stub := range stubs {
			name := mappingName(stub)
			detected := m.recordHistory(t, name, stub)
			stub.Request.IgnorePatterns = appendUnique(stub.Request.IgnorePatterns, t.patterns...)
			stub.Request.IgnorePatterns = appendUnique(stub.Request.IgnorePatterns, detected...)
			if err := m.saveMapping(t, name, stub); err != nil {
				errs = append(errs, err)
			}
		}

		if err := errors.Join(errs...); err != nil {
			m.log.Warn("failed to persist mappings", "identity", t.Identity.String(), "path", t.MappingsDir, "error", err)
		}
		m.log.Debug("mappings persisted", "identity", t.Identity.String(), "count", len(stubs)-len(errs))
	}
}

// mappingName is the stable name of a recorded stub. The engine derives it
// from method, path and arrival order, so the same request gets the same
// name on every run.
func mappingName(stub *engine.Stub) string {
	switch {
	case stub.Name != "":
		return stub.Name
	case stub.ID != "":
		return stub.ID
	default:
		return id.UUID()
	}
}

// saveMapping writes the stub's mapping file, plus its payload file when the
// body was detached. Files are named after the stub so a re-recording
// overwrites the previous one.
func (m *Manager) saveMapping(t *Target, name string, stub *engine.Stub) error {
	if stub.Response.BodyFileName != "" {
		stub.Response.BodyFileName = util.SafeFileName(stub.Response.BodyFileName)
		payload := stub.Payload
		path := filepath.Join(t.MappingsDir, engine.FilesDirName, stub.Response.BodyFileName)
		if err := m.writer.Write(path, func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		}); err != nil {
			return err
		}
	}

	path := filepath.Join(t.MappingsDir, engine.MappingsDirName, util.SafeFileName(name)+".json")
	return m.writer.WriteJSON(path, stub)
}

// recordHistory appends the stub's request body to the history of that one
// request and re-runs detection once enough snapshots exist. It returns the
// ignore patterns detected for the request.
func (m *Manager) recordHistory(t *Target, name string, stub *engine.Stub) []string {
	if stub.Request.Body == "" {
		return nil
	}
	rid := t.Identity.WithRequest(name)

	history, err := m.snapshots.Append(rid, snapshot.RequestSnapshot{
		URL:         stub.Request.URL,
		Method:      stub.Request.Method,
		Body:        stub.Request.Body,
		ContentType: stub.Request.ContentType,
	})
	if err != nil {
		m.log.Warn("failed to append snapshot", "identity", rid.String(), "error", err)
		return nil
	}
	if len(history) < detection.MinSnapshots {
		return nil
	}

	result := m.detector.Detect(rid, history)
	if err := m.results.Save(rid, result); err != nil {
		m.log.Warn("failed to save detection result", "identity", rid.String(), "error", err)
	}
	m.log.Debug("dynamic fields detected", "identity", rid.String(),
		"snapshots", result.SnapshotCount, "fields", len(result.DynamicFields))
	return result.IgnorePatterns
}

func (m *Manager) acquire(classDir string) {
	m.mu.Lock()
	m.live[classDir]++
	m.mu.Unlock()
}

// release drops a live session of the class and removes the class directory
// once no session is left and nothing was recorded under it.
func (m *Manager) release(classDir string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.live[classDir]--
	if m.live[classDir] > 0 {
		return
	}
	delete(m.live, classDir)

	removed, err := removeIfEmpty(classDir)
	if err != nil {
		m.log.Warn("failed to clean class directory", "path", classDir, "error", err)
		return
	}
	if removed {
		m.log.Debug("removed empty class directory", "path", classDir)
	}
}

// removeIfEmpty removes dir when its tree holds no regular file.
func removeIfEmpty(dir string) (bool, error) {
	errFound := errors.New("found")
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return errFound
		}
		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, os.RemoveAll(dir)
}
