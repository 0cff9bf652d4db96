package engine

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/replayd/internal/id"
	"github.com/getmockd/replayd/pkg/logging"
	"github.com/getmockd/replayd/pkg/util"
)

//go:embed schema/stub.schema.json
var stubSchemaJSON string

var stubSchema = jsonschema.MustCompileString("stub.schema.json", stubSchemaJSON)

// skipResponseHeaders are not stored in stubs as the server regenerates them.
var skipResponseHeaders = map[string]bool{
	"Date":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
	"Keep-Alive":        true,
	"Server":            true,
	"X-Powered-By":      true,
	"Age":               true,
}

// LoadMappings replaces the engine's stubs with the ones found under
// <MappingsDir>/mappings. Invalid files are skipped with a warning. A missing
// directory loads nothing.
func (e *Engine) LoadMappings() error {
	stubs, err := ReadMappings(e.opts.MappingsDir, e.log)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.stubs = stubs
	e.mu.Unlock()

	e.log.Debug("mappings loaded", "dir", e.opts.MappingsDir, "count", len(stubs))
	return nil
}

// ReadMappings reads and validates every stub under dir/mappings. Files that
// fail are logged and skipped.
func ReadMappings(dir string, log *slog.Logger) ([]*Stub, error) {
	log = logging.OrNop(log)
	if dir == "" {
		return nil, nil
	}
	fsys := os.DirFS(dir)
	if _, err := fs.Stat(fsys, MappingsDirName); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(fsys, MappingsDirName+"/**/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings in %s: %w", dir, err)
	}

	stubs := make([]*Stub, 0, len(matches))
	for _, name := range matches {
		s, err := readStub(fsys, name)
		if err != nil {
			log.Warn("skipping stub mapping", "path", filepath.Join(dir, filepath.FromSlash(name)), "error", err)
			continue
		}
		stubs = append(stubs, s)
	}
	return stubs, nil
}

func readStub(fsys fs.FS, name string) (*Stub, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStub, err)
	}
	if err := stubSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStub, err)
	}

	var s Stub
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStub, err)
	}
	if s.Request.Method == "" || s.Request.URL == "" {
		return nil, fmt.Errorf("%w: request method and url are required", ErrInvalidStub)
	}

	if file := s.Response.BodyFileName; file != "" {
		if !fs.ValidPath(file) || strings.Contains(file, "/") {
			return nil, fmt.Errorf("%w: bodyFileName %q", ErrInvalidStub, file)
		}
		s.Payload, err = fs.ReadFile(fsys, FilesDirName+"/"+file)
		if err != nil {
			return nil, fmt.Errorf("failed to read body file: %w", err)
		}
	}

	s.rules, err = compileRules(s.Request.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = id.UUID()
	}
	return &s, nil
}

// SnapshotRecordedStubs converts the exchanges forwarded to target into
// stubs. Identical requests are kept once; names repeated within the
// snapshot get a numeric suffix so each stub has its own file name.
func (e *Engine) SnapshotRecordedStubs(target string) []*Stub {
	target = normalizeTarget(target)

	var (
		stubs []*Stub
		seen  = make(map[string]bool)
		names = make(map[string]int)
	)
	for _, rec := range e.Recordings() {
		if rec.Target != target {
			continue
		}
		key := rec.Request.Method + " " + rec.Request.URL + "\n" + rec.Request.Body
		if seen[key] {
			continue
		}
		seen[key] = true

		s := toStub(rec, e.opts.ExtractThreshold)
		names[s.Name]++
		if n := names[s.Name]; n > 1 {
			s.Name = fmt.Sprintf("%s-%d", s.Name, n)
		}
		if s.Response.BodyFileName != "" {
			s.Response.BodyFileName = util.SafeFileName(s.Name) + "-body" + bodyExtension(rec.Response.Headers.Get("Content-Type"))
		}
		stubs = append(stubs, s)
	}
	return stubs
}

func toStub(rec *Recording, threshold int) *Stub {
	s := &Stub{
		ID:   id.UUID(),
		Name: id.StubName(rec.Request.Method, rec.Request.URL),
		Request: StubRequest{
			Method:      rec.Request.Method,
			URL:         rec.Request.URL,
			ContentType: rec.Request.ContentType,
		},
		Response: StubResponse{
			Status: rec.Response.Status,
		},
	}
	if utf8.ValidString(rec.Request.Body) {
		s.Request.Body = rec.Request.Body
	}

	if len(rec.Response.Headers) > 0 {
		headers := make(map[string]string)
		for key, values := range rec.Response.Headers {
			if skipResponseHeaders[key] || len(values) == 0 {
				continue
			}
			headers[key] = values[0]
		}
		if len(headers) > 0 {
			s.Response.Headers = headers
		}
	}

	body := rec.Response.Body
	switch {
	case threshold > 0 && len(body) > threshold:
		s.Payload = body
		s.Response.BodyFileName = "body"
	case utf8.Valid(body):
		s.Response.Body = string(body)
	default:
		s.Response.Base64Body = base64.StdEncoding.EncodeToString(body)
	}
	return s
}

func bodyExtension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".txt"
	}
	switch {
	case strings.HasSuffix(mediaType, "json"):
		return ".json"
	case strings.HasSuffix(mediaType, "xml"):
		return ".xml"
	case strings.HasPrefix(mediaType, "text/"):
		return ".txt"
	default:
		return ".bin"
	}
}
