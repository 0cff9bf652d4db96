// Package report summarizes a recordings root: which test classes and
// methods have recordings, how many mappings each holds and which fields
// were detected as dynamic.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/replayd/internal/atomicfile"
	"github.com/getmockd/replayd/pkg/detection"
	"github.com/getmockd/replayd/pkg/logging"
)

// Discovery patterns relative to the recordings root.
const (
	DetectionGlob = "**/detected-fields*.json"
	MappingGlob   = "**/mappings/*.json"
)

// Report is the aggregate recording report.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Root        string    `json:"root"`
	Classes     []Class   `json:"classes"`
}

// Class groups the methods recorded for one test class.
type Class struct {
	Name    string   `json:"name"`
	Methods []Method `json:"methods"`
}

// Method is one recorded identity. Class-scoped sessions appear under the
// reserved "_class" method name.
type Method struct {
	Name          string                `json:"name"`
	Mappings      []string              `json:"mappings"`
	DynamicFields []detection.Candidate `json:"dynamicFields"`
}

// Options configures Build.
type Options struct {
	// Now stamps GeneratedAt. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Build scans root and returns the report. A missing root yields an empty
// report; unreadable detection files are skipped with a warning.
func Build(root string) (*Report, error) {
	return BuildWithOptions(root, Options{})
}

// BuildWithOptions is Build with explicit options.
func BuildWithOptions(root string, opts Options) (*Report, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logging.OrNop(opts.Logger)

	r := &Report{GeneratedAt: now().UTC(), Root: root, Classes: []Class{}}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}

	fsys := os.DirFS(root)
	idx := newIndex()

	mappings, err := doublestar.Glob(fsys, MappingGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings in %s: %w", root, err)
	}
	for _, name := range mappings {
		class, method, ok := split(name)
		if !ok {
			continue
		}
		m := idx.method(class, method)
		m.Mappings = append(m.Mappings, name)
	}

	results, err := doublestar.Glob(fsys, DetectionGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to list detection results in %s: %w", root, err)
	}
	for _, name := range results {
		class, method, ok := split(name)
		if !ok {
			continue
		}
		result, err := detection.ReadResultFile(filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			log.Warn("skipping detection result", "path", name, "error", err)
			continue
		}
		m := idx.method(class, method)
		m.DynamicFields = append(m.DynamicFields, result.DynamicFields...)
	}

	r.Classes = idx.classes()
	return r, nil
}

// Write persists r as JSON at path.
func Write(path string, r *Report) error {
	return atomicfile.WriteJSON(path, r)
}

// split returns the class and method directories a root-relative path
// belongs to.
func split(name string) (class, method string, ok bool) {
	parts := strings.Split(path.Clean(name), "/")
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type index struct {
	byClass map[string]map[string]*Method
}

func newIndex() *index {
	return &index{byClass: make(map[string]map[string]*Method)}
}

func (x *index) method(class, method string) *Method {
	methods, ok := x.byClass[class]
	if !ok {
		methods = make(map[string]*Method)
		x.byClass[class] = methods
	}
	m, ok := methods[method]
	if !ok {
		m = &Method{Name: method, Mappings: []string{}, DynamicFields: []detection.Candidate{}}
		methods[method] = m
	}
	return m
}

func (x *index) classes() []Class {
	out := make([]Class, 0, len(x.byClass))
	for name, methods := range x.byClass {
		c := Class{Name: name, Methods: make([]Method, 0, len(methods))}
		for _, m := range methods {
			slices.Sort(m.Mappings)
			c.Methods = append(c.Methods, *m)
		}
		slices.SortFunc(c.Methods, func(a, b Method) int { return strings.Compare(a.Name, b.Name) })
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Class) int { return strings.Compare(a.Name, b.Name) })
	return out
}
