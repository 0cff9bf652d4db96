// Package identity names the unit a recording belongs to and maps it onto the
// on-disk layout shared by the snapshot store, the detection result store and
// the session manager.
//
// Layout under a root directory:
//
//	<root>/<class>/<method>/snapshots.json          request history
//	<root>/<class>/<method>/detected-fields.json    detection result
//	<root>/<class>/<method>/mappings/*.json         recorded stubs
//	<root>/<class>/<method>/__files/*               extracted bodies
//	<root>/<class>/_class/...                       class-scoped session
//
// An annotation index > 0 suffixes the per-identity files ("snapshots-2.json")
// so one test method can track several external services independently. A
// request name further splits history per recorded request
// ("snapshots-2.post-quote.json") so distinct requests are never compared.
package identity

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getmockd/replayd/pkg/util"
)

// File names of per-identity artifacts.
const (
	SnapshotsFile = "snapshots"
	DetectedFile  = "detected-fields"
	ClassDirName  = "_class"
)

// Identity is the composite key of test class, test method and optional
// annotation index.
type Identity struct {
	Class  string `json:"testClassName"`
	Method string `json:"testMethodName"`
	Index  int    `json:"annotationIndex,omitempty"`

	// Request names one logical request of the identity, usually the
	// recorded stub's name.
	Request string `json:"request,omitempty"`
}

// New returns an identity without annotation index.
func New(class, method string) Identity {
	return Identity{Class: class, Method: method}
}

// WithIndex returns a copy of id tracking annotation index i.
func (id Identity) WithIndex(i int) Identity {
	id.Index = i
	return id
}

// WithRequest returns a copy of id scoped to the named request.
func (id Identity) WithRequest(name string) Identity {
	id.Request = name
	return id
}

// FromTestName splits a go test name ("TestOrders/create/ok") into class
// ("TestOrders") and method ("create/ok"). A top-level test is its own method.
func FromTestName(name string) Identity {
	class, method, found := strings.Cut(name, "/")
	if !found {
		return New(class, class)
	}
	return New(class, method)
}

// IsClass reports whether id names a class-scoped unit (no method).
func (id Identity) IsClass() bool {
	return id.Method == ""
}

// String renders the identity as "Class.method[#index][:request]".
func (id Identity) String() string {
	s := id.Class
	if id.Method != "" {
		s += "." + id.Method
	}
	if id.Index > 0 {
		s += fmt.Sprintf("#%d", id.Index)
	}
	if id.Request != "" {
		s += ":" + id.Request
	}
	return s
}

// ClassDir is the directory holding everything recorded for the test class.
func (id Identity) ClassDir(root string) string {
	return filepath.Join(root, util.SafeFileName(id.Class))
}

// Dir is the directory holding the identity's artifacts. Class-scoped
// identities live in a reserved subdirectory of the class directory.
func (id Identity) Dir(root string) string {
	if id.IsClass() {
		return filepath.Join(id.ClassDir(root), ClassDirName)
	}
	return filepath.Join(id.ClassDir(root), util.SafeFileName(id.Method))
}

// SnapshotPath is the location of the request history file.
func (id Identity) SnapshotPath(root string) string {
	return filepath.Join(id.Dir(root), id.fileName(SnapshotsFile))
}

// DetectionPath is the location of the detection result file.
func (id Identity) DetectionPath(root string) string {
	return filepath.Join(id.Dir(root), id.fileName(DetectedFile))
}

// MappingsDir is the mock engine's mapping directory for the target at
// position target among total targets. A single target uses Dir directly.
func (id Identity) MappingsDir(root string, target, total int) string {
	if total <= 1 {
		return id.Dir(root)
	}
	return filepath.Join(id.Dir(root), fmt.Sprintf("target-%d", target))
}

func (id Identity) fileName(base string) string {
	if id.Index > 0 {
		base = fmt.Sprintf("%s-%d", base, id.Index)
	}
	if id.Request != "" {
		base += "." + util.SafeFileName(id.Request)
	}
	return base + ".json"
}
