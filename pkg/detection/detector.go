package detection

import (
	"log/slog"
	"sort"

	"github.com/beevik/etree"

	"github.com/getmockd/replayd/pkg/identity"
	"github.com/getmockd/replayd/pkg/logging"
	"github.com/getmockd/replayd/pkg/snapshot"
)

// MinSnapshots is the smallest history detection runs on.
const MinSnapshots = 2

// Options configures a Detector.
type Options struct {
	// Logger receives warnings about bodies that fail to parse.
	Logger *slog.Logger
}

// Detector finds dynamic fields in snapshot histories. It has no side
// effects; persisting results is the caller's job.
type Detector struct {
	log *slog.Logger
}

// New creates a Detector.
func New(opts Options) *Detector {
	return &Detector{log: logging.Component(opts.Logger, "detection")}
}

// Detect runs detection over history without identity information.
func Detect(history snapshot.History) *Result {
	return New(Options{}).Detect(identity.Identity{}, history)
}

// Detect compares every parseable body in history and reports the fields
// whose values differ. Histories with fewer than MinSnapshots parseable
// bodies yield an empty result. Unparseable bodies are skipped but still
// count toward SnapshotCount.
func (d *Detector) Detect(id identity.Identity, history snapshot.History) *Result {
	result := &Result{
		Identity:       id,
		SnapshotCount:  len(history),
		DynamicFields:  []Candidate{},
		IgnorePatterns: []string{},
	}
	if len(history) < MinSnapshots {
		return result
	}

	var found []observation
	switch historyFamily(history) {
	case FamilyJSON:
		found = d.detectJSON(id, history)
	case FamilyXML:
		found = d.detectXML(id, history)
	default:
		d.log.Debug("no structured bodies in history", "identity", id.String(), "snapshots", len(history))
		return result
	}

	seen := make(map[string]bool, len(found))
	for _, obs := range found {
		if seen[obs.path] {
			continue
		}
		seen[obs.path] = true
		result.DynamicFields = append(result.DynamicFields, obs.candidate(len(history)))
	}
	sort.Slice(result.DynamicFields, func(i, j int) bool {
		return result.DynamicFields[i].FieldPath < result.DynamicFields[j].FieldPath
	})
	for _, c := range result.DynamicFields {
		result.IgnorePatterns = append(result.IgnorePatterns, IgnorePattern(c.FieldPath))
	}
	return result
}

func (d *Detector) detectJSON(id identity.Identity, history snapshot.History) []observation {
	bodies := make([]any, 0, len(history))
	for i, s := range history {
		if FamilyOf(s.ContentType, s.Body) != FamilyJSON {
			d.skip(id, i, "not a JSON body", nil)
			continue
		}
		v, err := parseJSON(s.Body)
		if err != nil {
			d.skip(id, i, "unparseable JSON body", err)
			continue
		}
		bodies = append(bodies, v)
	}
	if len(bodies) < MinSnapshots {
		return nil
	}

	diff := &jsonDiff{}
	diff.compare(nil, bodies)
	return diff.found
}

func (d *Detector) detectXML(id identity.Identity, history snapshot.History) []observation {
	docs := make([]*etree.Document, 0, len(history))
	for i, s := range history {
		if FamilyOf(s.ContentType, s.Body) != FamilyXML {
			d.skip(id, i, "not an XML body", nil)
			continue
		}
		doc, err := parseXML(s.Body)
		if err != nil {
			d.skip(id, i, "unparseable XML body", err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) < MinSnapshots {
		return nil
	}

	diff := &xmlDiff{}
	diff.compareRoots(docs)
	return diff.found
}

func (d *Detector) skip(id identity.Identity, index int, reason string, err error) {
	attrs := []any{"identity", id.String(), "snapshot", index}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	d.log.Warn("skipping snapshot: "+reason, attrs...)
}

// historyFamily is the family of the first classifiable snapshot.
func historyFamily(history snapshot.History) Family {
	for _, s := range history {
		if f := FamilyOf(s.ContentType, s.Body); f != FamilyUnknown {
			return f
		}
	}
	return FamilyUnknown
}
