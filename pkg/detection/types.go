package detection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getmockd/replayd/pkg/identity"
)

// MaxSampleValues bounds the sample values kept per dynamic field.
const MaxSampleValues = 3

// maxSampleLength bounds a single rendered sample value.
const maxSampleLength = 256

// Confidence expresses how reliably a field changes between recordings.
type Confidence int

// Confidence levels, ordered.
const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the upper-case name of c.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParseConfidence parses a confidence name, ignoring case.
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToUpper(s) {
	case "LOW":
		return ConfidenceLow, nil
	case "MEDIUM":
		return ConfidenceMedium, nil
	case "HIGH":
		return ConfidenceHigh, nil
	default:
		return ConfidenceLow, fmt.Errorf("unknown confidence %q", s)
	}
}

// MarshalJSON encodes c by name.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a confidence name.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseConfidence(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Candidate is one dynamic field.
type Candidate struct {
	// FieldPath is the structural locator, "json:..." or "xml://...".
	FieldPath  string     `json:"fieldPath"`
	Confidence Confidence `json:"confidence"`
	// SampleValues holds up to MaxSampleValues distinct values in first-seen order.
	SampleValues []string `json:"sampleValues"`
	// OccurrenceCount is the number of consecutive snapshot pairs in which
	// the value changed.
	OccurrenceCount int `json:"occurrenceCount"`
}

// Result is the outcome of one detection run.
type Result struct {
	identity.Identity
	SnapshotCount  int         `json:"snapshotCount"`
	DynamicFields  []Candidate `json:"dynamicFields"`
	IgnorePatterns []string    `json:"ignorePatterns"`
}

// IsEmpty reports whether no dynamic field was detected.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.DynamicFields) == 0
}

// Field returns the candidate at path, if detected.
func (r *Result) Field(path string) (Candidate, bool) {
	if r == nil {
		return Candidate{}, false
	}
	for _, c := range r.DynamicFields {
		if c.FieldPath == path {
			return c, true
		}
	}
	return Candidate{}, false
}
