package detection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence_JSON(t *testing.T) {
	data, err := json.Marshal(Candidate{FieldPath: "json:a", Confidence: ConfidenceMedium, SampleValues: []string{"x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fieldPath":"json:a","confidence":"MEDIUM","sampleValues":["x"],"occurrenceCount":0}`, string(data))

	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"fieldPath":"json:a","confidence":"high"}`), &c))
	assert.Equal(t, ConfidenceHigh, c.Confidence)

	assert.Error(t, json.Unmarshal([]byte(`{"confidence":"sometimes"}`), &c))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name                          string
		changes, comparable, snapshots int
		want                          Confidence
	}{
		{"single change", 1, 1, 2, ConfidenceLow},
		{"single change of many", 1, 9, 10, ConfidenceLow},
		{"always changing but short history", 3, 3, 4, ConfidenceMedium},
		{"always changing five snapshots", 4, 4, 5, ConfidenceHigh},
		{"always changing ten snapshots", 9, 9, 10, ConfidenceHigh},
		{"half of pairs", 2, 4, 5, ConfidenceMedium},
		{"rare changes", 2, 9, 10, ConfidenceLow},
		{"invalid bodies shrink comparable pairs", 3, 3, 6, ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, score(tt.changes, tt.comparable, tt.snapshots))
		})
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		contentType, body string
		want              Family
	}{
		{"application/json", "", FamilyJSON},
		{"application/vnd.api+json", "<x/>", FamilyJSON},
		{"application/soap+xml", "", FamilyXML},
		{"", ` {"a":1}`, FamilyJSON},
		{"", "[1]", FamilyJSON},
		{"", "\n<a/>", FamilyXML},
		{"", "a=1&b=2", FamilyUnknown},
		{"", "", FamilyUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FamilyOf(tt.contentType, tt.body), "FamilyOf(%q, %q)", tt.contentType, tt.body)
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		pattern string
		family  Family
		expr    string
		ok      bool
	}{
		{"json:timestamp", FamilyJSON, "$.timestamp", true},
		{"json:user.meta.ts", FamilyJSON, "$.user.meta.ts", true},
		{"json:['x-trace']", FamilyJSON, "$['x-trace']", true},
		{"json:$", FamilyJSON, "$", true},
		{"json:$.a", FamilyJSON, "$.a", true},
		{"xml:///*[local-name()='a']/@id", FamilyXML, "/*[local-name()='a']/@id", true},
		{"xml://", FamilyXML, "", false},
		{"$.plain", FamilyUnknown, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			family, expr, ok := ParsePattern(tt.pattern)
			assert.Equal(t, tt.family, family)
			assert.Equal(t, tt.expr, expr)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestJSONPathString(t *testing.T) {
	assert.Equal(t, "$", jsonPath(nil).String())
	assert.Equal(t, "a.b", jsonPath{"a", "b"}.String())
	assert.Equal(t, "items[2].id", jsonPath{"items", 2, "id"}.String())
	assert.Equal(t, "[0]", jsonPath{0}.String())
	assert.Equal(t, `a['it\'s']`, jsonPath{"a", "it's"}.String())
}
