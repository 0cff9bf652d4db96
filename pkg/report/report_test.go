package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/detection"
	"github.com/getmockd/replayd/pkg/identity"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "TestOrders/create/mappings/post-orders.json", `{}`)
	writeFile(t, root, "TestOrders/create/mappings/get-orders.json", `{}`)
	writeFile(t, root, "TestOrders/create/__files/get-orders-body.json", `{}`)
	writeFile(t, root, "TestOrders/_class/target-1/mappings/get-health.json", `{}`)
	writeFile(t, root, "TestUsers/list/mappings/get-users.json", `{}`)

	result := detection.Result{
		Identity:      identity.New("TestOrders", "create"),
		SnapshotCount: 3,
		DynamicFields: []detection.Candidate{{
			FieldPath:       "json:timestamp",
			Confidence:      detection.ConfidenceMedium,
			SampleValues:    []string{"1", "2", "3"},
			OccurrenceCount: 2,
		}},
		IgnorePatterns: []string{"json:timestamp"},
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)
	writeFile(t, root, "TestOrders/create/detected-fields.json", string(data))
	writeFile(t, root, "TestUsers/list/detected-fields-2.json", `{not json`)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r, err := BuildWithOptions(root, Options{Now: func() time.Time { return now }})
	require.NoError(t, err)

	assert.Equal(t, now, r.GeneratedAt)
	require.Len(t, r.Classes, 2)

	orders := r.Classes[0]
	assert.Equal(t, "TestOrders", orders.Name)
	require.Len(t, orders.Methods, 2)
	assert.Equal(t, "_class", orders.Methods[0].Name)
	assert.Equal(t, []string{"TestOrders/_class/target-1/mappings/get-health.json"}, orders.Methods[0].Mappings)
	assert.Empty(t, orders.Methods[0].DynamicFields)

	create := orders.Methods[1]
	assert.Equal(t, "create", create.Name)
	assert.Equal(t, []string{
		"TestOrders/create/mappings/get-orders.json",
		"TestOrders/create/mappings/post-orders.json",
	}, create.Mappings)
	require.Len(t, create.DynamicFields, 1)
	assert.Equal(t, "json:timestamp", create.DynamicFields[0].FieldPath)

	users := r.Classes[1]
	assert.Equal(t, "TestUsers", users.Name)
	require.Len(t, users.Methods, 1)
	assert.Len(t, users.Methods[0].Mappings, 1)
	assert.Empty(t, users.Methods[0].DynamicFields, "corrupt result is skipped")
}

func TestBuild_MissingRoot(t *testing.T) {
	r, err := Build(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, r.Classes)
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "TestA/b/mappings/x.json", `{}`)
	r, err := Build(root)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, Write(out, r))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Classes, 1)
	assert.Equal(t, "TestA", decoded.Classes[0].Name)
	assert.Equal(t, []string{"TestA/b/mappings/x.json"}, decoded.Classes[0].Methods[0].Mappings)
}
