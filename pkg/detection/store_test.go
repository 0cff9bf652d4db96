package detection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/identity"
)

func TestResultStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewResultStore(ResultStoreOptions{Root: root})
	id := identity.New("TestOrders", "create")

	result := Detect(history(
		`{"id":1,"timestamp":"2025-01-01T10:00:00Z"}`,
		`{"id":1,"timestamp":"2025-01-01T10:00:01Z"}`,
	))
	require.NoError(t, store.Save(id, result))

	loaded, ok := store.Load(id)
	require.True(t, ok)
	assert.Equal(t, id, loaded.Identity)
	assert.Equal(t, result.SnapshotCount, loaded.SnapshotCount)
	assert.Equal(t, result.DynamicFields, loaded.DynamicFields)
	assert.Equal(t, result.IgnorePatterns, loaded.IgnorePatterns)

	_, err := os.Stat(filepath.Join(root, "TestOrders", "create", "detected-fields.json"))
	assert.NoError(t, err)
}

func TestResultStore_SaveReplaces(t *testing.T) {
	store := NewResultStore(ResultStoreOptions{Root: t.TempDir()})
	id := identity.New("TestOrders", "create")

	require.NoError(t, store.Save(id, Detect(history(`{"a":1}`, `{"a":2}`))))
	require.NoError(t, store.Save(id, Detect(history(`{"b":1}`, `{"b":2}`))))

	assert.Equal(t, []string{"json:b"}, store.IgnorePatterns(id))
}

func TestResultStore_EmptyResultKeepsArrays(t *testing.T) {
	store := NewResultStore(ResultStoreOptions{Root: t.TempDir()})
	id := identity.New("TestOrders", "empty")

	require.NoError(t, store.Save(id, &Result{SnapshotCount: 1}))

	data, err := os.ReadFile(store.Path(id))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"testClassName": "TestOrders",
		"testMethodName": "empty",
		"snapshotCount": 1,
		"dynamicFields": [],
		"ignorePatterns": []
	}`, string(data))
}

func TestResultStore_LoadMissingAndCorrupt(t *testing.T) {
	store := NewResultStore(ResultStoreOptions{Root: t.TempDir()})
	id := identity.New("TestOrders", "create")

	_, ok := store.Load(id)
	assert.False(t, ok)
	assert.Nil(t, store.IgnorePatterns(id))

	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path(id)), 0o755))
	require.NoError(t, os.WriteFile(store.Path(id), []byte(`{"dynamicFields":[{"confidence":"EXTREME"}]}`), 0o644))

	_, ok = store.Load(id)
	assert.False(t, ok)
}

func TestResultStore_SaveNil(t *testing.T) {
	store := NewResultStore(ResultStoreOptions{Root: t.TempDir()})
	assert.Error(t, store.Save(identity.New("A", "b"), nil))
}
