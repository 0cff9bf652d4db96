package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromTestName(t *testing.T) {
	tests := []struct {
		name string
		want Identity
	}{
		{"TestOrders", Identity{Class: "TestOrders", Method: "TestOrders"}},
		{"TestOrders/create", Identity{Class: "TestOrders", Method: "create"}},
		{"TestOrders/create/ok", Identity{Class: "TestOrders", Method: "create/ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromTestName(tt.name))
		})
	}
}

func TestPaths(t *testing.T) {
	root := filepath.Join("tmp", "rec")
	id := New("TestOrders", "create/ok")

	assert.Equal(t, filepath.Join(root, "TestOrders"), id.ClassDir(root))
	assert.Equal(t, filepath.Join(root, "TestOrders", "create_ok"), id.Dir(root))
	assert.Equal(t, filepath.Join(root, "TestOrders", "create_ok", "snapshots.json"), id.SnapshotPath(root))
	assert.Equal(t, filepath.Join(root, "TestOrders", "create_ok", "detected-fields.json"), id.DetectionPath(root))

	indexed := id.WithIndex(2)
	assert.Equal(t, filepath.Join(root, "TestOrders", "create_ok", "snapshots-2.json"), indexed.SnapshotPath(root))
	assert.Equal(t, filepath.Join(root, "TestOrders", "create_ok", "detected-fields-2.json"), indexed.DetectionPath(root))
}

func TestRequestScopedPaths(t *testing.T) {
	root := "rec"
	id := New("TestQuotes", "price").WithRequest("post-quote")

	assert.Equal(t, filepath.Join(root, "TestQuotes", "price", "snapshots.post-quote.json"), id.SnapshotPath(root))
	assert.Equal(t, filepath.Join(root, "TestQuotes", "price", "detected-fields.post-quote.json"), id.DetectionPath(root))

	indexed := id.WithIndex(2)
	assert.Equal(t, filepath.Join(root, "TestQuotes", "price", "snapshots-2.post-quote.json"), indexed.SnapshotPath(root))
	assert.Equal(t, id.Dir(root), indexed.Dir(root))
	assert.NotEqual(t, id.WithRequest("post-quote-2").SnapshotPath(root), id.SnapshotPath(root))
}

func TestClassScope(t *testing.T) {
	root := "rec"
	id := New("TestOrders", "")

	assert.True(t, id.IsClass())
	assert.Equal(t, filepath.Join(root, "TestOrders", ClassDirName), id.Dir(root))
	assert.Equal(t, "TestOrders", id.String())
}

func TestMappingsDir(t *testing.T) {
	root := "rec"
	id := New("A", "b")

	assert.Equal(t, id.Dir(root), id.MappingsDir(root, 0, 1))
	assert.Equal(t, filepath.Join(id.Dir(root), "target-1"), id.MappingsDir(root, 1, 2))
}

func TestString(t *testing.T) {
	assert.Equal(t, "A.b", New("A", "b").String())
	assert.Equal(t, "A.b#3", New("A", "b").WithIndex(3).String())
	assert.Equal(t, "A.b#3:post-x", New("A", "b").WithIndex(3).WithRequest("post-x").String())
}
