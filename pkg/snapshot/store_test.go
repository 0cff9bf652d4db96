package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/identity"
)

func snap(i int) RequestSnapshot {
	return RequestSnapshot{
		URL:    "https://api.example.com/orders",
		Method: "POST",
		Body:   fmt.Sprintf(`{"seq":%d}`, i),
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(Options{Root: t.TempDir()})

	history := store.Load(identity.New("TestOrders", "create"))
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestStore_AppendAndLoad(t *testing.T) {
	root := t.TempDir()
	store := NewStore(Options{Root: root})
	id := identity.New("TestOrders", "create")

	_, err := store.Append(id, snap(1))
	require.NoError(t, err)
	_, err = store.Append(id, snap(2))
	require.NoError(t, err)

	history := store.Load(id)
	require.Len(t, history, 2)
	assert.Equal(t, snap(1), history[0])
	assert.Equal(t, snap(2), history[1])

	_, err = os.Stat(filepath.Join(root, "TestOrders", "create", "snapshots.json"))
	assert.NoError(t, err)
}

func TestStore_EvictsOldestFirst(t *testing.T) {
	store := NewStore(Options{Root: t.TempDir()})
	id := identity.New("TestOrders", "create")

	for i := 1; i <= 11; i++ {
		_, err := store.Append(id, snap(i))
		require.NoError(t, err)
	}

	history := store.Load(id)
	require.Len(t, history, DefaultLimit)
	assert.NotContains(t, history, snap(1))
	assert.Equal(t, snap(2), history[0])
	assert.Equal(t, snap(11), history[len(history)-1])
}

func TestStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	root := t.TempDir()
	store := NewStore(Options{Root: root})
	id := identity.New("TestOrders", "create")

	path := store.Path(id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Empty(t, store.Load(id))

	history, err := store.Append(id, snap(1))
	require.NoError(t, err)
	assert.Equal(t, History{snap(1)}, history)
}

func TestStore_IndexedIdentitiesAreIndependent(t *testing.T) {
	store := NewStore(Options{Root: t.TempDir()})
	base := identity.New("TestCheckout", "pay")

	_, err := store.Append(base.WithIndex(1), snap(1))
	require.NoError(t, err)
	_, err = store.Append(base.WithIndex(2), snap(2))
	require.NoError(t, err)

	assert.Equal(t, History{snap(1)}, store.Load(base.WithIndex(1)))
	assert.Equal(t, History{snap(2)}, store.Load(base.WithIndex(2)))
}

func TestStore_ParallelDifferentIdentities(t *testing.T) {
	store := NewStore(Options{Root: t.TempDir()})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := identity.New("TestParallel", fmt.Sprintf("m%d", w))
			for i := 0; i < 5; i++ {
				if _, err := store.Append(id, snap(i)); err != nil {
					t.Errorf("append failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		id := identity.New("TestParallel", fmt.Sprintf("m%d", w))
		assert.Len(t, store.Load(id), 5)
	}
}

func TestReadFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("[{]"), 0o644))

	_, err := ReadFile(path)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestStore_Bound_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("history never exceeds the limit and keeps the newest", prop.ForAll(
		func(appends, limit int) bool {
			store := NewStore(Options{Root: t.TempDir(), Limit: limit})
			id := identity.New("TestBound", "prop")

			for i := 0; i < appends; i++ {
				if _, err := store.Append(id, snap(i)); err != nil {
					return false
				}
			}

			history := store.Load(id)
			want := appends
			if want > limit {
				want = limit
			}
			if len(history) != want {
				return false
			}
			return history[len(history)-1] == snap(appends-1)
		},
		gen.IntRange(1, 25),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
