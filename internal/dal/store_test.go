package dal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]DocumentStore {
	t.Helper()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "docs"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)

	stores := map[string]DocumentStore{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		pg, err := NewPostgresStore(url)
		require.NoError(t, err)
		stores["postgres"] = pg
	}

	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreLoadMissing(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "matches/missing-"+name)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreSaveThenOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			key := "matches/m-" + name
			require.NoError(t, store.Save(ctx, key, []byte(`{"id":"m","phase":"waiting"}`)))
			require.NoError(t, store.Save(ctx, key, []byte(`{"id":"m","phase":"banning"}`)))

			raw, err := store.Load(ctx, key)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"m","phase":"banning"}`, string(raw))
			assert.Equal(t, name, BackendName(store))
			assert.NoError(t, store.Ping(ctx))
		})
	}
}

func TestStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, "tournaments/index", []byte(`["a"]`)))
			require.NoError(t, store.Save(ctx, "tournaments/a", []byte(`{"id":"a"}`)))

			index, err := store.Load(ctx, "tournaments/index")
			require.NoError(t, err)
			assert.JSONEq(t, `["a"]`, string(index))

			record, err := store.Load(ctx, "tournaments/a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"a"}`, string(record))
		})
	}
}

func TestStoreConcurrentWritesToDifferentKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("matches/c%d", i)
					assert.NoError(t, store.Save(ctx, key, []byte(fmt.Sprintf(`{"n":%d}`, i))))
				}(i)
			}
			wg.Wait()

			for i := 0; i < 16; i++ {
				raw, err := store.Load(ctx, fmt.Sprintf("matches/c%d", i))
				require.NoError(t, err)
				assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(raw))
			}
		})
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	memory := NewMemoryStore()
	assert.Error(t, memory.Save(ctx, "k", []byte(`{}`)))

	file, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = file.Load(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreCopiesBytes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte(`{"a":1}`)
	require.NoError(t, store.Save(ctx, "k", value))
	value[2] = 'b'

	raw, err := store.Load(ctx, "k")
	require.NoError(t, err)
	raw[2] = 'c'

	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestFileStoreEscapesKeys(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "../escape", []byte(`{}`)))

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.json"))
	assert.True(t, os.IsNotExist(err), "key must not escape the root directory")

	raw, err := store.Load(ctx, "../escape")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestSQLiteStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.sqlite")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "users", []byte(`[]`)))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	raw, err := store.Load(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}
