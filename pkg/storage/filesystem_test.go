package storage

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAtomicAndReadBack(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveAtomic("ledger.json", []byte(`{"F1":1}`))
	require.NoError(t, err)
	assert.Equal(t, "ledger.json", name)

	data, err := store.ReadFile("ledger.json")
	require.NoError(t, err)
	assert.Equal(t, `{"F1":1}`, string(data))
}

func TestSaveAtomicOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveAtomic("f.txt", []byte("one"))
	require.NoError(t, err)
	_, err = store.SaveAtomic("f.txt", []byte("two"))
	require.NoError(t, err)

	data, err := store.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSaveAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.SaveAtomic("f.txt", []byte("payload"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.txt", entries[0].Name())
}

func TestReadMissingFileIsNotExist(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.ReadFile("absent.json")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveAtomic("f.txt", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete("f.txt"))
	require.NoError(t, store.Delete("f.txt"))
}

func TestConcurrentWritersNeverTear(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payloads := []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"}
	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			_, _ = store.SaveAtomic("shared.txt", []byte(body))
		}(p)
	}
	wg.Wait()

	data, err := store.ReadFile("shared.txt")
	require.NoError(t, err)
	assert.Contains(t, payloads, string(data))
}
