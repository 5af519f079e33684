package ledger

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/pkg/storage"
)

func newStore(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	led, err := Open(newStore(t), "")
	require.NoError(t, err)
	assert.Equal(t, 0, led.CountOf("F1"))
	assert.Empty(t, led.Snapshot())
}

func TestIncrementPersistReload(t *testing.T) {
	store := newStore(t)

	led, err := Open(store, "")
	require.NoError(t, err)
	led.Increment("F2", 3)
	led.Increment("F3", 1)
	led.Increment("F3", 1)
	require.NoError(t, led.Persist())

	reloaded, err := Open(store, "")
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.CountOf("F2"))
	assert.Equal(t, 2, reloaded.CountOf("F3"))
	assert.Equal(t, 0, reloaded.CountOf("F1"))
}

func TestPersistWritesPlainJSONMap(t *testing.T) {
	store := newStore(t)
	led, err := Open(store, "counters.json")
	require.NoError(t, err)
	led.Increment("F1", 4)
	require.NoError(t, led.Persist())

	data, err := os.ReadFile(store.Path("counters.json"))
	require.NoError(t, err)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]int{"F1": 4}, decoded)
}

func TestOrderedByLoadRanksAscendingWithIDTiebreak(t *testing.T) {
	led, err := Open(newStore(t), "")
	require.NoError(t, err)
	led.Increment("F3", 5)
	led.Increment("F4", 2)

	got := led.OrderedByLoad([]string{"F3", "F2", "F4", "F1"})
	assert.Equal(t, []string{"F1", "F2", "F4", "F3"}, got)
}

func TestIncrementIgnoresEmptyAndZero(t *testing.T) {
	led, err := Open(newStore(t), "")
	require.NoError(t, err)
	led.Increment("", 1)
	led.Increment("F1", 0)
	assert.Empty(t, led.Snapshot())
}

func TestOpenCorruptFileFails(t *testing.T) {
	store := newStore(t)
	_, err := store.SaveAtomic("substitution_ledger.json", []byte("{not json"))
	require.NoError(t, err)

	_, err = Open(store, "")
	require.Error(t, err)
}
