// Package ledger persists the substitution-load counter map the
// repair pipeline uses to balance substitutions across faculty over
// successive runs: a thin JSON wrapper around storage.LocalStorage's
// atomic-rewrite discipline.
package ledger

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/campusforge/timetable-engine/pkg/storage"
)

// Ledger is an in-memory view of the persisted faculty-id -> counter
// map, guarded by a mutex so concurrent reads and persists in one
// process never interleave.
type Ledger struct {
	store    *storage.LocalStorage
	filename string

	mu     sync.Mutex
	counts map[string]int
}

// New returns an empty ledger bound to store, the fallback when the
// persisted file cannot be read.
func New(store *storage.LocalStorage, filename string) *Ledger {
	if filename == "" {
		filename = "substitution_ledger.json"
	}
	return &Ledger{store: store, filename: filename, counts: make(map[string]int)}
}

// Open loads the ledger file under store, or starts empty if it does
// not exist yet.
func Open(store *storage.LocalStorage, filename string) (*Ledger, error) {
	l := New(store, filename)

	data, err := store.ReadFile(l.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(data, &l.counts); err != nil {
		return nil, err
	}
	return l, nil
}

// CountOf returns the current counter for facultyID, 0 if unseen.
func (l *Ledger) CountOf(facultyID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[facultyID]
}

// Increment adds delta (normally 1) to facultyID's counter.
func (l *Ledger) Increment(facultyID string, delta int) {
	if facultyID == "" || delta == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[facultyID] += delta
}

// Snapshot returns a copy of every tracked counter as a map (no
// ordering), useful for reporting and tests.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// OrderedByLoad returns candidates ranked ascending by counter, ties
// broken by id, the least-loaded-first ordering the repair pipeline
// builds its substitution pools from.
func (l *Ledger) OrderedByLoad(candidates []string) []string {
	l.mu.Lock()
	counts := make(map[string]int, len(candidates))
	for _, id := range candidates {
		counts[id] = l.counts[id]
	}
	l.mu.Unlock()

	out := append([]string(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] < counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Persist rewrites the ledger file atomically. Callers treat a
// Persist error as non-fatal: the repair result is still returned.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	data, err := json.MarshalIndent(l.counts, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = l.store.SaveAtomic(l.filename, data)
	return err
}
