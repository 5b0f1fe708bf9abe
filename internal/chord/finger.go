package chord

import (
	"fmt"
	"sync"

	"github.com/zde37/chordsim/pkg/idspace"
)

// FingerTable is a node's routing table of M entries.
// entries[i] points to the successor of (owner + 2^i) mod 2^M; entries[0] is
// the immediate successor. Entries hold node ids, never node handles.
type FingerTable struct {
	owner   int
	space   idspace.Space
	entries []FingerEntry
	mu      sync.RWMutex
}

// NewFingerTable creates a table for owner whose entries all point back at
// the owner, the state of a node alone on its ring.
func NewFingerTable(owner int, space idspace.Space) *FingerTable {
	ft := &FingerTable{
		owner:   owner,
		space:   space,
		entries: make([]FingerEntry, space.Bits()),
	}
	for i := range ft.entries {
		ft.entries[i] = FingerEntry{Start: space.FingerStart(owner, i), NodeID: owner}
	}
	return ft
}

// Recompute rebuilds every entry from the directory.
// The table is left untouched if the directory cannot answer.
func (ft *FingerTable) Recompute(dir Directory) error {
	fresh := make([]FingerEntry, len(ft.entries))
	for i := range fresh {
		start := ft.space.FingerStart(ft.owner, i)
		succ, err := dir.SuccessorOf(start)
		if err != nil {
			return fmt.Errorf("finger %d of node %d: %w", i, ft.owner, err)
		}
		fresh[i] = FingerEntry{Start: start, NodeID: succ}
	}

	ft.mu.Lock()
	ft.entries = fresh
	ft.mu.Unlock()
	return nil
}

// Successor returns the immediate successor, entries[0].
func (ft *FingerTable) Successor() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.entries[0].NodeID
}

// ClosestPrecedingFinger scans from the farthest finger down and returns the
// first entry strictly between the owner and key. It returns the owner when
// no finger advances past it.
func (ft *FingerTable) ClosestPrecedingFinger(key int) int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	for i := len(ft.entries) - 1; i >= 0; i-- {
		candidate := ft.entries[i].NodeID
		if candidate != ft.owner && idspace.Between(candidate, ft.owner, key) {
			return candidate
		}
	}
	return ft.owner
}

// Entries returns a copy of the table.
func (ft *FingerTable) Entries() []FingerEntry {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	out := make([]FingerEntry, len(ft.entries))
	copy(out, ft.entries)
	return out
}

// Points reports whether any entry references id.
func (ft *FingerTable) Points(id int) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	for _, e := range ft.entries {
		if e.NodeID == id {
			return true
		}
	}
	return false
}
