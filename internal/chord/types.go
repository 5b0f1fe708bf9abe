package chord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zde37/chordsim/pkg"
)

// AbsentValue is stored when a key is inserted without a value, and reported
// by lookups that find no value at the owner.
const AbsentValue = -1

// KeyValue is a stored key and its value.
type KeyValue = pkg.KeyValue

// FingerEntry represents an entry in the Chord finger table.
// Entry i tracks the successor of (n + 2^i) mod 2^M.
type FingerEntry struct {
	Start  int `json:"start"`   // Start of the interval: (n + 2^i) mod 2^M
	NodeID int `json:"node_id"` // First active member that succeeds or equals start
}

// String returns a human-readable representation of the finger entry.
func (f FingerEntry) String() string {
	return fmt.Sprintf("start %d -> %d", f.Start, f.NodeID)
}

// LookupResult is the outcome of a find-key routing walk.
type LookupResult struct {
	Owner int   `json:"owner"` // Node responsible for the key
	Path  []int `json:"path"`  // Node ids visited, start first, owner last
}

// Hops returns the number of routing hops taken.
func (r *LookupResult) Hops() int {
	if r == nil || len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// String formats the path as [a,b,c].
func (r *LookupResult) String() string {
	if r == nil {
		return "[]"
	}
	parts := make([]string, len(r.Path))
	for i, id := range r.Path {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MigrationReport describes keys moved between two members by a join or leave.
type MigrationReport struct {
	From int   `json:"from"` // Node the keys were taken from
	To   int   `json:"to"`   // Node the keys were handed to
	Keys []int `json:"keys"` // Moved keys in ascending order
}

// Empty reports whether no keys moved.
func (m MigrationReport) Empty() bool {
	return len(m.Keys) == 0
}

func newMigrationReport(from, to int, moved []KeyValue) MigrationReport {
	keys := make([]int, len(moved))
	for i, kv := range moved {
		keys[i] = kv.Key
	}
	return MigrationReport{From: from, To: to, Keys: keys}
}
