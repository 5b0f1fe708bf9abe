package chord

import (
	"fmt"

	"github.com/zde37/chordsim/pkg"
	"github.com/zde37/chordsim/pkg/idspace"
)

// findKey walks the ring from start toward the owner of key.
// Each hop either finishes at the successor, jumps to the closest preceding
// finger, or, when no finger advances, falls back to the successor and stops.
// Callers hold r.mu.
func (r *Ring) findKey(start *Node, key int) (*Node, []int, error) {
	path := []int{start.id}
	current := start

	for {
		succ, err := r.resolve(current.successor())
		if err != nil {
			return nil, path, err
		}

		if idspace.InRange(key, current.id, succ.id) {
			path = append(path, succ.id)
			return succ, path, nil
		}

		nextID := current.closestPrecedingFinger(key)
		if nextID == current.id {
			path = append(path, succ.id)
			r.logger.Trace().
				Int("key", key).
				Int("node", current.id).
				Msg("No finger advances, falling back to successor")
			return succ, path, nil
		}

		next, err := r.resolve(nextID)
		if err != nil {
			return nil, path, err
		}

		r.logger.Trace().
			Int("key", key).
			Int("from", current.id).
			Int("to", next.id).
			Int("remaining", r.space.Distance(next.id, key)).
			Msg("Routing hop")

		current = next
		path = append(path, current.id)
	}
}

// resolve maps a finger id back to its node through the registry.
func (r *Ring) resolve(id int) (*Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("finger points at node %d: %w", id, pkg.ErrNotAMember)
	}
	return n, nil
}

// FindKey resolves the owner of key starting from node and returns the
// routing path, start first and owner last.
func (r *Ring) FindKey(node *Node, key int) (*LookupResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, path, err := r.routeLocked(node, key)
	if err != nil {
		return nil, err
	}
	return &LookupResult{Owner: owner.id, Path: path}, nil
}

// Get routes to the owner of key and reads its value there.
// A key missing at the owner is reported with found == false, not an error.
func (r *Ring) Get(node *Node, key int) (*LookupResult, int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, path, err := r.routeLocked(node, key)
	if err != nil {
		return nil, AbsentValue, false, err
	}

	value, found, err := owner.lookupLocal(key)
	if err != nil {
		return nil, AbsentValue, false, err
	}
	return &LookupResult{Owner: owner.id, Path: path}, value, found, nil
}

// routeLocked validates the request and runs findKey. Callers hold r.mu.
func (r *Ring) routeLocked(node *Node, key int) (*Node, []int, error) {
	if err := r.checkMember(node); err != nil {
		return nil, nil, err
	}
	if err := r.space.ValidateKey(key); err != nil {
		return nil, nil, err
	}

	owner, path, err := r.findKey(node, key)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup of key %d from node %d failed: %w", key, node.id, err)
	}
	return owner, path, nil
}
