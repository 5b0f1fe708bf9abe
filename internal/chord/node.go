package chord

import (
	"errors"
	"fmt"

	"github.com/zde37/chordsim/pkg"
	"github.com/zde37/chordsim/pkg/idspace"
)

// Node is a ring member: an id, a finger table and a local ordered key store.
// A Node is created standalone by Ring.CreateNode and becomes a member on Join.
type Node struct {
	id      int
	fingers *FingerTable
	storage *pkg.MemoryStorage
	logger  *pkg.Logger
}

func newNode(id int, space idspace.Space, logger *pkg.Logger) *Node {
	return &Node{
		id:      id,
		fingers: NewFingerTable(id, space),
		storage: pkg.NewMemoryStorage(),
		logger:  logger.WithFields(pkg.Fields{"node_id": id}),
	}
}

// ID returns the node's identifier.
func (n *Node) ID() int {
	return n.id
}

// String returns a human-readable representation of the node.
func (n *Node) String() string {
	if n == nil {
		return "Node{nil}"
	}
	return fmt.Sprintf("Node{ID: %d}", n.id)
}

// successor returns the immediate successor id from finger[0].
func (n *Node) successor() int {
	return n.fingers.Successor()
}

// closestPrecedingFinger is the finger table search seen from this node.
func (n *Node) closestPrecedingFinger(key int) int {
	return n.fingers.ClosestPrecedingFinger(key)
}

// lookupLocal reads key from this node's own store.
func (n *Node) lookupLocal(key int) (int, bool, error) {
	value, err := n.storage.Get(key)
	if errors.Is(err, pkg.ErrKeyNotFound) {
		return AbsentValue, false, nil
	}
	if err != nil {
		return AbsentValue, false, fmt.Errorf("node %d storage get failed: %w", n.id, err)
	}
	return value, true, nil
}

// Stats returns the node's storage statistics.
func (n *Node) Stats() pkg.Stats {
	return n.storage.GetStats()
}
