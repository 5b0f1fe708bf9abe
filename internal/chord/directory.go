package chord

import (
	"fmt"

	"github.com/emirpasic/gods/trees/avltree"

	"github.com/zde37/chordsim/pkg"
	"github.com/zde37/chordsim/pkg/idspace"
)

// Directory is the authoritative registry of active node ids and the ring-order
// queries built on it. It stands in for what a deployed ring would learn
// through iterative lookups or a membership service.
type Directory interface {
	// SuccessorOf returns the smallest active id >= position, wrapping to the
	// smallest id on the ring.
	SuccessorOf(position int) (int, error)

	// NextMember returns the member after id in ring order.
	NextMember(id int) (int, error)

	// PreviousMember returns the member before id in ring order.
	PreviousMember(id int) (int, error)

	// Add admits id. Fails on ids outside the space or already present.
	Add(id int) error

	// Remove evicts id. Removing an absent id is a no-op.
	Remove(id int)

	// Contains reports whether id is active.
	Contains(id int) bool

	// Members returns the active ids in ascending order.
	Members() []int

	// Len returns the number of active members.
	Len() int
}

// MemberDirectory keeps the membership sorted in an AVL tree so every
// ring-order query is a ceiling/floor search.
// It is not safe for concurrent mutation; Ring serializes writers.
type MemberDirectory struct {
	space idspace.Space
	tree  *avltree.Tree
}

// NewMemberDirectory creates an empty directory over the given space.
func NewMemberDirectory(space idspace.Space) *MemberDirectory {
	return &MemberDirectory{
		space: space,
		tree:  avltree.NewWithIntComparator(),
	}
}

func (d *MemberDirectory) SuccessorOf(position int) (int, error) {
	if d.tree.Empty() {
		return 0, fmt.Errorf("successor of %d: %w", position, pkg.ErrEmptyRing)
	}

	if node, found := d.tree.Ceiling(d.space.Mod(position)); found {
		return node.Key.(int), nil
	}
	return d.tree.Left().Key.(int), nil
}

func (d *MemberDirectory) NextMember(id int) (int, error) {
	if err := d.checkMember(id); err != nil {
		return 0, err
	}

	// Ceiling of id+1 past the largest member falls off the tree; wrap to the smallest.
	if node, found := d.tree.Ceiling(id + 1); found {
		return node.Key.(int), nil
	}
	return d.tree.Left().Key.(int), nil
}

func (d *MemberDirectory) PreviousMember(id int) (int, error) {
	if err := d.checkMember(id); err != nil {
		return 0, err
	}

	if node, found := d.tree.Floor(id - 1); found {
		return node.Key.(int), nil
	}
	return d.tree.Right().Key.(int), nil
}

func (d *MemberDirectory) Add(id int) error {
	if err := d.space.ValidateID(id); err != nil {
		return err
	}
	if d.Contains(id) {
		return fmt.Errorf("node %d: %w", id, pkg.ErrDuplicateID)
	}
	d.tree.Put(id, struct{}{})
	return nil
}

func (d *MemberDirectory) Remove(id int) {
	d.tree.Remove(id)
}

func (d *MemberDirectory) Contains(id int) bool {
	_, found := d.tree.Get(id)
	return found
}

func (d *MemberDirectory) Members() []int {
	keys := d.tree.Keys()
	ids := make([]int, len(keys))
	for i, k := range keys {
		ids[i] = k.(int)
	}
	return ids
}

func (d *MemberDirectory) Len() int {
	return d.tree.Size()
}

func (d *MemberDirectory) checkMember(id int) error {
	if d.tree.Empty() {
		return fmt.Errorf("node %d: %w", id, pkg.ErrEmptyRing)
	}
	if !d.Contains(id) {
		return fmt.Errorf("node %d: %w", id, pkg.ErrNotAMember)
	}
	return nil
}
