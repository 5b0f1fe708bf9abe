package chord

import (
	"fmt"
	"sync"

	"github.com/zde37/chordsim/internal/config"
	"github.com/zde37/chordsim/pkg"
	"github.com/zde37/chordsim/pkg/idspace"
)

// Ring runs the membership protocol over a set of nodes sharing one
// identifier space. Every membership change refreshes every finger table
// before it returns.
type Ring struct {
	space   idspace.Space
	dir     Directory
	nodes   map[int]*Node // registry of active members, keyed by id
	workers int
	logger  *pkg.Logger

	// mu serializes membership changes against lookups and key operations
	mu sync.RWMutex

	broadcaster   RingUpdateBroadcaster
	broadcasterMu sync.RWMutex

	shutdown   bool
	shutdownMu sync.RWMutex
}

// Option customizes a Ring at construction.
type Option func(*Ring)

// WithDirectory replaces the default AVL-backed membership directory.
// The directory must be empty and built over the same identifier space.
func WithDirectory(dir Directory) Option {
	return func(r *Ring) {
		r.dir = dir
	}
}

// WithBroadcaster sets the receiver of ring update events.
func WithBroadcaster(b RingUpdateBroadcaster) Option {
	return func(r *Ring) {
		r.broadcaster = b
	}
}

// NewRing creates an empty ring with the given configuration.
func NewRing(cfg *config.Config, logger *pkg.Logger, opts ...Option) (*Ring, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	space, err := idspace.New(cfg.M)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Ring{
		space:   space,
		nodes:   make(map[int]*Node),
		workers: cfg.RefreshWorkers,
		logger:  logger.WithFields(pkg.Fields{"component": "ring"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dir == nil {
		r.dir = NewMemberDirectory(space)
	}
	if r.dir.Len() != 0 {
		return nil, fmt.Errorf("directory must start empty, has %d members", r.dir.Len())
	}

	r.logger.Info().
		Int("m", space.Bits()).
		Int("positions", space.Size()).
		Int("refresh_workers", r.workers).
		Msg("Ring created")

	return r, nil
}

// Space returns the ring's identifier space.
func (r *Ring) Space() idspace.Space {
	return r.space
}

// SetBroadcaster sets the receiver of ring update events.
func (r *Ring) SetBroadcaster(b RingUpdateBroadcaster) {
	r.broadcasterMu.Lock()
	defer r.broadcasterMu.Unlock()
	r.broadcaster = b
}

// CreateNode creates a standalone node that is not yet a member.
func (r *Ring) CreateNode(id int) (*Node, error) {
	if err := r.space.ValidateID(id); err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	return newNode(id, r.space, r.logger), nil
}

// Member returns the active member with the given id.
func (r *Ring) Member(id int) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, pkg.ErrNotAMember)
	}
	return n, nil
}

// Members returns the active member ids in ascending order.
func (r *Ring) Members() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir.Members()
}

// Len returns the number of active members.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir.Len()
}

// Join admits node to the ring. contact is any active member, or nil when
// node founds an empty ring. After every finger table is refreshed, the keys
// in (predecessor, node] move from node's successor into node.
func (r *Ring) Join(node, contact *Node) (MigrationReport, error) {
	if node == nil {
		return MigrationReport{}, fmt.Errorf("node cannot be nil")
	}
	if err := r.checkOpen(); err != nil {
		return MigrationReport{}, err
	}

	r.mu.Lock()
	report, events, err := r.joinLocked(node, contact)
	r.mu.Unlock()

	r.publish(events)
	return report, err
}

func (r *Ring) joinLocked(node, contact *Node) (MigrationReport, []RingUpdateEvent, error) {
	if err := r.space.ValidateID(node.id); err != nil {
		return MigrationReport{}, nil, fmt.Errorf("join: %w", err)
	}
	if node.fingers.space != r.space {
		return MigrationReport{}, nil, fmt.Errorf("join: node %d was created for a %d-bit ring: %w",
			node.id, node.fingers.space.Bits(), pkg.ErrInvalidID)
	}
	if r.dir.Contains(node.id) {
		return MigrationReport{}, nil, fmt.Errorf("join: node %d: %w", node.id, pkg.ErrDuplicateID)
	}
	if contact != nil {
		if err := r.checkMember(contact); err != nil {
			return MigrationReport{}, nil, fmt.Errorf("join via contact: %w", err)
		}
	}

	founding := r.dir.Len() == 0

	if err := r.dir.Add(node.id); err != nil {
		return MigrationReport{}, nil, fmt.Errorf("join: %w", err)
	}
	r.nodes[node.id] = node

	if err := r.refreshAll(); err != nil {
		r.dir.Remove(node.id)
		delete(r.nodes, node.id)
		return MigrationReport{}, nil, fmt.Errorf("join: refresh failed: %w", err)
	}

	events := []RingUpdateEvent{
		newRingUpdateEvent(EventNodeJoin, node.id, fmt.Sprintf("node %d joined the ring", node.id)),
	}

	if founding {
		node.logger.Info().Msg("Created new Chord ring")
		return MigrationReport{From: node.id, To: node.id, Keys: []int{}}, events, nil
	}

	pred, err := r.dir.PreviousMember(node.id)
	if err != nil {
		return MigrationReport{}, events, fmt.Errorf("join: %w", err)
	}
	succID, err := r.dir.NextMember(node.id)
	if err != nil {
		return MigrationReport{}, events, fmt.Errorf("join: %w", err)
	}
	succ := r.nodes[succID]

	moved, err := succ.storage.TakeMatching(func(key int) bool {
		return idspace.InRange(key, pred, node.id)
	})
	if err != nil {
		return MigrationReport{}, events, fmt.Errorf("join: key transfer from node %d failed: %w", succID, err)
	}
	if err := node.storage.SetMultiple(moved); err != nil {
		return MigrationReport{}, events, fmt.Errorf("join: failed to store transferred keys: %w", err)
	}

	report := newMigrationReport(succID, node.id, moved)

	node.logger.Info().
		Int("predecessor", pred).
		Int("successor", succID).
		Int("key_count", len(report.Keys)).
		Ints("keys", report.Keys).
		Msg("Joined Chord ring")

	if !report.Empty() {
		events = append(events, newMigrationEvent(report))
	}
	return report, events, nil
}

// Leave removes node from the ring after handing all of its keys to its
// successor. The last member cannot leave.
func (r *Ring) Leave(node *Node) (MigrationReport, error) {
	if err := r.checkOpen(); err != nil {
		return MigrationReport{}, err
	}

	r.mu.Lock()
	report, events, err := r.leaveLocked(node)
	r.mu.Unlock()

	r.publish(events)
	return report, err
}

func (r *Ring) leaveLocked(node *Node) (MigrationReport, []RingUpdateEvent, error) {
	if err := r.checkMember(node); err != nil {
		return MigrationReport{}, nil, fmt.Errorf("leave: %w", err)
	}
	if r.dir.Len() == 1 {
		return MigrationReport{}, nil, fmt.Errorf("leave: node %d is the last member: %w", node.id, pkg.ErrEmptyRing)
	}

	succID, err := r.dir.NextMember(node.id)
	if err != nil {
		return MigrationReport{}, nil, fmt.Errorf("leave: %w", err)
	}
	succ := r.nodes[succID]

	moved, err := node.storage.TakeAll()
	if err != nil {
		return MigrationReport{}, nil, fmt.Errorf("leave: key transfer failed: %w", err)
	}
	if err := succ.storage.SetMultiple(moved); err != nil {
		// Put the keys back so the failed leave changes nothing
		_ = node.storage.SetMultiple(moved)
		return MigrationReport{}, nil, fmt.Errorf("leave: node %d failed to store transferred keys: %w", succID, err)
	}

	r.dir.Remove(node.id)
	delete(r.nodes, node.id)
	if err := r.refreshAll(); err != nil {
		return MigrationReport{}, nil, fmt.Errorf("leave: refresh failed: %w", err)
	}
	for id, n := range r.nodes {
		if n.fingers.Points(node.id) {
			return MigrationReport{}, nil, fmt.Errorf("leave: node %d still routes to departed node %d", id, node.id)
		}
	}
	node.fingers = NewFingerTable(node.id, r.space)

	report := newMigrationReport(node.id, succID, moved)

	node.logger.Info().
		Int("successor", succID).
		Int("key_count", len(report.Keys)).
		Ints("keys", report.Keys).
		Msg("Left Chord ring")

	events := []RingUpdateEvent{
		newRingUpdateEvent(EventNodeLeave, node.id, fmt.Sprintf("node %d left the ring", node.id)),
	}
	if !report.Empty() {
		events = append(events, newMigrationEvent(report))
	}
	return report, events, nil
}

// InsertKey routes from node to the owner of key and stores value there,
// overwriting any previous value.
func (r *Ring) InsertKey(node *Node, key, value int) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, path, err := r.routeLocked(node, key)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if err := owner.storage.Set(key, value); err != nil {
		return fmt.Errorf("insert: node %d storage set failed: %w", owner.id, err)
	}

	owner.logger.Debug().
		Int("key", key).
		Int("value", value).
		Ints("path", path).
		Msg("Stored key")
	return nil
}

// RemoveKey routes from node to the owner of key and deletes it there.
// Removing a key that does not exist is a no-op.
func (r *Ring) RemoveKey(node *Node, key int) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, _, err := r.routeLocked(node, key)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	removed, err := owner.storage.Delete(key)
	if err != nil {
		return fmt.Errorf("remove: node %d storage delete failed: %w", owner.id, err)
	}

	owner.logger.Debug().
		Int("key", key).
		Bool("removed", removed).
		Msg("Deleted key")
	return nil
}

// FingerTableOf returns node's M finger entries. A node that is not a member
// reports the self-pointing table of a lone node.
func (r *Ring) FingerTableOf(node *Node) ([]FingerEntry, error) {
	if node == nil {
		return nil, fmt.Errorf("node cannot be nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return node.fingers.Entries(), nil
}

// KeysOf returns node's stored pairs in ascending key order.
func (r *Ring) KeysOf(node *Node) ([]KeyValue, error) {
	if node == nil {
		return nil, fmt.Errorf("node cannot be nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs, err := node.storage.GetAll()
	if err != nil {
		return nil, fmt.Errorf("keys of node %d: %w", node.id, err)
	}
	return pairs, nil
}

// Shutdown closes every member's storage. Later operations fail.
func (r *Ring) Shutdown() error {
	r.shutdownMu.Lock()
	if r.shutdown {
		r.shutdownMu.Unlock()
		return nil // Already shutdown
	}
	r.shutdown = true
	r.shutdownMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.nodes {
		if err := n.storage.Close(); err != nil {
			r.logger.Error().Err(err).Int("node_id", id).Msg("Failed to close storage")
		}
	}

	r.logger.Info().Int("members", len(r.nodes)).Msg("Ring shutdown complete")
	return nil
}

// IsShutdown returns whether the ring has been shut down.
func (r *Ring) IsShutdown() bool {
	r.shutdownMu.RLock()
	defer r.shutdownMu.RUnlock()
	return r.shutdown
}

func (r *Ring) checkOpen() error {
	if r.IsShutdown() {
		return fmt.Errorf("ring is shut down: %w", pkg.ErrStorageUnavailable)
	}
	return nil
}

// checkMember verifies node is the registered member for its id. Callers hold r.mu.
func (r *Ring) checkMember(node *Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil: %w", pkg.ErrNotAMember)
	}
	if registered, ok := r.nodes[node.id]; !ok || registered != node {
		return fmt.Errorf("node %d: %w", node.id, pkg.ErrNotAMember)
	}
	return nil
}

// refreshAll recomputes every member's finger table from the directory,
// fanning out over r.workers goroutines. Callers hold r.mu for writing.
func (r *Ring) refreshAll() error {
	members := r.dir.Members()

	workers := r.workers
	if workers > len(members) {
		workers = len(members)
	}

	if workers <= 1 {
		for _, id := range members {
			if err := r.nodes[id].fingers.Recompute(r.dir); err != nil {
				return err
			}
		}
	} else {
		jobs := make(chan *Node)
		errs := make(chan error, len(members))

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := range jobs {
					if err := n.fingers.Recompute(r.dir); err != nil {
						errs <- err
					}
				}
			}()
		}
		for _, id := range members {
			jobs <- r.nodes[id]
		}
		close(jobs)
		wg.Wait()
		close(errs)

		if err := <-errs; err != nil {
			return err
		}
	}

	r.logger.Debug().
		Int("members", len(members)).
		Int("workers", workers).
		Msg("Finger tables refreshed")
	return nil
}

// publish hands events to the broadcaster outside of r.mu.
func (r *Ring) publish(events []RingUpdateEvent) {
	r.broadcasterMu.RLock()
	b := r.broadcaster
	r.broadcasterMu.RUnlock()

	if b == nil {
		return
	}
	for _, e := range events {
		if err := b.BroadcastRingUpdate(e); err != nil {
			r.logger.Warn().
				Err(err).
				Str("event", e.Type).
				Msg("Failed to broadcast ring update")
		}
	}
}
