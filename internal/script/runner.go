package script

import (
	_ "embed"
	"fmt"

	"github.com/zde37/chordsim/internal/chord"
	"github.com/zde37/chordsim/pkg"
)

// Reference is the reference M=8 scenario: six joins, twelve inserts,
// node 100 joining, lookups from three nodes and node 65 leaving.
//
//go:embed reference.chord
var Reference string

// Reporter receives the output of a running script.
type Reporter interface {
	// Echo is called for echo statements.
	Echo(text string)

	// Migration is called when a join or leave moved at least one key.
	Migration(report chord.MigrationReport)

	// Lookup is called for find statements with the value read at the owner,
	// or chord.AbsentValue when the owner has none.
	Lookup(key, from int, result *chord.LookupResult, value int)

	// Fingers is called once per node listed by a fingers statement.
	Fingers(id int, entries []chord.FingerEntry)

	// Keys is called once per node listed by a keys statement.
	Keys(id int, pairs []chord.KeyValue)
}

// Runner executes statements against a ring. Nodes are created on first
// reference and remembered, so a node that left can rejoin by id.
type Runner struct {
	ring     *chord.Ring
	reporter Reporter
	nodes    map[int]*chord.Node
	logger   *pkg.Logger
}

// NewRunner creates a runner for ring reporting to reporter.
func NewRunner(ring *chord.Ring, reporter Reporter, logger *pkg.Logger) (*Runner, error) {
	if ring == nil {
		return nil, fmt.Errorf("ring cannot be nil")
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Runner{
		ring:     ring,
		reporter: reporter,
		nodes:    make(map[int]*chord.Node),
		logger:   logger.WithFields(pkg.Fields{"component": "script"}),
	}, nil
}

// Run parses src and executes it, stopping at the first failing statement.
func Run(ring *chord.Ring, name, src string, reporter Reporter, logger *pkg.Logger) error {
	r, err := NewRunner(ring, reporter, logger)
	if err != nil {
		return err
	}
	return r.Run(name, src)
}

// Run parses src and executes it, stopping at the first failing statement.
func (r *Runner) Run(name, src string) error {
	s, err := Parse(name, src)
	if err != nil {
		return err
	}

	r.logger.Debug().
		Str("script", name).
		Int("statements", len(s.Statements)).
		Msg("Running script")

	for _, stmt := range s.Statements {
		if err := r.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Exec executes one statement. Errors carry the statement's position.
func (r *Runner) Exec(stmt *Statement) error {
	if err := r.exec(stmt); err != nil {
		return fmt.Errorf("%s: %s: %w", stmt.Pos, stmt, err)
	}
	return nil
}

func (r *Runner) exec(stmt *Statement) error {
	switch {
	case stmt.Join != nil:
		return r.join(stmt.Join)
	case stmt.Leave != nil:
		return r.leave(stmt.Leave)
	case stmt.Insert != nil:
		return r.insert(stmt.Insert)
	case stmt.Remove != nil:
		return r.remove(stmt.Remove)
	case stmt.Find != nil:
		return r.find(stmt.Find)
	case stmt.Fingers != nil:
		return r.fingers(stmt.Fingers)
	case stmt.Keys != nil:
		return r.keys(stmt.Keys)
	case stmt.Echo != nil:
		r.reporter.Echo(stmt.Echo.Text)
		return nil
	default:
		return fmt.Errorf("empty statement")
	}
}

func (r *Runner) join(j *Join) error {
	node, err := r.node(j.ID)
	if err != nil {
		return err
	}

	var contact *chord.Node
	switch {
	case j.Via != nil:
		if contact, err = r.ring.Member(*j.Via); err != nil {
			return err
		}
	default:
		// Without an explicit contact, any member will do
		if members := r.ring.Members(); len(members) > 0 {
			if contact, err = r.ring.Member(members[0]); err != nil {
				return err
			}
		}
	}

	report, err := r.ring.Join(node, contact)
	if err != nil {
		return err
	}
	if !report.Empty() {
		r.reporter.Migration(report)
	}
	return nil
}

func (r *Runner) leave(l *Leave) error {
	node, err := r.node(l.ID)
	if err != nil {
		return err
	}

	report, err := r.ring.Leave(node)
	if err != nil {
		return err
	}
	if !report.Empty() {
		r.reporter.Migration(report)
	}
	return nil
}

func (r *Runner) insert(in *Insert) error {
	from, err := r.ring.Member(in.At)
	if err != nil {
		return err
	}

	value := chord.AbsentValue
	if in.Value != nil {
		value = *in.Value
	}
	return r.ring.InsertKey(from, in.Key, value)
}

func (r *Runner) remove(rm *Remove) error {
	from, err := r.ring.Member(rm.At)
	if err != nil {
		return err
	}
	return r.ring.RemoveKey(from, rm.Key)
}

func (r *Runner) find(f *Find) error {
	from, err := r.ring.Member(f.From)
	if err != nil {
		return err
	}

	result, value, _, err := r.ring.Get(from, f.Key)
	if err != nil {
		return err
	}
	r.reporter.Lookup(f.Key, f.From, result, value)
	return nil
}

func (r *Runner) fingers(f *Fingers) error {
	ids := f.IDs
	if len(ids) == 0 {
		ids = r.ring.Members()
	}

	for _, id := range ids {
		node, err := r.ring.Member(id)
		if err != nil {
			return err
		}
		entries, err := r.ring.FingerTableOf(node)
		if err != nil {
			return err
		}
		r.reporter.Fingers(id, entries)
	}
	return nil
}

func (r *Runner) keys(k *Keys) error {
	ids := k.IDs
	if len(ids) == 0 {
		ids = r.ring.Members()
	}

	for _, id := range ids {
		node, err := r.ring.Member(id)
		if err != nil {
			return err
		}
		pairs, err := r.ring.KeysOf(node)
		if err != nil {
			return err
		}
		r.reporter.Keys(id, pairs)
	}
	return nil
}

// node returns the node for id, creating it on first reference.
func (r *Runner) node(id int) (*chord.Node, error) {
	if n, ok := r.nodes[id]; ok {
		return n, nil
	}
	if n, err := r.ring.Member(id); err == nil {
		r.nodes[id] = n
		return n, nil
	}

	n, err := r.ring.CreateNode(id)
	if err != nil {
		return nil, err
	}
	r.nodes[id] = n
	return n, nil
}
