package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/disiqueira/gotree"
	"github.com/fatih/color"

	"github.com/zde37/chordsim/internal/chord"
)

// treeReporter prints script output: headings in yellow, finger tables as
// trees, lookups and key distributions one line each.
type treeReporter struct {
	out     io.Writer
	heading *color.Color
	notice  *color.Color
	plain   *color.Color
}

func newTreeReporter(out io.Writer) *treeReporter {
	return &treeReporter{
		out:     out,
		heading: color.New(color.FgHiYellow),
		notice:  color.New(color.FgCyan),
		plain:   color.New(color.Reset),
	}
}

func (r *treeReporter) Echo(text string) {
	r.heading.Fprintf(r.out, "\n%s\n", text)
}

func (r *treeReporter) Migration(report chord.MigrationReport) {
	r.notice.Fprintf(r.out, "Node %d received keys %s from node %d\n",
		report.To, formatInts(report.Keys, ", "), report.From)
}

func (r *treeReporter) Lookup(key, from int, result *chord.LookupResult, value int) {
	r.plain.Fprintf(r.out, "Look-up result of key %d from node %d with path %s value is %d\n",
		key, from, result, value)
}

func (r *treeReporter) Fingers(id int, entries []chord.FingerEntry) {
	fmt.Fprint(r.out, renderFingers(id, entries))
}

func (r *treeReporter) Keys(id int, pairs []chord.KeyValue) {
	r.plain.Fprintf(r.out, "Node %d: %s\n", id, formatPairs(pairs))
}

// renderFingers draws a node's finger table as a tree, one branch per entry.
func renderFingers(id int, entries []chord.FingerEntry) string {
	root := gotree.New(fmt.Sprintf("Node %d", id))
	for i, e := range entries {
		root.Add(fmt.Sprintf("finger %d: start %d -> node %d", i, e.Start, e.NodeID))
	}
	return root.Print()
}

// renderRing draws every member with its key count, for the interactive menu.
func renderRing(ring *chord.Ring) (string, error) {
	space := ring.Space()
	root := gotree.New(fmt.Sprintf("Ring M=%d (%d positions)", space.Bits(), space.Size()))

	for _, id := range ring.Members() {
		node, err := ring.Member(id)
		if err != nil {
			return "", err
		}
		pairs, err := ring.KeysOf(node)
		if err != nil {
			return "", err
		}
		fingers, err := ring.FingerTableOf(node)
		if err != nil {
			return "", err
		}

		member := root.Add(fmt.Sprintf("Node %d", id))
		member.Add("successor " + strconv.Itoa(fingers[0].NodeID))
		member.Add("keys " + formatPairs(pairs))
	}
	return root.Print(), nil
}

// formatPairs renders pairs as "k:v k:v".
func formatPairs(pairs []chord.KeyValue) string {
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = fmt.Sprintf("%d:%d", kv.Key, kv.Value)
	}
	return strings.Join(parts, " ")
}

func formatInts(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
