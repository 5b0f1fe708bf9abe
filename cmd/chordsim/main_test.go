package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/chordsim/internal/chord"
	"github.com/zde37/chordsim/internal/config"
	"github.com/zde37/chordsim/internal/script"
	"github.com/zde37/chordsim/pkg"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func createTestRing(t *testing.T) *chord.Ring {
	t.Helper()
	ring, err := chord.NewRing(config.DefaultConfig(), pkg.NewNop())
	require.NoError(t, err)
	return ring
}

func TestReferenceScenarioOutput(t *testing.T) {
	var out bytes.Buffer
	ring := createTestRing(t)

	require.NoError(t, script.Run(ring, "reference.chord", script.Reference, newTreeReporter(&out), pkg.NewNop()))

	text := out.String()
	assert.Contains(t, text, "Finger Tables:")
	assert.Contains(t, text, "finger 7: start 128 -> node 160")
	assert.Contains(t, text, "Node 110: 99:-1 100:5 101:4 102:6")
	assert.Contains(t, text, "Node 100 received keys 99, 100 from node 110")
	assert.Contains(t, text, "Look-up result of key 50 from node 0 with path [0,30,65] value is 8")
	assert.Contains(t, text, "Look-up result of key 101 from node 0 with path [0,65,100,110] value is 4")
	assert.Contains(t, text, "Node 100 received keys 45, 50, 60 from node 65")
	assert.Contains(t, text, "Node 100: 45:3 50:8 60:10 99:-1 100:5")
}

func TestRenderFingers(t *testing.T) {
	tree := renderFingers(230, []chord.FingerEntry{
		{Start: 231, NodeID: 0},
		{Start: 102, NodeID: 110},
	})

	assert.Contains(t, tree, "Node 230")
	assert.Contains(t, tree, "finger 0: start 231 -> node 0")
	assert.Contains(t, tree, "finger 1: start 102 -> node 110")
}

func TestRenderRing(t *testing.T) {
	ring := createTestRing(t)
	require.NoError(t, script.Run(ring, "t", "join 0\njoin 128\ninsert 5 = 9 at 0", newTreeReporter(&bytes.Buffer{}), pkg.NewNop()))

	tree, err := renderRing(ring)
	require.NoError(t, err)
	assert.Contains(t, tree, "Ring M=8 (256 positions)")
	assert.Contains(t, tree, "Node 128")
	assert.Contains(t, tree, "successor 0")
	assert.Contains(t, tree, "keys 5:9")
}

func TestFormatPairs(t *testing.T) {
	assert.Equal(t, "", formatPairs(nil))
	assert.Equal(t, "3:3 200:-1", formatPairs([]chord.KeyValue{{Key: 3, Value: 3}, {Key: 200, Value: -1}}))
}

func TestLoadScript(t *testing.T) {
	name, src, err := loadScript("")
	require.NoError(t, err)
	assert.Equal(t, "reference.chord", name)
	assert.Equal(t, script.Reference, src)

	path := filepath.Join(t.TempDir(), "small.chord")
	require.NoError(t, os.WriteFile(path, []byte("join 1\n"), 0o644))
	name, src, err = loadScript(path)
	require.NoError(t, err)
	assert.Equal(t, path, name)
	assert.Equal(t, "join 1\n", src)

	_, _, err = loadScript(filepath.Join(t.TempDir(), "missing.chord"))
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	m := newMenu(createTestRing(t), nil)

	assert.NoError(t, m.idValidator("0"))
	assert.NoError(t, m.idValidator("255"))
	assert.Error(t, m.idValidator("256"))
	assert.Error(t, m.idValidator("-1"))
	assert.Error(t, m.idValidator("abc"))
	assert.Error(t, m.idValidator(42))

	assert.NoError(t, optionalIntValidator(""))
	assert.NoError(t, optionalIntValidator("-1"))
	assert.Error(t, optionalIntValidator("x"))
}
