package chord

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupResult(t *testing.T) {
	tests := []struct {
		name     string
		result   *LookupResult
		wantHops int
		wantStr  string
	}{
		{name: "nil", result: nil, wantHops: 0, wantStr: "[]"},
		{name: "empty path", result: &LookupResult{}, wantHops: 0, wantStr: "[]"},
		{name: "lone node", result: &LookupResult{Owner: 7, Path: []int{7, 7}}, wantHops: 1, wantStr: "[7,7]"},
		{name: "three hops", result: &LookupResult{Owner: 110, Path: []int{0, 65, 100, 110}}, wantHops: 3, wantStr: "[0,65,100,110]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHops, tt.result.Hops())
			assert.Equal(t, tt.wantStr, tt.result.String())
		})
	}
}

func TestFingerEntryString(t *testing.T) {
	assert.Equal(t, "start 128 -> 160", FingerEntry{Start: 128, NodeID: 160}.String())
}

func TestNewMigrationReport(t *testing.T) {
	report := newMigrationReport(110, 100, []KeyValue{{Key: 99, Value: -1}, {Key: 100, Value: 5}})
	assert.Equal(t, MigrationReport{From: 110, To: 100, Keys: []int{99, 100}}, report)
	assert.False(t, report.Empty())

	empty := newMigrationReport(1, 2, nil)
	assert.True(t, empty.Empty())
	assert.NotNil(t, empty.Keys, "keys encode as [] rather than null")
}

func TestMigrationEventJSON(t *testing.T) {
	e := newMigrationEvent(MigrationReport{From: 65, To: 100, Keys: []int{45, 50}})

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, EventKeysMigrated, decoded["type"])
	assert.EqualValues(t, 65, decoded["from"])
	assert.EqualValues(t, 100, decoded["to"])
	assert.EqualValues(t, 100, decoded["node_id"])
	assert.Len(t, decoded["keys"], 2)
	assert.NotEmpty(t, decoded["id"])

	join := newRingUpdateEvent(EventNodeJoin, 3, "node 3 joined the ring")
	data, err = json.Marshal(join)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"from"`)
	assert.NotContains(t, string(data), `"keys"`)
}
