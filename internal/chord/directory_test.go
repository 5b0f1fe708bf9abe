package chord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/chordsim/pkg"
	"github.com/zde37/chordsim/pkg/idspace"
)

func createTestDirectory(t *testing.T, ids ...int) *MemberDirectory {
	t.Helper()
	dir := NewMemberDirectory(idspace.MustNew(8))
	for _, id := range ids {
		require.NoError(t, dir.Add(id))
	}
	return dir
}

func TestMemberDirectorySuccessorOf(t *testing.T) {
	dir := createTestDirectory(t, 160, 0, 230, 30, 110, 65)

	tests := []struct {
		position int
		want     int
	}{
		{position: 0, want: 0},
		{position: 1, want: 30},
		{position: 30, want: 30},
		{position: 50, want: 65},
		{position: 66, want: 110},
		{position: 230, want: 230},
		{position: 231, want: 0},
		{position: 255, want: 0},
		{position: 256 + 31, want: 65},
		{position: -1, want: 0},
	}

	for _, tt := range tests {
		got, err := dir.SuccessorOf(tt.position)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "SuccessorOf(%d)", tt.position)
	}
}

func TestMemberDirectoryNeighbours(t *testing.T) {
	dir := createTestDirectory(t, 0, 30, 65, 110, 160, 230)

	next, err := dir.NextMember(65)
	require.NoError(t, err)
	assert.Equal(t, 110, next)

	next, err = dir.NextMember(230)
	require.NoError(t, err)
	assert.Equal(t, 0, next, "next of the largest id wraps")

	prev, err := dir.PreviousMember(65)
	require.NoError(t, err)
	assert.Equal(t, 30, prev)

	prev, err = dir.PreviousMember(0)
	require.NoError(t, err)
	assert.Equal(t, 230, prev, "previous of the smallest id wraps")

	_, err = dir.NextMember(50)
	assert.ErrorIs(t, err, pkg.ErrNotAMember)
	_, err = dir.PreviousMember(50)
	assert.ErrorIs(t, err, pkg.ErrNotAMember)
}

func TestMemberDirectorySingleMember(t *testing.T) {
	dir := createTestDirectory(t, 42)

	next, err := dir.NextMember(42)
	require.NoError(t, err)
	assert.Equal(t, 42, next)

	prev, err := dir.PreviousMember(42)
	require.NoError(t, err)
	assert.Equal(t, 42, prev)

	for _, pos := range []int{0, 41, 42, 43, 255} {
		succ, err := dir.SuccessorOf(pos)
		require.NoError(t, err)
		assert.Equal(t, 42, succ)
	}
}

func TestMemberDirectoryEmpty(t *testing.T) {
	dir := createTestDirectory(t)

	_, err := dir.SuccessorOf(10)
	assert.ErrorIs(t, err, pkg.ErrEmptyRing)
	_, err = dir.NextMember(10)
	assert.ErrorIs(t, err, pkg.ErrEmptyRing)
	_, err = dir.PreviousMember(10)
	assert.ErrorIs(t, err, pkg.ErrEmptyRing)
	assert.Empty(t, dir.Members())
	assert.Zero(t, dir.Len())
}

func TestMemberDirectoryAddRemove(t *testing.T) {
	dir := createTestDirectory(t, 30, 0)

	assert.ErrorIs(t, dir.Add(30), pkg.ErrDuplicateID)
	assert.ErrorIs(t, dir.Add(256), pkg.ErrInvalidID)
	assert.ErrorIs(t, dir.Add(-1), pkg.ErrInvalidID)

	assert.True(t, dir.Contains(30))
	dir.Remove(30)
	assert.False(t, dir.Contains(30))

	assert.NotPanics(t, func() { dir.Remove(99) })
	assert.Equal(t, []int{0}, dir.Members())
	assert.Equal(t, 1, dir.Len())
}
