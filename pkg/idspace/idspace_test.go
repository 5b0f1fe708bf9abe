package idspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/chordsim/pkg"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		m        int
		wantSize int
		wantErr  bool
	}{
		{name: "reference size", m: 8, wantSize: 256},
		{name: "smallest", m: MinBits, wantSize: 2},
		{name: "largest", m: MaxBits, wantSize: 1 << MaxBits},
		{name: "zero bits", m: 0, wantErr: true},
		{name: "negative bits", m: -3, wantErr: true},
		{name: "too many bits", m: MaxBits + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.m)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.m, s.Bits())
			assert.Equal(t, tt.wantSize, s.Size())
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew(0) })
	assert.NotPanics(t, func() { MustNew(8) })
}

func TestValid(t *testing.T) {
	s := MustNew(8)

	assert.True(t, s.Valid(0))
	assert.True(t, s.Valid(255))
	assert.False(t, s.Valid(256))
	assert.False(t, s.Valid(-1))

	assert.NoError(t, s.ValidateID(42))
	assert.True(t, errors.Is(s.ValidateID(300), pkg.ErrInvalidID))
	assert.True(t, errors.Is(s.ValidateKey(-5), pkg.ErrInvalidKey))
}

func TestMod(t *testing.T) {
	s := MustNew(8)

	tests := []struct {
		in, want int
	}{
		{0, 0},
		{255, 255},
		{256, 0},
		{300, 44},
		{-1, 255},
		{-257, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Mod(tt.in), "Mod(%d)", tt.in)
	}
}

func TestFingerStart(t *testing.T) {
	s := MustNew(8)

	tests := []struct {
		name string
		id   int
		i    int
		want int
	}{
		{name: "first finger", id: 0, i: 0, want: 1},
		{name: "last finger", id: 0, i: 7, want: 128},
		{name: "wraps", id: 160, i: 7, want: 32},
		{name: "wraps small", id: 230, i: 5, want: 6},
		{name: "top of ring", id: 255, i: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.FingerStart(tt.id, tt.i))
		})
	}
}

func TestDistance(t *testing.T) {
	s := MustNew(8)

	assert.Equal(t, 10, s.Distance(20, 30))
	assert.Equal(t, 246, s.Distance(30, 20))
	assert.Equal(t, 0, s.Distance(7, 7))
	assert.Equal(t, 26, s.Distance(230, 0))
}

func TestInInterval(t *testing.T) {
	tests := []struct {
		name      string
		x, a, b   int
		inclusive bool
		want      bool
	}{
		{name: "inside normal", x: 5, a: 3, b: 7, want: true},
		{name: "lower end excluded", x: 3, a: 3, b: 7, inclusive: true, want: false},
		{name: "upper end exclusive", x: 7, a: 3, b: 7, want: false},
		{name: "upper end inclusive", x: 7, a: 3, b: 7, inclusive: true, want: true},
		{name: "outside normal", x: 9, a: 3, b: 7, inclusive: true, want: false},
		{name: "wrap above start", x: 250, a: 230, b: 10, want: true},
		{name: "wrap below end", x: 3, a: 230, b: 10, want: true},
		{name: "wrap zero", x: 0, a: 230, b: 10, want: true},
		{name: "wrap end exclusive", x: 10, a: 230, b: 10, want: false},
		{name: "wrap end inclusive", x: 10, a: 230, b: 10, inclusive: true, want: true},
		{name: "wrap start excluded", x: 230, a: 230, b: 10, inclusive: true, want: false},
		{name: "wrap outside", x: 100, a: 230, b: 10, inclusive: true, want: false},
		{name: "full circle exclusive", x: 3, a: 3, b: 3, want: true},
		{name: "full circle inclusive", x: 99, a: 3, b: 3, inclusive: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InInterval(tt.x, tt.a, tt.b, tt.inclusive))
		})
	}
}

func TestInRangeAndBetween(t *testing.T) {
	// InRange and Between only differ at the upper end.
	for x := 0; x < 256; x++ {
		for _, arc := range [][2]int{{0, 30}, {65, 100}, {230, 0}, {160, 32}} {
			a, b := arc[0], arc[1]
			if x == b {
				assert.True(t, InRange(x, a, b), "InRange(%d, %d, %d)", x, a, b)
				assert.False(t, Between(x, a, b), "Between(%d, %d, %d)", x, a, b)
				continue
			}
			assert.Equal(t, InRange(x, a, b), Between(x, a, b), "x=%d arc=(%d,%d)", x, a, b)
		}
	}
}
