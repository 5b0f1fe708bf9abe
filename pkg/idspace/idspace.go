package idspace

import (
	"fmt"

	"github.com/zde37/chordsim/pkg"
)

const (
	// MinBits is the smallest supported identifier space exponent.
	MinBits = 1

	// MaxBits keeps 2^M well inside a machine int on every platform.
	MaxBits = 30
)

// Space is the circular identifier domain [0, 2^M) shared by node ids and keys.
type Space struct {
	bits int
	size int
}

// New returns the identifier space of size 2^m.
func New(m int) (Space, error) {
	if m < MinBits || m > MaxBits {
		return Space{}, fmt.Errorf("M must be between %d and %d, got %d", MinBits, MaxBits, m)
	}
	return Space{bits: m, size: 1 << m}, nil
}

// MustNew is like New but panics on an invalid exponent.
func MustNew(m int) Space {
	s, err := New(m)
	if err != nil {
		panic(err)
	}
	return s
}

// Bits returns M.
func (s Space) Bits() int {
	return s.bits
}

// Size returns 2^M, the number of positions on the ring.
func (s Space) Size() int {
	return s.size
}

// Valid checks if an id is within [0, 2^M).
func (s Space) Valid(id int) bool {
	return id >= 0 && id < s.size
}

// ValidateID returns pkg.ErrInvalidID wrapped with context when id is outside the space.
func (s Space) ValidateID(id int) error {
	if !s.Valid(id) {
		return fmt.Errorf("id %d outside [0, %d): %w", id, s.size, pkg.ErrInvalidID)
	}
	return nil
}

// ValidateKey returns pkg.ErrInvalidKey wrapped with context when key is outside the space.
func (s Space) ValidateKey(key int) error {
	if !s.Valid(key) {
		return fmt.Errorf("key %d outside [0, %d): %w", key, s.size, pkg.ErrInvalidKey)
	}
	return nil
}

// Mod returns x mod 2^M, always non-negative.
func (s Space) Mod(x int) int {
	r := x % s.size
	if r < 0 {
		r += s.size
	}
	return r
}

// FingerStart computes (id + 2^i) mod 2^M, the start of finger interval i.
func (s Space) FingerStart(id, i int) int {
	return s.Mod(id + (1 << i))
}

// Distance computes the clockwise distance from start to end on the ring.
func (s Space) Distance(start, end int) int {
	return s.Mod(end - start)
}

// InInterval reports whether x lies on the clockwise arc that starts just
// after a and ends at b (inclusive) or just before b (exclusive).
// When a == b the arc is the whole circle and every x matches.
//
// Examples:
//   - InInterval(5, 3, 7, true)  = true   // 5 is in (3, 7]
//   - InInterval(7, 3, 7, false) = false  // 7 is not in (3, 7)
//   - InInterval(1, 8, 3, true)  = true   // wraps through 0
//   - InInterval(3, 3, 3, false) = true   // full circle
func InInterval(x, a, b int, inclusive bool) bool {
	switch {
	case a < b:
		if inclusive {
			return a < x && x <= b
		}
		return a < x && x < b
	case a > b:
		if inclusive {
			return x > a || x <= b
		}
		return x > a || x < b
	default:
		return true
	}
}

// InRange checks if x is in (a, b]. Used for ownership tests.
func InRange(x, a, b int) bool {
	return InInterval(x, a, b, true)
}

// Between checks if x is in (a, b), exclusive on both ends. Used for finger candidates.
func Between(x, a, b int) bool {
	return InInterval(x, a, b, false)
}
