package pkg

import "errors"

var (
	// ErrKeyNotFound is returned when a key doesn't exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidID is returned when a node id lies outside [0, 2^M)
	ErrInvalidID = errors.New("invalid node id")

	// ErrInvalidKey is returned when a key lies outside [0, 2^M)
	ErrInvalidKey = errors.New("invalid key")

	// ErrDuplicateID is returned when a node joins with an id that is already active
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrEmptyRing is returned when a ring query needs at least one (other) member
	ErrEmptyRing = errors.New("empty ring")

	// ErrNotAMember is returned when a node is not an active member of the ring
	ErrNotAMember = errors.New("not a ring member")

	// ErrStorageUnavailable is returned when storage is closed
	ErrStorageUnavailable = errors.New("storage unavailable")
)
