package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant is wrapped by every InvariantError.
	ErrInvariant = errors.New("game state invariant violated")

	// ErrTickInProgress is returned when a tick is started on a context that
	// is already ticking.
	ErrTickInProgress = errors.New("tick already in progress for this process")
)

// Condition names one mandatory snapshot invariant.
type Condition int

const (
	PlayerMissing Condition = iota
	AreaOutOfRange
	SeedOutOfRange
	DifficultyOutOfRange
)

func (c Condition) String() string {
	switch c {
	case PlayerMissing:
		return "player unit not found"
	case AreaOutOfRange:
		return "level id out of bounds"
	case SeedOutOfRange:
		return "map seed out of bounds"
	case DifficultyOutOfRange:
		return "game difficulty out of bounds"
	}
	return fmt.Sprintf("condition(%d)", int(c))
}

// InvariantError reports why a tick produced no snapshot.
type InvariantError struct {
	Condition Condition
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.Detail == "" {
		return e.Condition.String()
	}
	return fmt.Sprintf("%s: %s", e.Condition, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// latch reports each condition once when it appears and again only after it
// has cleared. Conditions latch independently.
type latch map[Condition]bool

// set returns true when c was not already latched.
func (l latch) set(c Condition) bool {
	if l[c] {
		return false
	}
	l[c] = true
	return true
}

func (l latch) clear(c Condition) {
	delete(l, c)
}
