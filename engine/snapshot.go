package engine

import (
	"time"

	"d2sync/entity"
	"d2sync/itemlog"
	"d2sync/roster"
	"d2sync/session"
)

// Snapshot is the game state assembled by one tick. Its slices belong to the
// snapshot; the units they point to are the live cached instances and keep
// being refreshed by later ticks.
type Snapshot struct {
	ProcessID  int
	Time       time.Time
	Session    *session.Session
	MapSeed    uint32
	Area       entity.Area
	Difficulty entity.Difficulty

	Player      *entity.Player
	Players     []*entity.Player
	Corpses     []*entity.Player
	Monsters    []*entity.Monster
	Mercenaries []*entity.Monster
	Objects     []*entity.Object
	Missiles    []*entity.Missile
	// Items are the logged items resolved to their live instances.
	Items    []*entity.Item
	AllItems []*entity.Item
	ItemLog  []itemlog.Entry

	Hovered           entity.Unit
	Roster            roster.Roster
	MenuPanelOpen     uint8
	LastNpcInteracted entity.Npc

	// Changed is set when the area or the game changed this tick.
	Changed bool
	// NewGame is set when the map seed changed this tick.
	NewGame bool
	// CorruptChains counts unit chains dropped while walking.
	CorruptChains int
}

// AreaTimeElapsed is the time spent in the current area this session.
func (s *Snapshot) AreaTimeElapsed() time.Duration {
	return s.Session.AreaTimeElapsed(s.Time)
}
