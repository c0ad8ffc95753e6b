package roster

import (
	"fmt"

	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
)

// maxEntries bounds the roster walk; a game holds at most eight players.
const maxEntries = 16

// Roster is the party roster of the current game.
type Roster struct {
	Entries []entity.RosterEntry
}

// Read walks the roster list whose head pointer is stored at addr.
func Read(r memory.Reader, addr uintptr, l *config.RosterLayout) (Roster, error) {
	var ro Roster

	entry, err := memory.ReadPtr(r, addr)
	if err != nil {
		return ro, err
	}
	seen := make(map[uintptr]struct{})
	for memory.IsValidPtr(entry) {
		if _, dup := seen[entry]; dup || len(ro.Entries) >= maxEntries {
			return ro, fmt.Errorf("roster list at 0x%X does not terminate", addr)
		}
		seen[entry] = struct{}{}

		blk, err := memory.ReadBlock(r, entry, int(l.Next)+8)
		if err != nil {
			return ro, err
		}
		ro.Entries = append(ro.Entries, entity.RosterEntry{
			Name:    blk.String(l.Name, 16),
			UnitID:  blk.U32(l.UnitID),
			PartyID: blk.U16(l.PartyID),
		})
		entry = blk.Ptr(l.Next)
	}
	return ro, nil
}

// Find returns the entry of a unit id.
func (ro Roster) Find(unitID uint32) (*entity.RosterEntry, bool) {
	for i := range ro.Entries {
		if ro.Entries[i].UnitID == unitID {
			return &ro.Entries[i], true
		}
	}
	return nil, false
}

// Apply attaches roster entries to players and marks those sharing a party
// with local.
func (ro Roster) Apply(players []*entity.Player, local *entity.Player) {
	for _, p := range players {
		p.Roster = nil
		if e, ok := ro.Find(p.UnitID); ok {
			p.Roster = e
		}
	}
	for _, p := range players {
		p.InMyParty = p != local && local != nil && sameParty(p.Roster, local.Roster)
	}
}

func sameParty(a, b *entity.RosterEntry) bool {
	return a != nil && b != nil && a.PartyID != entity.NoParty && a.PartyID == b.PartyID
}
