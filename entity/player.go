package entity

import (
	"errors"

	"d2sync/config"
	"d2sync/memory"
)

type PlayerClass uint32

const (
	Amazon PlayerClass = iota
	Sorceress
	Necromancer
	Paladin
	Barbarian
	Druid
	Assassin
)

func (c PlayerClass) String() string {
	if c > Assassin {
		return "Unknown"
	}
	return [...]string{"Amazon", "Sorceress", "Necromancer", "Paladin", "Barbarian", "Druid", "Assassin"}[c]
}

// RosterEntry is a player's line in the party roster.
type RosterEntry struct {
	Name    string
	UnitID  uint32
	PartyID uint16
}

// NoParty is the party id of a player that is in no party.
const NoParty uint16 = 0xFFFF

// Player is a player unit or a player's corpse.
type Player struct {
	Header

	Name         string
	IsCorpse     bool
	IsLocal      bool // owns the private inventory of this client
	StashSortKey uint32
	Area         Area
	Difficulty   Difficulty

	// Filled by the engine from the roster and the item pipeline.
	Roster    *RosterEntry
	InMyParty bool
	BeltItems [][]*Item
}

func (p *Player) Class() PlayerClass { return PlayerClass(p.TxtFileNo) }

// IsPlayer reports whether p is a living player rather than a corpse.
func (p *Player) IsPlayer() bool {
	return !p.IsCorpse && p.UnitData != 0
}

// IsLocalPlayer is the player this client controls.
func (p *Player) IsLocalPlayer() bool {
	return p.IsPlayer() && p.IsLocal
}

func (p *Player) HashString() string { return p.hashString() }

func (p *Player) CopyFrom(fresh *Player) {
	p.Header.copyFrom(&fresh.Header)
	p.Name = fresh.Name
	p.IsCorpse = fresh.IsCorpse
	p.IsLocal = fresh.IsLocal
	p.StashSortKey = fresh.StashSortKey
	p.Area = fresh.Area
	p.Difficulty = fresh.Difficulty
	p.Roster = fresh.Roster
	p.InMyParty = fresh.InMyParty
	p.BeltItems = fresh.BeltItems
}

func (p *Player) decodePayload(r memory.Reader, l *config.Layout) error {
	var errs []error

	if corpse, err := memory.ReadU8(r, p.Address+uintptr(l.Unit.IsCorpse)); err == nil {
		p.IsCorpse = corpse != 0
	} else {
		errs = append(errs, err)
	}
	if key, err := memory.ReadU32(r, p.Address+uintptr(l.Unit.StashSortKey)); err == nil {
		p.StashSortKey = key
	} else {
		errs = append(errs, err)
	}

	if memory.IsValidPtr(p.UnitData) {
		name, err := memory.ReadString(r, p.UnitData+uintptr(l.PlayerData.Name), 16)
		if err != nil {
			errs = append(errs, err)
		}
		p.Name = name
	}

	p.IsLocal = false
	if memory.IsValidPtr(p.Inventory) {
		owner, err := memory.ReadPtr(r, p.Inventory+uintptr(l.Inventory.PrivateOwner))
		p.IsLocal = err == nil && owner != 0
	}

	if p.IsCorpse {
		return errors.Join(errs...)
	}

	area, err := readArea(r, l, p.Path)
	if err != nil {
		errs = append(errs, err)
	}
	p.Area = area

	diff, err := readDifficulty(r, l, p.Act)
	if err != nil {
		errs = append(errs, err)
	}
	p.Difficulty = diff

	return errors.Join(errs...)
}

// readArea follows Path -> Room -> RoomEx -> Level -> LevelID.
func readArea(r memory.Reader, l *config.Layout, path uintptr) (Area, error) {
	if !memory.IsValidPtr(path) {
		return AreaNone, memory.ErrAddressNotMapped
	}
	room, err := memory.FollowPtr(r, path, l.Path.Room)
	if err != nil {
		return AreaNone, err
	}
	roomEx, err := memory.FollowPtr(r, room, l.Room.RoomEx)
	if err != nil {
		return AreaNone, err
	}
	level, err := memory.FollowPtr(r, roomEx, l.Room.Level)
	if err != nil {
		return AreaNone, err
	}
	id, err := memory.ReadU32(r, level+uintptr(l.Room.LevelID))
	return Area(id), err
}

// readDifficulty follows Act -> ActMisc -> Difficulty.
func readDifficulty(r memory.Reader, l *config.Layout, act uintptr) (Difficulty, error) {
	if !memory.IsValidPtr(act) {
		return 0, memory.ErrAddressNotMapped
	}
	misc, err := memory.FollowPtr(r, act, l.Act.ActMisc)
	if err != nil {
		return 0, err
	}
	d, err := memory.ReadU16(r, misc+uintptr(l.Act.Difficulty))
	return Difficulty(d), err
}
