package itemlog

import (
	"time"

	"d2sync/entity"
)

// Entry records the first time an item was seen in a placement worth
// logging. Entries are values and never change after being logged.
type Entry struct {
	Hash       string
	UnitID     uint32
	TxtFileNo  uint32
	Quality    entity.ItemQuality
	Ethereal   bool
	Placement  entity.Placement
	Vendor     entity.Npc
	Area       entity.Area
	Difficulty entity.Difficulty
	ProcessID  int
	Time       time.Time
}

// Filter decides whether a first sighting becomes a log entry.
type Filter func(*entity.Item) bool

// All accepts every item.
func All(*entity.Item) bool { return true }

// MinQuality accepts items of quality q or better.
func MinQuality(q entity.ItemQuality) Filter {
	return func(i *entity.Item) bool {
		return i.Data.Quality >= q
	}
}

type Options struct {
	CheckVendorItems    bool
	CheckItemOnIdentify bool
	Filter              Filter
	// OnLogged is called synchronously for every appended entry.
	OnLogged func(Entry)
	Now      func() time.Time
}

// Where is the location context stamped on entries.
type Where struct {
	Area       entity.Area
	Difficulty entity.Difficulty
}

// Tracker holds the item bookkeeping of one process: what was seen, what to
// skip and the ordered log. It is reset when a new game starts.
type Tracker struct {
	pid  int
	opts Options

	hashesSeen    map[string]struct{}
	idsSeen       map[uint32]struct{}
	skip          map[uint32]struct{}
	inventorySkip map[uint32]struct{}
	vendors       map[uint32]entity.Npc
	log           []Entry
}

func NewTracker(pid int, opts Options) *Tracker {
	if opts.Filter == nil {
		opts.Filter = All
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	t := &Tracker{pid: pid, opts: opts}
	t.Reset()
	return t
}

// Reset forgets everything tracked for the current game.
func (t *Tracker) Reset() {
	t.hashesSeen = make(map[string]struct{})
	t.idsSeen = make(map[uint32]struct{})
	t.skip = make(map[uint32]struct{})
	t.inventorySkip = make(map[uint32]struct{})
	t.vendors = make(map[uint32]entity.Npc)
	t.log = nil
}

func (t *Tracker) Skip(id uint32) { t.skip[id] = struct{}{} }

func (t *Tracker) Skipped(id uint32) bool {
	_, ok := t.skip[id]
	return ok
}

// SkipInventory excludes an item from identify checks.
func (t *Tracker) SkipInventory(id uint32) { t.inventorySkip[id] = struct{}{} }

func (t *Tracker) InventorySkipped(id uint32) bool {
	_, ok := t.inventorySkip[id]
	return ok
}

// Vendor returns the vendor remembered for a store item.
func (t *Tracker) Vendor(id uint32) (entity.Npc, bool) {
	npc, ok := t.vendors[id]
	return npc, ok
}

func (t *Tracker) SetVendor(id uint32, npc entity.Npc) { t.vendors[id] = npc }

func (t *Tracker) seen(i *entity.Item) bool {
	if _, ok := t.idsSeen[i.UnitID]; ok {
		return true
	}
	_, ok := t.hashesSeen[i.HashString()]
	return ok
}

// CheckDropped reports an item newly lying on the ground.
func (t *Tracker) CheckDropped(i *entity.Item) bool {
	return i.IsDropped() && !t.Skipped(i.UnitID) && !t.seen(i)
}

// CheckVendor reports an item newly offered by a vendor.
func (t *Tracker) CheckVendor(i *entity.Item) bool {
	if !t.opts.CheckVendorItems || !i.IsInStore() || t.Skipped(i.UnitID) {
		return false
	}
	_, ok := t.idsSeen[i.UnitID]
	return !ok
}

// CheckInventory reports a player-owned item that has just been identified.
// A positive check is consumed: the item will not be reported again and is
// released from the skip set so it can be logged.
func (t *Tracker) CheckInventory(i *entity.Item) bool {
	if !t.opts.CheckItemOnIdentify || !i.IsIdentified() || !i.IsPlayerOwned || t.InventorySkipped(i.UnitID) {
		return false
	}
	t.SkipInventory(i.UnitID)
	delete(t.skip, i.UnitID)
	return true
}

// Log marks the item seen and appends an entry when the filter accepts it.
func (t *Tracker) Log(i *entity.Item, where Where) (Entry, bool) {
	hash := i.HashString()
	t.hashesSeen[hash] = struct{}{}
	t.idsSeen[i.UnitID] = struct{}{}

	if !t.opts.Filter(i) {
		return Entry{}, false
	}

	e := Entry{
		Hash:       hash,
		UnitID:     i.UnitID,
		TxtFileNo:  i.TxtFileNo,
		Quality:    i.Data.Quality,
		Ethereal:   i.IsEthereal(),
		Placement:  i.Placement(),
		Vendor:     i.VendorOwner,
		Area:       where.Area,
		Difficulty: where.Difficulty,
		ProcessID:  t.pid,
		Time:       t.opts.Now(),
	}
	t.log = append(t.log, e)
	if t.opts.OnLogged != nil {
		t.opts.OnLogged(e)
	}
	return e, true
}

// Entries returns a copy of the log in logging order.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.log))
	copy(out, t.log)
	return out
}

func (t *Tracker) Len() int { return len(t.log) }

// StashTab returns the tab of a stash item from the position of its owner
// in order: the personal stash first, then the shared tabs.
func StashTab(ownerID uint32, order []uint32) entity.StashTab {
	for i, id := range order {
		if id == ownerID {
			return entity.StashTab(i + 1)
		}
	}
	return entity.StashTabNone
}
