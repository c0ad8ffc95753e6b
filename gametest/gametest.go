// Package gametest builds fake game address spaces on top of memory.Image
// for tests of the decoder, walker and engine.
package gametest

import (
	"math"

	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
)

const (
	DefaultPID  = 4242
	DefaultBase = uintptr(0x140000000)
	heapStart   = uintptr(0x10000000)
)

// World is a fake game process.
type World struct {
	Img     *memory.Image
	Offsets config.Offsets

	heap   uintptr
	units  map[uintptr]*UnitSpec
	roster uintptr
}

// UnitSpec describes one unit to place in the world.
type UnitSpec struct {
	Kind      entity.Kind
	TxtFileNo uint32
	UnitID    uint32
	Mode      uint32
	X, Y      float64
	Stats     map[entity.Stat]int32
	States    []entity.State
	// ServerSide puts a missile in the server missile table.
	ServerSide bool

	// Player
	Name         string
	Local        bool
	Corpse       bool
	Area         entity.Area
	Difficulty   entity.Difficulty
	StashSortKey uint32

	// Monster
	TypeFlags     entity.MonsterType
	MonStatsFlags uint32

	// Object
	InteractType uint8
	Shrine       bool
	ObjectType   string

	// Item
	Item entity.ItemData

	addr uintptr
	path uintptr
}

// New creates a world with the default offsets, in game, with seed 1.
func New() *World {
	return NewPID(DefaultPID)
}

// NewPID creates a world for a specific process id.
func NewPID(pid int) *World {
	w := &World{
		Img:     memory.NewImage(pid, DefaultBase),
		Offsets: config.DefaultOffsets(),
		heap:    heapStart,
		units:   map[uintptr]*UnitSpec{},
	}
	for kind := entity.KindPlayer; kind <= entity.KindItem; kind++ {
		w.Img.Write(w.table(kind, false), make([]byte, w.Offsets.Layout.Buckets*8))
	}
	w.Img.Write(w.table(entity.KindMissile, true), make([]byte, w.Offsets.Layout.Buckets*8))
	w.Img.PutU8(w.global(w.Offsets.MenuOpen), 0)
	w.Img.Write(w.global(w.Offsets.LastHoverData), make([]byte, 16))
	w.Img.Write(w.global(w.Offsets.GameName), make([]byte, 0xA8))
	w.Img.PutPtr(w.global(w.Offsets.RosterData), 0)
	w.SetInGame(true)
	w.SetSeed(1)
	w.SetInteractedNpc(entity.NpcInvalid)
	return w
}

func (w *World) Layout() *config.Layout { return &w.Offsets.Layout }

func (w *World) global(off uint64) uintptr {
	return DefaultBase + uintptr(off)
}

// Table returns the address of a unit hash table.
func (w *World) Table(kind entity.Kind, server bool) uintptr {
	return w.table(kind, server)
}

func (w *World) table(kind entity.Kind, server bool) uintptr {
	t := w.global(w.Offsets.UnitHashTable)
	if server {
		t += uintptr(w.Offsets.ServerTableOffset)
	}
	return t + uintptr(kind)*uintptr(w.Offsets.Layout.Buckets)*8
}

// Alloc reserves zeroed memory.
func (w *World) Alloc(size int) uintptr {
	addr := w.heap
	w.Img.Write(addr, make([]byte, size))
	w.heap += (uintptr(size) + 0x3F) &^ 0x3F
	return addr
}

func (w *World) SetInGame(in bool) {
	var v uint8
	if in {
		v = 1
	}
	w.Img.PutU8(w.global(w.Offsets.MenuData)+uintptr(w.Offsets.Layout.Menu.InGame), v)
}

func (w *World) SetSeed(seed uint64) {
	w.Img.PutU64(w.global(w.Offsets.MapSeed), seed)
}

func (w *World) SetInteractedNpc(npc entity.Npc) {
	w.Img.PutU16(w.global(w.Offsets.InteractedNpc), uint16(npc))
}

func (w *World) SetHover(active bool, kind entity.Kind, id uint32) {
	h := w.global(w.Offsets.LastHoverData)
	l := w.Offsets.Layout.Hover
	var v uint8
	if active {
		v = 1
	}
	w.Img.PutU8(h+uintptr(l.IsHovered), v)
	w.Img.PutU32(h+uintptr(l.UnitType), uint32(kind))
	w.Img.PutU32(h+uintptr(l.UnitID), id)
}

func (w *World) SetGameName(name, pass string) {
	s := w.global(w.Offsets.GameName)
	w.Img.PutString(s+uintptr(w.Offsets.Layout.Session.GameName), name)
	w.Img.PutString(s+uintptr(w.Offsets.Layout.Session.GamePass), pass)
}

// AddRoster appends an entry to the party roster.
func (w *World) AddRoster(name string, unitID uint32, partyID uint16) uintptr {
	l := w.Offsets.Layout.Roster
	e := w.Alloc(int(l.Next) + 8)
	w.Img.PutString(e+uintptr(l.Name), name)
	w.Img.PutU32(e+uintptr(l.UnitID), unitID)
	w.Img.PutU16(e+uintptr(l.PartyID), partyID)

	if w.roster == 0 {
		w.Img.PutPtr(w.global(w.Offsets.RosterData), e)
	} else {
		w.Img.PutPtr(w.roster+uintptr(l.Next), e)
	}
	w.roster = e
	return e
}

// Add writes the unit and links it at the head of its bucket chain.
func (w *World) Add(spec UnitSpec) uintptr {
	l := w.Offsets.Layout
	s := spec
	s.addr = w.Alloc(l.Unit.Size)
	u := s.addr

	w.Img.PutU32(u+uintptr(l.Unit.Type), uint32(s.Kind))
	w.Img.PutU32(u+uintptr(l.Unit.TxtFileNo), s.TxtFileNo)
	w.Img.PutU32(u+uintptr(l.Unit.UnitID), s.UnitID)
	w.Img.PutU32(u+uintptr(l.Unit.Mode), s.Mode)

	s.path = w.Alloc(l.Path.Size)
	w.Img.PutPtr(u+uintptr(l.Unit.Path), s.path)
	w.writePosition(&s)

	if len(s.Stats) > 0 || len(s.States) > 0 {
		w.Img.PutPtr(u+uintptr(l.Unit.StatList), w.statList(s.Stats, s.States))
	}

	switch s.Kind {
	case entity.KindPlayer:
		w.writePlayer(&s)
	case entity.KindMonster:
		w.writeMonster(&s)
	case entity.KindObject:
		w.writeObject(&s)
	case entity.KindItem:
		w.writeItem(&s)
	}

	w.units[u] = &s
	w.link(u, w.table(s.Kind, s.ServerSide)+uintptr(s.UnitID%uint32(l.Buckets))*8)
	return u
}

func (w *World) link(u, bucket uintptr) {
	head, _ := memory.ReadPtr(w.Img, bucket)
	w.Img.PutPtr(u+uintptr(w.Offsets.Layout.Unit.Next), head)
	w.Img.PutPtr(bucket, u)
}

// Remove unlinks the unit from its chain.
func (w *World) Remove(u uintptr) {
	s := w.units[u]
	l := w.Offsets.Layout
	bucket := w.table(s.Kind, s.ServerSide) + uintptr(s.UnitID%uint32(l.Buckets))*8
	next := uintptr(l.Unit.Next)

	prev := bucket
	cur, _ := memory.ReadPtr(w.Img, bucket)
	for cur != 0 {
		succ, _ := memory.ReadPtr(w.Img, cur+next)
		if cur == u {
			if prev == bucket {
				w.Img.PutPtr(bucket, succ)
			} else {
				w.Img.PutPtr(prev+next, succ)
			}
			break
		}
		prev = cur
		cur = succ
	}
	delete(w.units, u)
}

// Move changes the position of a placed unit.
func (w *World) Move(u uintptr, x, y float64) {
	s := w.units[u]
	s.X, s.Y = x, y
	w.writePosition(s)
}

// SetArea moves a player to another level.
func (w *World) SetArea(u uintptr, area entity.Area) {
	s := w.units[u]
	s.Area = area
	w.Img.PutPtr(s.path+uintptr(w.Offsets.Layout.Path.Room), w.room(area))
}

// SetNext overwrites a unit's chain pointer.
func (w *World) SetNext(u, next uintptr) {
	w.Img.PutPtr(u+uintptr(w.Offsets.Layout.Unit.Next), next)
}

func (w *World) writePosition(s *UnitSpec) {
	l := w.Offsets.Layout.Path
	p := s.path
	switch s.Kind {
	case entity.KindObject, entity.KindItem:
		w.Img.PutU32(p+uintptr(l.StaticX), uint32(s.X))
		w.Img.PutU32(p+uintptr(l.StaticY), uint32(s.Y))
	default:
		wx, fx := math.Modf(s.X)
		wy, fy := math.Modf(s.Y)
		w.Img.PutU16(p+uintptr(l.DynamicX), uint16(wx))
		w.Img.PutU16(p+uintptr(l.XOffset), uint16(fx*math.MaxUint16))
		w.Img.PutU16(p+uintptr(l.DynamicY), uint16(wy))
		w.Img.PutU16(p+uintptr(l.YOffset), uint16(fy*math.MaxUint16))
	}
}

func (w *World) statList(stats map[entity.Stat]int32, states []entity.State) uintptr {
	l := w.Offsets.Layout.StatList
	sl := w.Alloc(int(l.StateFlags) + l.StateWords*4)

	if len(stats) > 0 {
		arr := w.Alloc(len(stats) * 8)
		i := uintptr(0)
		for id, v := range stats {
			w.Img.PutU16(arr+i*8+2, uint16(id))
			w.Img.PutU32(arr+i*8+4, uint32(v))
			i++
		}
		w.Img.PutPtr(sl+uintptr(l.Stats), arr)
		w.Img.PutU64(sl+uintptr(l.Count), uint64(len(stats)))
	}

	for _, st := range states {
		addr := sl + uintptr(l.StateFlags) + uintptr(st/32)*4
		word, _ := memory.ReadU32(w.Img, addr)
		w.Img.PutU32(addr, word|1<<(st%32))
	}
	return sl
}

func (w *World) room(area entity.Area) uintptr {
	l := w.Offsets.Layout.Room
	level := w.Alloc(int(l.LevelID) + 4)
	w.Img.PutU32(level+uintptr(l.LevelID), uint32(area))
	roomEx := w.Alloc(int(l.Level) + 8)
	w.Img.PutPtr(roomEx+uintptr(l.Level), level)
	room := w.Alloc(int(l.RoomEx) + 8)
	w.Img.PutPtr(room+uintptr(l.RoomEx), roomEx)
	return room
}

func (w *World) writePlayer(s *UnitSpec) {
	l := w.Offsets.Layout
	u := s.addr

	data := w.Alloc(0x40)
	w.Img.PutString(data+uintptr(l.PlayerData.Name), s.Name)
	w.Img.PutPtr(u+uintptr(l.Unit.UnitData), data)

	inv := w.Alloc(int(l.Inventory.PrivateOwner) + 8)
	if s.Local {
		w.Img.PutPtr(inv+uintptr(l.Inventory.PrivateOwner), w.Alloc(8))
	}
	w.Img.PutPtr(u+uintptr(l.Unit.Inventory), inv)

	if s.Corpse {
		w.Img.PutU8(u+uintptr(l.Unit.IsCorpse), 1)
	}
	w.Img.PutU32(u+uintptr(l.Unit.StashSortKey), s.StashSortKey)

	w.Img.PutPtr(s.path+uintptr(l.Path.Room), w.room(s.Area))

	misc := w.Alloc(int(l.Act.Difficulty) + 2)
	w.Img.PutU16(misc+uintptr(l.Act.Difficulty), uint16(s.Difficulty))
	act := w.Alloc(int(l.Act.ActMisc) + 8)
	w.Img.PutPtr(act+uintptr(l.Act.ActMisc), misc)
	w.Img.PutPtr(u+uintptr(l.Unit.Act), act)
}

func (w *World) writeMonster(s *UnitSpec) {
	l := w.Offsets.Layout.MonsterData
	stats := w.Alloc(int(l.MonStatsFlags) + 4)
	w.Img.PutU32(stats+uintptr(l.MonStatsFlags), s.MonStatsFlags)

	data := w.Alloc(0x40)
	w.Img.PutPtr(data+uintptr(l.MonStats), stats)
	w.Img.PutU8(data+uintptr(l.TypeFlags), uint8(s.TypeFlags))
	w.Img.PutPtr(s.addr+uintptr(w.Offsets.Layout.Unit.UnitData), data)
}

func (w *World) writeObject(s *UnitSpec) {
	l := w.Offsets.Layout.ObjectData
	txt := w.Alloc(int(l.ObjectType) + 0x20)
	w.Img.PutString(txt+uintptr(l.ObjectType), s.ObjectType)

	data := w.Alloc(0x40)
	w.Img.PutPtr(data+uintptr(l.ObjectTxt), txt)
	w.Img.PutU8(data+uintptr(l.InteractType), s.InteractType)
	if s.Shrine {
		w.Img.PutPtr(data+uintptr(l.ShrineTxt), w.Alloc(0x10))
	}
	w.Img.PutPtr(s.addr+uintptr(w.Offsets.Layout.Unit.UnitData), data)
}

func (w *World) writeItem(s *UnitSpec) {
	w.Img.PutPtr(s.addr+uintptr(w.Offsets.Layout.Unit.UnitData), w.Alloc(w.Offsets.Layout.ItemData.Size))
	w.SetItemData(s.addr, s.Item)
}

// SetItemData rewrites the item payload of a placed item.
func (w *World) SetItemData(u uintptr, d entity.ItemData) {
	l := w.Offsets.Layout.ItemData
	s := w.units[u]
	s.Item = d
	data, _ := memory.ReadPtr(w.Img, u+uintptr(w.Offsets.Layout.Unit.UnitData))
	w.Img.PutU32(data+uintptr(l.Quality), uint32(d.Quality))
	w.Img.PutU32(data+uintptr(l.OwnerID), d.OwnerID)
	w.Img.PutU32(data+uintptr(l.Flags), uint32(d.Flags))
	w.Img.PutU32(data+uintptr(l.UniqueOrSetID), d.UniqueOrSetID)
	w.Img.PutU8(data+uintptr(l.BodyLoc), uint8(d.BodyLoc))
	w.Img.PutU8(data+uintptr(l.InvPage), uint8(d.InvPage))
}

// SetMode rewrites a unit's mode.
func (w *World) SetMode(u uintptr, mode uint32) {
	w.units[u].Mode = mode
	w.Img.PutU32(u+uintptr(w.Offsets.Layout.Unit.Mode), mode)
}
