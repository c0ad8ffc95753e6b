package entity

import (
	"errors"
	"fmt"
	"math"

	"d2sync/config"
	"d2sync/memory"
)

// ErrInvalidUnit is returned when a unit header fails its sanity checks. The
// caller drops the unit; it is never a tick-level failure.
var ErrInvalidUnit = errors.New("invalid unit")

// catalogBounds are exclusive upper bounds of TxtFileNo per kind.
var catalogBounds = map[Kind]uint32{
	KindPlayer:  7,
	KindMonster: 800,
	KindObject:  600,
	KindMissile: 400,
	KindItem:    700,
}

// Position is a world coordinate. Dynamic paths carry a sub-tile fraction.
type Position struct {
	X float64
	Y float64
}

func (p Position) DistanceTo(o Position) float64 {
	return memory.CalculateDistance2D(p.X, p.Y, o.X, o.Y)
}

// Header holds what every unit variant shares.
type Header struct {
	Kind      Kind
	TxtFileNo uint32
	UnitID    uint32
	Mode      uint32
	Address   uintptr
	UnitData  uintptr
	Act       uintptr
	Path      uintptr
	StatList  uintptr
	Inventory uintptr
	Next      uintptr

	Position Position
	Stats    map[Stat]int32
	States   []State

	Hovered bool
	// Valid is cleared when a sub-read failed; such units are kept out of
	// snapshots but still occupy their cache slot.
	Valid bool
}

func (h *Header) Head() *Header { return h }

func (h *Header) HasState(s State) bool {
	for _, st := range h.States {
		if st == s {
			return true
		}
	}
	return false
}

func (h *Header) Stat(s Stat) (int32, bool) {
	v, ok := h.Stats[s]
	return v, ok
}

func (h *Header) DistanceTo(o Unit) float64 {
	return h.Position.DistanceTo(o.Head().Position)
}

// hashString is the composite identity key: kind/catalog/x/y.
func (h *Header) hashString() string {
	return fmt.Sprintf("%s/%d/%d/%d", h.Kind, h.TxtFileNo, int64(h.Position.X), int64(h.Position.Y))
}

// copyFrom refreshes h from fresh, keeping the hover state owned by the
// hover resolver.
func (h *Header) copyFrom(fresh *Header) {
	hovered := h.Hovered
	*h = *fresh
	h.Hovered = hovered
}

// Unit is one decoded record of any kind.
type Unit interface {
	Head() *Header
	// HashString is the composite identity key used when unit ids cannot be
	// trusted across the unit's lifetime.
	HashString() string
	// decodePayload reads the kind-specific sub-structures.
	decodePayload(r memory.Reader, l *config.Layout) error
}

var factories = map[Kind]func() Unit{
	KindPlayer:  func() Unit { return &Player{} },
	KindMonster: func() Unit { return &Monster{} },
	KindObject:  func() Unit { return &Object{} },
	KindMissile: func() Unit { return &Missile{} },
	KindItem:    func() Unit { return &Item{} },
}

// Decode reads the unit at addr as kind. It returns ErrInvalidUnit when the
// header is not a unit of that kind and a wrapped memory error when the header
// could not be read at all. Failed sub-reads only clear Header.Valid.
func Decode(r memory.Reader, l *config.Layout, addr uintptr, kind Kind) (Unit, error) {
	newUnit, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrInvalidUnit, kind)
	}

	blk, err := memory.ReadBlock(r, addr, l.Unit.Size)
	if err != nil {
		return nil, fmt.Errorf("read unit header at 0x%X: %w", addr, err)
	}

	u := newUnit()
	h := u.Head()
	if err := decodeHeader(h, blk, &l.Unit, kind); err != nil {
		return nil, err
	}

	h.Valid = true
	if err := readPosition(r, l, h); err != nil {
		h.Valid = false
	}
	if err := readStats(r, &l.StatList, h); err != nil {
		h.Valid = false
	}
	if err := u.decodePayload(r, l); err != nil {
		h.Valid = false
	}
	return u, nil
}

// ReadNext returns the chain successor of the unit at addr.
func ReadNext(r memory.Reader, l *config.Layout, addr uintptr) (uintptr, error) {
	return memory.ReadPtr(r, addr+uintptr(l.Unit.Next))
}

func decodeHeader(h *Header, blk memory.Block, l *config.UnitLayout, kind Kind) error {
	h.Kind = Kind(blk.U32(l.Type))
	h.TxtFileNo = blk.U32(l.TxtFileNo)
	h.UnitID = blk.U32(l.UnitID)
	h.Mode = blk.U32(l.Mode)
	h.Address = blk.Addr
	h.UnitData = blk.Ptr(l.UnitData)
	h.Act = blk.Ptr(l.Act)
	h.Path = blk.Ptr(l.Path)
	h.StatList = blk.Ptr(l.StatList)
	h.Inventory = blk.Ptr(l.Inventory)
	h.Next = blk.Ptr(l.Next)

	switch {
	case h.Kind != kind:
		return fmt.Errorf("%w: type tag %d at 0x%X, want %s", ErrInvalidUnit, uint32(h.Kind), blk.Addr, kind)
	case h.TxtFileNo >= catalogBounds[kind]:
		return fmt.Errorf("%w: %s catalog id %d out of range", ErrInvalidUnit, kind, h.TxtFileNo)
	case h.UnitID == InvalidID:
		return fmt.Errorf("%w: %s unit id unset", ErrInvalidUnit, kind)
	}
	return nil
}

// readPosition decodes the unit's path. Players, monsters and missiles move
// on a dynamic path; objects and items sit on a static one.
func readPosition(r memory.Reader, l *config.Layout, h *Header) error {
	if !memory.IsValidPtr(h.Path) {
		return fmt.Errorf("%w: path 0x%X", memory.ErrAddressNotMapped, h.Path)
	}
	blk, err := memory.ReadBlock(r, h.Path, l.Path.Size)
	if err != nil {
		return err
	}

	switch h.Kind {
	case KindObject, KindItem:
		h.Position = Position{
			X: float64(blk.U32(l.Path.StaticX)),
			Y: float64(blk.U32(l.Path.StaticY)),
		}
	default:
		h.Position = Position{
			X: dynamicCoord(blk.U16(l.Path.DynamicX), blk.U16(l.Path.XOffset)),
			Y: dynamicCoord(blk.U16(l.Path.DynamicY), blk.U16(l.Path.YOffset)),
		}
	}
	return nil
}

func dynamicCoord(whole, frac uint16) float64 {
	return float64(whole) + float64(frac)/math.MaxUint16
}

// readStats reads the stat entries and state bitmask of the unit's stat list.
// Units without a stat list have neither.
func readStats(r memory.Reader, l *config.StatListLayout, h *Header) error {
	h.Stats = map[Stat]int32{}
	h.States = nil
	if h.StatList == 0 {
		return nil
	}

	arr, err := memory.ReadPtr(r, h.StatList+uintptr(l.Stats))
	if err != nil {
		return err
	}
	count, err := memory.ReadU64(r, h.StatList+uintptr(l.Count))
	if err != nil {
		return err
	}
	if count > uint64(l.MaxStats) {
		return fmt.Errorf("%w: stat count %d", ErrInvalidUnit, count)
	}
	if count > 0 {
		// Each entry: u16 layer, u16 stat id, i32 value.
		blk, err := memory.ReadBlock(r, arr, int(count)*8)
		if err != nil {
			return err
		}
		for i := uint32(0); i < uint32(count); i++ {
			h.Stats[Stat(blk.U16(i*8+2))] = blk.I32(i*8 + 4)
		}
	}

	flags, err := memory.ReadBlock(r, h.StatList+uintptr(l.StateFlags), l.StateWords*4)
	if err != nil {
		return err
	}
	for w := 0; w < l.StateWords; w++ {
		word := flags.U32(uint32(w * 4))
		for bit := 0; bit < 32; bit++ {
			if word&(1<<bit) != 0 {
				h.States = append(h.States, State(w*32+bit))
			}
		}
	}
	return nil
}
