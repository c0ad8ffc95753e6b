package hover

import (
	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
)

// Descriptor is the game's global "last hovered unit" record.
type Descriptor struct {
	Active      bool
	ItemTooltip bool
	Kind        entity.Kind
	UnitID      uint32
}

// Read decodes the descriptor at addr.
func Read(r memory.Reader, addr uintptr, l *config.HoverLayout) (Descriptor, error) {
	blk, err := memory.ReadBlock(r, addr, int(l.UnitID)+4)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Active:      blk.U8(l.IsHovered) != 0,
		ItemTooltip: blk.U8(l.IsItemTooltip) != 0,
		Kind:        entity.Kind(blk.U32(l.UnitType)),
		UnitID:      blk.U32(l.UnitID),
	}, nil
}

func (d Descriptor) matches(u entity.Unit) bool {
	h := u.Head()
	return d.Active && h.Kind == d.Kind && h.UnitID == d.UnitID
}

// Resolver keeps the hovered flag on at most one unit.
type Resolver struct {
	last entity.Unit
}

// Resolve clears the flag on every unit that no longer matches d and on the
// unit hovered on the previous tick unless it is found again, and sets it on
// the first candidate that matches. It returns the hovered unit, or nil.
func (r *Resolver) Resolve(d Descriptor, candidates []entity.Unit) entity.Unit {
	prev := r.last
	r.last = nil

	for _, u := range candidates {
		h := u.Head()
		if h.Hovered && (r.last != nil || !d.matches(u)) {
			h.Hovered = false
			continue
		}
		if r.last == nil && d.matches(u) {
			h.Hovered = true
			r.last = u
		}
	}
	if prev != nil && prev != r.last {
		prev.Head().Hovered = false
	}
	return r.last
}

// Hovered returns the unit flagged on the last Resolve.
func (r *Resolver) Hovered() entity.Unit { return r.last }

// Reset drops the remembered unit without touching its flag.
func (r *Resolver) Reset() { r.last = nil }
