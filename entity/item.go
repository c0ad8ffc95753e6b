package entity

import (
	"d2sync/config"
	"d2sync/memory"
)

type StashTab uint8

const (
	StashTabNone StashTab = iota
	StashTabPersonal
	StashTabShared1
	StashTabShared2
	StashTabShared3
)

// ItemData is the item payload behind Header.UnitData.
type ItemData struct {
	Quality       ItemQuality
	OwnerID       uint32
	Flags         ItemFlags
	UniqueOrSetID uint32
	BodyLoc       BodyLoc
	InvPage       InvPage
}

type Item struct {
	Header
	Data ItemData

	// Set by the item pipeline, kept across refreshes.
	VendorOwner   Npc
	IsPlayerOwned bool
	StashTab      StashTab

	invalid bool
}

func (i *Item) Placement() Placement {
	return Classify(ItemMode(i.Mode), i.Data.OwnerID, i.Data.Flags, i.Data.InvPage)
}

func (i *Item) IsAnyPlayerHolding() bool { return i.Placement().AnyPlayerHolding() }

func (i *Item) IsDropped() bool { return i.Placement() == PlacementGround }

func (i *Item) IsInStore() bool { return i.Placement() == PlacementVendor }

func (i *Item) IsInSocket() bool { return i.Placement() == PlacementSocket }

// IsIdentified is true for identified magic-or-better items.
func (i *Item) IsIdentified() bool {
	return i.Data.Quality >= QualityMagic && i.Data.Flags.Has(ItemFlagIdentified)
}

func (i *Item) IsEthereal() bool { return i.Data.Flags.Has(ItemFlagEthereal) }

func (i *Item) MarkInvalid() { i.invalid = true }
func (i *Item) MarkValid()   { i.invalid = false }

// IsValidItem is false once the item was expected near the player but not walked.
func (i *Item) IsValidItem() bool {
	return !i.invalid && i.UnitID != InvalidID
}

func (i *Item) HashString() string { return i.hashString() }

// CopyFrom refreshes i from fresh. Pipeline-owned fields survive; the
// invalid mark is reset because the item was walked again.
func (i *Item) CopyFrom(fresh *Item) {
	i.Header.copyFrom(&fresh.Header)
	i.Data = fresh.Data
	i.invalid = false
}

func (i *Item) decodePayload(r memory.Reader, l *config.Layout) error {
	i.VendorOwner = NpcInvalid
	if !memory.IsValidPtr(i.UnitData) {
		return memory.ErrAddressNotMapped
	}
	blk, err := memory.ReadBlock(r, i.UnitData, l.ItemData.Size)
	if err != nil {
		return err
	}
	i.Data = ItemData{
		Quality:       ItemQuality(blk.U32(l.ItemData.Quality)),
		OwnerID:       blk.U32(l.ItemData.OwnerID),
		Flags:         ItemFlags(blk.U32(l.ItemData.Flags)),
		UniqueOrSetID: blk.U32(l.ItemData.UniqueOrSetID),
		BodyLoc:       BodyLoc(blk.U8(l.ItemData.BodyLoc)),
		InvPage:       InvPage(blk.U8(l.ItemData.InvPage)),
	}
	return nil
}
