package entity

// Placement is where an item currently resides.
type Placement uint8

const (
	PlacementUnknown Placement = iota
	PlacementBelt
	PlacementGround
	PlacementSocket
	PlacementPlayer
	PlacementMercenary
	PlacementVendor
	PlacementSelected
	PlacementTrade
	PlacementInventory
	PlacementCube
	PlacementStash
)

func (p Placement) String() string {
	switch p {
	case PlacementBelt:
		return "Belt"
	case PlacementGround:
		return "Ground"
	case PlacementSocket:
		return "Socket"
	case PlacementPlayer:
		return "Player"
	case PlacementMercenary:
		return "Mercenary"
	case PlacementVendor:
		return "Vendor"
	case PlacementSelected:
		return "Selected"
	case PlacementTrade:
		return "Trade"
	case PlacementInventory:
		return "Inventory"
	case PlacementCube:
		return "Cube"
	case PlacementStash:
		return "Stash"
	}
	return "Unknown"
}

// AnyPlayerHolding reports placements owned by some player or mercenary.
func (p Placement) AnyPlayerHolding() bool {
	switch p {
	case PlacementBelt, PlacementInventory, PlacementCube, PlacementStash, PlacementPlayer, PlacementMercenary:
		return true
	}
	return false
}

// Classify maps raw item placement fields to a Placement. Rules are ordered;
// the first match wins.
func Classify(mode ItemMode, ownerID uint32, flags ItemFlags, page InvPage) Placement {
	switch mode {
	case ItemModeInBelt:
		return PlacementBelt
	case ItemModeDropping, ItemModeOnGround:
		return PlacementGround
	case ItemModeSocketed:
		return PlacementSocket
	case ItemModeEquip:
		if ownerID != InvalidID {
			return PlacementPlayer
		}
		return PlacementMercenary
	}

	if ownerID == InvalidID {
		if flags.Has(ItemFlagInStore) && page != InvPageNull {
			return PlacementVendor
		}
		return PlacementSelected
	}
	// Another player's trade offer.
	if page == InvPageEquip {
		return PlacementTrade
	}

	switch page {
	case InvPageInventory:
		return PlacementInventory
	case InvPageTrade:
		return PlacementTrade
	case InvPageCube:
		return PlacementCube
	case InvPageStash:
		return PlacementStash
	}
	return PlacementUnknown
}
