package engine

import (
	"d2sync/cache"
	"d2sync/entity"
	"d2sync/itemlog"
)

// processItems runs first-sighting checks over this tick's items, logs new
// events and resolves the log to live items. It returns the items that took
// part in the pass.
func (e *Engine) processItems(ctx *Context, snap *Snapshot, order []uint32, newGame bool) []*entity.Item {
	tr := ctx.tracker
	where := itemlog.Where{Area: snap.Area, Difficulty: snap.Difficulty}

	processed := make([]*entity.Item, 0, len(snap.AllItems))
	walked := make(map[*entity.Item]struct{}, len(snap.AllItems))

	for _, item := range snap.AllItems {
		walked[item] = struct{}{}
		checkInventory := tr.CheckInventory(item)

		item.StashTab = entity.StashTabNone
		if item.Placement() == entity.PlacementStash {
			item.StashTab = itemlog.StashTab(item.Data.OwnerID, order)
		}

		if tr.Skipped(item.UnitID) {
			continue
		}
		// Items already held when the game starts are not news.
		if newGame && item.IsAnyPlayerHolding() && item.TxtFileNo != entity.ItemHoradricCube {
			tr.Skip(item.UnitID)
			if item.IsIdentified() {
				tr.SkipInventory(item.UnitID)
			}
			continue
		}

		item.IsPlayerOwned = ctx.cubeOwner != entity.InvalidID && item.Data.OwnerID == ctx.cubeOwner

		if item.IsInStore() {
			if vendor, ok := tr.Vendor(item.UnitID); ok {
				item.VendorOwner = vendor
			} else {
				// A restart mid-game must not pin every store item on the
				// last vendor talked to.
				item.VendorOwner = snap.LastNpcInteracted
				if ctx.firstRead {
					item.VendorOwner = entity.NpcUnknown
				}
				tr.SetVendor(item.UnitID, item.VendorOwner)
			}
		}

		dropped := tr.CheckDropped(item)
		vendor := tr.CheckVendor(item)
		if item.IsValidItem() && (dropped || vendor || checkInventory) {
			if entry, ok := tr.Log(item, where); ok {
				e.log.Debug("Logged %s item %d (%s)", entry.Quality, entry.TxtFileNo, entry.Placement)
			}
		}

		if item.TxtFileNo == entity.ItemHoradricCube {
			tr.Skip(item.UnitID)
		}
		processed = append(processed, item)
	}

	snap.ItemLog = tr.Entries()
	snap.Items = resolveLog(ctx.items, snap.ItemLog, walked, snap.Player)

	if newGame {
		for _, item := range snap.AllItems {
			if item.TxtFileNo == entity.ItemHoradricCube {
				ctx.cubeOwner = item.Data.OwnerID
				break
			}
		}
	}
	return processed
}

// resolveLog maps log entries to live items. A logged item near the player
// that was not walked this tick is gone and marked invalid.
func resolveLog(items *cache.Cache[*entity.Item], log []itemlog.Entry, walked map[*entity.Item]struct{}, player *entity.Player) []*entity.Item {
	out := make([]*entity.Item, 0, len(log))
	for _, entry := range log {
		live, ok := items.LookupHash(entry.Hash)
		if !ok {
			live, ok = items.Get(entry.UnitID)
			ok = ok && live.TxtFileNo == entry.TxtFileNo
		}
		if !ok {
			continue
		}
		if _, seen := walked[live]; !seen && live.DistanceTo(player) <= cache.CorpseRange {
			live.MarkInvalid()
		}
		out = append(out, live)
	}
	return out
}

// beltItems lays out the belt of owner as 4 columns of as many rows as the
// equipped belt provides. A belt item's x coordinate is its slot index.
func beltItems(all []*entity.Item, owner uint32) [][]*entity.Item {
	rows := 1
	var inBelt []*entity.Item
	for _, item := range all {
		if item.Data.OwnerID != owner {
			continue
		}
		switch {
		case item.Placement() == entity.PlacementBelt:
			inBelt = append(inBelt, item)
		case item.Placement() == entity.PlacementPlayer && item.Data.BodyLoc == entity.BodyLocBelt:
			rows = beltRows(item.TxtFileNo)
		}
	}

	belt := make([][]*entity.Item, 4)
	for col := range belt {
		belt[col] = make([]*entity.Item, rows)
		for row := 0; row < rows; row++ {
			slot := col + row*4
			for _, item := range inBelt {
				if int(item.Position.X) == slot {
					belt[col][row] = item
					break
				}
			}
		}
	}
	return belt
}

func beltRows(txt uint32) int {
	switch txt {
	case entity.ItemSash, entity.ItemLightBelt:
		return 2
	case entity.ItemBelt, entity.ItemHeavyBelt:
		return 3
	}
	return 4
}
