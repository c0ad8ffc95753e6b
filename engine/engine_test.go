package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2sync/entity"
	"d2sync/gametest"
	"d2sync/itemlog"
	"d2sync/log"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	w      *gametest.World
	player uintptr
	eng    *Engine
	ctx    *Context
	now    time.Time
	out    bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{w: gametest.New(), now: t0}
	h.w.SetSeed(1234)
	h.player = h.w.Add(gametest.UnitSpec{
		Kind:       entity.KindPlayer,
		TxtFileNo:  uint32(entity.Paladin),
		UnitID:     1,
		Mode:       1,
		X:          100,
		Y:          100,
		Name:       "Tal",
		Local:      true,
		Area:       entity.AreaLutGholein,
		Difficulty: entity.Nightmare,
	})
	h.eng = New(Options{
		Offsets:        h.w.Offsets,
		ItemLogEnabled: true,
		ItemLog:        itemlog.Options{CheckVendorItems: true, CheckItemOnIdentify: true},
		Now:            func() time.Time { return h.now },
		Logger:         log.New(&h.out, log.LevelDebug, log.FormatText).WithTag("engine"),
	})
	h.ctx = h.eng.NewContext(gametest.DefaultPID)
	return h
}

func (h *harness) tick(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := h.eng.Tick(h.ctx, h.w.Img)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Zero(t, h.w.Img.OpenScopes())
	return snap
}

func (h *harness) item(id, txt uint32, mode entity.ItemMode, x, y float64, data entity.ItemData) uintptr {
	return h.w.Add(gametest.UnitSpec{Kind: entity.KindItem, TxtFileNo: txt, UnitID: id, Mode: uint32(mode), X: x, Y: y, Item: data})
}

func ground(q entity.ItemQuality) entity.ItemData {
	return entity.ItemData{Quality: q, OwnerID: entity.InvalidID, InvPage: entity.InvPageNull}
}

func TestTickSnapshot(t *testing.T) {
	h := newHarness(t)
	h.w.SetGameName("cows-1", "mooo")
	h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 2, UnitID: 2, Mode: 1, X: 120, Y: 100, Name: "Ort", Area: entity.AreaLutGholein})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1, X: 130, Y: 130})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 338, UnitID: 11, Mode: 1, X: 101, Y: 101})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 12, Mode: 12, X: 140, Y: 140})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindObject, TxtFileNo: 119, UnitID: 20, X: 90, Y: 90})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMissile, TxtFileNo: 1, UnitID: 30, X: 100, Y: 110})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMissile, TxtFileNo: 2, UnitID: 31, X: 100, Y: 120, ServerSide: true})
	h.item(40, 200, entity.ItemModeOnGround, 105, 105, ground(entity.QualityRare))
	h.w.AddRoster("Tal", 1, 3)
	h.w.AddRoster("Ort", 2, 3)

	snap := h.tick(t)

	assert.Equal(t, gametest.DefaultPID, snap.ProcessID)
	assert.Equal(t, uint32(1234), snap.MapSeed)
	assert.Equal(t, entity.AreaLutGholein, snap.Area)
	assert.Equal(t, entity.Nightmare, snap.Difficulty)
	assert.True(t, snap.Changed)
	assert.True(t, snap.NewGame)

	require.NotNil(t, snap.Session)
	assert.Equal(t, "cows-1", snap.Session.GameName)
	assert.Equal(t, "mooo", snap.Session.GamePass)

	assert.Equal(t, "Tal", snap.Player.Name)
	assert.Len(t, snap.Players, 2)
	for _, p := range snap.Players {
		if p.UnitID == 2 {
			assert.True(t, p.InMyParty)
		}
	}
	require.Len(t, snap.Monsters, 1)
	assert.Equal(t, uint32(10), snap.Monsters[0].UnitID)
	require.Len(t, snap.Mercenaries, 1)
	assert.Equal(t, uint32(11), snap.Mercenaries[0].UnitID)
	require.Len(t, snap.Objects, 1)
	assert.True(t, snap.Objects[0].IsWaypoint())
	assert.Len(t, snap.Missiles, 2)
	assert.Len(t, snap.AllItems, 1)
	require.Len(t, snap.ItemLog, 1)
	assert.Equal(t, entity.PlacementGround, snap.ItemLog[0].Placement)
	assert.Equal(t, entity.Nightmare, snap.ItemLog[0].Difficulty)
	require.Len(t, snap.Items, 1)
	assert.Same(t, snap.AllItems[0], snap.Items[0])
	assert.Len(t, snap.Roster.Entries, 2)
	assert.Nil(t, snap.Hovered)
	assert.Equal(t, entity.NpcInvalid, snap.LastNpcInteracted)
}

func TestTickNotInGame(t *testing.T) {
	h := newHarness(t)
	h.tick(t)
	require.NotNil(t, h.ctx.Session())

	h.w.SetInGame(false)
	snap, err := h.eng.Tick(h.ctx, h.w.Img)
	assert.NoError(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, h.ctx.Session())
	assert.Zero(t, h.w.Img.OpenScopes())

	// back in the same game: new session, counted as a new game
	h.w.SetInGame(true)
	snap = h.tick(t)
	assert.True(t, snap.NewGame)
}

func TestTickScopeUnavailable(t *testing.T) {
	h := newHarness(t)
	h.w.Img.Unavailable = true

	snap, err := h.eng.Tick(h.ctx, h.w.Img)
	assert.Nil(t, snap)
	assert.Error(t, err)
}

func TestTickInProgress(t *testing.T) {
	h := newHarness(t)
	h.ctx.mu.Lock()
	defer h.ctx.mu.Unlock()

	snap, err := h.eng.Tick(h.ctx, h.w.Img)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrTickInProgress)
	assert.Zero(t, h.w.Img.OpenScopes())
}

func TestTickAreaOutOfRangeLatched(t *testing.T) {
	h := newHarness(t)
	h.w.SetArea(h.player, 255)

	for i := 0; i < 2; i++ {
		snap, err := h.eng.Tick(h.ctx, h.w.Img)
		assert.Nil(t, snap)
		assert.ErrorIs(t, err, ErrInvariant)

		var inv *InvariantError
		require.True(t, errors.As(err, &inv))
		assert.Equal(t, AreaOutOfRange, inv.Condition)
		assert.Zero(t, h.w.Img.OpenScopes())
	}
	assert.Equal(t, 1, strings.Count(h.out.String(), AreaOutOfRange.String()))

	h.w.SetArea(h.player, entity.AreaLutGholein)
	h.tick(t)

	h.w.SetArea(h.player, 255)
	_, err := h.eng.Tick(h.ctx, h.w.Img)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, 2, strings.Count(h.out.String(), AreaOutOfRange.String()))
}

func TestTickLatchesConditionsIndependently(t *testing.T) {
	h := newHarness(t)
	h.w.SetSeed(0)

	_, err := h.eng.Tick(h.ctx, h.w.Img)
	assert.ErrorIs(t, err, ErrInvariant)

	// a different condition clearing must not re-arm the seed report
	h.w.SetArea(h.player, 255)
	h.eng.Tick(h.ctx, h.w.Img)
	h.w.SetArea(h.player, entity.AreaLutGholein)
	h.eng.Tick(h.ctx, h.w.Img)

	assert.Equal(t, 1, strings.Count(h.out.String(), SeedOutOfRange.String()))
	assert.Equal(t, 1, strings.Count(h.out.String(), AreaOutOfRange.String()))
}

func TestTickInvariants(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		want  Condition
	}{
		{
			name: "player missing",
			setup: func(h *harness) {
				h.w.Remove(h.player)
				h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 1, UnitID: 2, Area: entity.AreaHarrogath})
			},
			want: PlayerMissing,
		},
		{name: "seed zero", setup: func(h *harness) { h.w.SetSeed(0) }, want: SeedOutOfRange},
		{name: "seed too large", setup: func(h *harness) { h.w.SetSeed(0x1_0000_0000) }, want: SeedOutOfRange},
		{
			name: "difficulty",
			setup: func(h *harness) {
				h.w.Remove(h.player)
				h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 1, UnitID: 1, Local: true, Area: entity.AreaHarrogath, Difficulty: 3})
			},
			want: DifficultyOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)

			snap, err := h.eng.Tick(h.ctx, h.w.Img)
			assert.Nil(t, snap)
			var inv *InvariantError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.want, inv.Condition)
			assert.Zero(t, h.w.Img.OpenScopes())
		})
	}
}

func TestTickChangedAndAreaTime(t *testing.T) {
	h := newHarness(t)

	snap := h.tick(t)
	assert.True(t, snap.Changed)

	h.now = t0.Add(5 * time.Second)
	snap = h.tick(t)
	assert.False(t, snap.Changed)
	assert.False(t, snap.NewGame)

	h.now = t0.Add(15 * time.Second)
	h.w.SetArea(h.player, entity.AreaKurastDocks)
	snap = h.tick(t)
	assert.True(t, snap.Changed)
	assert.False(t, snap.NewGame)
	assert.Equal(t, 15*time.Second, snap.Session.TotalAreaTime[entity.AreaLutGholein])

	assert.Zero(t, snap.AreaTimeElapsed())
	assert.Equal(t, 3*time.Second, snap.Session.AreaTimeElapsed(t0.Add(18*time.Second)))

	// back in the first area the earlier stay counts
	h.now = t0.Add(20 * time.Second)
	h.w.SetArea(h.player, entity.AreaLutGholein)
	snap = h.tick(t)
	assert.Equal(t, 15*time.Second, snap.AreaTimeElapsed())
}

func TestTickSeedChangeResetsTracking(t *testing.T) {
	h := newHarness(t)
	drop := h.item(40, 200, entity.ItemModeOnGround, 300, 300, ground(entity.QualityUnique))

	snap := h.tick(t)
	require.Len(t, snap.ItemLog, 1)

	snap = h.tick(t)
	assert.False(t, snap.Changed)
	assert.Len(t, snap.ItemLog, 1, "same seed leaves the log alone")

	h.w.Remove(drop)
	h.w.SetSeed(5678)
	snap = h.tick(t)
	assert.True(t, snap.Changed)
	assert.True(t, snap.NewGame)
	assert.Empty(t, snap.ItemLog)
	assert.Empty(t, snap.Items)
}

func TestTickPreservesIdentity(t *testing.T) {
	h := newHarness(t)
	m := h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1, X: 130, Y: 130})

	first := h.tick(t)
	require.Len(t, first.Monsters, 1)
	held := first.Monsters[0]
	player := first.Player

	h.w.Move(m, 150, 160)
	second := h.tick(t)
	require.Len(t, second.Monsters, 1)
	assert.Same(t, held, second.Monsters[0])
	assert.Same(t, player, second.Player)
	assert.Equal(t, entity.Position{X: 150, Y: 160}, held.Position)
}

func TestTickUniqueUnitIDs(t *testing.T) {
	h := newHarness(t)
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1, X: 130, Y: 130})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1, X: 131, Y: 131})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 138, Mode: 1, X: 132, Y: 132})

	for i := 0; i < 2; i++ {
		snap := h.tick(t)
		seen := map[uint32]bool{}
		for _, m := range snap.Monsters {
			assert.False(t, seen[m.UnitID], "duplicate unit id %d", m.UnitID)
			seen[m.UnitID] = true
		}
		assert.Len(t, snap.Monsters, 2)
	}
}

func TestTickCorruptChainDropped(t *testing.T) {
	h := newHarness(t)
	a := h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1})
	h.w.SetNext(a, a)
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 11, Mode: 1})

	snap := h.tick(t)
	require.Len(t, snap.Monsters, 1)
	assert.Equal(t, uint32(11), snap.Monsters[0].UnitID)
	assert.Equal(t, 1, snap.CorruptChains)
}

func TestTickHover(t *testing.T) {
	h := newHarness(t)
	h.w.Add(gametest.UnitSpec{Kind: entity.KindMonster, TxtFileNo: 5, UnitID: 10, Mode: 1})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindObject, TxtFileNo: 1, UnitID: 10})

	h.w.SetHover(true, entity.KindMonster, 10)
	snap := h.tick(t)
	require.NotNil(t, snap.Hovered)
	assert.Equal(t, entity.KindMonster, snap.Hovered.Head().Kind)
	assert.True(t, snap.Monsters[0].Hovered)
	assert.False(t, snap.Objects[0].Hovered)

	h.w.SetHover(true, entity.KindObject, 10)
	snap = h.tick(t)
	assert.False(t, snap.Monsters[0].Hovered)
	assert.True(t, snap.Objects[0].Hovered)

	h.w.SetHover(false, entity.KindObject, 10)
	snap = h.tick(t)
	assert.Nil(t, snap.Hovered)
	assert.False(t, snap.Objects[0].Hovered)
}

func TestTickCorpses(t *testing.T) {
	h := newHarness(t)
	body := h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 1, UnitID: 5, X: 400, Y: 400, Corpse: true})

	snap := h.tick(t)
	require.Len(t, snap.Corpses, 1)
	assert.True(t, snap.Corpses[0].IsCorpse)
	assert.Len(t, snap.Players, 1)

	h.w.Remove(body)
	snap = h.tick(t)
	assert.Len(t, snap.Corpses, 1, "remembered after leaving the table")

	h.w.SetSeed(999)
	snap = h.tick(t)
	assert.Empty(t, snap.Corpses)
}

func TestTickVendorOwner(t *testing.T) {
	h := newHarness(t)
	store := entity.ItemData{OwnerID: entity.InvalidID, Flags: entity.ItemFlagInStore, InvPage: entity.InvPageInventory, Quality: entity.QualityNormal}
	h.item(50, 10, entity.ItemModeStored, 0, 0, store)

	snap := h.tick(t)
	require.Len(t, snap.AllItems, 1)
	assert.Equal(t, entity.NpcUnknown, snap.AllItems[0].VendorOwner)
	require.Len(t, snap.ItemLog, 1)
	assert.Equal(t, entity.PlacementVendor, snap.ItemLog[0].Placement)

	h.w.SetInteractedNpc(154)
	h.item(51, 11, entity.ItemModeStored, 1, 0, store)
	snap = h.tick(t)

	owners := map[uint32]entity.Npc{}
	for _, i := range snap.AllItems {
		owners[i.UnitID] = i.VendorOwner
	}
	assert.Equal(t, entity.NpcUnknown, owners[50])
	assert.Equal(t, entity.Npc(154), owners[51])
	assert.Len(t, snap.ItemLog, 2)
}

func TestTickInventoryIdentify(t *testing.T) {
	h := newHarness(t)
	inv := func(q entity.ItemQuality, flags entity.ItemFlags) entity.ItemData {
		return entity.ItemData{OwnerID: 1, Quality: q, Flags: flags, InvPage: entity.InvPageInventory}
	}
	h.item(60, entity.ItemHoradricCube, entity.ItemModeStored, 0, 0, inv(entity.QualityNormal, 0))
	h.item(62, 100, entity.ItemModeStored, 2, 0, inv(entity.QualityRare, entity.ItemFlagIdentified))

	snap := h.tick(t)
	assert.Empty(t, snap.ItemLog)

	unid := h.item(61, 101, entity.ItemModeStored, 4, 0, inv(entity.QualityMagic, 0))
	h.tick(t)

	h.w.SetItemData(unid, inv(entity.QualityMagic, entity.ItemFlagIdentified))
	snap = h.tick(t)
	require.Len(t, snap.ItemLog, 1)
	assert.Equal(t, uint32(61), snap.ItemLog[0].UnitID)
	assert.Equal(t, entity.PlacementInventory, snap.ItemLog[0].Placement)

	for _, i := range snap.AllItems {
		if i.UnitID == 61 {
			assert.True(t, i.IsPlayerOwned)
		}
	}

	snap = h.tick(t)
	assert.Len(t, snap.ItemLog, 1)
}

func TestTickLoggedItemGone(t *testing.T) {
	h := newHarness(t)
	near := h.item(40, 200, entity.ItemModeOnGround, 110, 100, ground(entity.QualityRare))
	far := h.item(41, 201, entity.ItemModeOnGround, 400, 100, ground(entity.QualityRare))

	snap := h.tick(t)
	require.Len(t, snap.Items, 2)

	h.w.Remove(near)
	h.w.Remove(far)
	snap = h.tick(t)
	require.Len(t, snap.Items, 2)

	valid := map[uint32]bool{}
	for _, i := range snap.Items {
		valid[i.UnitID] = i.IsValidItem()
	}
	assert.False(t, valid[40])
	assert.True(t, valid[41])
}

func TestTickStashTabs(t *testing.T) {
	h := newHarness(t)
	h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 0, UnitID: 90, StashSortKey: 2, States: []entity.State{entity.StateSharedStash}})
	h.w.Add(gametest.UnitSpec{Kind: entity.KindPlayer, TxtFileNo: 0, UnitID: 91, StashSortKey: 1, States: []entity.State{entity.StateSharedStash}})
	stash := func(owner uint32) entity.ItemData {
		return entity.ItemData{OwnerID: owner, InvPage: entity.InvPageStash}
	}
	h.item(70, 100, entity.ItemModeStored, 0, 0, stash(1))
	h.item(71, 100, entity.ItemModeStored, 1, 0, stash(91))
	h.item(72, 100, entity.ItemModeStored, 2, 0, stash(90))

	snap := h.tick(t)
	tabs := map[uint32]entity.StashTab{}
	for _, i := range snap.AllItems {
		tabs[i.UnitID] = i.StashTab
	}
	assert.Equal(t, entity.StashTabPersonal, tabs[70])
	assert.Equal(t, entity.StashTabShared1, tabs[71])
	assert.Equal(t, entity.StashTabShared2, tabs[72])
}

func TestTickBelt(t *testing.T) {
	h := newHarness(t)
	h.item(80, entity.ItemBelt, entity.ItemModeEquip, 0, 0, entity.ItemData{OwnerID: 1, BodyLoc: entity.BodyLocBelt, InvPage: entity.InvPageNull})
	h.item(81, 587, entity.ItemModeInBelt, 5, 0, entity.ItemData{OwnerID: 1})
	h.item(82, 587, entity.ItemModeInBelt, 0, 0, entity.ItemData{OwnerID: 1})

	snap := h.tick(t)
	belt := snap.Player.BeltItems
	require.Len(t, belt, 4)
	for _, col := range belt {
		assert.Len(t, col, 3)
	}
	require.NotNil(t, belt[0][0])
	assert.Equal(t, uint32(82), belt[0][0].UnitID)
	require.NotNil(t, belt[1][1])
	assert.Equal(t, uint32(81), belt[1][1].UnitID)
	assert.Nil(t, belt[2][2])
}

func TestContextsAreIsolated(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)
	b.ctx = a.eng.NewContext(gametest.DefaultPID)
	a.item(40, 200, entity.ItemModeOnGround, 300, 300, ground(entity.QualityRare))

	snapA, err := a.eng.Tick(a.ctx, a.w.Img)
	require.NoError(t, err)
	snapB, err := a.eng.Tick(b.ctx, b.w.Img)
	require.NoError(t, err)

	assert.Len(t, snapA.ItemLog, 1)
	assert.Empty(t, snapB.ItemLog)
	assert.NotSame(t, snapA.Player, snapB.Player)
	assert.NotEqual(t, snapA.Session.ID, snapB.Session.ID)
}
