package hover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
)

func units() (*entity.Monster, *entity.Item, *entity.Object) {
	m := &entity.Monster{Header: entity.Header{Kind: entity.KindMonster, UnitID: 5}}
	i := &entity.Item{Header: entity.Header{Kind: entity.KindItem, UnitID: 5}}
	o := &entity.Object{Header: entity.Header{Kind: entity.KindObject, UnitID: 9}}
	return m, i, o
}

func TestResolveMatchesKindAndID(t *testing.T) {
	m, i, o := units()
	var r Resolver

	got := r.Resolve(Descriptor{Active: true, Kind: entity.KindItem, UnitID: 5}, []entity.Unit{m, i, o})
	assert.Same(t, i, got)
	assert.True(t, i.Hovered)
	assert.False(t, m.Hovered)
	assert.False(t, o.Hovered)
}

func TestResolveMovesFlag(t *testing.T) {
	m, i, o := units()
	var r Resolver
	all := []entity.Unit{m, i, o}

	r.Resolve(Descriptor{Active: true, Kind: entity.KindMonster, UnitID: 5}, all)
	require.True(t, m.Hovered)

	r.Resolve(Descriptor{Active: true, Kind: entity.KindObject, UnitID: 9}, all)
	assert.False(t, m.Hovered)
	assert.True(t, o.Hovered)
}

func TestResolveClearsRememberedUnitMissingFromLists(t *testing.T) {
	m, i, o := units()
	var r Resolver

	r.Resolve(Descriptor{Active: true, Kind: entity.KindMonster, UnitID: 5}, []entity.Unit{m})
	require.True(t, m.Hovered)

	got := r.Resolve(Descriptor{}, []entity.Unit{i, o})
	assert.Nil(t, got)
	assert.False(t, m.Hovered)
}

func TestResolveClearsUnitThatLeftListsStillHovered(t *testing.T) {
	m, i, o := units()
	var r Resolver
	hoverItem := Descriptor{Active: true, Kind: entity.KindItem, UnitID: 5}

	r.Resolve(hoverItem, []entity.Unit{i, o})
	require.True(t, i.Hovered)

	// the item is gone from the tables but the game still reports it
	got := r.Resolve(hoverItem, []entity.Unit{o})
	assert.Nil(t, got)
	assert.False(t, i.Hovered)

	got = r.Resolve(Descriptor{Active: true, Kind: entity.KindMonster, UnitID: 5}, []entity.Unit{m, o})
	assert.Same(t, m, got)
	assert.False(t, i.Hovered)
	assert.False(t, o.Hovered)
}

func TestResolveKeepsFlagWhenFoundAgain(t *testing.T) {
	m, i, o := units()
	var r Resolver
	d := Descriptor{Active: true, Kind: entity.KindMonster, UnitID: 5}

	r.Resolve(d, []entity.Unit{m, i, o})
	got := r.Resolve(d, []entity.Unit{i, m})
	assert.Same(t, m, got)
	assert.True(t, m.Hovered)
}

func TestResolveNoMatch(t *testing.T) {
	m, i, o := units()
	o.Hovered = true
	var r Resolver

	got := r.Resolve(Descriptor{Active: true, Kind: entity.KindPlayer, UnitID: 1}, []entity.Unit{m, i, o})
	assert.Nil(t, got)
	assert.False(t, o.Hovered)
}

func TestRead(t *testing.T) {
	l := config.DefaultOffsets().Layout.Hover
	img := memory.NewImage(1, 0)
	addr := uintptr(0x800000)
	img.Write(addr, make([]byte, 16))
	img.PutU8(addr+uintptr(l.IsHovered), 1)
	img.PutU8(addr+uintptr(l.IsItemTooltip), 1)
	img.PutU32(addr+uintptr(l.UnitType), uint32(entity.KindItem))
	img.PutU32(addr+uintptr(l.UnitID), 321)

	d, err := Read(img, addr, &l)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Active: true, ItemTooltip: true, Kind: entity.KindItem, UnitID: 321}, d)
}
