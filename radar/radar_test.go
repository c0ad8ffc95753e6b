package radar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2sync/engine"
	"d2sync/entity"
	"d2sync/session"
)

func at(x, y float64) entity.Header {
	return entity.Header{Position: entity.Position{X: x, Y: y}}
}

func testSnapshot() *engine.Snapshot {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	local := &entity.Player{Header: at(100, 100), Name: "Tal"}
	friend := &entity.Player{Header: at(102, 100), Name: "Ort", InMyParty: true}

	boss := &entity.Monster{Header: at(100, 104), TypeFlags: entity.MonsterUnique}
	far := &entity.Monster{Header: at(1000, 100)}
	wp := &entity.Object{Header: at(98, 98)}
	wp.TxtFileNo = 119

	loot := &entity.Item{Header: at(101, 101)}
	loot.Mode = uint32(entity.ItemModeOnGround)
	loot.Data = entity.ItemData{Quality: entity.QualityUnique, OwnerID: entity.InvalidID}

	sess := session.New(7, now)
	sess.GameName = "cows-1"

	return &engine.Snapshot{
		ProcessID:  7,
		Time:       now.Add(90 * time.Second),
		Session:    sess,
		MapSeed:    1234,
		Area:       entity.AreaKurastDocks,
		Difficulty: entity.Hell,
		Player:     local,
		Players:    []*entity.Player{local, friend},
		Monsters:   []*entity.Monster{boss, far},
		Objects:    []*entity.Object{wp},
		Items:      []*entity.Item{loot},
		AllItems:   []*entity.Item{loot},
	}
}

func kinds(f Frame) map[BlipKind]int {
	out := map[BlipKind]int{}
	for _, b := range f.Blips {
		out[b.Kind]++
	}
	return out
}

func TestProjectCentersOnPlayer(t *testing.T) {
	f := Project(testSnapshot(), 640, 480, 4)

	got := kinds(f)
	assert.Equal(t, 1, got[BlipLocal])
	assert.Equal(t, 1, got[BlipParty])
	assert.Equal(t, 1, got[BlipElite])
	assert.Equal(t, 1, got[BlipWaypoint])
	assert.Equal(t, 1, got[BlipItem])
	assert.Zero(t, got[BlipMonster], "off-screen monster is clipped")

	last := f.Blips[len(f.Blips)-1]
	assert.Equal(t, BlipLocal, last.Kind)
	assert.Equal(t, float32(320), last.X)
	assert.Equal(t, float32(240), last.Y)

	for _, b := range f.Blips {
		if b.Kind == BlipElite {
			// 4 tiles south: left and down in isometric view
			assert.Equal(t, float32(304), b.X)
			assert.Equal(t, float32(248), b.Y)
		}
		if b.Kind == BlipItem {
			assert.Equal(t, "Unique", b.Label)
		}
	}

	require.NotEmpty(t, f.Lines)
	assert.Contains(t, f.Lines, "area 75 (town)  1m30s")
	assert.Contains(t, f.Lines, "game cows-1")
}

func TestProjectWithoutGame(t *testing.T) {
	f := Project(nil, 640, 480, 4)
	assert.Empty(t, f.Blips)
	assert.Equal(t, []string{"Waiting for game..."}, f.Lines)
}

func TestFeedFollowsProcess(t *testing.T) {
	feed := NewFeed(8, 640, 480)
	feed.Update(testSnapshot())
	assert.Empty(t, feed.Frame().Blips)

	feed = NewFeed(0, 640, 480)
	feed.Update(testSnapshot())
	assert.NotEmpty(t, feed.Frame().Blips)
}

func TestFeedZoomClamped(t *testing.T) {
	feed := NewFeed(0, 640, 480)
	for i := 0; i < 20; i++ {
		feed.Zoom(2)
	}
	assert.Equal(t, MaxScale, feed.Scale())
	for i := 0; i < 20; i++ {
		feed.Zoom(0.5)
	}
	assert.Equal(t, MinScale, feed.Scale())
}
