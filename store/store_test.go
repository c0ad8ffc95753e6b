package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2sync/entity"
	"d2sync/itemlog"
	"d2sync/log"
	"d2sync/session"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "d2sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(pid int, id uint32, q entity.ItemQuality, at time.Time) itemlog.Entry {
	return itemlog.Entry{
		Hash:       "item/200/100/200",
		UnitID:     id,
		TxtFileNo:  200,
		Quality:    q,
		Ethereal:   true,
		Placement:  entity.PlacementGround,
		Vendor:     entity.NpcInvalid,
		Area:       entity.AreaKurastDocks,
		Difficulty: entity.Hell,
		ProcessID:  pid,
		Time:       at,
	}
}

func TestSaveAndQueryEntries(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	want := entry(7, 40, entity.QualityUnique, at)
	require.NoError(t, s.SaveEntry(ctx, want))
	require.NoError(t, s.SaveEntry(ctx, entry(7, 41, entity.QualityMagic, at.Add(time.Second))))
	require.NoError(t, s.SaveEntry(ctx, entry(8, 42, entity.QualityRare, at.Add(2*time.Second))))

	all, err := s.Entries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, want, all[0])
	assert.Equal(t, uint32(41), all[1].UnitID)

	byPID, err := s.Entries(ctx, Query{ProcessID: 7})
	require.NoError(t, err)
	assert.Len(t, byPID, 2)

	good, err := s.Entries(ctx, Query{MinQuality: entity.QualityRare})
	require.NoError(t, err)
	require.Len(t, good, 2)
	assert.Equal(t, uint32(40), good[0].UnitID)
	assert.Equal(t, uint32(42), good[1].UnitID)

	recent, err := s.Entries(ctx, Query{Since: at.Add(time.Second), Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, uint32(41), recent[0].UnitID)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "d2sync.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveEntry(ctx, entry(7, 40, entity.QualityUnique, time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.Entries(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveSessionOnce(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	sess := session.New(7, time.Now())
	sess.GameName = "baal-12"
	require.NoError(t, s.SaveSession(ctx, sess))
	require.NoError(t, s.SaveSession(ctx, sess))
	require.NoError(t, s.SaveSession(ctx, session.New(7, time.Now())))

	n, err := s.SessionCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorderFeedsTracker(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	var out bytes.Buffer

	tr := itemlog.NewTracker(7, itemlog.Options{
		OnLogged: s.Recorder(ctx, log.New(&out, log.LevelInfo, log.FormatText)),
	})
	item := &entity.Item{Header: entity.Header{Kind: entity.KindItem, TxtFileNo: 200, UnitID: 40, Mode: uint32(entity.ItemModeOnGround)}}
	item.Data.OwnerID = entity.InvalidID

	_, ok := tr.Log(item, itemlog.Where{Area: entity.AreaHarrogath, Difficulty: entity.Normal})
	require.True(t, ok)

	all, err := s.Entries(ctx, Query{ProcessID: 7})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, entity.AreaHarrogath, all[0].Area)
	assert.Empty(t, out.String())
}
