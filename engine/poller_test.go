package engine

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2sync/entity"
	"d2sync/gametest"
	"d2sync/log"
	"d2sync/memory"
)

type fakeTarget struct {
	*gametest.World
	fg atomic.Bool
}

func (f *fakeTarget) Open() (memory.Scope, error) { return f.Img.Open() }
func (f *fakeTarget) PID() int                    { return f.Img.PID() }
func (f *fakeTarget) IsForeground() bool          { return f.fg.Load() }

func newTarget(pid int, fg bool) *fakeTarget {
	w := gametest.NewPID(pid)
	w.SetSeed(uint64(pid))
	w.Add(gametest.UnitSpec{
		Kind:      entity.KindPlayer,
		TxtFileNo: uint32(entity.Sorceress),
		UnitID:    1,
		Local:     true,
		Area:      entity.AreaRogueEncampment,
	})
	t := &fakeTarget{World: w}
	t.fg.Store(fg)
	return t
}

func newTestPoller(discover Discover, opts PollerOptions) *Poller {
	var out bytes.Buffer
	eng := New(Options{
		Offsets: gametest.New().Offsets,
		Logger:  log.New(&out, log.LevelDebug, log.FormatText),
	})
	opts.Logger = log.New(&out, log.LevelDebug, log.FormatText)
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	}
	return NewPoller(eng, discover, opts)
}

func targets(ts ...*fakeTarget) Discover {
	return func() ([]Target, error) {
		out := make([]Target, len(ts))
		for i, t := range ts {
			out[i] = t
		}
		return out, nil
	}
}

func TestPollForegroundOnly(t *testing.T) {
	a := newTarget(100, true)
	b := newTarget(200, false)
	p := newTestPoller(targets(a, b), PollerOptions{})
	require.NoError(t, p.attach(context.Background()))

	var got []int
	p.Subscribe(func(s *Snapshot) { got = append(got, s.ProcessID) })

	snaps := p.Poll()
	require.Len(t, snaps, 1)
	assert.Equal(t, 100, snaps[0].ProcessID)
	assert.Equal(t, []int{100}, got)

	a.fg.Store(false)
	b.fg.Store(true)
	snaps = p.Poll()
	require.Len(t, snaps, 1)
	assert.Equal(t, 200, snaps[0].ProcessID)
	assert.Equal(t, uint32(200), snaps[0].MapSeed)
}

func TestPollStickToLastGameWindow(t *testing.T) {
	a := newTarget(100, true)
	b := newTarget(200, false)

	p := newTestPoller(targets(a, b), PollerOptions{StickToLastGameWindow: true})
	require.NoError(t, p.attach(context.Background()))
	require.Len(t, p.Poll(), 1)

	a.fg.Store(false)
	snaps := p.Poll()
	require.Len(t, snaps, 1)
	assert.Equal(t, 100, snaps[0].ProcessID)

	loose := newTestPoller(targets(a, b), PollerOptions{})
	require.NoError(t, loose.attach(context.Background()))
	assert.Empty(t, loose.Poll())
}

func TestPollDropsExitedProcess(t *testing.T) {
	a := newTarget(100, true)
	p := newTestPoller(targets(a), PollerOptions{})
	require.NoError(t, p.attach(context.Background()))

	_, ok := p.Context(100)
	require.True(t, ok)

	a.Img.Unavailable = true
	assert.Empty(t, p.Poll())

	_, ok = p.Context(100)
	assert.False(t, ok)
	assert.Zero(t, p.attached())
}

func TestPollKeepsContextsApart(t *testing.T) {
	a := newTarget(100, true)
	b := newTarget(200, true)
	p := newTestPoller(targets(a, b), PollerOptions{})
	require.NoError(t, p.attach(context.Background()))

	snaps := p.Poll()
	require.Len(t, snaps, 2)
	assert.NotSame(t, snaps[0].Player, snaps[1].Player)
	assert.NotEqual(t, snaps[0].Session.ID, snaps[1].Session.ID)

	ca, _ := p.Context(100)
	cb, _ := p.Context(200)
	assert.NotSame(t, ca, cb)
}

func TestAttachRetriesUntilFound(t *testing.T) {
	a := newTarget(100, true)
	var calls int
	discover := func() ([]Target, error) {
		calls++
		switch calls {
		case 1:
			return nil, errors.New("snapshot failed")
		case 2:
			return nil, nil
		}
		return []Target{a}, nil
	}

	p := newTestPoller(discover, PollerOptions{})
	require.NoError(t, p.attach(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, p.attached())
}

func TestAttachStopsOnCancel(t *testing.T) {
	p := newTestPoller(targets(), PollerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.attach(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPublishesUntilCancelled(t *testing.T) {
	a := newTarget(100, true)
	p := newTestPoller(targets(a), PollerOptions{Interval: time.Millisecond})

	got := make(chan *Snapshot, 16)
	p.Subscribe(func(s *Snapshot) {
		select {
		case got <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case s := <-got:
		assert.Equal(t, 100, s.ProcessID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
