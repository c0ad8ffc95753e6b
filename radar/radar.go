// Package radar projects snapshots onto a 2D top-down view for the debug
// radar window.
package radar

import (
	"fmt"
	"sync"
	"time"

	"d2sync/engine"
	"d2sync/entity"
)

type BlipKind int

const (
	BlipLocal BlipKind = iota
	BlipPlayer
	BlipParty
	BlipCorpse
	BlipMonster
	BlipElite
	BlipMercenary
	BlipPortal
	BlipWaypoint
	BlipShrine
	BlipChest
	BlipMissile
	BlipItem
)

// Blip is one unit placed on screen.
type Blip struct {
	X, Y    float32
	Kind    BlipKind
	Label   string
	Hovered bool
}

// Frame is everything drawn for one snapshot. It holds copies only, so it
// can be read while the engine refreshes the units.
type Frame struct {
	Width, Height int
	Blips         []Blip
	Lines         []string
}

const (
	DefaultScale = 4.0
	MinScale     = 1.0
	MaxScale     = 16.0
)

// Project places the units of snap relative to the local player, in the
// game's isometric orientation, scaled by scale pixels per tile. Units
// outside the w by h area are skipped.
func Project(snap *engine.Snapshot, w, h int, scale float64) Frame {
	f := Frame{Width: w, Height: h}
	if snap == nil || snap.Player == nil {
		f.Lines = []string{"Waiting for game..."}
		return f
	}

	origin := snap.Player.Position
	place := func(u *entity.Header, kind BlipKind, label string) {
		dx := u.Position.X - origin.X
		dy := u.Position.Y - origin.Y
		x := float32(float64(w)/2 + (dx-dy)*scale)
		y := float32(float64(h)/2 + (dx+dy)*scale/2)
		if x < 0 || y < 0 || x >= float32(w) || y >= float32(h) {
			return
		}
		f.Blips = append(f.Blips, Blip{X: x, Y: y, Kind: kind, Label: label, Hovered: u.Hovered})
	}

	for _, o := range snap.Objects {
		switch {
		case o.IsPortal():
			place(&o.Header, BlipPortal, "")
		case o.IsWaypoint():
			place(&o.Header, BlipWaypoint, "")
		case o.IsShrine():
			place(&o.Header, BlipShrine, "")
		case o.IsChest():
			place(&o.Header, BlipChest, "")
		}
	}
	for _, i := range snap.Items {
		if i.IsValidItem() && i.IsDropped() {
			place(&i.Header, BlipItem, i.Data.Quality.String())
		}
	}
	for _, m := range snap.Missiles {
		place(&m.Header, BlipMissile, "")
	}
	for _, m := range snap.Monsters {
		kind := BlipMonster
		if m.MonsterType() != entity.MonsterOther {
			kind = BlipElite
		}
		place(&m.Header, kind, "")
	}
	for _, m := range snap.Mercenaries {
		place(&m.Header, BlipMercenary, "")
	}
	for _, c := range snap.Corpses {
		place(&c.Header, BlipCorpse, c.Name)
	}
	for _, p := range snap.Players {
		switch {
		case p == snap.Player:
			continue
		case p.InMyParty:
			place(&p.Header, BlipParty, p.Name)
		default:
			place(&p.Header, BlipPlayer, p.Name)
		}
	}
	place(&snap.Player.Header, BlipLocal, snap.Player.Name)

	f.Lines = []string{fmt.Sprintf("pid %d  seed %d  %s", snap.ProcessID, snap.MapSeed, snap.Difficulty)}
	if snap.Session != nil {
		area := fmt.Sprintf("area %d", snap.Area)
		if snap.Area.IsTown() {
			area += " (town)"
		}
		f.Lines = append(f.Lines, fmt.Sprintf("%s  %s", area, snap.AreaTimeElapsed().Truncate(time.Second)))
		if snap.Session.GameName != "" {
			f.Lines = append(f.Lines, "game "+snap.Session.GameName)
		}
	}
	f.Lines = append(f.Lines, fmt.Sprintf("monsters %d  items %d/%d", len(snap.Monsters), len(snap.Items), len(snap.AllItems)))
	if snap.CorruptChains > 0 {
		f.Lines = append(f.Lines, fmt.Sprintf("corrupt chains %d", snap.CorruptChains))
	}
	return f
}

// Feed keeps the latest frame of one process. Update runs on the poller
// goroutine, Frame on the render loop.
type Feed struct {
	mu    sync.Mutex
	w, h  int
	scale float64
	pid   int
	frame Frame
}

// NewFeed follows the process pid, or whichever process published last
// when pid is 0.
func NewFeed(pid, w, h int) *Feed {
	return &Feed{
		w:     w,
		h:     h,
		scale: DefaultScale,
		pid:   pid,
		frame: Project(nil, w, h, DefaultScale),
	}
}

// Update is an engine.Poller subscriber.
func (f *Feed) Update(snap *engine.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pid != 0 && snap.ProcessID != f.pid {
		return
	}
	f.frame = Project(snap, f.w, f.h, f.scale)
}

func (f *Feed) Frame() Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *Feed) Scale() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scale
}

// Zoom multiplies the scale by factor, clamped to MinScale..MaxScale. It
// applies from the next snapshot.
func (f *Feed) Zoom(factor float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scale = min(max(f.scale*factor, MinScale), MaxScale)
}
