package engine

import (
	"sync"

	"d2sync/cache"
	"d2sync/entity"
	"d2sync/hover"
	"d2sync/itemlog"
	"d2sync/session"
)

// Context is everything the engine remembers about one game process. It is
// created by the caller, passed to every Tick and shares nothing with the
// contexts of other processes.
type Context struct {
	mu  sync.Mutex
	pid int

	players        *cache.Cache[*entity.Player]
	monsters       *cache.Cache[*entity.Monster]
	objects        *cache.Cache[*entity.Object]
	missiles       *cache.Cache[*entity.Missile]
	serverMissiles *cache.Cache[*entity.Missile]
	items          *cache.Cache[*entity.Item]
	corpses        *cache.Corpses

	tracker *itemlog.Tracker
	timer   *session.Timer
	seed    session.Seed
	hover   hover.Resolver
	latch   latch

	cubeOwner uint32
	firstRead bool
}

func newContext(pid int, itemOpts itemlog.Options) *Context {
	return &Context{
		pid:            pid,
		players:        cache.New(isCorpse),
		monsters:       cache.New[*entity.Monster](nil),
		objects:        cache.New[*entity.Object](nil),
		missiles:       cache.New[*entity.Missile](nil),
		serverMissiles: cache.New[*entity.Missile](nil),
		items:          cache.New(isDropped),
		corpses:        cache.NewCorpses(),
		tracker:        itemlog.NewTracker(pid, itemOpts),
		latch:          latch{},
		cubeOwner:      entity.InvalidID,
		firstRead:      true,
	}
}

func isCorpse(p *entity.Player) bool { return p.IsCorpse }

func isDropped(i *entity.Item) bool { return i.IsDropped() }

func (c *Context) PID() int { return c.pid }

// Session returns the current session, nil while out of game.
func (c *Context) Session() *session.Session {
	if c.timer == nil {
		return nil
	}
	return c.timer.Session()
}

// leaveGame drops the per-game state when the process leaves the game.
func (c *Context) leaveGame() {
	c.timer = nil
	c.seed.Forget()
	c.corpses.Clear()
}

// newGame resets the bookkeeping tied to one game instance.
func (c *Context) newGame() {
	c.tracker.Reset()
	c.corpses.Clear()
}
