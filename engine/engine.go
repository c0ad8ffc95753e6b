package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"d2sync/cache"
	"d2sync/config"
	"d2sync/entity"
	"d2sync/hover"
	"d2sync/itemlog"
	"d2sync/log"
	"d2sync/memory"
	"d2sync/roster"
	"d2sync/session"
	"d2sync/walker"
)

const maxSeed = 0xFFFFFFFF

type Options struct {
	Offsets config.Offsets
	// ItemLogEnabled turns the item pipeline on.
	ItemLogEnabled bool
	ItemLog        itemlog.Options
	Now            func() time.Time
	Logger         *log.Logger
}

// Engine turns the memory of a game process into snapshots. It holds no
// per-process state; that lives in Context.
type Engine struct {
	offsets config.Offsets
	opts    Options
	now     func() time.Time
	log     *log.Logger
}

func New(opts Options) *Engine {
	e := &Engine{offsets: opts.Offsets, opts: opts, now: opts.Now, log: opts.Logger}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = log.Default().WithTag("engine")
	}
	if e.opts.ItemLog.Now == nil {
		e.opts.ItemLog.Now = e.now
	}
	return e
}

// NewContext creates the state of one monitored process.
func (e *Engine) NewContext(pid int) *Context {
	return newContext(pid, e.opts.ItemLog)
}

// Tick runs one decode pass. It returns a nil snapshot and nil error when
// the process is not in a game, and a nil snapshot with an *InvariantError
// when the game state is not usable this tick. The scope opened on op is
// closed before Tick returns.
func (e *Engine) Tick(ctx *Context, op memory.Opener) (*Snapshot, error) {
	if !ctx.mu.TryLock() {
		return nil, ErrTickInProgress
	}
	defer ctx.mu.Unlock()

	scope, err := op.Open()
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	if scope.PID() != ctx.pid {
		return nil, fmt.Errorf("scope of pid %d used with context of pid %d", scope.PID(), ctx.pid)
	}
	return e.tick(ctx, scope)
}

func (e *Engine) global(s memory.Scope, off uint64) uintptr {
	return s.Base() + uintptr(off)
}

func (e *Engine) tick(ctx *Context, s memory.Scope) (*Snapshot, error) {
	o := &e.offsets
	l := &o.Layout
	now := e.now()

	inGame, err := memory.ReadU8(s, e.global(s, o.MenuData)+uintptr(l.Menu.InGame))
	if err != nil {
		return nil, fmt.Errorf("read menu data: %w", err)
	}
	if inGame == 0 {
		if ctx.timer != nil {
			e.log.Info("Process %d left the game", ctx.pid)
		}
		ctx.leaveGame()
		return nil, nil
	}

	menuOpen, _ := memory.ReadU8(s, e.global(s, o.MenuOpen))
	hoverData, err := hover.Read(s, e.global(s, o.LastHoverData), &l.Hover)
	if err != nil {
		e.log.Debug("Hover descriptor unreadable: %v", err)
	}
	npc := entity.NpcInvalid
	if v, err := memory.ReadU16(s, e.global(s, o.InteractedNpc)); err == nil {
		npc = entity.Npc(v)
	}
	ro, err := roster.Read(s, e.global(s, o.RosterData), &l.Roster)
	if err != nil {
		e.log.Debug("Roster unreadable: %v", err)
	}

	if ctx.timer == nil {
		sess := session.New(ctx.pid, now)
		if err := sess.ReadGameInfo(s, e.global(s, o.GameName), &l.Session); err != nil {
			e.log.Debug("Game name unreadable: %v", err)
		}
		ctx.timer = session.NewTimer(sess)
		e.log.Info("Session %s started for process %d", sess.ID, ctx.pid)
	}

	var corrupt int

	rawPlayers := collect(e, s, ctx.players, entity.KindPlayer, false, &corrupt)
	var local *entity.Player
	for _, p := range rawPlayers {
		if p.IsLocalPlayer() {
			local = p
			break
		}
	}
	if local == nil {
		return e.violate(ctx, PlayerMissing, "")
	}
	ctx.latch.clear(PlayerMissing)

	area := local.Area
	if !area.IsValid() {
		return e.violate(ctx, AreaOutOfRange, fmt.Sprintf("area %d", area))
	}
	ctx.latch.clear(AreaOutOfRange)
	areaChanged := ctx.timer.Observe(area, now)

	seed, err := memory.ReadU64(s, e.global(s, o.MapSeed))
	if err != nil {
		return e.violate(ctx, SeedOutOfRange, err.Error())
	}
	if seed == 0 || seed > maxSeed {
		return e.violate(ctx, SeedOutOfRange, fmt.Sprintf("seed %d", seed))
	}
	ctx.latch.clear(SeedOutOfRange)

	newGame := ctx.seed.Observe(uint32(seed))
	if newGame {
		ctx.newGame()
	}

	difficulty := local.Difficulty
	if !difficulty.IsValid() {
		return e.violate(ctx, DifficultyOutOfRange, fmt.Sprintf("difficulty %d", difficulty))
	}
	ctx.latch.clear(DifficultyOutOfRange)

	if newGame {
		e.log.Info("Game changed to %s with %d seed", difficulty, seed)
	}
	if areaChanged {
		e.log.Debug("Area changed to %d", area)
	}

	snap := &Snapshot{
		ProcessID:         ctx.pid,
		Time:              now,
		Session:           ctx.timer.Session(),
		MapSeed:           uint32(seed),
		Area:              area,
		Difficulty:        difficulty,
		Player:            local,
		Roster:            ro,
		MenuPanelOpen:     menuOpen,
		LastNpcInteracted: npc,
		Changed:           areaChanged || newGame,
		NewGame:           newGame,
	}

	// Players and corpses
	var walkedCorpses []*entity.Player
	for _, p := range rawPlayers {
		switch {
		case p.IsPlayer():
			snap.Players = append(snap.Players, p)
		case p.IsCorpse:
			walkedCorpses = append(walkedCorpses, p)
		}
	}
	ro.Apply(snap.Players, local)
	snap.Corpses = ctx.corpses.Update(walkedCorpses, local)

	// Monsters
	for _, m := range collect(e, s, ctx.monsters, entity.KindMonster, false, &corrupt) {
		switch {
		case m.IsMerc():
			snap.Mercenaries = append(snap.Mercenaries, m)
		case m.IsMonster():
			snap.Monsters = append(snap.Monsters, m)
		}
	}

	snap.Objects = collect(e, s, ctx.objects, entity.KindObject, false, &corrupt)

	// Missiles from the client and server tables
	snap.Missiles = append(
		collect(e, s, ctx.missiles, entity.KindMissile, false, &corrupt),
		collect(e, s, ctx.serverMissiles, entity.KindMissile, true, &corrupt)...,
	)

	// Items
	snap.AllItems = collect(e, s, ctx.items, entity.KindItem, false, &corrupt)
	var processed []*entity.Item
	if e.opts.ItemLogEnabled {
		processed = e.processItems(ctx, snap, stashOrder(rawPlayers), newGame)
	} else {
		processed = snap.AllItems
	}
	local.BeltItems = beltItems(snap.AllItems, local.UnitID)

	// Hover
	candidates := make([]entity.Unit, 0, len(snap.Players)+len(snap.Monsters)+len(snap.Mercenaries)+len(snap.Objects)+len(processed))
	for _, p := range snap.Players {
		candidates = append(candidates, p)
	}
	for _, m := range snap.Monsters {
		candidates = append(candidates, m)
	}
	for _, m := range snap.Mercenaries {
		candidates = append(candidates, m)
	}
	for _, obj := range snap.Objects {
		candidates = append(candidates, obj)
	}
	for _, i := range processed {
		candidates = append(candidates, i)
	}
	snap.Hovered = ctx.hover.Resolve(hoverData, candidates)

	snap.CorruptChains = corrupt
	if corrupt > 0 {
		e.log.Debug("Dropped %d corrupt unit chains", corrupt)
	}

	ctx.firstRead = false
	return snap, nil
}

// violate reports an invariant failure. The condition is logged only when
// it first appears.
func (e *Engine) violate(ctx *Context, c Condition, detail string) (*Snapshot, error) {
	err := &InvariantError{Condition: c, Detail: detail}
	if ctx.latch.set(c) {
		e.log.Warn("Process %d: %v", ctx.pid, err)
	}
	return nil, err
}

// collect walks one unit table, decodes each unit and reconciles the valid
// ones with the cache.
func collect[T cache.Refreshable[T]](e *Engine, s memory.Scope, c *cache.Cache[T], kind entity.Kind, server bool, corrupt *int) []T {
	l := &e.offsets.Layout
	table := e.global(s, e.offsets.UnitHashTable)
	if server {
		table += uintptr(e.offsets.ServerTableOffset)
	}
	table += uintptr(kind) * uintptr(l.Buckets) * 8

	res := walker.Walk(s, table, walker.Options{
		Buckets:    l.Buckets,
		MaxChain:   l.MaxChain,
		NextOffset: l.Unit.Next,
	})
	*corrupt += res.Corrupt
	if res.Err != nil {
		e.log.Debug("%s table: %v", kind, res.Err)
	}

	fresh := make([]T, 0, len(res.Addresses))
	for _, addr := range res.Addresses {
		u, err := entity.Decode(s, l, addr, kind)
		if err != nil {
			if !errors.Is(err, entity.ErrInvalidUnit) {
				e.log.Trace("%s at 0x%X: %v", kind, addr, err)
			}
			continue
		}
		if !u.Head().Valid {
			continue
		}
		if t, ok := u.(T); ok {
			fresh = append(fresh, t)
		}
	}
	return c.Reconcile(fresh)
}

// stashOrder lists the owners of stash tabs: players and shared stash
// units, sorted the way the game sorts stash tabs.
func stashOrder(players []*entity.Player) []uint32 {
	owners := make([]*entity.Player, 0, len(players))
	for _, p := range players {
		if p.IsPlayer() || p.HasState(entity.StateSharedStash) {
			owners = append(owners, p)
		}
	}
	sort.SliceStable(owners, func(i, j int) bool {
		return owners[i].StashSortKey < owners[j].StashSortKey
	})
	ids := make([]uint32, len(owners))
	for i, p := range owners {
		ids[i] = p.UnitID
	}
	return ids
}
