package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"d2sync/log"
	"d2sync/memory"
)

var errNoTargets = errors.New("no game process found")

// Target is a game process the poller can read.
type Target interface {
	memory.Opener
	PID() int
	IsForeground() bool
}

// Discover lists the game processes currently running.
type Discover func() ([]Target, error)

type PollerOptions struct {
	Interval time.Duration
	// Rediscover is how often new processes are looked for while attached.
	Rediscover time.Duration
	// StickToLastGameWindow keeps reading the last focused game after it
	// loses focus.
	StickToLastGameWindow bool
	// NewBackOff builds the attach retry policy.
	NewBackOff func() backoff.BackOff
	Logger     *log.Logger
}

// Poller keeps one Context per game process and ticks the engine on a timer.
type Poller struct {
	eng      *Engine
	discover Discover
	opts     PollerOptions
	log      *log.Logger

	mu         sync.Mutex
	targets    map[int]Target
	contexts   map[int]*Context
	subs       []func(*Snapshot)
	lastActive int
}

func NewPoller(eng *Engine, discover Discover, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.Rediscover <= 0 {
		opts.Rediscover = 5 * time.Second
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
	l := opts.Logger
	if l == nil {
		l = log.Default().WithTag("poller")
	}
	return &Poller{
		eng:      eng,
		discover: discover,
		opts:     opts,
		log:      l,
		targets:  make(map[int]Target),
		contexts: make(map[int]*Context),
	}
}

// Subscribe registers fn to receive every snapshot. fn runs on the polling
// goroutine.
func (p *Poller) Subscribe(fn func(*Snapshot)) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Context returns the context of a process, if attached.
func (p *Poller) Context(pid int) (*Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.contexts[pid]
	return c, ok
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	rediscover := time.NewTicker(p.opts.Rediscover)
	defer rediscover.Stop()

	for {
		if p.attached() == 0 {
			if err := p.attach(ctx); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rediscover.C:
			if targets, err := p.discover(); err == nil {
				p.add(targets)
			}
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						p.log.Error("Panic in poll loop: %v", r)
					}
				}()
				p.Poll()
			}()
		}
	}
}

func (p *Poller) attached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// attach retries discovery with backoff until a process shows up.
func (p *Poller) attach(ctx context.Context) error {
	p.log.Info("Waiting for game process...")
	return backoff.Retry(func() error {
		targets, err := p.discover()
		if err != nil {
			p.log.Debug("Discovery failed: %v", err)
			return err
		}
		if len(targets) == 0 {
			return errNoTargets
		}
		p.add(targets)
		return nil
	}, backoff.WithContext(p.opts.NewBackOff(), ctx))
}

func (p *Poller) add(targets []Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range targets {
		pid := t.PID()
		if _, ok := p.targets[pid]; ok {
			continue
		}
		p.targets[pid] = t
		p.contexts[pid] = p.eng.NewContext(pid)
		p.log.Info("Attached to process %d", pid)
	}
}

func (p *Poller) drop(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.targets, pid)
	delete(p.contexts, pid)
	if p.lastActive == pid {
		p.lastActive = 0
	}
	p.log.Info("Process %d is gone", pid)
}

// due returns the targets to tick: the focused ones, or the last focused
// one when sticking to it.
func (p *Poller) due() []Target {
	p.mu.Lock()
	defer p.mu.Unlock()

	pids := make([]int, 0, len(p.targets))
	for pid := range p.targets {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	var out []Target
	for _, pid := range pids {
		if t := p.targets[pid]; t.IsForeground() {
			out = append(out, t)
			p.lastActive = pid
		}
	}
	if len(out) == 0 && p.opts.StickToLastGameWindow {
		if t, ok := p.targets[p.lastActive]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Poll ticks every due target once and publishes the snapshots produced.
func (p *Poller) Poll() []*Snapshot {
	var snaps []*Snapshot
	for _, t := range p.due() {
		c, ok := p.Context(t.PID())
		if !ok {
			continue
		}

		snap, err := p.eng.Tick(c, t)
		switch {
		case errors.Is(err, memory.ErrNoProcess):
			p.drop(t.PID())
			continue
		case errors.Is(err, ErrInvariant), errors.Is(err, ErrTickInProgress):
			// reported by the engine
		case err != nil:
			p.log.Debug("Tick of process %d failed: %v", t.PID(), err)
		}
		if snap == nil {
			continue
		}
		snaps = append(snaps, snap)
		p.publish(snap)
	}
	return snaps
}

func (p *Poller) publish(snap *Snapshot) {
	p.mu.Lock()
	subs := make([]func(*Snapshot), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
