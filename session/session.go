package session

import (
	"time"

	"github.com/google/uuid"

	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
)

// Session is one stay in a game by one process.
type Session struct {
	ID        uuid.UUID
	ProcessID int
	GameName  string
	GamePass  string
	StartedAt time.Time

	// TotalAreaTime accumulates the time spent in each area, excluding the
	// current stay in the current area.
	TotalAreaTime    map[entity.Area]time.Duration
	LastAreaChange   time.Time
	PreviousAreaTime time.Duration
}

func New(pid int, now time.Time) *Session {
	return &Session{
		ID:             uuid.New(),
		ProcessID:      pid,
		StartedAt:      now,
		TotalAreaTime:  make(map[entity.Area]time.Duration),
		LastAreaChange: now,
	}
}

// AreaTimeElapsed is the total time spent in the current area, including
// earlier visits.
func (s *Session) AreaTimeElapsed(now time.Time) time.Duration {
	return s.PreviousAreaTime + now.Sub(s.LastAreaChange)
}

// ReadGameInfo reads the game name and password. Both are empty in single player.
func (s *Session) ReadGameInfo(r memory.Reader, addr uintptr, l *config.SessionLayout) error {
	name, err := memory.ReadString(r, addr+uintptr(l.GameName), 0x10)
	if err != nil {
		return err
	}
	pass, err := memory.ReadString(r, addr+uintptr(l.GamePass), 0x10)
	if err != nil {
		return err
	}
	s.GameName, s.GamePass = name, pass
	return nil
}

// Timer books area transitions into a session.
type Timer struct {
	session *Session
	area    entity.Area
	known   bool
}

func NewTimer(s *Session) *Timer {
	return &Timer{session: s}
}

func (t *Timer) Session() *Session { return t.session }

// Area is the last observed area.
func (t *Timer) Area() entity.Area { return t.area }

// Observe records the player's area and reports whether it changed. On a
// change the time since the last change is added to the previous area.
func (t *Timer) Observe(area entity.Area, now time.Time) bool {
	if t.known && t.area == area {
		return false
	}
	s := t.session
	if t.known {
		s.TotalAreaTime[t.area] += now.Sub(s.LastAreaChange)
	}
	t.area = area
	t.known = true
	s.LastAreaChange = now
	s.PreviousAreaTime = s.TotalAreaTime[area]
	return true
}

// Seed detects new game instances from the map seed.
type Seed struct {
	last uint32
}

// Observe reports whether seed differs from the last observed one.
func (s *Seed) Observe(seed uint32) bool {
	if seed == s.last {
		return false
	}
	s.last = seed
	return true
}

func (s *Seed) Last() uint32 { return s.last }

// Forget makes the next observation count as a new game.
func (s *Seed) Forget() { s.last = 0 }
