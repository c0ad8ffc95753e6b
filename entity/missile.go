package entity

import (
	"d2sync/config"
	"d2sync/memory"
)

// Missile carries only the common header.
type Missile struct {
	Header
}

func (m *Missile) HashString() string { return m.hashString() }

func (m *Missile) CopyFrom(fresh *Missile) {
	m.Header.copyFrom(&fresh.Header)
}

func (m *Missile) decodePayload(memory.Reader, *config.Layout) error { return nil }
