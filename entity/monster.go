package entity

import (
	"errors"

	"d2sync/config"
	"d2sync/memory"
)

type Monster struct {
	Header

	TypeFlags     MonsterType
	MonStatsFlags uint32
	Immunities    []Resist
}

func (m *Monster) Npc() Npc { return Npc(m.TxtFileNo) }

func (m *Monster) IsMerc() bool {
	return mercenaries[m.TxtFileNo]
}

func (m *Monster) IsNpc() bool {
	return m.MonStatsFlags&monStatsNpc != 0
}

func (m *Monster) IsInTown() bool {
	return m.MonStatsFlags&monStatsInTown != 0
}

func (m *Monster) IsAlive() bool {
	return m.Mode != monsterModeDeath && m.Mode != monsterModeDead
}

// IsMonster reports a hostile, living monster.
func (m *Monster) IsMonster() bool {
	return m.IsAlive() && !m.IsMerc() && !m.IsNpc() && !m.IsInTown()
}

// MonsterType returns the first of super unique, champion, minion, unique
// present in the type flags.
func (m *Monster) MonsterType() MonsterType {
	for _, t := range []MonsterType{MonsterSuperUnique, MonsterChampion, MonsterMinion, MonsterUnique} {
		if m.TypeFlags&t == t {
			return t
		}
	}
	return MonsterOther
}

// HealthPercentage is life over max life, 0 when unknown.
func (m *Monster) HealthPercentage() float64 {
	life, ok1 := m.Stats[StatLife]
	maxLife, ok2 := m.Stats[StatMaxLife]
	if !ok1 || !ok2 || maxLife <= 0 {
		return 0
	}
	return float64(life) / float64(maxLife)
}

func (m *Monster) HashString() string { return m.hashString() }

func (m *Monster) CopyFrom(fresh *Monster) {
	m.Header.copyFrom(&fresh.Header)
	m.TypeFlags = fresh.TypeFlags
	m.MonStatsFlags = fresh.MonStatsFlags
	m.Immunities = fresh.Immunities
}

func (m *Monster) decodePayload(r memory.Reader, l *config.Layout) error {
	m.Immunities = immunities(m.Stats)

	if !memory.IsValidPtr(m.UnitData) {
		return memory.ErrAddressNotMapped
	}

	var errs []error
	flags, err := memory.ReadU8(r, m.UnitData+uintptr(l.MonsterData.TypeFlags))
	if err != nil {
		errs = append(errs, err)
	}
	m.TypeFlags = MonsterType(flags)

	stats, err := memory.FollowPtr(r, m.UnitData, l.MonsterData.MonStats)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	m.MonStatsFlags, err = memory.ReadU32(r, stats+uintptr(l.MonsterData.MonStatsFlags))
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// immunities lists the resists at or above 100.
func immunities(stats map[Stat]int32) []Resist {
	var out []Resist
	for i, s := range resistStats {
		if stats[s] >= 100 {
			out = append(out, Resist(i))
		}
	}
	return out
}
