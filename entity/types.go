package entity

import "fmt"

// Kind is the unit type tag stored in every unit header. It also selects the
// unit hash table the unit lives in.
type Kind uint32

const (
	KindPlayer Kind = iota
	KindMonster
	KindObject
	KindMissile
	KindItem
	KindTile
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindObject:
		return "object"
	case KindMissile:
		return "missile"
	case KindItem:
		return "item"
	case KindTile:
		return "tile"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// InvalidID marks an owner or unit id that refers to nothing.
const InvalidID = 0xFFFFFFFF

// ===== AREA =====

type Area uint32

const (
	AreaNone                Area = 0
	AreaRogueEncampment     Area = 1
	AreaLutGholein          Area = 40
	AreaKurastDocks         Area = 75
	AreaPandemoniumFortress Area = 103
	AreaHarrogath           Area = 109
	AreaWorldstoneChamber   Area = 132
	AreaMatronsDen          Area = 133
	AreaForgottenSands      Area = 134
	AreaFurnaceOfPain       Area = 135
	AreaUberTristram        Area = 136
)

// IsValid reports whether a is an enumerated level id.
func (a Area) IsValid() bool {
	return a >= AreaRogueEncampment && a <= AreaUberTristram
}

func (a Area) IsTown() bool {
	switch a {
	case AreaRogueEncampment, AreaLutGholein, AreaKurastDocks, AreaPandemoniumFortress, AreaHarrogath:
		return true
	}
	return false
}

// ===== DIFFICULTY =====

type Difficulty uint16

const (
	Normal Difficulty = iota
	Nightmare
	Hell
)

func (d Difficulty) IsValid() bool {
	return d <= Hell
}

func (d Difficulty) String() string {
	switch d {
	case Normal:
		return "Normal"
	case Nightmare:
		return "Nightmare"
	case Hell:
		return "Hell"
	}
	return fmt.Sprintf("Difficulty(%d)", uint16(d))
}

// ===== ITEMS =====

type ItemMode uint32

const (
	ItemModeStored ItemMode = iota
	ItemModeEquip
	ItemModeInBelt
	ItemModeOnGround
	ItemModeOnCursor
	ItemModeDropping
	ItemModeSocketed
)

type InvPage uint8

const (
	InvPageInventory InvPage = 0
	InvPageEquip     InvPage = 1
	InvPageTrade     InvPage = 2
	InvPageCube      InvPage = 3
	InvPageStash     InvPage = 4
	InvPageBelt      InvPage = 5
	InvPageNull      InvPage = 255
)

type ItemFlags uint32

const (
	ItemFlagSocketed   ItemFlags = 0x00000800
	ItemFlagIdentified ItemFlags = 0x00000010
	ItemFlagInStore    ItemFlags = 0x00002000
	ItemFlagEthereal   ItemFlags = 0x00400000
)

func (f ItemFlags) Has(flag ItemFlags) bool {
	return f&flag == flag
}

type ItemQuality uint32

const (
	QualityNone ItemQuality = iota
	QualityInferior
	QualityNormal
	QualitySuperior
	QualityMagic
	QualitySet
	QualityRare
	QualityUnique
	QualityCraft
	QualityTempered
)

func (q ItemQuality) String() string {
	switch q {
	case QualityInferior:
		return "Inferior"
	case QualityNormal:
		return "Normal"
	case QualitySuperior:
		return "Superior"
	case QualityMagic:
		return "Magic"
	case QualitySet:
		return "Set"
	case QualityRare:
		return "Rare"
	case QualityUnique:
		return "Unique"
	case QualityCraft:
		return "Craft"
	case QualityTempered:
		return "Tempered"
	}
	return "None"
}

type BodyLoc uint8

const (
	BodyLocNone BodyLoc = iota
	BodyLocHead
	BodyLocNeck
	BodyLocTorso
	BodyLocRightArm
	BodyLocLeftArm
	BodyLocRightRing
	BodyLocLeftRing
	BodyLocBelt
	BodyLocFeet
	BodyLocGloves
)

// Item catalog ids used by the item pipeline.
const (
	ItemSash         uint32 = 345
	ItemLightBelt    uint32 = 346
	ItemBelt         uint32 = 347
	ItemHeavyBelt    uint32 = 348
	ItemHoradricCube uint32 = 549
)

// ===== NPC =====

// Npc is a monster catalog id as seen by the interacted-NPC global.
type Npc uint16

const (
	NpcUnknown Npc = 0xFFFE
	NpcInvalid Npc = 0xFFFF
)

// Mercenary catalog ids.
var mercenaries = map[uint32]bool{
	271: true, // rogue
	338: true, // desert guard
	359: true, // iron wolf
	560: true, // barbarian
	561: true,
}

// ===== STATS / STATES =====

type Stat uint16

const (
	StatLife            Stat = 6
	StatMaxLife         Stat = 7
	StatDamageReduced   Stat = 36
	StatMagicResist     Stat = 37
	StatFireResist      Stat = 39
	StatLightningResist Stat = 41
	StatColdResist      Stat = 43
	StatPoisonResist    Stat = 45
)

type State uint32

const (
	StateSharedStash State = 193
)

type Resist uint8

const (
	ResistPhysical Resist = iota
	ResistMagic
	ResistFire
	ResistLightning
	ResistCold
	ResistPoison
)

func (r Resist) String() string {
	return [...]string{"Physical", "Magic", "Fire", "Lightning", "Cold", "Poison"}[r]
}

// resistStats is indexed by Resist.
var resistStats = [...]Stat{
	StatDamageReduced,
	StatMagicResist,
	StatFireResist,
	StatLightningResist,
	StatColdResist,
	StatPoisonResist,
}

type MonsterType uint8

const (
	MonsterOther       MonsterType = 0x01
	MonsterSuperUnique MonsterType = 0x02
	MonsterChampion    MonsterType = 0x04
	MonsterUnique      MonsterType = 0x08
	MonsterMinion      MonsterType = 0x10
)

// MonStats flag bits.
const (
	monStatsNpc    uint32 = 0x100
	monStatsInTown uint32 = 0x400
)

// Monster modes in which the unit is no longer a threat.
const (
	monsterModeDeath = 0
	monsterModeDead  = 12
)
