package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// ============================================================
// D2R MEMORY OFFSETS
// Module-relative addresses are resolved per game build by an
// external pattern scanner; the values below are fallbacks.
// ============================================================

// Offsets are module-relative addresses of the global structures the engine reads.
type Offsets struct {
	UnitHashTable     uint64 `toml:"unit_hash_table"`
	ServerTableOffset uint64 `toml:"server_table_offset"` // server-side tables, relative to UnitHashTable
	MapSeed           uint64 `toml:"map_seed"`
	MenuOpen          uint64 `toml:"menu_open"`
	MenuData          uint64 `toml:"menu_data"`
	LastHoverData     uint64 `toml:"last_hover_data"`
	InteractedNpc     uint64 `toml:"interacted_npc"`
	RosterData        uint64 `toml:"roster_data"`
	GameName          uint64 `toml:"game_name"`

	Layout Layout `toml:"layout"`
}

// Layout holds struct field offsets inside the game's records.
type Layout struct {
	Buckets  int `toml:"buckets"`   // pointers per unit-type table
	MaxChain int `toml:"max_chain"` // chain length before a walk is declared corrupt

	Unit        UnitLayout        `toml:"unit"`
	Path        PathLayout        `toml:"path"`
	Room        RoomLayout        `toml:"room"`
	Act         ActLayout         `toml:"act"`
	Inventory   InventoryLayout   `toml:"inventory"`
	StatList    StatListLayout    `toml:"stat_list"`
	PlayerData  PlayerDataLayout  `toml:"player_data"`
	MonsterData MonsterDataLayout `toml:"monster_data"`
	ObjectData  ObjectDataLayout  `toml:"object_data"`
	ItemData    ItemDataLayout    `toml:"item_data"`
	Menu        MenuLayout        `toml:"menu"`
	Hover       HoverLayout       `toml:"hover"`
	Session     SessionLayout     `toml:"session"`
	Roster      RosterLayout      `toml:"roster"`
}

// ===== UNIT ANY =====
type UnitLayout struct {
	Size         int    `toml:"size"`
	Type         uint32 `toml:"type"`
	TxtFileNo    uint32 `toml:"txt_file_no"`
	UnitID       uint32 `toml:"unit_id"`
	Mode         uint32 `toml:"mode"`
	UnitData     uint32 `toml:"unit_data"`
	Act          uint32 `toml:"act"`
	Path         uint32 `toml:"path"`
	StatList     uint32 `toml:"stat_list"`
	Inventory    uint32 `toml:"inventory"`
	Next         uint32 `toml:"next"`
	IsCorpse     uint32 `toml:"is_corpse"`
	StashSortKey uint32 `toml:"stash_sort_key"`
}

// ===== PATH =====
type PathLayout struct {
	Size     int    `toml:"size"`
	XOffset  uint32 `toml:"x_offset"`
	DynamicX uint32 `toml:"dynamic_x"`
	YOffset  uint32 `toml:"y_offset"`
	DynamicY uint32 `toml:"dynamic_y"`
	StaticX  uint32 `toml:"static_x"`
	StaticY  uint32 `toml:"static_y"`
	Room     uint32 `toml:"room"`
}

// ===== ROOM CHAIN =====
// [Path + Room] -> [+RoomEx] -> [+Level] -> LevelID
type RoomLayout struct {
	RoomEx  uint32 `toml:"room_ex"`
	Level   uint32 `toml:"level"`
	LevelID uint32 `toml:"level_id"`
}

// ===== ACT CHAIN =====
// [Unit + Act] -> [+ActMisc] -> Difficulty
type ActLayout struct {
	ActMisc    uint32 `toml:"act_misc"`
	Difficulty uint32 `toml:"difficulty"`
}

type InventoryLayout struct {
	// Non-null only on the inventory of the player running this client.
	PrivateOwner uint32 `toml:"private_owner"`
}

// ===== STATS =====
type StatListLayout struct {
	Stats      uint32 `toml:"stats"`
	Count      uint32 `toml:"count"`
	StateFlags uint32 `toml:"state_flags"`
	StateWords int    `toml:"state_words"`
	MaxStats   int    `toml:"max_stats"`
}

type PlayerDataLayout struct {
	Name uint32 `toml:"name"`
}

type MonsterDataLayout struct {
	MonStats      uint32 `toml:"mon_stats"`
	TypeFlags     uint32 `toml:"type_flags"`
	MonStatsFlags uint32 `toml:"mon_stats_flags"`
}

type ObjectDataLayout struct {
	ObjectTxt    uint32 `toml:"object_txt"`
	InteractType uint32 `toml:"interact_type"`
	ShrineTxt    uint32 `toml:"shrine_txt"`
	ObjectType   uint32 `toml:"object_type"` // inside ObjectTxt
}

type ItemDataLayout struct {
	Size          int    `toml:"size"`
	Quality       uint32 `toml:"quality"`
	OwnerID       uint32 `toml:"owner_id"`
	Flags         uint32 `toml:"flags"`
	UniqueOrSetID uint32 `toml:"unique_or_set_id"`
	BodyLoc       uint32 `toml:"body_loc"`
	InvPage       uint32 `toml:"inv_page"`
}

type MenuLayout struct {
	InGame uint32 `toml:"in_game"`
}

type HoverLayout struct {
	IsHovered     uint32 `toml:"is_hovered"`
	IsItemTooltip uint32 `toml:"is_item_tooltip"`
	UnitType      uint32 `toml:"unit_type"`
	UnitID        uint32 `toml:"unit_id"`
}

type SessionLayout struct {
	GameName uint32 `toml:"game_name"`
	GamePass uint32 `toml:"game_pass"`
}

type RosterLayout struct {
	Name    uint32 `toml:"name"`
	UnitID  uint32 `toml:"unit_id"`
	PartyID uint32 `toml:"party_id"`
	Next    uint32 `toml:"next"`
}

// DefaultOffsets returns the offsets of the last known game build.
func DefaultOffsets() Offsets {
	return Offsets{
		UnitHashTable:     0x2101A70,
		ServerTableOffset: 0x2400,
		MapSeed:           0x2108D48,
		MenuOpen:          0x2100D42,
		MenuData:          0x20FB2A0,
		LastHoverData:     0x1E39E00,
		InteractedNpc:     0x2106C74,
		RosterData:        0x2162B00,
		GameName:          0x29DBD10,
		Layout: Layout{
			Buckets:  128,
			MaxChain: 1024,
			Unit: UnitLayout{
				Size:         0x1D0,
				Type:         0x00,
				TxtFileNo:    0x04,
				UnitID:       0x08,
				Mode:         0x0C,
				UnitData:     0x10,
				Act:          0x20,
				Path:         0x38,
				StatList:     0x88,
				Inventory:    0x90,
				Next:         0x150,
				IsCorpse:     0x1A6,
				StashSortKey: 0x1C4,
			},
			Path: PathLayout{
				Size:     0x30,
				XOffset:  0x00,
				DynamicX: 0x02,
				YOffset:  0x04,
				DynamicY: 0x06,
				StaticX:  0x10,
				StaticY:  0x14,
				Room:     0x20,
			},
			Room:      RoomLayout{RoomEx: 0x18, Level: 0x90, LevelID: 0x1F8},
			Act:       ActLayout{ActMisc: 0x78, Difficulty: 0x830},
			Inventory: InventoryLayout{PrivateOwner: 0x70},
			StatList: StatListLayout{
				Stats:      0x30,
				Count:      0x38,
				StateFlags: 0xAC8,
				StateWords: 6,
				MaxStats:   512,
			},
			PlayerData:  PlayerDataLayout{Name: 0x00},
			MonsterData: MonsterDataLayout{MonStats: 0x00, TypeFlags: 0x1A, MonStatsFlags: 0x0C},
			ObjectData:  ObjectDataLayout{ObjectTxt: 0x00, InteractType: 0x08, ShrineTxt: 0x10, ObjectType: 0xC0},
			ItemData: ItemDataLayout{
				Size:          0x58,
				Quality:       0x00,
				OwnerID:       0x0C,
				Flags:         0x18,
				UniqueOrSetID: 0x34,
				BodyLoc:       0x54,
				InvPage:       0x55,
			},
			Menu:    MenuLayout{InGame: 0x00},
			Hover:   HoverLayout{IsHovered: 0x00, IsItemTooltip: 0x01, UnitType: 0x04, UnitID: 0x08},
			Session: SessionLayout{GameName: 0x40, GamePass: 0x98},
			Roster:  RosterLayout{Name: 0x00, UnitID: 0x48, PartyID: 0x5C, Next: 0x148},
		},
	}
}

// LoadOffsets overlays the TOML file at path on top of DefaultOffsets.
// A missing file is not an error.
func LoadOffsets(path string) (Offsets, error) {
	offsets := DefaultOffsets()
	if path == "" {
		return offsets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return offsets, nil
		}
		return offsets, fmt.Errorf("read offsets file: %w", err)
	}

	if err := toml.Unmarshal(data, &offsets); err != nil {
		return offsets, fmt.Errorf("parse offsets file %s: %w", path, err)
	}
	if err := offsets.Validate(); err != nil {
		return offsets, fmt.Errorf("offsets file %s: %w", path, err)
	}
	return offsets, nil
}

// WriteOffsets encodes o as TOML.
func WriteOffsets(w io.Writer, o Offsets) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(o)
}

// Validate rejects tables the walker cannot use.
func (o Offsets) Validate() error {
	if o.UnitHashTable == 0 {
		return errors.New("unit_hash_table is zero")
	}
	if o.Layout.Buckets <= 0 {
		return fmt.Errorf("layout.buckets must be positive, got %d", o.Layout.Buckets)
	}
	if o.Layout.MaxChain <= 0 {
		return fmt.Errorf("layout.max_chain must be positive, got %d", o.Layout.MaxChain)
	}
	u := o.Layout.Unit
	if err := covers("unit", u.Size,
		field{"type", u.Type, 4}, field{"txt_file_no", u.TxtFileNo, 4},
		field{"unit_id", u.UnitID, 4}, field{"mode", u.Mode, 4},
		field{"unit_data", u.UnitData, 8}, field{"act", u.Act, 8},
		field{"path", u.Path, 8}, field{"stat_list", u.StatList, 8},
		field{"inventory", u.Inventory, 8}, field{"next", u.Next, 8},
	); err != nil {
		return err
	}
	p := o.Layout.Path
	if err := covers("path", p.Size,
		field{"x_offset", p.XOffset, 2}, field{"dynamic_x", p.DynamicX, 2},
		field{"y_offset", p.YOffset, 2}, field{"dynamic_y", p.DynamicY, 2},
		field{"static_x", p.StaticX, 4}, field{"static_y", p.StaticY, 4},
	); err != nil {
		return err
	}
	d := o.Layout.ItemData
	return covers("item_data", d.Size,
		field{"quality", d.Quality, 4}, field{"owner_id", d.OwnerID, 4},
		field{"flags", d.Flags, 4}, field{"unique_or_set_id", d.UniqueOrSetID, 4},
		field{"body_loc", d.BodyLoc, 1}, field{"inv_page", d.InvPage, 1},
	)
}

// field is one value decoded out of a block read of a sized record.
type field struct {
	name  string
	off   uint32
	width int
}

// covers checks that every field ends inside a record of size bytes.
func covers(table string, size int, fields ...field) error {
	for _, f := range fields {
		if int(f.off)+f.width > size {
			return fmt.Errorf("layout.%s.size 0x%X does not cover %s at 0x%X", table, size, f.name, f.off)
		}
	}
	return nil
}
