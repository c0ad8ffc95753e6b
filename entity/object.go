package entity

import (
	"d2sync/config"
	"d2sync/memory"
)

// Object catalog ids from objects.txt.
var (
	portalObjects = map[uint32]bool{
		59:  true, // town portal
		60:  true, // permanent town portal
		100: true, // duriel's lair portal
		298: true, // arcane sanctuary portal
		342: true, // hell gate
	}
	waypointObjects = map[uint32]bool{
		119: true, 145: true, 156: true, 157: true, 237: true, 238: true,
		288: true, 323: true, 324: true, 398: true, 402: true, 429: true,
		494: true, 496: true, 511: true, 539: true,
	}
	chestObjects = map[uint32]bool{
		1: true, 3: true, 5: true, 6: true, 87: true, 88: true, 89: true,
		104: true, 105: true, 106: true, 107: true, 139: true, 140: true,
		141: true, 144: true, 146: true, 147: true, 148: true, 176: true,
		177: true, 181: true, 183: true, 240: true, 241: true, 242: true,
		243: true, 329: true, 330: true, 331: true, 332: true, 333: true,
		334: true, 335: true, 336: true, 354: true, 355: true, 356: true,
		371: true, 387: true, 389: true, 390: true, 391: true, 397: true,
		405: true, 406: true, 407: true, 413: true, 420: true, 424: true,
		425: true, 430: true, 431: true, 432: true, 433: true, 454: true,
		455: true, 501: true, 502: true, 504: true, 505: true, 580: true,
		581: true,
	}
)

// Last shrine type; higher interact types are not shrines.
const shrinePoison = 22

type Object struct {
	Header

	InteractType uint8
	ObjectTxt    uintptr
	ShrineTxt    uintptr
	ObjectType   string
}

func (o *Object) IsPortal() bool { return portalObjects[o.TxtFileNo] }

func (o *Object) IsWaypoint() bool { return waypointObjects[o.TxtFileNo] }

func (o *Object) IsShrine() bool {
	return o.ShrineTxt != 0 && o.InteractType <= shrinePoison
}

func (o *Object) IsWell() bool {
	return o.ObjectTxt != 0 && o.ObjectType == "Well"
}

// IsChest reports an unopened chest.
func (o *Object) IsChest() bool {
	return o.ObjectTxt != 0 && o.Mode == 0 && chestObjects[o.TxtFileNo]
}

func (o *Object) HashString() string { return o.hashString() }

func (o *Object) CopyFrom(fresh *Object) {
	o.Header.copyFrom(&fresh.Header)
	o.InteractType = fresh.InteractType
	o.ObjectTxt = fresh.ObjectTxt
	o.ShrineTxt = fresh.ShrineTxt
	o.ObjectType = fresh.ObjectType
}

func (o *Object) decodePayload(r memory.Reader, l *config.Layout) error {
	if !memory.IsValidPtr(o.UnitData) {
		return memory.ErrAddressNotMapped
	}
	blk, err := memory.ReadBlock(r, o.UnitData, int(l.ObjectData.ShrineTxt)+8)
	if err != nil {
		return err
	}
	o.ObjectTxt = blk.Ptr(l.ObjectData.ObjectTxt)
	o.InteractType = blk.U8(l.ObjectData.InteractType)
	o.ShrineTxt = blk.Ptr(l.ObjectData.ShrineTxt)

	o.ObjectType = ""
	if memory.IsValidPtr(o.ObjectTxt) {
		o.ObjectType, err = memory.ReadString(r, o.ObjectTxt+uintptr(l.ObjectData.ObjectType), 16)
	}
	return err
}
