package memory

import (
	"encoding/binary"
	"math"
)

// Block is a snapshot of a contiguous region of foreign memory. Accessors
// return zero for offsets past the end so a short layout never panics.
type Block struct {
	Addr uintptr
	Data []byte
}

func (b Block) has(off uint32, n int) bool {
	return int(off)+n <= len(b.Data)
}

func (b Block) U8(off uint32) uint8 {
	if !b.has(off, 1) {
		return 0
	}
	return b.Data[off]
}

func (b Block) U16(off uint32) uint16 {
	if !b.has(off, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(b.Data[off:])
}

func (b Block) U32(off uint32) uint32 {
	if !b.has(off, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(b.Data[off:])
}

func (b Block) U64(off uint32) uint64 {
	if !b.has(off, 8) {
		return 0
	}
	return binary.LittleEndian.Uint64(b.Data[off:])
}

func (b Block) I32(off uint32) int32 {
	return int32(b.U32(off))
}

func (b Block) Ptr(off uint32) uintptr {
	return uintptr(b.U64(off))
}

func (b Block) F32(off uint32) float32 {
	return math.Float32frombits(b.U32(off))
}

// String reads a NUL-terminated string of at most n bytes at off.
func (b Block) String(off uint32, n int) string {
	if !b.has(off, 1) {
		return ""
	}
	end := int(off) + n
	if end > len(b.Data) {
		end = len(b.Data)
	}
	return CString(b.Data[off:end])
}
