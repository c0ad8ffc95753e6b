package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrRead is returned when a read of the foreign process fails. The address
	// may be momentarily invalid, so callers drop only the affected value.
	ErrRead = errors.New("memory read failed")

	// ErrAddressNotMapped is returned when an address falls outside every mapped region.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrNoProcess is returned by an Opener when there is no process to read from.
	ErrNoProcess = errors.New("no process available")
)

// Reader reads raw bytes from a foreign address space.
type Reader interface {
	ReadAt(p []byte, addr uintptr) error
}

// Scope is a read handle that is valid until Close is called.
type Scope interface {
	Reader
	// PID is the id of the process this scope reads from.
	PID() int
	// Base is the load address of the game module.
	Base() uintptr
	Close() error
}

// Opener acquires a Scope for one tick.
type Opener interface {
	Open() (Scope, error)
}

// ReadU8 lê um byte
func ReadU8(r Reader, addr uintptr) (uint8, error) {
	var b [1]byte
	if err := r.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 lê 2 bytes
func ReadU16(r Reader, addr uintptr) (uint16, error) {
	var b [2]byte
	if err := r.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadU32 lê 4 bytes
func ReadU32(r Reader, addr uintptr) (uint32, error) {
	var b [4]byte
	if err := r.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadU64 lê 8 bytes
func ReadU64(r Reader, addr uintptr) (uint64, error) {
	var b [8]byte
	if err := r.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadPtr lê um ponteiro de 64 bits
func ReadPtr(r Reader, addr uintptr) (uintptr, error) {
	v, err := ReadU64(r, addr)
	return uintptr(v), err
}

// ReadF32 lê um float32
func ReadF32(r Reader, addr uintptr) (float32, error) {
	v, err := ReadU32(r, addr)
	return math.Float32frombits(v), err
}

// ReadBytes lê N bytes
func ReadBytes(r Reader, addr uintptr, size int) ([]byte, error) {
	buf := make([]byte, size)
	if err := r.ReadAt(buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadString lê uma string terminada em zero de no máximo maxLen bytes
func ReadString(r Reader, addr uintptr, maxLen int) (string, error) {
	buf, err := ReadBytes(r, addr, maxLen)
	if err != nil {
		return "", err
	}
	return CString(buf), nil
}

// ReadBlock reads size bytes at addr for field-by-field decoding.
func ReadBlock(r Reader, addr uintptr, size int) (Block, error) {
	buf, err := ReadBytes(r, addr, size)
	if err != nil {
		return Block{}, err
	}
	return Block{Addr: addr, Data: buf}, nil
}

// FollowPtr reads a pointer at addr+off and rejects values that cannot be a
// user-space address.
func FollowPtr(r Reader, addr uintptr, off uint32) (uintptr, error) {
	ptr, err := ReadPtr(r, addr+uintptr(off))
	if err != nil {
		return 0, err
	}
	if !IsValidPtr(ptr) {
		return 0, fmt.Errorf("%w: pointer 0x%X at 0x%X", ErrAddressNotMapped, ptr, addr+uintptr(off))
	}
	return ptr, nil
}

// CString trims a fixed buffer at its first NUL byte.
func CString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// IsValidPtr verifica se um ponteiro é válido (x64 user space)
func IsValidPtr(ptr uintptr) bool {
	return ptr > 0x10000 && uint64(ptr) < 0x7FFFFFFFFFFF
}

// CalculateDistance2D calcula distância 2D
func CalculateDistance2D(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
