package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

const pageSize = 0x1000

// Image is an in-memory address space. It stands in for a live process in
// tests and offline tooling: writes map pages on demand and reads of unmapped
// pages fail with ErrAddressNotMapped.
type Image struct {
	mu    sync.RWMutex
	pages map[uintptr]*[pageSize]byte
	pid   int
	base  uintptr

	// Unavailable makes Open report ErrNoProcess.
	Unavailable bool

	opened int
	closed int
}

// NewImage creates an empty address space for the given pid and module base.
func NewImage(pid int, base uintptr) *Image {
	return &Image{
		pages: make(map[uintptr]*[pageSize]byte),
		pid:   pid,
		base:  base,
	}
}

func (m *Image) PID() int      { return m.pid }
func (m *Image) Base() uintptr { return m.base }

// Open implements Opener. Every returned scope must be closed.
func (m *Image) Open() (Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, ErrNoProcess
	}
	m.opened++
	return &imageScope{img: m}, nil
}

// OpenScopes reports how many scopes are currently held.
func (m *Image) OpenScopes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opened - m.closed
}

// ReadAt implements Reader.
func (m *Image) ReadAt(p []byte, addr uintptr) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := 0; i < len(p); {
		a := addr + uintptr(i)
		page, ok := m.pages[a&^(pageSize-1)]
		if !ok {
			return fmt.Errorf("%w: 0x%X", ErrAddressNotMapped, a)
		}
		off := int(a & (pageSize - 1))
		n := copy(p[i:], page[off:])
		i += n
	}
	return nil
}

// Write copies data into the image at addr.
func (m *Image) Write(addr uintptr, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < len(data); {
		a := addr + uintptr(i)
		key := a &^ (pageSize - 1)
		page, ok := m.pages[key]
		if !ok {
			page = new([pageSize]byte)
			m.pages[key] = page
		}
		off := int(a & (pageSize - 1))
		n := copy(page[off:], data[i:])
		i += n
	}
}

// Unmap drops the page containing addr.
func (m *Image) Unmap(addr uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, addr&^(pageSize-1))
}

func (m *Image) PutU8(addr uintptr, v uint8) {
	m.Write(addr, []byte{v})
}

func (m *Image) PutU16(addr uintptr, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.Write(addr, b[:])
}

func (m *Image) PutU32(addr uintptr, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.Write(addr, b[:])
}

func (m *Image) PutU64(addr uintptr, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.Write(addr, b[:])
}

func (m *Image) PutPtr(addr uintptr, v uintptr) {
	m.PutU64(addr, uint64(v))
}

func (m *Image) PutF32(addr uintptr, v float32) {
	m.PutU32(addr, math.Float32bits(v))
}

// PutString writes s followed by a NUL byte.
func (m *Image) PutString(addr uintptr, s string) {
	m.Write(addr, append([]byte(s), 0))
}

type imageScope struct {
	img    *Image
	closed bool
}

func (s *imageScope) ReadAt(p []byte, addr uintptr) error { return s.img.ReadAt(p, addr) }
func (s *imageScope) PID() int                            { return s.img.pid }
func (s *imageScope) Base() uintptr                       { return s.img.base }

func (s *imageScope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.img.mu.Lock()
	s.img.closed++
	s.img.mu.Unlock()
	return nil
}
