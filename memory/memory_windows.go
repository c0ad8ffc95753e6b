//go:build windows

package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// HandleReader reads through ReadProcessMemory on an open process handle.
type HandleReader struct {
	Handle windows.Handle
}

func (h HandleReader) ReadAt(p []byte, addr uintptr) error {
	if len(p) == 0 {
		return nil
	}
	var read uintptr
	err := windows.ReadProcessMemory(h.Handle, addr, (*byte)(unsafe.Pointer(&p[0])), uintptr(len(p)), &read)
	if err != nil {
		return fmt.Errorf("%w at 0x%X: %v", ErrRead, addr, err)
	}
	if int(read) != len(p) {
		return fmt.Errorf("%w at 0x%X: short read %d/%d", ErrRead, addr, read, len(p))
	}
	return nil
}
