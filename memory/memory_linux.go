//go:build linux

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PIDReader reads another process' memory with process_vm_readv. This is the
// path used when the game runs under Wine or Proton.
type PIDReader struct {
	Pid int
}

func (r PIDReader) ReadAt(p []byte, addr uintptr) error {
	if len(p) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))
	remote := []unix.RemoteIovec{{Base: addr, Len: len(p)}}

	n, err := unix.ProcessVMReadv(r.Pid, local, remote, 0)
	if err != nil {
		return fmt.Errorf("%w at 0x%X: %v", ErrRead, addr, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w at 0x%X: short read %d/%d", ErrRead, addr, n, len(p))
	}
	return nil
}
