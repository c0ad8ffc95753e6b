//go:build windows

package process

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"d2sync/memory"
)

const readAccess = windows.PROCESS_VM_READ | windows.PROCESS_QUERY_LIMITED_INFORMATION

func listProcesses(name string) ([]uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))

	var pids []uint32
	err = windows.Process32First(snap, &pe)
	for err == nil {
		if sameExecutable(windows.UTF16ToString(pe.ExeFile[:]), name) {
			pids = append(pids, pe.ProcessID)
		}
		err = windows.Process32Next(snap, &pe)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("walk processes: %w", err)
	}
	return pids, nil
}

// GetModuleBase obtém o endereço base de um módulo
func GetModuleBase(pid uint32, module string) (uintptr, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return 0, fmt.Errorf("failed to create module snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var me windows.ModuleEntry32
	me.Size = uint32(unsafe.Sizeof(me))

	err = windows.Module32First(snap, &me)
	for err == nil {
		if sameExecutable(windows.UTF16ToString(me.Module[:]), module) {
			return me.ModBaseAddr, nil
		}
		err = windows.Module32Next(snap, &me)
	}
	return 0, fmt.Errorf("%w: %s in pid %d", ErrModuleNotFound, module, pid)
}

type handleScope struct {
	memory.HandleReader
	pid  uint32
	base uintptr
}

func (s *handleScope) PID() int      { return int(s.pid) }
func (s *handleScope) Base() uintptr { return s.base }

func (s *handleScope) Close() error {
	if s.Handle == 0 {
		return nil
	}
	err := windows.CloseHandle(s.Handle)
	s.Handle = 0
	return err
}

func openScope(pid uint32, base uintptr) (memory.Scope, error) {
	h, err := windows.OpenProcess(readAccess, false, pid)
	if err != nil {
		return nil, err
	}
	return &handleScope{HandleReader: memory.HandleReader{Handle: h}, pid: pid, base: base}, nil
}

func isForeground(pid uint32) bool {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return false
	}
	var owner uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &owner); err != nil {
		return false
	}
	return owner == pid
}
