//go:build linux

package process

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"d2sync/memory"
)

// listProcesses scans /proc for the game, usually running under Wine.
func listProcesses(name string) ([]uint32, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	var pids []uint32
	for _, e := range entries {
		pid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		if matchesProc(filepath.Join("/proc", e.Name()), name) {
			pids = append(pids, uint32(pid))
		}
	}
	return pids, nil
}

func matchesProc(dir, name string) bool {
	if comm, err := os.ReadFile(filepath.Join(dir, "comm")); err == nil {
		if sameExecutable(strings.TrimSpace(string(comm)), name) {
			return true
		}
	}
	cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline"))
	if err != nil || len(cmdline) == 0 {
		return false
	}
	argv0, _, _ := bytes.Cut(cmdline, []byte{0})
	return sameExecutable(string(argv0), name)
}

// GetModuleBase finds the module mapping in /proc/<pid>/maps.
func GetModuleBase(pid uint32, module string) (uintptr, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return 0, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	defer f.Close()

	base, err := parseModuleBase(f, module)
	if err != nil {
		return 0, fmt.Errorf("pid %d: %w", pid, err)
	}
	return base, nil
}

type pidScope struct {
	memory.PIDReader
	base uintptr
}

func (s *pidScope) PID() int      { return s.Pid }
func (s *pidScope) Base() uintptr { return s.base }
func (s *pidScope) Close() error  { return nil }

func openScope(pid uint32, base uintptr) (memory.Scope, error) {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, err
	}
	return &pidScope{PIDReader: memory.PIDReader{Pid: int(pid)}, base: base}, nil
}

// There is no portable focus query outside Windows.
func isForeground(uint32) bool { return true }
