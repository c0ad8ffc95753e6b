package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"d2sync/memory"
)

var (
	ErrProcessNotFound = errors.New("process not found")
	ErrModuleNotFound  = errors.New("module not found")
)

// Attacher opens read-only scopes on one game process. It implements
// memory.Opener; the handle lives only as long as the returned scope.
type Attacher struct {
	pid    uint32
	module string
	base   uintptr
}

// Attach resolves the module base of pid so scopes can be opened later.
func Attach(pid uint32, module string) (*Attacher, error) {
	base, err := GetModuleBase(pid, module)
	if err != nil {
		return nil, err
	}
	return &Attacher{pid: pid, module: module, base: base}, nil
}

func (a *Attacher) PID() int      { return int(a.pid) }
func (a *Attacher) Base() uintptr { return a.base }

// Open implements memory.Opener.
func (a *Attacher) Open() (memory.Scope, error) {
	scope, err := openScope(a.pid, a.base)
	if err != nil {
		return nil, fmt.Errorf("%w: pid %d: %v", memory.ErrNoProcess, a.pid, err)
	}
	return scope, nil
}

// IsForeground reports whether the process owns the focused window.
func (a *Attacher) IsForeground() bool {
	return isForeground(a.pid)
}

// FindProcess encontra o primeiro processo com o nome dado
func FindProcess(name string) (uint32, error) {
	pids, err := FindProcesses(name)
	if err != nil {
		return 0, err
	}
	return pids[0], nil
}

// FindProcesses lists every process whose executable matches name.
func FindProcesses(name string) ([]uint32, error) {
	pids, err := listProcesses(name)
	if err != nil {
		return nil, err
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
	}
	return pids, nil
}

func sameExecutable(path, name string) bool {
	// Wine reports Windows paths in argv[0].
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.EqualFold(filepath.Base(path), name)
}

// parseModuleBase returns the lowest mapping of module in a /proc/<pid>/maps listing.
func parseModuleBase(r io.Reader, module string) (uintptr, error) {
	var best uint64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		if !sameExecutable(path, module) {
			continue
		}
		start, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		addr, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			continue
		}
		if best == 0 || addr < best {
			best = addr
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if best == 0 {
		return 0, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	return uintptr(best), nil
}
