package walker

import (
	"fmt"

	"d2sync/memory"
)

// Options bound a walk.
type Options struct {
	Buckets  int
	MaxChain int
	// NextOffset is the offset of the chain pointer inside a unit.
	NextOffset uint32
}

// Result lists the unit addresses of one table in bucket order.
type Result struct {
	Addresses []uintptr
	// Corrupt counts chains dropped because of a cycle, excessive length or
	// an unreadable link.
	Corrupt int
	// Err is set when the bucket array itself could not be read.
	Err error
}

// Walk enumerates a bucketed unit table at table. Each bucket heads a
// singly linked chain. Null or out-of-range pointers end a chain and are
// never yielded. A chain that revisits an address or exceeds MaxChain is
// dropped whole.
func Walk(r memory.Reader, table uintptr, opts Options) Result {
	var res Result

	buckets, err := memory.ReadBlock(r, table, opts.Buckets*8)
	if err != nil {
		res.Err = fmt.Errorf("read unit table 0x%X: %w", table, err)
		res.Corrupt++
		return res
	}

	seen := make(map[uintptr]struct{})
	for b := 0; b < opts.Buckets; b++ {
		head := buckets.Ptr(uint32(b * 8))
		if !memory.IsValidPtr(head) {
			continue
		}
		chain, ok := walkChain(r, head, opts, seen)
		if !ok {
			res.Corrupt++
			continue
		}
		res.Addresses = append(res.Addresses, chain...)
	}
	return res
}

func walkChain(r memory.Reader, head uintptr, opts Options, seen map[uintptr]struct{}) ([]uintptr, bool) {
	var chain []uintptr
	for addr := head; memory.IsValidPtr(addr); {
		if _, dup := seen[addr]; dup {
			return nil, false
		}
		if len(chain) >= opts.MaxChain {
			return nil, false
		}
		seen[addr] = struct{}{}
		chain = append(chain, addr)

		next, err := memory.ReadPtr(r, addr+uintptr(opts.NextOffset))
		if err != nil {
			return nil, false
		}
		addr = next
	}
	return chain, true
}
