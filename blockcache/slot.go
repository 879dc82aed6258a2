package blockcache

import "sync/atomic"

// slot is one physical cache line. inUse is a test-and-set flag: while held,
// no other actor may observe the remaining fields as stable. The holder may
// mutate any field if it is the worker; a reader holder may only toggle
// touched (spec.md §3, invariant e).
type slot struct {
	inUse   atomic.Bool
	valid   bool
	touched bool
	blockno uint32
	data    []byte // owned exclusively by this slot, sized to Config.BlockSize
}

func newSlots(count int, blockSize uint32) []slot {
	slots := make([]slot, count)
	for i := range slots {
		slots[i].data = make([]byte, blockSize)
	}
	return slots
}

// acquire attempts the atomic test-and-set. A false return is a schedule hint
// to skip the slot, never an error.
func (s *slot) acquire() bool {
	return s.inUse.CompareAndSwap(false, true)
}

func (s *slot) release() {
	s.inUse.Store(false)
}
