package main

import (
	"fmt"
	"sync"
)

const demoSectorSize = 512

// memBackend is a RAM-based sector backend, grounded on go-ublk's
// backend.Memory but simplified to a single mutex since this demo issues
// one cache worker request at a time.
type memBackend struct {
	mu   sync.Mutex
	data []byte
}

func newMemBackend(sectors uint32) *memBackend {
	return &memBackend{data: make([]byte, int(sectors)*demoSectorSize)}
}

func (m *memBackend) read(_ any, buf []byte, startSector, sectorCount uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	off := int64(startSector) * demoSectorSize
	n := int64(sectorCount) * demoSectorSize
	if off+n > int64(len(m.data)) {
		return fmt.Errorf("read beyond end of device: sector %d+%d", startSector, sectorCount)
	}
	copy(buf, m.data[off:off+n])
	return nil
}

func (m *memBackend) write(_ any, buf []byte, startSector, sectorCount uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	off := int64(startSector) * demoSectorSize
	n := int64(sectorCount) * demoSectorSize
	if off+n > int64(len(m.data)) {
		return fmt.Errorf("write beyond end of device: sector %d+%d", startSector, sectorCount)
	}
	copy(m.data[off:off+n], buf)
	return nil
}

// fillSectorPattern writes count sectors starting at start, each sector's
// first 4 bytes holding its own sector number — the pattern S1 reads back.
func (m *memBackend) fillSectorPattern(start, count uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := start; s < start+count; s++ {
		off := int64(s) * demoSectorSize
		buf := m.data[off : off+demoSectorSize]
		buf[0] = byte(s)
		buf[1] = byte(s >> 8)
		buf[2] = byte(s >> 16)
		buf[3] = byte(s >> 24)
	}
}
