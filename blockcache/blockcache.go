// Package blockcache implements the read-through sector cache described in
// spec.md §4.1: a single worker goroutine owns eviction and backend I/O,
// while any number of client goroutines hit the cache lock-free via a
// per-slot test-and-set flag.
package blockcache

import (
	"math"
	"sync"

	"github.com/intuitionamiga/coreport/internal/corelog"
)

const sectorSize = 512

// ReadFunc mirrors the storage backend's synchronous sector read callback
// (spec.md §6): opaque is caller context, buf receives sectorCount*512 bytes
// starting at startSector.
type ReadFunc func(opaque any, buf []byte, startSector, sectorCount uint32) error

// WriteFunc mirrors the storage backend's synchronous sector write callback.
type WriteFunc func(opaque any, buf []byte, startSector, sectorCount uint32) error

// Config configures a Handle. BlockSize must be a positive multiple of 512;
// BlockCount must be at least 1.
type Config struct {
	BlockSize  uint32
	BlockCount uint32
	Read       ReadFunc
	Write      WriteFunc
	Opaque     any
}

// Handle is a running block cache instance.
type Handle struct {
	cfg            Config
	sectorsPerBlk  uint32
	slots          []slot
	fifoPos        int // worker-owned only
	requests       chan request
	reqMu          sync.Mutex // serializes request *submission*; write path holds it across invalidate+backend write
	log            *corelog.Logger
}

// Init allocates the cache table and starts the worker goroutine.
func Init(cfg Config) (*Handle, error) {
	if cfg.BlockSize == 0 || cfg.BlockSize%sectorSize != 0 {
		return nil, newErr("Init", CodeBadConfig, 0, nil)
	}
	if cfg.BlockCount == 0 {
		return nil, newErr("Init", CodeBadConfig, 0, nil)
	}
	if cfg.Read == nil || cfg.Write == nil {
		return nil, newErr("Init", CodeBadConfig, 0, nil)
	}
	total := uint64(cfg.BlockSize) * uint64(cfg.BlockCount)
	if total > math.MaxInt32 {
		return nil, newErr("Init", CodeNoMem, 0, nil)
	}

	h := &Handle{
		cfg:           cfg,
		sectorsPerBlk: cfg.BlockSize / sectorSize,
		slots:         newSlots(int(cfg.BlockCount), cfg.BlockSize),
		requests:      make(chan request),
		log:           corelog.Default().WithPrefix("blockcache"),
	}
	go h.worker()
	return h, nil
}

// ReadSectors copies count*512 bytes starting at startSector into dst,
// synchronously, suspending the caller on cache misses.
func (h *Handle) ReadSectors(dst []byte, startSector, count uint32) error {
	remaining := count * sectorSize
	if uint32(len(dst)) < remaining {
		return newErr("ReadSectors", CodeBadRange, 0, nil)
	}
	sector := startSector
	out := dst
	for remaining > 0 {
		blockno := sector / h.sectorsPerBlk
		byteOffset := (sector % h.sectorsPerBlk) * sectorSize

		n, hit, wantRescan := h.tryHit(blockno, byteOffset, out, remaining)
		if hit {
			out = out[n:]
			remaining -= n
			sector += n / sectorSize
			if wantRescan {
				// This slot just transitioned touched false->true: the reader has
				// established sequential intent, so ask the worker to look for a
				// successor to prefetch now, after the touched write above — not
				// relying on the miss path's post-reply scan, which can race this
				// write (blkcache.c issues its RESCAN synchronously from the
				// reader for the same reason).
				if err := h.issueMiss(reqRescan, blockno); err != nil {
					return newErr("ReadSectors", CodeBackendIO, blockno, err)
				}
			}
			continue
		}

		if err := h.issueMiss(reqRead, blockno); err != nil {
			return newErr("ReadSectors", CodeBackendIO, blockno, err)
		}
		// loop back and retry the hit path; do not consume the result directly.
	}
	return nil
}

// tryHit scans the slot table once. On a match it copies up to `remaining`
// bytes (bounded by the block's remaining span) and returns (n, hit,
// wantRescan). wantRescan reports whether this access is the one that just
// flipped the slot's touched flag from false to true (spec.md §4.1): that
// transition is the signal to issue an explicit RESCAN once the read has
// completed, not something the worker can infer safely on its own later.
func (h *Handle) tryHit(blockno, byteOffset uint32, dst []byte, remaining uint32) (n uint32, hit bool, wantRescan bool) {
	for i := range h.slots {
		s := &h.slots[i]
		if !s.acquire() {
			continue
		}
		if s.valid && s.blockno == blockno {
			span := h.cfg.BlockSize - byteOffset
			want := span
			if remaining < want {
				want = remaining
			}
			copy(dst[:want], s.data[byteOffset:byteOffset+want])
			wasTouched := s.touched
			s.touched = true
			s.release()
			return want, true, !wasTouched
		}
		s.release()
	}
	return 0, false, false
}

// WriteSectors invalidates every cache block overlapping the written range
// (via the worker, sequentially) and then writes through to the backend,
// holding the request mutex across both so no new read request can enter
// the worker mid-write (spec.md §4.1, open question).
func (h *Handle) WriteSectors(src []byte, startSector, count uint32) error {
	need := count * sectorSize
	if uint32(len(src)) < need {
		return newErr("WriteSectors", CodeBadRange, 0, nil)
	}

	h.reqMu.Lock()
	defer h.reqMu.Unlock()

	first := startSector / h.sectorsPerBlk
	last := (startSector + count - 1) / h.sectorsPerBlk
	for b := first; b <= last; b++ {
		if err := h.sendLocked(reqInvalidate, b); err != nil {
			// invalidate cannot fail per spec.md §7, but propagate defensively.
			return newErr("WriteSectors", CodeBackendIO, b, err)
		}
	}

	if err := h.cfg.Write(h.cfg.Opaque, src, startSector, count); err != nil {
		return newErr("WriteSectors", CodeBackendIO, first, err)
	}
	return nil
}

// issueMiss takes the request mutex, submits kind/block to the worker, waits
// for the ack, and releases the mutex.
func (h *Handle) issueMiss(kind reqKind, block uint32) error {
	h.reqMu.Lock()
	defer h.reqMu.Unlock()
	return h.sendLocked(kind, block)
}

func (h *Handle) sendLocked(kind reqKind, block uint32) error {
	reply := make(chan error, 1)
	h.requests <- request{kind: kind, block: block, reply: reply}
	return <-reply
}

// Ioctl services the filesystem driver's GET_SECTOR_COUNT / GET_SECTOR_SIZE /
// CTRL_SYNC queries (spec.md §6). CTRL_SYNC is a stub: the write path is
// already synchronous and write-through, so there is nothing to flush.
type IoctlCmd int

const (
	CtrlGetSectorCount IoctlCmd = iota
	CtrlGetSectorSize
	CtrlSync
)

func (h *Handle) Ioctl(cmd IoctlCmd) (uint64, error) {
	switch cmd {
	case CtrlGetSectorCount:
		return uint64(h.cfg.BlockCount) * uint64(h.sectorsPerBlk), nil
	case CtrlGetSectorSize:
		return sectorSize, nil
	case CtrlSync:
		return 0, nil
	default:
		return 0, newErr("Ioctl", CodeBadConfig, 0, nil)
	}
}
