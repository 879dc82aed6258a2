package blockcache

import (
	"errors"
	"fmt"
)

// ErrCode is a high-level error category, modeled on go-ublk's UblkErrorCode.
type ErrCode string

const (
	CodeNoMem       ErrCode = "out of memory"
	CodeBackendIO   ErrCode = "backend I/O error"
	CodeBadConfig   ErrCode = "invalid configuration"
	CodeBadRange    ErrCode = "sector range out of bounds"
)

// Error is the structured error returned by blockcache operations.
type Error struct {
	Op    string // e.g. "Init", "ReadSectors", "WriteSectors"
	Code  ErrCode
	Block uint32 // block number involved, if any
	Err   error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("blockcache: %s: %s (block=%d): %v", e.Op, e.Code, e.Block, e.Err)
	}
	return fmt.Sprintf("blockcache: %s: %s (block=%d)", e.Op, e.Code, e.Block)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's Code, supporting errors.Is
// against a bare *Error{Code: ...} sentinel.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

func newErr(op string, code ErrCode, block uint32, cause error) *Error {
	return &Error{Op: op, Code: code, Block: block, Err: cause}
}

// ErrNoMem is a sentinel matching any *Error with Code == CodeNoMem.
var ErrNoMem = &Error{Code: CodeNoMem}

var errAllSlotsBusy = errors.New("blockcache: no slot could be claimed for eviction")
