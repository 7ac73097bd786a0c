package crsf

import (
	"errors"
	"fmt"
)

var (
	// ErrBadSync indicates the leading byte is not a known address or
	// sync byte.
	ErrBadSync = errors.New("bad sync byte")
	// ErrLengthMismatch indicates the length byte disagrees with the
	// buffer and the buffer cannot be truncated to fit.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrCRCMismatch indicates the trailing CRC does not verify.
	ErrCRCMismatch = errors.New("crc mismatch")
	// ErrTruncated indicates the buffer is too short to hold a frame
	// or a decoder ran out of bytes.
	ErrTruncated = errors.New("truncated")
)

// ParamError wraps a parameter protocol failure for one entry index.
type ParamError struct {
	Index uint8
	Err   error
}

var (
	// ErrChunkIndex indicates a chunk counter beyond the announced
	// total for its entry.
	ErrChunkIndex = errors.New("chunk index out of range")
	// ErrDuplicateChunk indicates a chunk slot was already filled.
	// Duplicates are ignored, never overwritten.
	ErrDuplicateChunk = errors.New("duplicate chunk")
	// ErrDecodeFailure indicates a reassembled entry did not parse.
	// The raw bytes are still published under the entry index.
	ErrDecodeFailure = errors.New("decode failure")
)

// Error implements error.
func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %d: %v", e.Index, e.Err)
}

// Unwrap exposes the underlying kind for errors.Is.
func (e *ParamError) Unwrap() error {
	return e.Err
}
