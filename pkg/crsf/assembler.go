package crsf

// ChunkRequest names the next missing chunk to request from the device.
// Chunk counts from the front of the entry: chunk 0 arrives with the
// highest chunks-remaining counter.
type ChunkRequest struct {
	Index uint8
	Chunk uint8
}

// FeedResult is the outcome of feeding one parameter entry frame.
// At most one of Param and Request is set.
type FeedResult struct {
	// Param is the published entry once all chunks are present. On a
	// reassembly decode failure it carries the raw bytes as a RawValue
	// alongside a non-nil error from Feed.
	Param *Parameter
	// Request asks for exactly one missing chunk. Never more than one
	// per inbound frame: the link is half duplex.
	Request *ChunkRequest
}

// Assembler reassembles chunked parameter entries. Chunks arrive
// tagged with a descending chunks-remaining counter; slot i of an
// entry buffer holds the chunk received when the counter read i.
type Assembler struct {
	buffers map[uint8]*chunkBuffer
}

type chunkBuffer struct {
	slots  [][]byte
	filled int
	// sized is set once a chunk with a nonzero counter pins the entry's
	// total. A buffer opened by a lone remaining=0 chunk stays unsized:
	// that chunk is either a whole entry or a tail seen out of order.
	sized bool
}

// Feed consumes the body of one parameter entry frame:
// [index] [chunks remaining] [chunk bytes...].
func (a *Assembler) Feed(body []byte) (FeedResult, error) {
	if len(body) < 2 {
		return FeedResult{}, ErrTruncated
	}
	index, remaining := body[0], body[1]
	chunk := body[2:]

	if a.buffers == nil {
		a.buffers = make(map[uint8]*chunkBuffer)
	}
	buf := a.buffers[index]
	if buf == nil {
		buf = &chunkBuffer{
			slots: make([][]byte, int(remaining)+1),
			sized: remaining > 0,
		}
		a.buffers[index] = buf
	}
	if int(remaining) >= len(buf.slots) {
		if buf.sized {
			return FeedResult{}, &ParamError{Index: index, Err: ErrChunkIndex}
		}
		grown := make([][]byte, int(remaining)+1)
		copy(grown, buf.slots)
		buf.slots = grown
		buf.sized = true
	}
	if buf.slots[remaining] != nil {
		return FeedResult{}, &ParamError{Index: index, Err: ErrDuplicateChunk}
	}
	stored := make([]byte, len(chunk))
	copy(stored, chunk)
	buf.slots[remaining] = stored
	buf.filled++

	if buf.filled < len(buf.slots) {
		// Highest missing slot first: it is the earliest gap in the
		// entry byte stream.
		total := len(buf.slots)
		for slot := total - 1; slot >= 0; slot-- {
			if buf.slots[slot] == nil {
				req := &ChunkRequest{Index: index, Chunk: uint8(total - 1 - slot)}
				return FeedResult{Request: req}, nil
			}
		}
	}

	combined := make([]byte, 0)
	for slot := len(buf.slots) - 1; slot >= 0; slot-- {
		combined = append(combined, buf.slots[slot]...)
	}
	// An unsized buffer is kept: later chunks may reveal that this was
	// only the tail of a longer entry, and its slot must survive.
	if buf.sized {
		delete(a.buffers, index)
	}

	p, err := ParseParameter(index, combined)
	if err != nil {
		raw := &Parameter{Index: index, Value: RawValue{Data: combined}}
		return FeedResult{Param: raw}, &ParamError{Index: index, Err: ErrDecodeFailure}
	}
	return FeedResult{Param: p}, nil
}

// Reset drops all partially reassembled entries.
func (a *Assembler) Reset() {
	a.buffers = nil
}

// Pending reports how many entries are partially reassembled.
func (a *Assembler) Pending() int {
	return len(a.buffers)
}
