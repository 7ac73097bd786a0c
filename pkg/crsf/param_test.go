package crsf

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func le32(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func floatEntry() []byte {
	entry := []byte{0, 8}
	entry = append(entry, []byte("Power\x00")...)
	entry = append(entry, le32(12345)...)
	entry = append(entry, le32(0)...)
	entry = append(entry, le32(99999)...)
	entry = append(entry, le32(100)...)
	entry = append(entry, 2) // decimal point, ahead of step
	entry = append(entry, le32(10)...)
	entry = append(entry, []byte("mW\x00")...)
	return entry
}

func TestParseParameterFloat(t *testing.T) {
	p, err := ParseParameter(5, floatEntry())
	require.NoError(t, err)
	require.Equal(t, uint8(5), p.Index)
	require.Equal(t, ParamFloat, p.Type)
	require.False(t, p.Hidden)
	require.Equal(t, "Power", p.Name)

	v, ok := p.Value.(FloatValue)
	require.True(t, ok)
	require.Equal(t, int32(12345), v.Value)
	require.Equal(t, uint8(2), v.DecimalPoint)
	require.Equal(t, int32(10), v.Step)
	require.Equal(t, "mW", v.Unit)
	require.Equal(t, 123.45, v.Display())
	require.Equal(t, 999.99, v.Scaled(v.Max))
}

func TestParseParameterTextSelection(t *testing.T) {
	entry := []byte{0, 9}
	entry = append(entry, []byte("Telemetry\x00")...)
	entry = append(entry, []byte("Off;On\x00")...)
	entry = append(entry, 1, 0, 1, 0)
	entry = append(entry, []byte("x")...)

	p, err := ParseParameter(3, entry)
	require.NoError(t, err)
	v, ok := p.Value.(TextSelectionValue)
	require.True(t, ok)
	require.Equal(t, []string{"Off", "On"}, v.Options)
	require.Equal(t, uint8(1), v.Value)
	require.Equal(t, "On", v.Selected())
	require.Equal(t, "x", v.Unit)
}

func TestParseParameterTextSelectionEmpty(t *testing.T) {
	entry := []byte{0, 9}
	entry = append(entry, []byte("Empty\x00")...)
	entry = append(entry, 0) // leading NUL, absent options set

	p, err := ParseParameter(4, entry)
	require.NoError(t, err)
	v, ok := p.Value.(TextSelectionValue)
	require.True(t, ok)
	require.Empty(t, v.Options)
	require.Zero(t, v.Value)
	require.Equal(t, "", v.Selected())
}

func TestParseParameterNumeric(t *testing.T) {
	entry := []byte{2, 3} // folder 2, int16
	entry = append(entry, []byte("Offset\x00")...)
	entry = append(entry, 0xFF, 0xFB) // -5
	entry = append(entry, 0xFF, 0x9C) // -100
	entry = append(entry, 0x00, 0x64) // 100
	entry = append(entry, []byte("dB\x00")...)

	p, err := ParseParameter(7, entry)
	require.NoError(t, err)
	require.Equal(t, uint8(2), p.Folder)
	v, ok := p.Value.(NumericValue)
	require.True(t, ok)
	require.Equal(t, int64(-5), v.Value)
	require.Equal(t, int64(-100), v.Min)
	require.Equal(t, int64(100), v.Max)
	require.Equal(t, "dB", v.Unit)
}

func TestParseParameterNumericUnsigned(t *testing.T) {
	entry := []byte{0, 4} // uint32
	entry = append(entry, []byte("Baud\x00")...)
	entry = append(entry, 0x00, 0x0E, 0x10, 0x00) // 921600
	entry = append(entry, 0x00, 0x00, 0x00, 0x00)
	entry = append(entry, 0xFF, 0xFF, 0xFF, 0xFF)
	entry = append(entry, 0x00)

	p, err := ParseParameter(8, entry)
	require.NoError(t, err)
	v := p.Value.(NumericValue)
	require.Equal(t, int64(921600), v.Value)
	require.Equal(t, int64(0xFFFFFFFF), v.Max)
}

func TestParseParameterString(t *testing.T) {
	entry := []byte{0, 10}
	entry = append(entry, []byte("Name\x00")...)
	entry = append(entry, []byte("hello\x00")...)
	entry = append(entry, 16)

	p, err := ParseParameter(9, entry)
	require.NoError(t, err)
	v := p.Value.(StringValue)
	require.Equal(t, "hello", v.Value)
	require.Equal(t, uint8(16), v.MaxLength)
}

func TestParseParameterFolder(t *testing.T) {
	entry := []byte{0, 11}
	entry = append(entry, []byte("WiFi\x00")...)
	entry = append(entry, []byte("2;3;4\x00")...)

	p, err := ParseParameter(1, entry)
	require.NoError(t, err)
	v := p.Value.(FolderValue)
	require.Equal(t, []string{"2", "3", "4"}, v.Children)
}

func TestParseParameterFolderEmpty(t *testing.T) {
	// Some devices omit the child list entirely.
	entry := []byte{0, 11}
	entry = append(entry, []byte("Other\x00")...)

	p, err := ParseParameter(2, entry)
	require.NoError(t, err)
	v := p.Value.(FolderValue)
	require.Empty(t, v.Children)
}

func TestParseParameterTabFolderQuirk(t *testing.T) {
	entry := []byte{'\t', 10}
	entry = append(entry, []byte("N\x00v\x00")...)
	entry = append(entry, 8)

	p, err := ParseParameter(6, entry)
	require.NoError(t, err)
	require.Equal(t, uint8(0), p.Folder)
}

func TestParseParameterHiddenBit(t *testing.T) {
	entry := []byte{0, 10 | 0x80}
	entry = append(entry, []byte("N\x00v\x00")...)
	entry = append(entry, 8)

	p, err := ParseParameter(6, entry)
	require.NoError(t, err)
	require.True(t, p.Hidden)
	require.Equal(t, ParamString, p.Type)
}

func TestParseParameterOutOfRange(t *testing.T) {
	p, err := ParseParameter(200, []byte{0, 127})
	require.NoError(t, err)
	require.Equal(t, ParamOutOfRange, p.Type)
	require.Nil(t, p.Value)
}

func TestParseParameterMalformed(t *testing.T) {
	// String entry missing its max length byte.
	entry := []byte{0, 10}
	entry = append(entry, []byte("N\x00v\x00")...)
	_, err := ParseParameter(1, entry)
	require.ErrorIs(t, err, ErrTruncated)
}

// feedChunks splits entry into n chunks and feeds them in the given
// chunks-remaining order.
func feedChunks(t *testing.T, a *Assembler, index uint8, entry []byte, order []uint8) FeedResult {
	t.Helper()
	total := len(order)
	size := (len(entry) + total - 1) / total
	var last FeedResult
	for _, remaining := range order {
		// chunk with counter r covers the (total-1-r)-th slice
		n := total - 1 - int(remaining)
		lo, hi := n*size, (n+1)*size
		if hi > len(entry) {
			hi = len(entry)
		}
		body := append([]byte{index, remaining}, entry[lo:hi]...)
		res, err := a.Feed(body)
		require.NoError(t, err)
		last = res
	}
	return last
}

func TestAssemblerInOrder(t *testing.T) {
	var a Assembler
	res := feedChunks(t, &a, 5, floatEntry(), []uint8{2, 1, 0})
	require.NotNil(t, res.Param)
	require.Nil(t, res.Request)
	require.Equal(t, 123.45, res.Param.Value.(FloatValue).Display())
	require.Zero(t, a.Pending())
}

func TestAssemblerOutOfOrder(t *testing.T) {
	var inOrder, outOfOrder Assembler
	want := feedChunks(t, &inOrder, 5, floatEntry(), []uint8{2, 1, 0})
	got := feedChunks(t, &outOfOrder, 5, floatEntry(), []uint8{0, 2, 1})
	require.Equal(t, want.Param, got.Param)
}

func TestAssemblerTailChunkFirst(t *testing.T) {
	// A remaining=0 chunk seen first must not pin the entry at one
	// chunk: a later nonzero counter reveals the real total and the
	// stored tail keeps its slot.
	var a Assembler
	entry := floatEntry()
	_, err := a.Feed(append([]byte{5, 0}, entry[22:]...))
	require.NoError(t, err)
	res, err := a.Feed(append([]byte{5, 2}, entry[:11]...))
	require.NoError(t, err)
	require.NotNil(t, res.Request)
	require.Equal(t, uint8(1), res.Request.Chunk)

	res, err = a.Feed(append([]byte{5, 1}, entry[11:22]...))
	require.NoError(t, err)
	require.NotNil(t, res.Param)
	require.Equal(t, 123.45, res.Param.Value.(FloatValue).Display())
	require.Zero(t, a.Pending())
}

func TestAssemblerRequestsMissingChunk(t *testing.T) {
	var a Assembler
	body := append([]byte{5, 2}, floatEntry()[:8]...)
	res, err := a.Feed(body)
	require.NoError(t, err)
	require.Nil(t, res.Param)
	require.NotNil(t, res.Request)
	require.Equal(t, uint8(5), res.Request.Index)
	require.Equal(t, uint8(1), res.Request.Chunk)
}

func TestAssemblerDuplicateChunk(t *testing.T) {
	var a Assembler
	body := append([]byte{5, 2}, floatEntry()[:8]...)
	_, err := a.Feed(body)
	require.NoError(t, err)
	_, err = a.Feed(body)
	require.ErrorIs(t, err, ErrDuplicateChunk)
	require.Equal(t, 1, a.Pending())
}

func TestAssemblerChunkIndexCorruption(t *testing.T) {
	var a Assembler
	_, err := a.Feed([]byte{5, 1, 1, 2})
	require.NoError(t, err)
	_, err = a.Feed([]byte{5, 7, 1, 2})
	require.ErrorIs(t, err, ErrChunkIndex)
}

func TestAssemblerDecodeFailurePublishesRaw(t *testing.T) {
	var a Assembler
	res, err := a.Feed([]byte{9, 0, 0, 10, 'N'}) // unterminated name
	require.ErrorIs(t, err, ErrDecodeFailure)
	require.NotNil(t, res.Param)
	v, ok := res.Param.Value.(RawValue)
	require.True(t, ok)
	require.Equal(t, []byte{0, 10, 'N'}, v.Data)
}

func TestAssemblerSingleChunkEntry(t *testing.T) {
	var a Assembler
	body := append([]byte{9, 0}, []byte{0, 10}...)
	body = append(body, []byte("Name\x00hi\x00")...)
	body = append(body, 8)
	res, err := a.Feed(body)
	require.NoError(t, err)
	require.NotNil(t, res.Param)
	require.Equal(t, "hi", res.Param.Value.(StringValue).Value)
}
