package crsf

// RC channel value range.
const (
	ChannelMin uint16 = 172
	ChannelMid uint16 = 992
	ChannelMax uint16 = 1811

	// NumChannels is the fixed channel count of an RC channels frame.
	NumChannels = 16

	channelsPayloadLen = 22 // 16 channels x 11 bits
	channelMask        = 0x7FF
)

// Channels holds one set of 11-bit RC channel values.
type Channels [NumChannels]uint16

// PackChannels builds a complete RC channels frame, bit-packing the 16
// values 11 bits each, least significant bit first.
func PackChannels(ch Channels) []byte {
	payload := make([]byte, 0, channelsPayloadLen)
	var buf uint32
	var bits uint
	for _, v := range ch {
		buf |= uint32(v&channelMask) << bits
		bits += 11
		for bits >= 8 {
			payload = append(payload, byte(buf))
			buf >>= 8
			bits -= 8
		}
	}
	return EncodeFrame(SyncSerial, TypeRCChannels, payload)
}

// UnpackChannels decodes a 22-byte bit-packed channels payload.
func UnpackChannels(payload []byte) (Channels, error) {
	var ch Channels
	if len(payload) < channelsPayloadLen {
		return ch, ErrTruncated
	}
	var buf uint32
	var bits uint
	pos := 0
	for n := range ch {
		for bits < 11 {
			buf |= uint32(payload[pos]) << bits
			bits += 8
			pos++
		}
		ch[n] = uint16(buf & channelMask)
		buf >>= 11
		bits -= 11
	}
	return ch, nil
}

// UnpackChannelsLegacy reads consecutive big-endian byte pairs from a
// channels frame payload. This does not match the bit-packed encoding
// and only exists to trace inbound channel frames; values past the end
// of the buffer stay zero.
func UnpackChannelsLegacy(payload []byte) Channels {
	var ch Channels
	for n, pos := 0, 0; n < NumChannels && pos+1 < len(payload); n, pos = n+1, pos+2 {
		ch[n] = uint16(payload[pos])<<8 | uint16(payload[pos+1])
	}
	return ch
}
