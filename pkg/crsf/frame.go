package crsf

// Device addresses doubling as frame sync bytes.
const (
	AddrBroadcast   byte = 0x00
	AddrRemote      byte = 0xEA
	AddrReceiver    byte = 0xEC
	AddrTransmitter byte = 0xEE
	// SyncSerial is used on the handset serial line instead of an address.
	SyncSerial byte = 0xC8
	// addrReceiverQuirk is accepted because target hardware emits it in
	// place of AddrReceiver.
	addrReceiverQuirk byte = 0x0C
)

// Frame types.
const (
	TypeBattery    byte = 0x08
	TypeLinkStats  byte = 0x14
	TypeRCChannels byte = 0x16
	TypeDevicePing byte = 0x28
	TypeDeviceInfo byte = 0x29
	TypeParamEntry byte = 0x2B
	TypeParamRead  byte = 0x2C
	TypeRadioID    byte = 0x3A
)

const (
	// FrameMin is the smallest valid frame: sync, length, type,
	// one payload byte, CRC.
	FrameMin = 5
	// FrameMax is the hard CRSF frame size limit.
	FrameMax = 64

	// extendedTypeMin is the first frame type carrying destination and
	// origin address bytes ahead of the payload.
	extendedTypeMin byte = 0x28
)

// Frame is one validated CRSF frame.
type Frame struct {
	Sync    byte
	Type    byte
	Payload []byte
	CRC     byte
}

// CRC8 computes the frame CRC over data, skipping the leading sync and
// length bytes. Callers pass the full frame minus the trailing CRC byte.
// Polynomial 0xD5, MSB first, zero initialized.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data[2:] {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0xD5
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func validSync(b byte) bool {
	switch b {
	case AddrBroadcast, AddrRemote, AddrReceiver, AddrTransmitter, addrReceiverQuirk, SyncSerial:
		return true
	}
	return false
}

// DecodeFrame validates raw as one complete frame. Buffers longer than
// the embedded length byte are truncated, shorter ones rejected.
func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) < FrameMin {
		return nil, ErrTruncated
	}
	total := int(raw[1]) + 2
	if total < FrameMin || total > FrameMax {
		return nil, ErrLengthMismatch
	}
	if len(raw) != total {
		if len(raw) < total {
			return nil, ErrLengthMismatch
		}
		raw = raw[:total]
	}
	if !validSync(raw[0]) {
		return nil, ErrBadSync
	}
	crc := raw[len(raw)-1]
	if CRC8(raw[:len(raw)-1]) != crc {
		return nil, ErrCRCMismatch
	}
	payload := make([]byte, len(raw)-4)
	copy(payload, raw[3:len(raw)-1])
	return &Frame{Sync: raw[0], Type: raw[2], Payload: payload, CRC: crc}, nil
}

// EncodeFrame assembles a complete frame around payload.
func EncodeFrame(sync, frameType byte, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+4)
	b = append(b, sync, byte(2+len(payload)), frameType)
	b = append(b, payload...)
	return append(b, CRC8(b))
}

// Next extracts the first complete frame from buf and reports how many
// bytes were consumed. A nil frame with zero consumed means more bytes
// are needed. On error one byte is consumed so the caller can resync.
func Next(buf []byte) (*Frame, int, error) {
	if len(buf) < 2 {
		return nil, 0, nil
	}
	total := int(buf[1]) + 2
	if total < FrameMin || total > FrameMax {
		return nil, 1, ErrLengthMismatch
	}
	if !validSync(buf[0]) {
		return nil, 1, ErrBadSync
	}
	if len(buf) < total {
		return nil, 0, nil
	}
	f, err := DecodeFrame(buf[:total])
	if err != nil {
		return nil, 1, err
	}
	return f, total, nil
}

// Extended reports whether the frame type carries destination and
// origin address bytes ahead of the body.
func (f *Frame) Extended() bool {
	return f.Type >= extendedTypeMin
}

// Body returns the type-specific payload, with the extended addressing
// bytes stripped when present.
func (f *Frame) Body() []byte {
	if f.Extended() && len(f.Payload) >= 2 {
		return f.Payload[2:]
	}
	return f.Payload
}

// Dest returns the destination address of an extended frame.
func (f *Frame) Dest() byte {
	if f.Extended() && len(f.Payload) >= 1 {
		return f.Payload[0]
	}
	return 0
}

// Origin returns the origin address of an extended frame.
func (f *Frame) Origin() byte {
	if f.Extended() && len(f.Payload) >= 2 {
		return f.Payload[1]
	}
	return 0
}
