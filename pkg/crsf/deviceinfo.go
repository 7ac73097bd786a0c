package crsf

import "encoding/binary"

// DeviceInfo is the handshake reply describing the transmitter module.
// It is set once per handshake and immutable afterwards.
type DeviceInfo struct {
	Name            string
	Serial          string // 4-byte tag
	HardwareVersion uint32
	SoftwareVersion uint32
	ParamCount      uint8
	ProtocolVersion uint8
}

// ParseDeviceInfo decodes a device info frame body.
func ParseDeviceInfo(body []byte) (DeviceInfo, error) {
	r := newReader(body)
	name, err := r.cstr()
	if err != nil {
		return DeviceInfo{}, err
	}
	if r.remaining() < 14 {
		return DeviceInfo{}, ErrTruncated
	}
	rest := r.rest()
	return DeviceInfo{
		Name:            name,
		Serial:          string(rest[0:4]),
		HardwareVersion: binary.LittleEndian.Uint32(rest[4:8]),
		SoftwareVersion: binary.LittleEndian.Uint32(rest[8:12]),
		ParamCount:      rest[12],
		ProtocolVersion: rest[13],
	}, nil
}
