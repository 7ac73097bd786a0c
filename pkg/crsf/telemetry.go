package crsf

import (
	"encoding/binary"
	"time"
)

// Battery is one battery sensor telemetry sample.
type Battery struct {
	Voltage   float64 // V
	Current   float64 // A
	Capacity  int     // mAh
	Remaining int     // percent
}

// DecodeBattery decodes a battery sensor frame body.
func DecodeBattery(body []byte) (Battery, error) {
	if len(body) < 8 {
		return Battery{}, ErrTruncated
	}
	return Battery{
		Voltage:   float64(binary.BigEndian.Uint16(body[0:2])) / 10,
		Current:   float64(binary.BigEndian.Uint16(body[2:4])) / 10,
		Capacity:  int(body[4])<<16 | int(body[5])<<8 | int(body[6]),
		Remaining: int(body[7]),
	}, nil
}

// LinkStats is one link statistics telemetry sample. RSSI values are
// stored negated: the wire carries magnitudes in dBm.
type LinkStats struct {
	UplinkRSSI1   int // dBm
	UplinkRSSI2   int // dBm
	UplinkLQ      int // percent
	UplinkSNR     int // dB
	ActiveAntenna int
	RFMode        int
	TxPower       int
	DownlinkRSSI  int // dBm
	DownlinkLQ    int // percent
	DownlinkSNR   int // dB

	LastUpdate time.Time
}

// DecodeLinkStats decodes a link statistics frame body.
func DecodeLinkStats(body []byte) (LinkStats, error) {
	if len(body) < 10 {
		return LinkStats{}, ErrTruncated
	}
	return LinkStats{
		UplinkRSSI1:   -int(body[0]),
		UplinkRSSI2:   -int(body[1]),
		UplinkLQ:      int(body[2]),
		UplinkSNR:     int(int8(body[3])),
		ActiveAntenna: int(body[4]),
		RFMode:        int(body[5]),
		TxPower:       int(body[6]),
		DownlinkRSSI:  -int(body[7]),
		DownlinkLQ:    int(body[8]),
		DownlinkSNR:   int(int8(body[9])),
	}, nil
}

// RadioSync is the CRSFShot timing sample carried by radio ID frames.
type RadioSync struct {
	IntervalUS float64
	Phase      int32
}

// radioSubtypeSync is the only radio ID subtype decoded (OpenTX sync,
// aka CRSFShot). Other subtypes are reported as not ok and skipped.
const radioSubtypeSync byte = 0x10

// DecodeRadioSync decodes a radio ID frame body. ok is false when the
// subtype is not the sync subtype.
func DecodeRadioSync(body []byte) (sync RadioSync, ok bool, err error) {
	if len(body) < 1 {
		return RadioSync{}, false, ErrTruncated
	}
	if body[0] != radioSubtypeSync {
		return RadioSync{}, false, nil
	}
	if len(body) < 9 {
		return RadioSync{}, false, ErrTruncated
	}
	return RadioSync{
		IntervalUS: float64(binary.BigEndian.Uint32(body[1:5])) / 10,
		Phase:      int32(binary.BigEndian.Uint32(body[5:9])),
	}, true, nil
}
