// Package input maps raw controller axis readings into CRSF channel
// values: range scaling, moving average smoothing and steering center
// calibration. Reading the devices themselves is the caller's job.
package input

import (
	"github.com/golang/glog"

	"github.com/simlink/simlink.go/pkg/crsf"
)

// Axes is one raw sample from the input hardware. Steering spans
// [0, SteeringSpan), the pedals [0, PedalSpan).
type Axes struct {
	Steering int
	Throttle int
	Brake    int
}

// Source yields raw axis samples. ok is false when no fresh sample is
// available; the mapper then keeps its previous output.
type Source interface {
	Read() (sample Axes, ok bool)
}

// pedalGlitchFloor separates a real release from a spurious zero: a
// zero reading is only trusted when recent readings were at or below
// this value.
const pedalGlitchFloor = 10

// Channels is one mapped output sample in CRSF channel units.
type Channels struct {
	Steering uint16
	Throttle uint16
	Brake    uint16
}

// Mapper converts raw axis samples into CRSF channel values.
type Mapper struct {
	conf Config

	steering *movingAvg
	throttle *movingAvg
	brake    *movingAvg

	out Channels
}

func newMapper(conf Config) *Mapper {
	m := &Mapper{
		conf:     conf,
		steering: newMovingAvg(conf.FilterWindow),
		throttle: newMovingAvg(conf.FilterWindow),
		brake:    newMovingAvg(conf.FilterWindow),
	}
	m.out = Channels{
		Steering: crsf.ChannelMid,
		Throttle: crsf.ChannelMid,
		Brake:    crsf.ChannelMid,
	}
	return m
}

// Update feeds one raw sample and returns the smoothed, mapped
// channel values.
func (m *Mapper) Update(sample Axes) Channels {
	// Some pedal sets drop a lone zero mid-press. The zero still enters
	// the smoothing window so a sustained release wins, but the emitted
	// value holds until the recent readings go quiet.
	holdThrottle := sample.Throttle == 0 && m.throttle.recentAbove(pedalGlitchFloor)
	holdBrake := sample.Brake == 0 && m.brake.recentAbove(pedalGlitchFloor)

	steering := m.steering.push(sample.Steering)
	throttle := m.throttle.push(sample.Throttle)
	brake := m.brake.push(sample.Brake)

	out := Channels{
		Steering: clamp(mapRange(steering, 0, m.conf.SteeringSpan, m.conf.SteerMin, m.conf.SteerMax) - m.conf.CenterOffset),
		Throttle: clamp(mapRange(throttle, 0, m.conf.PedalSpan, m.conf.ThrottleMin, m.conf.ThrottleMax)),
		Brake:    clamp(mapRange(brake, 0, m.conf.PedalSpan, m.conf.BrakeMin, m.conf.BrakeMax)),
	}
	if holdThrottle {
		glog.V(1).Infof("suspicious throttle zero, holding %d", m.out.Throttle)
		out.Throttle = m.out.Throttle
	}
	if holdBrake {
		glog.V(1).Infof("suspicious brake zero, holding %d", m.out.Brake)
		out.Brake = m.out.Brake
	}
	m.out = out
	return m.out
}

// Last returns the most recent output sample.
func (m *Mapper) Last() Channels {
	return m.out
}

// Center captures the current steering position as the new center:
// the offset brings the current smoothed reading to 992. Returns the
// new offset.
func (m *Mapper) Center() int {
	raw := mapRange(m.steering.last(), 0, m.conf.SteeringSpan, m.conf.SteerMin, m.conf.SteerMax)
	m.conf.CenterOffset = raw - int(crsf.ChannelMid)
	glog.Infof("steering center offset now %d", m.conf.CenterOffset)
	return m.conf.CenterOffset
}

// CenterOffset returns the active steering offset.
func (m *Mapper) CenterOffset() int {
	return m.conf.CenterOffset
}

func mapRange(v, fromLow, fromHigh, toLow, toHigh int) int {
	return (v-fromLow)*(toHigh-toLow)/(fromHigh-fromLow) + toLow
}

func clamp(v int) uint16 {
	if v < int(crsf.ChannelMin) {
		return crsf.ChannelMin
	}
	if v > int(crsf.ChannelMax) {
		return crsf.ChannelMax
	}
	return uint16(v)
}
