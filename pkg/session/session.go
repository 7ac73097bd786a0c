package session

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/simlink/simlink.go/pkg/crsf"
)

// TxState drives outbound behavior.
type TxState int

// TX connection states.
const (
	TxDisconnected TxState = iota
	TxConnecting
	TxParameters
	TxConnected
)

// String implements fmt.Stringer.
func (s TxState) String() string {
	switch s {
	case TxDisconnected:
		return "disconnected"
	case TxConnecting:
		return "connecting"
	case TxParameters:
		return "parameters"
	case TxConnected:
		return "connected"
	}
	return "unknown"
}

// RxState reflects observed link quality from telemetry.
type RxState int

// RX link states.
const (
	RxDisconnected RxState = iota
	RxConnected
)

// String implements fmt.Stringer.
func (s RxState) String() string {
	if s == RxConnected {
		return "connected"
	}
	return "disconnected"
}

// steeringLiveness is the channel 0 default: visibly off center so a
// live link is obvious before the first input arrives.
const steeringLiveness uint16 = 1300

// Snapshot is the immutable read surface published after every tick
// and rx pass. Entries inside are never mutated after publish.
type Snapshot struct {
	Tx        TxState
	Rx        RxState
	HasDevice bool
	Device    crsf.DeviceInfo
	Battery   crsf.Battery
	Link      crsf.LinkStats
	RadioSync crsf.RadioSync
	// Parameters is the catalogue sorted by index.
	Parameters []crsf.Parameter
}

// Parameter returns the entry with the given index, if published.
func (s Snapshot) Parameter(index uint8) (crsf.Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Index == index {
			return p, true
		}
	}
	return crsf.Parameter{}, false
}

// Session is the transmitter-module connection engine. All methods
// except Snapshot must be called from the single owning loop.
type Session struct {
	// RetransmitTimeout paces every outbound frame class.
	RetransmitTimeout time.Duration
	// StatsInterval paces the link statistics refresh while connected.
	StatsInterval time.Duration

	transport Transport

	txState TxState
	rxState RxState

	lastTx    time.Time
	lastStats time.Time

	info        *crsf.DeviceInfo
	params      map[uint8]*crsf.Parameter
	asm         crsf.Assembler
	paramIdx    uint8
	chunkCursor uint8

	steering uint16
	throttle uint16
	brake    uint16
	channels crsf.Channels

	battery crsf.Battery
	link    crsf.LinkStats
	radio   crsf.RadioSync

	rxBuf []byte

	snapLock sync.RWMutex
	snap     Snapshot
}

// New creates a session driving the given transport.
func New(t Transport) *Session {
	s := &Session{
		RetransmitTimeout: 4 * time.Millisecond,
		StatsInterval:     5 * time.Second,
		transport:         t,
		params:            make(map[uint8]*crsf.Parameter),
		paramIdx:          1,
		steering:          steeringLiveness,
		throttle:          crsf.ChannelMid,
		brake:             crsf.ChannelMid,
	}
	for n := range s.channels {
		s.channels[n] = crsf.ChannelMid
	}
	s.channels[0] = steeringLiveness
	s.publish()
	return s
}

// SetTransport installs a fresh transport after a disconnect.
func (s *Session) SetTransport(t Transport) {
	s.transport = t
	s.lastTx = time.Time{}
}

// SetSteering sets the channel 0 value (CRSF channel range).
func (s *Session) SetSteering(v uint16) { s.steering = clampChannel(v) }

// SetThrottle sets the throttle half of channel 1.
func (s *Session) SetThrottle(v uint16) { s.throttle = clampChannel(v) }

// SetBrake sets the brake half of channel 1. A brake below center
// overrides the throttle.
func (s *Session) SetBrake(v uint16) { s.brake = clampChannel(v) }

func clampChannel(v uint16) uint16 {
	if v < crsf.ChannelMin {
		return crsf.ChannelMin
	}
	if v > crsf.ChannelMax {
		return crsf.ChannelMax
	}
	return v
}

// Snapshot returns the latest published state. Safe from any
// goroutine.
func (s *Session) Snapshot() Snapshot {
	s.snapLock.RLock()
	defer s.snapLock.RUnlock()
	return s.snap
}

// Tick advances the state machine and performs at most one outbound
// write. It returns a non-nil error only when the transport is gone.
func (s *Session) Tick(now time.Time) error {
	if s.transport == nil || !s.transport.IsOpen() {
		return s.disconnect(ErrTransportClosed)
	}
	if now.Sub(s.lastTx) < s.RetransmitTimeout {
		return nil
	}

	var err error
	switch s.txState {
	case TxDisconnected, TxConnecting:
		if err = s.write(pingFrame(), now); err == nil && s.txState == TxDisconnected {
			glog.Info("pinging module")
			s.txState = TxConnecting
		}
	case TxParameters:
		err = s.write(paramReadFrame(s.paramIdx, s.chunkCursor), now)
		if _, ok := s.params[s.paramIdx]; ok {
			s.paramIdx++
			s.chunkCursor = 0
		}
		if s.info != nil && s.paramIdx >= s.info.ParamCount {
			glog.Infof("parameter catalogue complete (%d entries), connected", len(s.params))
			s.txState = TxConnected
			s.lastStats = now
		}
	case TxConnected:
		if now.Sub(s.lastStats) >= s.StatsInterval {
			s.lastStats = now
			// Treat link silence as degraded: zero the published uplink
			// figures until the next sample arrives.
			s.link.UplinkLQ = 0
			s.link.UplinkRSSI1 = 0
			s.link.UplinkRSSI2 = 0
			err = s.write(pingFrame(), now)
		} else {
			err = s.write(s.channelFrame(), now)
		}
	}
	if err != nil {
		return err
	}
	s.publish()
	return nil
}

// HandleRx drains all currently available inbound bytes and dispatches
// every complete frame. Malformed frames are dropped one byte at a
// time to resync; they never abort the session.
func (s *Session) HandleRx() error {
	if s.transport == nil || !s.transport.IsOpen() {
		return s.disconnect(ErrTransportClosed)
	}
	if data := s.transport.ReadAvailable(); len(data) > 0 {
		s.rxBuf = append(s.rxBuf, data...)
	}
	for {
		f, n, err := crsf.Next(s.rxBuf)
		if f == nil && n == 0 {
			break
		}
		s.rxBuf = s.rxBuf[n:]
		if err != nil {
			glog.V(2).Infof("rx resync: %v", err)
			continue
		}
		s.dispatch(f)
	}
	if len(s.rxBuf) == 0 {
		s.rxBuf = nil
	}
	s.publish()
	return nil
}

// RequestParameter asks the module for one chunk of one entry.
func (s *Session) RequestParameter(index, chunk uint8) error {
	if s.transport == nil || !s.transport.IsOpen() {
		return ErrTransportClosed
	}
	return s.send(paramReadFrame(index, chunk))
}

// RefreshParameters clears the catalogue and re-enters enumeration on
// the next ticks.
func (s *Session) RefreshParameters() {
	s.params = make(map[uint8]*crsf.Parameter)
	s.asm.Reset()
	s.paramIdx = 1
	s.chunkCursor = 0
	if s.info != nil && s.txState == TxConnected {
		s.txState = TxParameters
	}
	s.publish()
}

func (s *Session) dispatch(f *crsf.Frame) {
	switch f.Type {
	case crsf.TypeBattery:
		b, err := crsf.DecodeBattery(f.Payload)
		if err != nil {
			glog.Warningf("battery frame: %v", err)
			return
		}
		s.battery = b
		glog.V(1).Infof("battery %.1fV %.1fA %dmAh %d%%",
			b.Voltage, b.Current, b.Capacity, b.Remaining)
	case crsf.TypeLinkStats:
		ls, err := crsf.DecodeLinkStats(f.Payload)
		if err != nil {
			glog.Warningf("link stats frame: %v", err)
			return
		}
		ls.LastUpdate = time.Now()
		s.link = ls
		if ls.UplinkLQ > 0 {
			s.rxState = RxConnected
		} else {
			s.rxState = RxDisconnected
		}
		glog.V(1).Infof("link rssi %ddBm lq %d%% snr %ddB",
			ls.UplinkRSSI1, ls.UplinkLQ, ls.UplinkSNR)
	case crsf.TypeRCChannels:
		if glog.V(3) {
			glog.Infof("rx channels %v", crsf.UnpackChannelsLegacy(f.Payload))
		}
	case crsf.TypeDeviceInfo:
		info, err := crsf.ParseDeviceInfo(f.Body())
		if err != nil {
			glog.Warningf("device info frame: %v", err)
			return
		}
		s.info = &info
		glog.Infof("device %q serial %q hw %d sw %d params %d",
			info.Name, info.Serial, info.HardwareVersion,
			info.SoftwareVersion, info.ParamCount)
		if s.txState == TxConnecting {
			s.txState = TxParameters
			s.paramIdx = 1
			s.chunkCursor = 0
		}
	case crsf.TypeParamEntry:
		s.handleParamEntry(f)
	case crsf.TypeRadioID:
		sync, ok, err := crsf.DecodeRadioSync(f.Body())
		if err != nil {
			glog.Warningf("radio id frame: %v", err)
			return
		}
		if !ok {
			glog.V(2).Info("radio id subtype ignored")
			return
		}
		s.radio = sync
		glog.V(2).Infof("radio sync %.1fus phase %d", sync.IntervalUS, sync.Phase)
	default:
		glog.V(2).Infof("unhandled frame type 0x%02X", f.Type)
	}
}

func (s *Session) handleParamEntry(f *crsf.Frame) {
	res, err := s.asm.Feed(f.Body())
	if err != nil {
		glog.Warningf("parameter entry: %v", err)
	}
	if res.Request != nil {
		s.chunkCursor = res.Request.Chunk
		if err := s.send(paramReadFrame(res.Request.Index, res.Request.Chunk)); err != nil {
			return
		}
	}
	if res.Param == nil {
		return
	}
	p := res.Param
	s.params[p.Index] = p
	glog.V(1).Infof("parameter %d %q", p.Index, p.Name)
	if p.Type == crsf.ParamOutOfRange {
		// The module has no entry at this index; stop advancing.
		return
	}
	if s.txState == TxParameters && s.info != nil && int(p.Index)+1 < int(s.info.ParamCount) {
		s.send(paramReadFrame(p.Index+1, 0))
	}
}

func (s *Session) channelFrame() []byte {
	s.channels[0] = s.steering
	if s.brake < crsf.ChannelMid {
		s.channels[1] = s.brake
	} else {
		s.channels[1] = s.throttle
	}
	return crsf.PackChannels(s.channels)
}

// send writes a frame without touching the retransmit timer. Replies
// issued from the rx path must not delay the next scheduled tick.
func (s *Session) send(frame []byte) error {
	if err := s.transport.Write(frame); err != nil {
		s.disconnect(err)
		return err
	}
	return nil
}

func (s *Session) write(frame []byte, now time.Time) error {
	if err := s.send(frame); err != nil {
		return err
	}
	s.lastTx = now
	return nil
}

func (s *Session) disconnect(cause error) error {
	if s.txState != TxDisconnected {
		glog.Warningf("link down: %v", cause)
	}
	s.txState = TxDisconnected
	s.rxState = RxDisconnected
	s.info = nil
	s.params = make(map[uint8]*crsf.Parameter)
	s.asm.Reset()
	s.paramIdx = 1
	s.chunkCursor = 0
	s.rxBuf = nil
	s.publish()
	return cause
}

func (s *Session) publish() {
	snap := Snapshot{
		Tx:        s.txState,
		Rx:        s.rxState,
		Battery:   s.battery,
		Link:      s.link,
		RadioSync: s.radio,
	}
	if s.info != nil {
		snap.HasDevice = true
		snap.Device = *s.info
	}
	if len(s.params) > 0 {
		snap.Parameters = make([]crsf.Parameter, 0, len(s.params))
		for _, p := range s.params {
			snap.Parameters = append(snap.Parameters, *p)
		}
		sort.Slice(snap.Parameters, func(i, j int) bool {
			return snap.Parameters[i].Index < snap.Parameters[j].Index
		})
	}
	s.snapLock.Lock()
	s.snap = snap
	s.snapLock.Unlock()
}

func pingFrame() []byte {
	return crsf.EncodeFrame(crsf.AddrTransmitter, crsf.TypeDevicePing,
		[]byte{crsf.AddrBroadcast, crsf.AddrRemote})
}

func paramReadFrame(index, chunk uint8) []byte {
	return crsf.EncodeFrame(crsf.AddrTransmitter, crsf.TypeParamRead,
		[]byte{crsf.AddrTransmitter, crsf.AddrRemote, index, chunk})
}
