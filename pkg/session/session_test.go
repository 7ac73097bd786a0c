package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simlink/simlink.go/pkg/crsf"
)

type fakeTransport struct {
	rx     []byte
	writes [][]byte
	open   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{open: true}
}

func (t *fakeTransport) Write(p []byte) error {
	if !t.open {
		return errors.New("write on closed port")
	}
	t.writes = append(t.writes, append([]byte(nil), p...))
	return nil
}

func (t *fakeTransport) ReadAvailable() []byte {
	data := t.rx
	t.rx = nil
	return data
}

func (t *fakeTransport) IsOpen() bool {
	return t.open
}

func (t *fakeTransport) queue(frames ...[]byte) {
	for _, f := range frames {
		t.rx = append(t.rx, f...)
	}
}

func (t *fakeTransport) lastWrite() []byte {
	if len(t.writes) == 0 {
		return nil
	}
	return t.writes[len(t.writes)-1]
}

func deviceInfoFrame(paramCount uint8) []byte {
	body := []byte{crsf.AddrRemote, crsf.AddrTransmitter}
	body = append(body, []byte("TX Module\x00ELRS")...)
	body = append(body, 1, 0, 0, 0)
	body = append(body, 2, 0, 0, 0)
	body = append(body, paramCount, 1)
	return crsf.EncodeFrame(crsf.AddrRemote, crsf.TypeDeviceInfo, body)
}

func stringEntry(name, value string) []byte {
	entry := []byte{0, 10}
	entry = append(entry, []byte(name)...)
	entry = append(entry, 0)
	entry = append(entry, []byte(value)...)
	entry = append(entry, 0, 20)
	return entry
}

func paramFrame(index, remaining uint8, chunk []byte) []byte {
	body := []byte{crsf.AddrRemote, crsf.AddrTransmitter, index, remaining}
	body = append(body, chunk...)
	return crsf.EncodeFrame(crsf.AddrRemote, crsf.TypeParamEntry, body)
}

func linkStatsFrame(lq byte) []byte {
	return crsf.EncodeFrame(crsf.AddrRemote, crsf.TypeLinkStats,
		[]byte{40, 45, lq, 8, 0, 2, 3, 55, 90, 5})
}

// run advances the session one cadence step.
func run(t *testing.T, s *Session, now *time.Time) {
	t.Helper()
	*now = now.Add(5 * time.Millisecond)
	require.NoError(t, s.Tick(*now))
	require.NoError(t, s.HandleRx())
}

func TestFirstTickPings(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	require.Equal(t, TxDisconnected, s.Snapshot().Tx)

	now := time.Unix(10, 0)
	run(t, s, &now)
	require.Equal(t, TxConnecting, s.Snapshot().Tx)
	require.Len(t, ft.writes, 1)
	want := crsf.EncodeFrame(crsf.AddrTransmitter, crsf.TypeDevicePing,
		[]byte{crsf.AddrBroadcast, crsf.AddrRemote})
	require.Equal(t, want, ft.writes[0])
}

func TestRetransmitPacing(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	run(t, s, &now)
	writes := len(ft.writes)

	// Within the retransmit window nothing goes out.
	now = now.Add(time.Millisecond)
	require.NoError(t, s.Tick(now))
	require.Len(t, ft.writes, writes)

	now = now.Add(5 * time.Millisecond)
	require.NoError(t, s.Tick(now))
	require.Len(t, ft.writes, writes+1)
}

func TestHandshake(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)

	run(t, s, &now)
	require.Equal(t, TxConnecting, s.Snapshot().Tx)

	ft.queue(deviceInfoFrame(3))
	run(t, s, &now)
	snap := s.Snapshot()
	require.Equal(t, TxParameters, snap.Tx)
	require.True(t, snap.HasDevice)
	require.Equal(t, "TX Module", snap.Device.Name)
	require.Equal(t, uint8(3), snap.Device.ParamCount)

	ft.queue(
		paramFrame(1, 0, stringEntry("One", "a")),
		paramFrame(2, 0, stringEntry("Two", "b")),
		paramFrame(3, 0, stringEntry("Three", "c")),
	)
	run(t, s, &now)
	run(t, s, &now)
	run(t, s, &now)

	snap = s.Snapshot()
	require.Equal(t, TxConnected, snap.Tx)
	require.Len(t, snap.Parameters, 3)
	p, ok := snap.Parameter(2)
	require.True(t, ok)
	require.Equal(t, "Two", p.Name)
	require.Equal(t, "b", p.Value.(crsf.StringValue).Value)
}

func TestMissingChunkRequested(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	run(t, s, &now)
	ft.queue(deviceInfoFrame(3))
	run(t, s, &now)

	// First chunk of a three chunk entry: the gap right after it must
	// be requested, and only that one.
	writes := len(ft.writes)
	ft.queue(paramFrame(1, 2, []byte{0, 10, 'N'}))
	require.NoError(t, s.HandleRx())
	require.Len(t, ft.writes, writes+1)
	want := crsf.EncodeFrame(crsf.AddrTransmitter, crsf.TypeParamRead,
		[]byte{crsf.AddrTransmitter, crsf.AddrRemote, 1, 1})
	require.Equal(t, want, ft.lastWrite())
}

func TestRxRequestsDoNotDelayTick(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	run(t, s, &now)
	ft.queue(deviceInfoFrame(3))
	run(t, s, &now)

	// A chunk request goes out from the rx path. It must not reset the
	// pacing: the next scheduled tick still writes.
	ft.queue(paramFrame(1, 2, []byte{0, 10, 'N'}))
	require.NoError(t, s.HandleRx())
	writes := len(ft.writes)

	now = now.Add(5 * time.Millisecond)
	require.NoError(t, s.Tick(now))
	require.Len(t, ft.writes, writes+1)
}

func TestLinkQualityDrivesRxState(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)

	ft.queue(linkStatsFrame(0))
	run(t, s, &now)
	snap := s.Snapshot()
	require.Equal(t, RxDisconnected, snap.Rx)
	require.Equal(t, 0, snap.Link.UplinkLQ)
	require.Equal(t, -40, snap.Link.UplinkRSSI1)

	ft.queue(linkStatsFrame(80))
	run(t, s, &now)
	snap = s.Snapshot()
	require.Equal(t, RxConnected, snap.Rx)
	require.Equal(t, 80, snap.Link.UplinkLQ)
	require.False(t, snap.Link.LastUpdate.IsZero())
}

func connect(t *testing.T, s *Session, ft *fakeTransport, now *time.Time) {
	t.Helper()
	run(t, s, now)
	ft.queue(deviceInfoFrame(2))
	run(t, s, now)
	ft.queue(paramFrame(1, 0, stringEntry("One", "a")))
	run(t, s, now)
	run(t, s, now)
	require.Equal(t, TxConnected, s.Snapshot().Tx)
}

func TestChannelFrameWhenConnected(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	connect(t, s, ft, &now)

	s.SetSteering(1500)
	s.SetThrottle(1200)
	s.SetBrake(crsf.ChannelMid) // released
	run(t, s, &now)

	f, err := crsf.DecodeFrame(ft.lastWrite())
	require.NoError(t, err)
	require.Equal(t, crsf.TypeRCChannels, f.Type)
	ch, err := crsf.UnpackChannels(f.Payload)
	require.NoError(t, err)
	require.Equal(t, uint16(1500), ch[0])
	require.Equal(t, uint16(1200), ch[1])
	require.Equal(t, crsf.ChannelMid, ch[2])

	// Brake below center overrides throttle on channel 1.
	s.SetBrake(400)
	run(t, s, &now)
	f, err = crsf.DecodeFrame(ft.lastWrite())
	require.NoError(t, err)
	ch, err = crsf.UnpackChannels(f.Payload)
	require.NoError(t, err)
	require.Equal(t, uint16(400), ch[1])
}

func TestStatsRefreshZerosUplink(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	connect(t, s, ft, &now)

	ft.queue(linkStatsFrame(80))
	run(t, s, &now)
	require.Equal(t, 80, s.Snapshot().Link.UplinkLQ)

	now = now.Add(s.StatsInterval)
	require.NoError(t, s.Tick(now))
	f, err := crsf.DecodeFrame(ft.lastWrite())
	require.NoError(t, err)
	require.Equal(t, crsf.TypeDevicePing, f.Type)
	snap := s.Snapshot()
	require.Equal(t, 0, snap.Link.UplinkLQ)
	require.Equal(t, 0, snap.Link.UplinkRSSI1)
}

func TestTransportClosed(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	connect(t, s, ft, &now)

	ft.open = false
	now = now.Add(5 * time.Millisecond)
	require.ErrorIs(t, s.Tick(now), ErrTransportClosed)
	snap := s.Snapshot()
	require.Equal(t, TxDisconnected, snap.Tx)
	require.Equal(t, RxDisconnected, snap.Rx)
	require.False(t, snap.HasDevice)
	require.Empty(t, snap.Parameters)

	// A fresh transport brings the handshake back.
	ft2 := newFakeTransport()
	s.SetTransport(ft2)
	run(t, s, &now)
	require.Equal(t, TxConnecting, s.Snapshot().Tx)
	require.Len(t, ft2.writes, 1)
}

func TestRefreshParameters(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	connect(t, s, ft, &now)
	require.NotEmpty(t, s.Snapshot().Parameters)

	s.RefreshParameters()
	snap := s.Snapshot()
	require.Equal(t, TxParameters, snap.Tx)
	require.Empty(t, snap.Parameters)

	ft.queue(paramFrame(1, 0, stringEntry("One", "a2")))
	run(t, s, &now)
	run(t, s, &now)
	snap = s.Snapshot()
	require.Equal(t, TxConnected, snap.Tx)
	p, ok := snap.Parameter(1)
	require.True(t, ok)
	require.Equal(t, "a2", p.Value.(crsf.StringValue).Value)
}

func TestMalformedFramesIgnored(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)
	run(t, s, &now)

	// A frame with a good sync and length but a wrong trailer, padded
	// with leading junk.
	bad := []byte{0xEA, 0x04, 0x7F, 0x11, 0x22, 0x33}
	ft.queue([]byte{0x55, 0x01, 0x02}, bad)
	run(t, s, &now)

	snap := s.Snapshot()
	require.Equal(t, RxDisconnected, snap.Rx)
	require.Equal(t, 0, snap.Link.UplinkLQ)

	// The stream recovers on the next good frame.
	ft.queue(linkStatsFrame(70))
	run(t, s, &now)
	require.Equal(t, 70, s.Snapshot().Link.UplinkLQ)
}

func TestSplitFrameAcrossReads(t *testing.T) {
	ft := newFakeTransport()
	s := New(ft)
	now := time.Unix(10, 0)

	frame := linkStatsFrame(66)
	ft.queue(frame[:4])
	run(t, s, &now)
	require.Equal(t, 0, s.Snapshot().Link.UplinkLQ)

	ft.queue(frame[4:])
	run(t, s, &now)
	require.Equal(t, 66, s.Snapshot().Link.UplinkLQ)
}
