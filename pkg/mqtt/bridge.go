package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/simlink/simlink.go/pkg/input"
	"github.com/simlink/simlink.go/pkg/session"
)

// ClientID derives a stable broker client id from the machine id.
// Falls back to the bare app name when no machine id is available.
func ClientID(app string) string {
	id, err := machineid.ProtectedID(app)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return app
	}
	return app + "-" + id[:12]
}

// AxesTopic receives axis samples as JSON {steering, throttle, brake}.
const AxesTopic = "input/axes"

// DefaultPublishInterval paces snapshot publishing.
const DefaultPublishInterval = 100 * time.Millisecond

type axesMsg struct {
	Steering int `json:"steering"`
	Throttle int `json:"throttle"`
	Brake    int `json:"brake"`
}

type stateMsg struct {
	Tx     string `json:"tx"`
	Rx     string `json:"rx"`
	Device string `json:"device,omitempty"`
}

type linkMsg struct {
	RSSI1    int `json:"rssi1"`
	RSSI2    int `json:"rssi2"`
	LQ       int `json:"lq"`
	SNR      int `json:"snr"`
	Antenna  int `json:"antenna"`
	RFMode   int `json:"rf_mode"`
	TxPower  int `json:"tx_power"`
	DownRSSI int `json:"down_rssi"`
	DownLQ   int `json:"down_lq"`
	DownSNR  int `json:"down_snr"`
}

type batteryMsg struct {
	Voltage   float64 `json:"voltage"`
	Current   float64 `json:"current"`
	Capacity  int     `json:"capacity"`
	Remaining int     `json:"remaining"`
}

type syncMsg struct {
	IntervalUS float64 `json:"interval_us"`
	Phase      int32   `json:"phase"`
}

type paramMsg struct {
	Index  uint8  `json:"index"`
	Folder uint8  `json:"folder"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// Bridge mirrors session snapshots onto the broker and feeds axis
// samples from the broker into the session. It is a loop Ticker; axis
// samples arriving on broker goroutines are buffered and applied on
// the next tick so the session stays single threaded.
type Bridge struct {
	Queue   *Queue
	Session *session.Session
	// Mapper, when set, treats inbound axes as raw device readings.
	// Without it they are taken as channel units directly.
	Mapper *input.Mapper
	// Interval paces snapshot publishing.
	Interval time.Duration

	axesLock sync.Mutex
	pending  *axesMsg

	lastPub  time.Time
	lastSent map[string][]byte
	sub      *Subscription
}

// NewBridge creates a bridge between a queue and a session.
func NewBridge(q *Queue, s *session.Session) *Bridge {
	return &Bridge{
		Queue:    q,
		Session:  s,
		Interval: DefaultPublishInterval,
		lastSent: make(map[string][]byte),
	}
}

// Start subscribes the axis input topic.
func (b *Bridge) Start() {
	b.sub = b.Queue.Sub(AxesTopic, b.handleAxes)
}

// Close drops the axis subscription.
func (b *Bridge) Close() error {
	if b.sub != nil {
		return b.sub.Close()
	}
	return nil
}

func (b *Bridge) handleAxes(_ string, payload []byte) {
	var msg axesMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		glog.Warningf("bad axes message: %v", err)
		return
	}
	b.axesLock.Lock()
	b.pending = &msg
	b.axesLock.Unlock()
}

// Tick implements framework.Ticker: applies buffered axis input and
// publishes changed snapshot topics. It never fails the loop.
func (b *Bridge) Tick(now time.Time) error {
	b.applyAxes()
	if now.Sub(b.lastPub) < b.Interval {
		return nil
	}
	b.lastPub = now
	b.publish(b.Session.Snapshot())
	return nil
}

func (b *Bridge) applyAxes() {
	b.axesLock.Lock()
	msg := b.pending
	b.pending = nil
	b.axesLock.Unlock()
	if msg == nil {
		return
	}
	if b.Mapper != nil {
		out := b.Mapper.Update(input.Axes{
			Steering: msg.Steering,
			Throttle: msg.Throttle,
			Brake:    msg.Brake,
		})
		b.Session.SetSteering(out.Steering)
		b.Session.SetThrottle(out.Throttle)
		b.Session.SetBrake(out.Brake)
		return
	}
	b.Session.SetSteering(uint16(msg.Steering))
	b.Session.SetThrottle(uint16(msg.Throttle))
	b.Session.SetBrake(uint16(msg.Brake))
}

func (b *Bridge) publish(snap session.Snapshot) {
	state := stateMsg{Tx: snap.Tx.String(), Rx: snap.Rx.String()}
	if snap.HasDevice {
		state.Device = snap.Device.Name
	}
	b.pubChanged("state", state, true)

	b.pubChanged("link", linkMsg{
		RSSI1:    snap.Link.UplinkRSSI1,
		RSSI2:    snap.Link.UplinkRSSI2,
		LQ:       snap.Link.UplinkLQ,
		SNR:      snap.Link.UplinkSNR,
		Antenna:  snap.Link.ActiveAntenna,
		RFMode:   snap.Link.RFMode,
		TxPower:  snap.Link.TxPower,
		DownRSSI: snap.Link.DownlinkRSSI,
		DownLQ:   snap.Link.DownlinkLQ,
		DownSNR:  snap.Link.DownlinkSNR,
	}, false)

	b.pubChanged("battery", batteryMsg{
		Voltage:   snap.Battery.Voltage,
		Current:   snap.Battery.Current,
		Capacity:  snap.Battery.Capacity,
		Remaining: snap.Battery.Remaining,
	}, false)

	b.pubChanged("sync", syncMsg{
		IntervalUS: snap.RadioSync.IntervalUS,
		Phase:      snap.RadioSync.Phase,
	}, false)

	if len(snap.Parameters) > 0 {
		params := make([]paramMsg, 0, len(snap.Parameters))
		for _, p := range snap.Parameters {
			params = append(params, paramMsg{
				Index:  p.Index,
				Folder: p.Folder,
				Name:   p.Name,
				Value:  fmt.Sprintf("%v", p.Value),
			})
		}
		b.pubChanged("params", params, true)
	}
}

// pubChanged publishes only when the encoded payload differs from the
// last one sent on the topic.
func (b *Bridge) pubChanged(topic string, v interface{}, retain bool) {
	data, err := json.Marshal(v)
	if err != nil {
		glog.Warningf("encode %s: %v", topic, err)
		return
	}
	if bytes.Equal(b.lastSent[topic], data) {
		return
	}
	b.lastSent[topic] = data
	b.Queue.PubWith(topic, data, 0, retain)
}
