package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simlink/simlink.go/pkg/input"
	"github.com/simlink/simlink.go/pkg/session"
)

type nopTransport struct{}

func (nopTransport) Write([]byte) error    { return nil }
func (nopTransport) ReadAvailable() []byte { return nil }
func (nopTransport) IsOpen() bool          { return true }

func topics(pubs []pubRecord) []string {
	out := make([]string, len(pubs))
	for n, p := range pubs {
		out[n] = p.topic
	}
	return out
}

func TestBridgePublishesSnapshot(t *testing.T) {
	q, client := newFakeQueue()
	s := session.New(nopTransport{})
	b := NewBridge(q, s)

	now := time.Unix(100, 0)
	require.NoError(t, b.Tick(now))
	require.Equal(t, []string{
		"simlink/state", "simlink/link", "simlink/battery", "simlink/sync",
	}, topics(client.pubs))

	var state stateMsg
	require.NoError(t, json.Unmarshal(client.pubs[0].payload, &state))
	require.Equal(t, "disconnected", state.Tx)
	require.Equal(t, "disconnected", state.Rx)
	require.True(t, client.pubs[0].retain)

	// Unchanged snapshots publish nothing further.
	require.NoError(t, b.Tick(now.Add(b.Interval)))
	require.Len(t, client.pubs, 4)
}

func TestBridgePublishPacing(t *testing.T) {
	q, client := newFakeQueue()
	b := NewBridge(q, session.New(nopTransport{}))

	now := time.Unix(100, 0)
	require.NoError(t, b.Tick(now))
	count := len(client.pubs)

	// Within the interval not even a changed snapshot is encoded.
	require.NoError(t, b.Tick(now.Add(time.Millisecond)))
	require.Len(t, client.pubs, count)
}

func TestBridgeAxesApplied(t *testing.T) {
	q, _ := newFakeQueue()
	s := session.New(nopTransport{})
	b := NewBridge(q, s)
	b.Mapper = input.NewConfig().NewMapper()
	b.Start()

	b.handleAxes(AxesTopic, []byte(`{"steering":2560,"throttle":128,"brake":0}`))
	require.NotNil(t, b.pending)

	require.NoError(t, b.Tick(time.Unix(100, 0)))
	require.Nil(t, b.pending)
	out := b.Mapper.Last()
	require.NotEqual(t, uint16(992), out.Steering)

	// Malformed payloads are dropped.
	b.handleAxes(AxesTopic, []byte(`{"steering":`))
	require.Nil(t, b.pending)
}

func TestBridgeSubscribesAxes(t *testing.T) {
	q, client := newFakeQueue()
	b := NewBridge(q, session.New(nopTransport{}))
	b.Start()
	require.Equal(t, []string{"simlink/" + AxesTopic}, client.subs)
	require.NoError(t, b.Close())
	require.Equal(t, []string{"simlink/" + AxesTopic}, client.unsubs)
}
