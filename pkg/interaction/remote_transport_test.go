package interaction_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/interaction"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/readprop"
	"github.com/bacstack/bacnet-go/pkg/transport"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

const simDatabase = `
devices:
  - instance: 1001
    name: AHU-1
    vendor-id: 260
    objects:
      - object: analog-input,1
        properties:
          object-name: Supply Temp
          present-value: 21.5
          description: supply air after coil
          units: 62
  - instance: 1002
    name: VAV-2
    objects:
      - object: analog-value,4
        properties:
          object-name: Zone Setpoint
          present-value: 22
`

var (
	ai1 = model.NewObjectIdentifier(model.ObjectAnalogInput, 1)
	av4 = model.NewObjectIdentifier(model.ObjectAnalogValue, 4)
)

type simulator struct {
	store  *interaction.MemoryStore
	server *interaction.Server
	listen *transport.Server
}

func startSimulator(t *testing.T) *simulator {
	t.Helper()

	store, err := interaction.ReadMemoryStore(strings.NewReader(simDatabase))
	require.NoError(t, err)

	sim := &simulator{store: store, server: interaction.NewServer(store)}
	sim.listen, err = transport.NewServer(transport.ServerConfig{
		Address:   "127.0.0.1:0",
		OnMessage: sim.server.ServeMessage,
	})
	require.NoError(t, err)
	require.NoError(t, sim.listen.Start(context.Background()))
	t.Cleanup(func() { sim.listen.Stop() })
	return sim
}

func (s *simulator) address() string {
	return s.listen.Addr().String()
}

// startSilentServer accepts connections and never answers.
func startSilentServer(t *testing.T) string {
	t.Helper()
	server, err := transport.NewServer(transport.ServerConfig{
		Address:   "127.0.0.1:0",
		OnMessage: func(*transport.ServerConn, []byte) {},
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })
	return server.Addr().String()
}

// unusedAddress returns a loopback address nothing listens on.
func unusedAddress(t *testing.T) string {
	t.Helper()
	server, err := transport.NewServer(transport.ServerConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	addr := server.Addr().String()
	require.NoError(t, server.Stop())
	return addr
}

func newTransport(t *testing.T, requestTimeout time.Duration) *interaction.Transport {
	t.Helper()
	config := interaction.DefaultTransportConfig()
	config.RequestTimeout = requestTimeout
	config.Client.ConnectTimeout = time.Second
	tr := interaction.NewTransport(config)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func newReader(t *testing.T, tr readprop.Transport, dir discovery.Directory) *readprop.Reader {
	t.Helper()
	config := readprop.DefaultConfig()
	config.Transport = tr
	config.Directory = dir
	reader, err := readprop.NewReader(config)
	require.NoError(t, err)
	return reader
}

func TestTransportReadBatch(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)

	for _, readMultiple := range []bool{true, false} {
		dev := &discovery.RemoteDevice{ID: 1001, Address: sim.address(), ReadMultiple: readMultiple}
		refs := []model.ObjectPropertyReference{
			{Object: ai1, Ref: model.Ref(model.PropObjectName)},
			{Object: ai1, Ref: model.Ref(model.PropUnits)},
			{Object: ai1, Ref: model.Ref(model.PropLocation)},
			{Object: model.DeviceObject(1001), Ref: model.IndexedRef(model.PropObjectList, 0)},
		}

		items, err := tr.ReadBatch(context.Background(), dev, refs)
		require.NoError(t, err)
		require.Len(t, items, 4)

		assert.Equal(t, refs[0], items[0].Ref)
		assert.Equal(t, model.ValueResult("Supply Temp"), items[0].Result)
		assert.Equal(t, model.ValueResult(int64(62)), items[1].Result)
		assert.ErrorIs(t, items[2].Result.Err,
			&model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeUnknownProperty})
		assert.Equal(t, model.ValueResult(int64(2)), items[3].Result)
	}
	assert.Equal(t, 1, tr.ConnectionCount(), "one connection per address")
}

func TestTransportSilentDeviceTimesOut(t *testing.T) {
	addr := startSilentServer(t)
	tr := newTransport(t, 30*time.Millisecond)

	dev := &discovery.RemoteDevice{ID: 1001, Address: addr, ReadMultiple: true}
	_, err := tr.ReadBatch(context.Background(), dev,
		[]model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropPresentValue)}})
	assert.ErrorIs(t, err, readprop.ErrTransportTimeout)
	assert.ErrorIs(t, err, interaction.ErrRequestTimeout)
}

func TestTransportUnreachableDeviceTimesOut(t *testing.T) {
	tr := newTransport(t, time.Second)

	dev := &discovery.RemoteDevice{ID: 1001, Address: unusedAddress(t), ReadMultiple: true}
	_, err := tr.ReadBatch(context.Background(), dev,
		[]model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropPresentValue)}})
	assert.ErrorIs(t, err, readprop.ErrTransportTimeout)
}

func TestTransportWrongDeviceAtAddress(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)

	dev := &discovery.RemoteDevice{ID: 7777, Address: sim.address(), ReadMultiple: true}
	_, err := tr.ReadBatch(context.Background(), dev,
		[]model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropPresentValue)}})
	assert.ErrorIs(t, err, readprop.ErrTransportTimeout)

	var se *interaction.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.ErrorCodeUnknownDevice, se.Code)
}

func TestTransportReconnects(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)
	dev := &discovery.RemoteDevice{ID: 1002, Address: sim.address(), ReadMultiple: true}
	refs := []model.ObjectPropertyReference{{Object: av4, Ref: model.Ref(model.PropPresentValue)}}

	_, err := tr.ReadBatch(context.Background(), dev, refs)
	require.NoError(t, err)

	tr.Disconnect(sim.address())
	assert.Equal(t, 0, tr.ConnectionCount())

	items, err := tr.ReadBatch(context.Background(), dev, refs)
	require.NoError(t, err)
	assert.Equal(t, model.ValueResult(int64(22)), items[0].Result)
}

func TestTransportClose(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)
	dev := &discovery.RemoteDevice{ID: 1002, Address: sim.address(), ReadMultiple: true}
	refs := []model.ObjectPropertyReference{{Object: av4, Ref: model.Ref(model.PropPresentValue)}}

	_, err := tr.ReadBatch(context.Background(), dev, refs)
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	assert.Equal(t, 0, tr.ConnectionCount())

	_, err = tr.ReadBatch(context.Background(), dev, refs)
	assert.ErrorIs(t, err, interaction.ErrTransportClosed)
	assert.NotErrorIs(t, err, readprop.ErrTransportTimeout)
}

func TestReaderAgainstSimulator(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)
	dir := discovery.NewStaticDirectory(
		&discovery.RemoteDevice{ID: 1001, Address: sim.address(), ReadMultiple: true},
		&discovery.RemoteDevice{ID: 1002, Address: sim.address(), ReadMultiple: false},
	)
	t.Cleanup(dir.Wait)
	reader := newReader(t, tr, dir)

	request := func() *model.PropertyReferenceSet {
		refs := model.NewPropertyReferenceSet()
		refs.AddProperties(1001, ai1, model.PropObjectName, model.PropPresentValue, model.PropDescription)
		refs.AddProperties(1002, av4, model.PropObjectName, model.PropPresentValue)
		return refs
	}

	results := reader.ReadProperties(context.Background(), request(), nil, time.Second)
	require.Equal(t, 5, results.Len())
	pv, err := results.Value(1002, av4, model.PropPresentValue)
	require.NoError(t, err)
	assert.Equal(t, int64(22), pv)
	served := sim.server.RequestCount()

	require.NoError(t, sim.store.SetProperty(1002, av4, model.PropPresentValue, 23))
	require.NoError(t, sim.store.SetProperty(1001, ai1, model.PropObjectName, "renamed"))

	results = reader.ReadProperties(context.Background(), request(), nil, time.Second)
	pv, err = results.Value(1002, av4, model.PropPresentValue)
	require.NoError(t, err)
	assert.Equal(t, int64(23), pv, "present-value is never cached")
	name, err := results.Value(1001, ai1, model.PropObjectName)
	require.NoError(t, err)
	assert.Equal(t, "Supply Temp", name, "object-name is served from the cache")

	// One read-multiple for 1001, one read-property for 1002.
	assert.Equal(t, served+2, sim.server.RequestCount())
}

func TestReaderRediscoversMovedDevice(t *testing.T) {
	sim := startSimulator(t)
	tr := newTransport(t, time.Second)
	dir := discovery.NewStaticDirectory(&discovery.RemoteDevice{ID: 1001, Address: sim.address(), ReadMultiple: true})
	t.Cleanup(dir.Wait)
	reader := newReader(t, tr, dir)

	reader.LearnDevice(&discovery.RemoteDevice{ID: 1001, Address: unusedAddress(t), ReadMultiple: true})

	v, err := reader.ReadProperty(context.Background(), 1001, ai1, model.Ref(model.PropObjectName))
	require.NoError(t, err)
	assert.Equal(t, "Supply Temp", v)

	dev, err := reader.Device(context.Background(), 1001, time.Second)
	require.NoError(t, err)
	assert.Equal(t, sim.address(), dev.Address)
}

func TestReaderSynthesizesTimeoutsForSilentDevice(t *testing.T) {
	tr := newTransport(t, 30*time.Millisecond)
	dir := discovery.NewStaticDirectory(&discovery.RemoteDevice{ID: 1001, Address: startSilentServer(t), ReadMultiple: true})
	t.Cleanup(dir.Wait)
	reader := newReader(t, tr, dir)

	refs := model.NewPropertyReferenceSet()
	refs.AddProperties(1001, ai1, model.PropObjectName, model.PropPresentValue)
	results := reader.ReadProperties(context.Background(), refs, nil, time.Second)

	require.Equal(t, 2, results.Len())
	results.Each(func(_ model.DeviceID, _ model.ObjectIdentifier, _ model.PropertyReference, res model.Result) {
		assert.True(t, model.IsTimeout(res.Err))
	})
}

// eventLog collects captured events.
type eventLog struct {
	mu     sync.Mutex
	events []capture.Event
}

func (l *eventLog) Log(e capture.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) messages() []*capture.MessageEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*capture.MessageEvent
	for _, e := range l.events {
		if e.Message != nil {
			out = append(out, e.Message)
		}
	}
	return out
}

func (l *eventLog) states() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if e.StateChange != nil {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

func TestProtocolCapture(t *testing.T) {
	sim := startSimulator(t)
	deviceLog := &eventLog{}
	sim.server.SetProtocolLogger(deviceLog)

	clientLog := &eventLog{}
	config := interaction.DefaultTransportConfig()
	config.ProtocolLogger = clientLog
	tr := interaction.NewTransport(config)

	dev := &discovery.RemoteDevice{ID: 1001, Address: sim.address(), ReadMultiple: true}
	_, err := tr.ReadBatch(context.Background(), dev,
		[]model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropObjectName)}})
	require.NoError(t, err)

	msgs := clientLog.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, capture.MessageTypeRequest, msgs[0].Type)
	assert.Equal(t, wire.ServiceReadPropertyMultiple, *msgs[0].Service)
	assert.Equal(t, uint32(1001), *msgs[0].Device)
	assert.Equal(t, capture.MessageTypeResponse, msgs[1].Type)
	assert.Equal(t, msgs[0].InvokeID, msgs[1].InvokeID)

	devMsgs := deviceLog.messages()
	require.Len(t, devMsgs, 2)
	assert.Equal(t, capture.MessageTypeRequest, devMsgs[0].Type)
	require.NotNil(t, devMsgs[1].ProcessingTime)

	require.NoError(t, tr.Close())
	assert.Eventually(t, func() bool {
		states := clientLog.states()
		return len(states) == 2 && states[0] == "connected" && states[1] == "closed"
	}, time.Second, 5*time.Millisecond)
}
