package interaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

const testDatabase = `
devices:
  - instance: 1001
    name: AHU-1
    vendor-id: 260
    objects:
      - object: analog-input,1
        properties:
          object-name: Supply Temp
          present-value: 21.5
          units: 62
          state-text: [low, normal, high]
      - object: binary-value:3
        properties:
          present-value: 1
  - instance: 1002
    name: VAV-2
    read-multiple: false
`

var (
	ai1 = model.NewObjectIdentifier(model.ObjectAnalogInput, 1)
	bv3 = model.NewObjectIdentifier(model.ObjectBinaryValue, 3)
)

func createTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := ReadMemoryStore(strings.NewReader(testDatabase))
	if err != nil {
		t.Fatalf("ReadMemoryStore failed: %v", err)
	}
	return store
}

// loopback delivers requests straight to a Server and feeds the responses
// back to the Client.
type loopback struct {
	server *Server
	client *Client

	mu      sync.Mutex
	dropped bool
	sent    int
}

func (l *loopback) Send(data []byte) error {
	l.mu.Lock()
	l.sent++
	dropped := l.dropped
	l.mu.Unlock()
	if dropped {
		return nil
	}

	resp, err := l.server.HandleFrame(context.Background(), data)
	if err != nil {
		return err
	}
	go func() { _ = l.client.HandleFrame(resp) }()
	return nil
}

func newLoopbackClient(t *testing.T) (*Client, *loopback) {
	t.Helper()
	lb := &loopback{server: NewServer(createTestStore(t))}
	lb.client = NewClient(lb)
	lb.client.SetTimeout(time.Second)
	return lb.client, lb
}

func TestMemoryStoreRead(t *testing.T) {
	store := createTestStore(t)

	tests := []struct {
		name    string
		device  model.DeviceID
		object  model.ObjectIdentifier
		ref     model.PropertyReference
		want    any
		wantErr *model.PropertyError
	}{
		{"float", 1001, ai1, model.Ref(model.PropPresentValue), 21.5, nil},
		{"integer", 1001, ai1, model.Ref(model.PropUnits), int64(62), nil},
		{"element", 1001, ai1, model.IndexedRef(model.PropStateText, 2), "normal", nil},
		{"length", 1001, ai1, model.IndexedRef(model.PropStateText, 0), int64(3), nil},
		{"device name", 1001, model.DeviceObject(1001), model.Ref(model.PropObjectName), "AHU-1", nil},
		{"vendor", 1001, model.DeviceObject(1001), model.Ref(model.PropVendorIdentifier), int64(260), nil},
		{"default name", 1001, bv3, model.Ref(model.PropObjectName), bv3.String(), nil},
		{"object identifier", 1001, bv3, model.Ref(model.PropObjectIdentifier), bv3.String(), nil},
		{"object list entry", 1001, model.DeviceObject(1001), model.IndexedRef(model.PropObjectList, 2), ai1.String(), nil},
		{"object list length", 1001, model.DeviceObject(1001), model.IndexedRef(model.PropObjectList, 0), int64(3), nil},
		{"unknown device", 99, ai1, model.Ref(model.PropPresentValue), nil,
			&model.PropertyError{Class: model.ErrorClassDevice, Code: model.ErrorCodeUnknownDevice}},
		{"unknown object", 1001, model.NewObjectIdentifier(model.ObjectAnalogInput, 9), model.Ref(model.PropPresentValue), nil,
			&model.PropertyError{Class: model.ErrorClassObject, Code: model.ErrorCodeUnknownObject}},
		{"unknown property", 1001, ai1, model.Ref(model.PropDescription), nil,
			&model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeUnknownProperty}},
		{"not an array", 1001, ai1, model.IndexedRef(model.PropObjectName, 1), nil,
			&model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodePropertyIsNotAnArray}},
		{"index past end", 1001, ai1, model.IndexedRef(model.PropStateText, 4), nil,
			&model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeInvalidArrayIndex}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ReadProperty(tt.device, tt.object, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestMemoryStoreDevices(t *testing.T) {
	store := createTestStore(t)

	devices := store.Devices()
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Instance != 1001 || devices[1].Instance != 1002 {
		t.Errorf("unexpected order: %d, %d", devices[0].Instance, devices[1].Instance)
	}
	if devices[1].ReadMultiple == nil || *devices[1].ReadMultiple {
		t.Error("expected read-multiple: false on device 1002")
	}
	if !store.HasDevice(1002) || store.HasDevice(1003) {
		t.Error("HasDevice mismatch")
	}

	objects := store.Objects(1001)
	want := []model.ObjectIdentifier{model.DeviceObject(1001), ai1, bv3}
	if len(objects) != len(want) {
		t.Fatalf("expected %d objects, got %v", len(want), objects)
	}
	for i := range want {
		if objects[i] != want[i] {
			t.Errorf("object %d: expected %s, got %s", i, want[i], objects[i])
		}
	}
	if store.Objects(1003) != nil {
		t.Error("expected no objects for unknown device")
	}
}

func TestMemoryStoreSetProperty(t *testing.T) {
	store := createTestStore(t)

	if err := store.SetProperty(1001, ai1, model.PropPresentValue, 22); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	got, err := store.ReadProperty(1001, ai1, model.Ref(model.PropPresentValue))
	if err != nil {
		t.Fatalf("ReadProperty failed: %v", err)
	}
	if got != int64(22) {
		t.Errorf("expected 22, got %v (%T)", got, got)
	}

	err = store.SetProperty(1001, model.NewObjectIdentifier(model.ObjectAnalogInput, 9), model.PropPresentValue, 1)
	if !errors.Is(err, &model.PropertyError{Class: model.ErrorClassObject, Code: model.ErrorCodeUnknownObject}) {
		t.Errorf("expected unknown object, got %v", err)
	}
}

func TestReadMemoryStoreErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad object", "devices:\n  - instance: 1\n    objects:\n      - object: nonsense\n"},
		{"bad property", "devices:\n  - instance: 1\n    objects:\n      - object: analog-input,1\n        properties:\n          no-such-property: 1\n"},
		{"instance range", "devices:\n  - instance: 4194304\n"},
		{"syntax", "devices: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMemoryStore(strings.NewReader(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}

	store, err := ReadMemoryStore(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty database: %v", err)
	}
	if len(store.Devices()) != 0 {
		t.Error("expected no devices")
	}
}

func TestServerReadMultiple(t *testing.T) {
	server := NewServer(createTestStore(t))

	refs := []model.ObjectPropertyReference{
		{Object: ai1, Ref: model.Ref(model.PropPresentValue)},
		{Object: ai1, Ref: model.Ref(model.PropDescription)},
		{Object: bv3, Ref: model.Ref(model.PropPresentValue)},
	}
	req, err := wire.NewRequest(7, wire.ServiceReadPropertyMultiple, 1001, wire.NewReadMultipleRequest(refs))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}

	resp := server.HandleRequest(context.Background(), req)
	if resp.InvokeID != 7 {
		t.Errorf("expected invokeId 7, got %d", resp.InvokeID)
	}
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %s", resp.Status)
	}

	var rpm wire.ReadMultipleResponse
	if err := wire.DecodePayload(resp.Payload, &rpm); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rpm.Count() != 3 {
		t.Fatalf("expected 3 answers, got %d", rpm.Count())
	}
	if len(rpm.Results) != 2 {
		t.Errorf("expected 2 access results, got %d", len(rpm.Results))
	}

	first := rpm.Results[0].Items[0].Result()
	if first.Value != 21.5 {
		t.Errorf("expected 21.5, got %v", first.Value)
	}
	missing := rpm.Results[0].Items[1].Result()
	if !errors.Is(missing.Err, &model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeUnknownProperty}) {
		t.Errorf("expected unknown-property, got %v", missing.Err)
	}
	if server.RequestCount() != 1 {
		t.Errorf("expected 1 request, got %d", server.RequestCount())
	}
}

func TestServerErrors(t *testing.T) {
	server := NewServer(createTestStore(t))
	ctx := context.Background()

	t.Run("UnknownDevice", func(t *testing.T) {
		req, _ := wire.NewRequest(1, wire.ServiceReadPropertyMultiple, 55,
			wire.NewReadMultipleRequest([]model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropPresentValue)}}))
		resp := server.HandleRequest(ctx, req)
		if resp.Status != wire.StatusUnknownDevice {
			t.Errorf("expected unknown-device, got %s", resp.Status)
		}
	})

	t.Run("EmptyReadMultiple", func(t *testing.T) {
		req, _ := wire.NewRequest(2, wire.ServiceReadPropertyMultiple, 1001, &wire.ReadMultipleRequest{})
		resp := server.HandleRequest(ctx, req)
		if resp.Status != wire.StatusReject {
			t.Errorf("expected reject, got %s", resp.Status)
		}
	})

	t.Run("ReadPropertyNeedsOneProperty", func(t *testing.T) {
		spec := wire.ReadAccessSpec{
			ObjectType: uint16(ai1.Type),
			Instance:   ai1.Instance,
			Properties: []wire.PropertyRef{
				wire.NewPropertyRef(model.Ref(model.PropPresentValue)),
				wire.NewPropertyRef(model.Ref(model.PropUnits)),
			},
		}
		req, _ := wire.NewRequest(3, wire.ServiceReadProperty, 1001, spec)
		resp := server.HandleRequest(ctx, req)
		if resp.Status != wire.StatusReject {
			t.Errorf("expected reject, got %s", resp.Status)
		}
	})

	t.Run("MalformedFrame", func(t *testing.T) {
		data, err := wire.Marshal(map[int]any{1: 9, 2: 99, 3: 1001})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		out, err := server.HandleFrame(ctx, data)
		if err != nil {
			t.Fatalf("expected a reject response, got error %v", err)
		}
		resp, err := wire.DecodeResponse(out)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if resp.InvokeID != 9 || resp.Status != wire.StatusReject {
			t.Errorf("expected reject for invoke 9, got %d/%s", resp.InvokeID, resp.Status)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := server.HandleFrame(ctx, []byte{0xff, 0x00}); err == nil {
			t.Error("expected error for undecodable frame")
		}
	})
}

func TestClientReadMultiple(t *testing.T) {
	client, _ := newLoopbackClient(t)

	refs := []model.ObjectPropertyReference{
		{Object: ai1, Ref: model.Ref(model.PropObjectName)},
		{Object: ai1, Ref: model.IndexedRef(model.PropStateText, 3)},
	}
	resp, err := client.ReadMultiple(context.Background(), 1001, refs)
	if err != nil {
		t.Fatalf("ReadMultiple failed: %v", err)
	}
	if resp.Count() != 2 {
		t.Fatalf("expected 2 answers, got %d", resp.Count())
	}
	items := resp.Results[0].Items
	if got := items[0].Result().Value; got != "Supply Temp" {
		t.Errorf("expected Supply Temp, got %v", got)
	}
	if got := items[1].Reference(); got != model.IndexedRef(model.PropStateText, 3) {
		t.Errorf("expected state-text[3], got %s", got)
	}
	if got := items[1].Result().Value; got != "high" {
		t.Errorf("expected high, got %v", got)
	}
	if client.PendingCount() != 0 {
		t.Errorf("expected no pending requests, got %d", client.PendingCount())
	}
}

func TestClientReadProperty(t *testing.T) {
	client, _ := newLoopbackClient(t)
	ctx := context.Background()

	res, err := client.ReadProperty(ctx, 1001, ai1, model.Ref(model.PropUnits))
	if err != nil {
		t.Fatalf("ReadProperty failed: %v", err)
	}
	if res.Value != int64(62) {
		t.Errorf("expected 62, got %v (%T)", res.Value, res.Value)
	}

	res, err = client.ReadProperty(ctx, 1001, ai1, model.Ref(model.PropLocation))
	if err != nil {
		t.Fatalf("property errors are results, got %v", err)
	}
	if !errors.Is(res.Err, &model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeUnknownProperty}) {
		t.Errorf("expected unknown-property, got %v", res.Err)
	}

	_, err = client.ReadProperty(ctx, 4242, ai1, model.Ref(model.PropUnits))
	var se *StatusError
	if !errors.As(err, &se) || se.Status != wire.StatusUnknownDevice {
		t.Errorf("expected unknown-device status error, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	client, lb := newLoopbackClient(t)
	lb.dropped = true
	client.SetTimeout(20 * time.Millisecond)

	_, err := client.ReadProperty(context.Background(), 1001, ai1, model.Ref(model.PropUnits))
	if !errors.Is(err, ErrRequestTimeout) {
		t.Errorf("expected ErrRequestTimeout, got %v", err)
	}
	if client.PendingCount() != 0 {
		t.Errorf("timed out request still pending")
	}
}

func TestClientContextCancel(t *testing.T) {
	client, lb := newLoopbackClient(t)
	lb.dropped = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.ReadMultiple(ctx, 1001, []model.ObjectPropertyReference{{Object: ai1, Ref: model.Ref(model.PropUnits)}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClientClose(t *testing.T) {
	client, lb := newLoopbackClient(t)
	lb.dropped = true

	errCh := make(chan error, 1)
	go func() {
		_, err := client.ReadProperty(context.Background(), 1001, ai1, model.Ref(model.PropUnits))
		errCh <- err
	}()

	deadline := time.Now().Add(time.Second)
	for client.PendingCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = client.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClientClosed) {
			t.Errorf("expected ErrClientClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("request did not fail on Close")
	}

	if _, err := client.ReadProperty(context.Background(), 1001, ai1, model.Ref(model.PropUnits)); !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed after close, got %v", err)
	}
}

func TestClientUnexpectedReply(t *testing.T) {
	client, _ := newLoopbackClient(t)

	resp, _ := wire.NewResponse(12345, wire.StatusSuccess, nil)
	if err := client.HandleResponse(resp); !errors.Is(err, ErrUnexpectedReply) {
		t.Errorf("expected ErrUnexpectedReply, got %v", err)
	}
}

func TestInvokeIDsSkipZero(t *testing.T) {
	client := NewClient(&loopback{})
	client.nextID.Store(^uint32(0) - 1)

	ids := []uint32{client.nextInvokeID(), client.nextInvokeID(), client.nextInvokeID()}
	want := []uint32{^uint32(0), 1, 2}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id %d: expected %d, got %d", i, want[i], ids[i])
		}
	}
}
