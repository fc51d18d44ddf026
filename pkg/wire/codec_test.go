package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacstack/bacnet-go/pkg/model"
)

var (
	ai1 = model.NewObjectIdentifier(model.ObjectAnalogInput, 1)
	dev = model.DeviceObject(1200)
)

func TestReadMultipleRequestRoundTrip(t *testing.T) {
	refs := []model.ObjectPropertyReference{
		{Object: dev, Ref: model.Ref(model.PropObjectName)},
		{Object: dev, Ref: model.IndexedRef(model.PropObjectList, 2)},
		{Object: ai1, Ref: model.Ref(model.PropPresentValue)},
		{Object: dev, Ref: model.Ref(model.PropVendorName)},
	}

	payload := NewReadMultipleRequest(refs)
	require.Len(t, payload.Specs, 3, "only consecutive references share a spec")
	assert.Equal(t, 4, payload.Count())

	req, err := NewRequest(7, ServiceReadPropertyMultiple, 1200, payload)
	require.NoError(t, err)

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	id, err := PeekInvokeID(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), id)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, ServiceReadPropertyMultiple, decoded.Service)
	assert.Equal(t, uint32(1200), decoded.Device)

	var got ReadMultipleRequest
	require.NoError(t, DecodePayload(decoded.Payload, &got))
	assert.Equal(t, refs, got.References())
}

func TestReadMultipleResponseRoundTrip(t *testing.T) {
	var payload ReadMultipleResponse
	payload.Add(dev, model.Ref(model.PropObjectName), model.ValueResult("AHU-1"))
	payload.Add(dev, model.IndexedRef(model.PropObjectList, 9), model.ErrorResult(model.ErrInvalidArrayIndex))
	payload.Add(ai1, model.Ref(model.PropPresentValue), model.ValueResult(21.5))
	payload.Add(ai1, model.Ref(model.PropStateText), model.ValueResult([]any{"off", "on"}))
	payload.Add(ai1, model.Ref(model.PropUnits), model.ValueResult(int64(62)))
	assert.Equal(t, 5, payload.Count())

	resp, err := NewResponse(7, StatusSuccess, &payload)
	require.NoError(t, err)
	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.True(t, decoded.IsSuccess())

	var got ReadMultipleResponse
	require.NoError(t, DecodePayload(decoded.Payload, &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, dev, got.Results[0].Object())

	items := got.Results[0].Items
	assert.Equal(t, model.ValueResult("AHU-1"), items[0].Result())
	assert.Equal(t, model.IndexedRef(model.PropObjectList, 9), items[1].Reference())
	assert.Equal(t, model.ErrorResult(&model.PropertyError{
		Class: model.ErrorClassProperty,
		Code:  model.ErrorCodeInvalidArrayIndex,
	}), items[1].Result())

	items = got.Results[1].Items
	assert.Equal(t, model.ValueResult(21.5), items[0].Result())
	assert.Equal(t, model.ValueResult([]any{"off", "on"}), items[1].Result())
	assert.Equal(t, model.ValueResult(int64(62)), items[2].Result())
}

func TestRequestValidate(t *testing.T) {
	_, err := EncodeRequest(&Request{InvokeID: 0, Service: ServiceReadPropertyMultiple})
	assert.Error(t, err)

	_, err = EncodeRequest(&Request{InvokeID: 1, Service: Service(99)})
	assert.Error(t, err)

	data, err := Marshal(&Request{InvokeID: 0, Service: ServiceReadProperty})
	require.NoError(t, err)
	_, err = DecodeRequest(data)
	assert.Error(t, err)

	_, err = DecodeResponse([]byte{0xff})
	assert.Error(t, err)

	assert.Error(t, DecodePayload(nil, &ReadMultipleRequest{}))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, int64(5), NormalizeValue(uint64(5)))
	assert.Equal(t, uint64(1<<63), NormalizeValue(uint64(1<<63)))
	assert.Equal(t, []any{int64(1), "x", []any{int64(2)}}, NormalizeValue([]any{uint64(1), "x", []any{uint64(2)}}))
	assert.Equal(t, "x", NormalizeValue("x"))
}

func TestNumberConversions(t *testing.T) {
	n, err := ToUint32(uint64(47808))
	require.NoError(t, err)
	assert.Equal(t, uint32(47808), n)

	n, err = ToUint32(float64(3))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)

	_, err = ToUint32(int64(-1))
	assert.Error(t, err)
	_, err = ToUint32(uint64(1 << 40))
	assert.Error(t, err)
	_, err = ToInt64(2.5)
	assert.Error(t, err)
	_, err = ToInt64("7")
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "UNKNOWN_DEVICE", StatusUnknownDevice.String())
	assert.True(t, StatusTimeout.IsError())
	assert.Equal(t, "ReadPropertyMultiple", ServiceReadPropertyMultiple.String())
}
