package readprop

import (
	"context"
	"errors"

	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
)

// ErrTransportTimeout marks a batch read that got no answer from the device.
// Transports wrap it; match it with errors.Is.
var ErrTransportTimeout = errors.New("remote device did not respond")

// BatchItem is the answer for one reference of a batch: a value or a
// per-property error.
type BatchItem struct {
	Ref    model.ObjectPropertyReference
	Result model.Result
}

// Transport sends one multi-property read to a device.
//
// ReadBatch returns one item per answered reference, in request order. A
// wholesale failure is an error: ErrTransportTimeout when the device did not
// answer, anything else for communication failures.
type Transport interface {
	ReadBatch(ctx context.Context, dev *discovery.RemoteDevice, refs []model.ObjectPropertyReference) ([]BatchItem, error)
}

// ProgressFunc receives the number of resolved references and the fixed total.
// It may be called concurrently from device tasks; calls are serialized and
// completed never decreases.
type ProgressFunc func(completed, total int)
