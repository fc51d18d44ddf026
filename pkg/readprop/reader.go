package readprop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/bacstack/bacnet-go/pkg/cache"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
)

// ValueKey identifies a cached whole property value. Array elements are
// served from the whole value; they are never cached on their own.
type ValueKey struct {
	Device   model.DeviceID
	Object   model.ObjectIdentifier
	Property model.PropertyIdentifier
}

// Reader reads remote properties through the value and device caches.
// It is safe for concurrent use.
type Reader struct {
	config Config

	values  *cache.RemoteEntityCache[ValueKey, any]
	devices *cache.RemoteEntityCache[model.DeviceID, *discovery.RemoteDevice]
	workers *semaphore.Weighted

	mu        sync.Mutex
	listener  discovery.ListenerID
	listening bool
}

// NewReader creates a Reader.
func NewReader(config Config) (*Reader, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return &Reader{
		config:  config,
		values:  cache.NewRemoteEntityCache[ValueKey, any](config.Clock),
		devices: cache.NewRemoteEntityCache[model.DeviceID, *discovery.RemoteDevice](config.Clock),
		workers: semaphore.NewWeighted(int64(config.MaxConcurrentDevices)),
	}, nil
}

// Policies returns the policies the reader caches under.
func (r *Reader) Policies() *cache.Policies {
	return r.config.Policies
}

// Finder returns the finder used to locate unknown devices.
func (r *Reader) Finder() *discovery.Finder {
	return r.config.Finder
}

// ReadProperties resolves every reference in refs and returns the values and
// per-property errors it obtained.
//
// refs is consumed: references answered from the cache are removed and
// emptied objects and devices pruned, so on return refs holds what was sent
// to devices. The result may hold fewer entries than requested when a device
// failed with something other than a timeout. discoveryTimeout <= 0 uses the
// configured default. Cancelling ctx stops pending discoveries and device
// tasks that have not started; it does not interrupt a batch read in flight.
func (r *Reader) ReadProperties(ctx context.Context, refs *model.PropertyReferenceSet, progress ProgressFunc, discoveryTimeout time.Duration) *model.PropertyValueSet {
	if discoveryTimeout <= 0 {
		discoveryTimeout = r.config.DefaultDiscoveryTimeout
	}

	b := &batch{
		total:    refs.Len(),
		progress: progress,
		results:  model.NewPropertyValueSet(),
	}

	r.resolveCached(refs, b)
	refs.Prune()

	var wg conc.WaitGroup
	for _, device := range refs.Devices() {
		task := newDeviceTask(r, device, refs.References(device), b)
		wg.Go(func() {
			defer task.settle()
			task.run(ctx, discoveryTimeout)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		r.errorLog("device task panicked", "error", recovered.AsError())
	}

	r.debugLog("batch read complete",
		"requested", b.total,
		"resolved", b.results.Len(),
		"devices", len(refs.Devices()))
	return b.results
}

// ReadProperty reads a single property through ReadProperties.
func (r *Reader) ReadProperty(ctx context.Context, device model.DeviceID, object model.ObjectIdentifier, ref model.PropertyReference) (any, error) {
	refs := model.NewPropertyReferenceSet()
	refs.Add(device, object, ref)

	results := r.ReadProperties(ctx, refs, nil, 0)
	res, ok := results.Get(device, object, ref)
	if !ok {
		return nil, &model.PropertyError{Class: model.ErrorClassCommunication, Code: model.ErrorCodeOther}
	}
	return res.Value, res.Err
}

// CachedValue returns a copy of the cached value for ref without any remote
// access.
func (r *Reader) CachedValue(device model.DeviceID, object model.ObjectIdentifier, ref model.PropertyReference) (any, bool) {
	whole, ok := r.values.Get(ValueKey{Device: device, Object: object, Property: ref.Property})
	if !ok {
		return nil, false
	}
	v, err := model.ElementAt(whole, ref.Index)
	if err != nil {
		// Leave the reference to the device; it reports the authoritative error.
		r.debugLog("cached value not indexable",
			"deviceID", device,
			"object", object.String(),
			"ref", ref.String(),
			"error", err)
		return nil, false
	}
	return model.CloneValue(v), true
}

// CachedValueCount returns the number of cached property values, including
// expired ones not yet evicted.
func (r *Reader) CachedValueCount() int {
	return r.values.Len()
}

// Reset drops every cached value and device handle.
func (r *Reader) Reset() {
	r.values.Clear()
	r.devices.Clear()
	r.debugLog("caches cleared")
}

// resolveCached is phase 1: answer what the cache can, removing it from refs.
func (r *Reader) resolveCached(refs *model.PropertyReferenceSet, b *batch) {
	for _, device := range refs.Devices() {
		for _, object := range refs.Objects(device) {
			for _, ref := range refs.Properties(device, object) {
				v, ok := r.CachedValue(device, object, ref)
				if !ok {
					continue
				}
				refs.Remove(device, object, ref)
				b.results.Put(device, object, ref, model.ValueResult(v))
				b.advance(1)
			}
		}
	}
}

// storeValue caches a whole-value success under its property policy.
func (r *Reader) storeValue(device model.DeviceID, item BatchItem) {
	if item.Result.IsError() || item.Ref.Ref.HasIndex() {
		return
	}
	policy := r.config.Policies.PropertyPolicyOrDefault(device, item.Ref.Object, item.Ref.Ref.Property)
	if policy == cache.NeverCache {
		return
	}
	key := ValueKey{Device: device, Object: item.Ref.Object, Property: item.Ref.Ref.Property}
	r.values.Put(key, model.CloneValue(item.Result.Value), policy)
}

func (r *Reader) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}

func (r *Reader) warnLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Warn(msg, args...)
	}
}

func (r *Reader) errorLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Error(msg, args...)
	}
}

// batch is the state shared by the phases of one ReadProperties call.
type batch struct {
	total     int
	completed atomic.Int64
	progress  ProgressFunc
	results   *model.PropertyValueSet

	// progressMu orders callbacks so reported counts never go backwards.
	progressMu sync.Mutex
}

func (b *batch) advance(n int) {
	if n <= 0 {
		return
	}
	b.progressMu.Lock()
	defer b.progressMu.Unlock()
	done := b.completed.Add(int64(n))
	if b.progress != nil {
		b.progress(int(done), b.total)
	}
}

// deviceTask is phase 2 for one device.
type deviceTask struct {
	r      *Reader
	device model.DeviceID
	refs   []model.ObjectPropertyReference
	batch  *batch

	// pending holds the references not yet counted towards progress.
	pending map[model.ObjectPropertyReference]struct{}
}

func newDeviceTask(r *Reader, device model.DeviceID, refs []model.ObjectPropertyReference, b *batch) *deviceTask {
	pending := make(map[model.ObjectPropertyReference]struct{}, len(refs))
	for _, ref := range refs {
		pending[ref] = struct{}{}
	}
	return &deviceTask{r: r, device: device, refs: refs, batch: b, pending: pending}
}

func (t *deviceTask) run(ctx context.Context, discoveryTimeout time.Duration) {
	r := t.r
	if err := r.workers.Acquire(ctx, 1); err != nil {
		r.warnLog("device read not started", "deviceID", t.device, "error", err)
		return
	}
	defer r.workers.Release(1)

	dev, cached := r.devices.Get(t.device)
	if !cached {
		var err error
		if dev, err = r.discover(ctx, t.device, discoveryTimeout); err != nil {
			t.fail(err)
			return
		}
	}

	err := t.read(ctx, dev)
	if err != nil && cached && errors.Is(err, ErrTransportTimeout) {
		r.devices.Remove(t.device)
		r.debugLog("cached device handle timed out, rediscovering",
			"deviceID", t.device,
			"address", dev.Address)
		if dev, err = r.discover(ctx, t.device, discoveryTimeout); err != nil {
			t.fail(err)
			return
		}
		err = t.read(ctx, dev)
	}
	if err != nil {
		t.fail(err)
	}
}

func (t *deviceTask) read(ctx context.Context, dev *discovery.RemoteDevice) error {
	items, err := t.r.config.Transport.ReadBatch(context.WithoutCancel(ctx), dev, t.refs)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, ok := t.pending[item.Ref]; !ok {
			continue
		}
		t.r.storeValue(t.device, item)
		t.resolve(item.Ref, item.Result)
	}
	return nil
}

// fail records the outcome of a device that could not be read. Timeouts turn
// into a timeout error per pending reference; anything else leaves the
// references out of the result.
func (t *deviceTask) fail(err error) {
	if errors.Is(err, ErrTransportTimeout) || errors.Is(err, discovery.ErrDiscoveryTimeout) {
		t.r.debugLog("device timed out", "deviceID", t.device, "pending", len(t.pending), "error", err)
		for _, ref := range t.refs {
			if _, ok := t.pending[ref]; ok {
				t.resolve(ref, model.ErrorResult(model.ErrRemoteTimeout))
			}
		}
		return
	}
	t.r.warnLog("device read failed", "deviceID", t.device, "pending", len(t.pending), "error", err)
}

func (t *deviceTask) resolve(ref model.ObjectPropertyReference, result model.Result) {
	delete(t.pending, ref)
	t.batch.results.Put(t.device, ref.Object, ref.Ref, result)
	t.batch.advance(1)
}

// settle counts whatever is still pending once the task ends, including
// when it panics.
func (t *deviceTask) settle() {
	t.batch.advance(len(t.pending))
	clear(t.pending)
}
