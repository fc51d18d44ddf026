package wire

import (
	"fmt"
	"math"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// NewPropertyRef converts a model reference.
func NewPropertyRef(ref model.PropertyReference) PropertyRef {
	pr := PropertyRef{Property: uint32(ref.Property)}
	if ref.HasIndex() {
		idx := uint32(ref.Index)
		pr.Index = &idx
	}
	return pr
}

// Reference converts back to a model reference.
func (p PropertyRef) Reference() model.PropertyReference {
	if p.Index == nil {
		return model.Ref(model.PropertyIdentifier(p.Property))
	}
	return model.IndexedRef(model.PropertyIdentifier(p.Property), model.ArrayIndex(*p.Index))
}

// Object returns the identifier of the object being read.
func (s ReadAccessSpec) Object() model.ObjectIdentifier {
	return model.NewObjectIdentifier(model.ObjectType(s.ObjectType), s.Instance)
}

// Object returns the result's object identifier.
func (r ReadAccessResult) Object() model.ObjectIdentifier {
	return model.NewObjectIdentifier(model.ObjectType(r.ObjectType), r.Instance)
}

// NewReadMultipleRequest groups refs into access specs. Consecutive
// references to the same object share a spec; request order is kept.
func NewReadMultipleRequest(refs []model.ObjectPropertyReference) *ReadMultipleRequest {
	req := &ReadMultipleRequest{}
	for _, r := range refs {
		n := len(req.Specs)
		if n == 0 || req.Specs[n-1].Object() != r.Object {
			req.Specs = append(req.Specs, ReadAccessSpec{
				ObjectType: uint16(r.Object.Type),
				Instance:   r.Object.Instance,
			})
			n++
		}
		req.Specs[n-1].Properties = append(req.Specs[n-1].Properties, NewPropertyRef(r.Ref))
	}
	return req
}

// References flattens the request in order.
func (r *ReadMultipleRequest) References() []model.ObjectPropertyReference {
	var out []model.ObjectPropertyReference
	for _, spec := range r.Specs {
		oid := spec.Object()
		for _, p := range spec.Properties {
			out = append(out, model.ObjectPropertyReference{Object: oid, Ref: p.Reference()})
		}
	}
	return out
}

// Count returns the number of requested properties.
func (r *ReadMultipleRequest) Count() int {
	n := 0
	for _, spec := range r.Specs {
		n += len(spec.Properties)
	}
	return n
}

// ResultItem builds the answer for one property.
func ResultItem(ref model.PropertyReference, result model.Result) ReadResultItem {
	pr := NewPropertyRef(ref)
	item := ReadResultItem{Property: pr.Property, Index: pr.Index}
	if result.Err != nil {
		item.Error = ErrorFor(result.Err)
		return item
	}
	item.Value = result.Value
	return item
}

// ErrorFor converts an error to its wire form.
func ErrorFor(err error) *PropertyErrorPayload {
	pe := model.AsPropertyError(err)
	return &PropertyErrorPayload{Class: uint16(pe.Class), Code: uint16(pe.Code)}
}

// Result converts the item to a model result.
func (i ReadResultItem) Result() model.Result {
	if i.Error != nil {
		return model.ErrorResult(&model.PropertyError{
			Class: model.ErrorClass(i.Error.Class),
			Code:  model.ErrorCode(i.Error.Code),
		})
	}
	return model.ValueResult(NormalizeValue(i.Value))
}

// Reference returns the model reference the item answers.
func (i ReadResultItem) Reference() model.PropertyReference {
	return PropertyRef{Property: i.Property, Index: i.Index}.Reference()
}

// Add appends an answer for object, starting a new access result when the
// object differs from the previous one.
func (r *ReadMultipleResponse) Add(object model.ObjectIdentifier, ref model.PropertyReference, result model.Result) {
	n := len(r.Results)
	if n == 0 || r.Results[n-1].Object() != object {
		r.Results = append(r.Results, ReadAccessResult{
			ObjectType: uint16(object.Type),
			Instance:   object.Instance,
		})
		n++
	}
	r.Results[n-1].Items = append(r.Results[n-1].Items, ResultItem(ref, result))
}

// Count returns the number of answered properties.
func (r *ReadMultipleResponse) Count() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Items)
	}
	return n
}

// NormalizeValue converts CBOR-decoded values to the types the rest of the
// client works with: integers that fit become int64, nested arrays are
// normalized element by element. Other values are returned unchanged.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}

// ToInt64 converts a decoded numeric value to int64.
func ToInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		return int64(x), nil
	default:
		return 0, fmt.Errorf("value of type %T is not a number", v)
	}
}

// ToUint32 converts a decoded numeric value to uint32.
func ToUint32(v any) (uint32, error) {
	n, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", n)
	}
	return uint32(n), nil
}
