package model

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    ObjectIdentifier
		wantErr bool
	}{
		{"analog-input,1", NewObjectIdentifier(ObjectAnalogInput, 1), false},
		{"device:1234", DeviceObject(1234), false},
		{"Binary-Value, 7", NewObjectIdentifier(ObjectBinaryValue, 7), false},
		{"130,5", NewObjectIdentifier(130, 5), false},
		{"analog-input", ObjectIdentifier{}, true},
		{"bogus,1", ObjectIdentifier{}, true},
		{"analog-input,4194304", ObjectIdentifier{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseObjectIdentifier(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectIdentifierString(t *testing.T) {
	assert.Equal(t, "analog-input,3", NewObjectIdentifier(ObjectAnalogInput, 3).String())
	assert.Equal(t, "600,1", NewObjectIdentifier(600, 1).String())
	assert.True(t, NewObjectIdentifier(ObjectAnalogInput, 9).Less(NewObjectIdentifier(ObjectAnalogOutput, 0)))
	assert.True(t, NewObjectIdentifier(ObjectAnalogInput, 1).Less(NewObjectIdentifier(ObjectAnalogInput, 2)))
}

func TestParsePropertyIdentifier(t *testing.T) {
	for _, in := range []string{"object-name", "OBJECT-NAME", "objectName", "77"} {
		p, err := ParsePropertyIdentifier(in)
		require.NoError(t, err, in)
		assert.Equal(t, PropObjectName, p, in)
	}

	_, err := ParsePropertyIdentifier("no-such-property")
	assert.Error(t, err)
}

func TestPropertyIdentifierText(t *testing.T) {
	text, err := PropPresentValue.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "present-value", string(text))

	var p PropertyIdentifier
	require.NoError(t, p.UnmarshalText([]byte("priority-array")))
	assert.Equal(t, PropPriorityArray, p)
	assert.Equal(t, "9999", PropertyIdentifier(9999).String())
}

func TestParseReference(t *testing.T) {
	t.Run("WholeValue", func(t *testing.T) {
		dev, oid, ref, err := ParseReference("1234:analog-input:1:present-value")
		require.NoError(t, err)
		assert.Equal(t, DeviceID(1234), dev)
		assert.Equal(t, NewObjectIdentifier(ObjectAnalogInput, 1), oid)
		assert.Equal(t, Ref(PropPresentValue), ref)
		assert.False(t, ref.HasIndex())
	})

	t.Run("Indexed", func(t *testing.T) {
		_, oid, ref, err := ParseReference("5:device:5:object-list[3]")
		require.NoError(t, err)
		assert.Equal(t, DeviceObject(5), oid)
		assert.Equal(t, IndexedRef(PropObjectList, 3), ref)
		assert.Equal(t, "object-list[3]", ref.String())
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{
			"1234:analog-input:1",
			"x:analog-input:1:present-value",
			"4194304:device:1:object-name",
			"1:device:1:object-list[",
			"1:device:1:object-list[x]",
			"1:device:1:object-list[4294967295]",
		} {
			_, _, _, err := ParseReference(in)
			assert.Error(t, err, in)
		}
	})
}

func TestPropertyReferenceSet(t *testing.T) {
	ai1 := NewObjectIdentifier(ObjectAnalogInput, 1)
	ai2 := NewObjectIdentifier(ObjectAnalogInput, 2)
	dev := DeviceObject(10)

	s := NewPropertyReferenceSet()
	s.AddProperties(10, dev, PropObjectName, PropVendorName)
	s.AddProperties(10, ai2, PropPresentValue)
	s.AddProperties(10, ai1, PropPresentValue, PropUnits, PropPresentValue)
	s.AddProperties(3, ai1, PropObjectName)

	t.Run("Dedupe", func(t *testing.T) {
		assert.Equal(t, 6, s.Len())
		assert.Equal(t, 5, s.DeviceLen(10))
		assert.Equal(t, 0, s.DeviceLen(99))
	})

	t.Run("Order", func(t *testing.T) {
		assert.Equal(t, []DeviceID{3, 10}, s.Devices())
		assert.Equal(t, []ObjectIdentifier{dev, ai2, ai1}, s.Objects(10))

		refs := s.References(10)
		require.Len(t, refs, 5)
		assert.Equal(t, ObjectPropertyReference{Object: dev, Ref: Ref(PropObjectName)}, refs[0])
		assert.Equal(t, ObjectPropertyReference{Object: ai1, Ref: Ref(PropUnits)}, refs[4])
	})

	t.Run("RemoveAndPrune", func(t *testing.T) {
		c := s.Clone()
		assert.True(t, c.Remove(10, ai2, Ref(PropPresentValue)))
		assert.False(t, c.Remove(10, ai2, Ref(PropPresentValue)))
		assert.True(t, c.Remove(3, ai1, Ref(PropObjectName)))

		// Emptied entries stay until pruned.
		assert.Equal(t, []DeviceID{3, 10}, c.Devices())
		c.Prune()
		assert.Equal(t, []DeviceID{10}, c.Devices())
		assert.Equal(t, []ObjectIdentifier{dev, ai1}, c.Objects(10))

		// The original is untouched.
		assert.Equal(t, 6, s.Len())
	})

	t.Run("PropertiesIsACopy", func(t *testing.T) {
		props := s.Properties(10, ai1)
		props[0] = Ref(PropDescription)
		assert.Equal(t, Ref(PropPresentValue), s.Properties(10, ai1)[0])
	})
}

func TestPropertyValueSet(t *testing.T) {
	ai := NewObjectIdentifier(ObjectAnalogInput, 1)
	s := NewPropertyValueSet()

	s.Put(2, ai, Ref(PropUnits), ValueResult(uint32(62)))
	s.Put(1, ai, Ref(PropPresentValue), ValueResult(float32(21.5)))
	s.Put(1, ai, Ref(PropObjectName), ErrorResult(ErrRemoteTimeout))
	s.Put(1, ai, Ref(PropObjectName), ValueResult("Zone Temp"))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.DeviceLen(1))
	assert.Equal(t, []DeviceID{1, 2}, s.Devices())

	v, err := s.Value(1, ai, PropObjectName)
	require.NoError(t, err)
	assert.Equal(t, "Zone Temp", v)

	_, err = s.Value(3, ai, PropObjectName)
	assert.Error(t, err)

	var visited []string
	s.Each(func(device DeviceID, object ObjectIdentifier, ref PropertyReference, r Result) {
		visited = append(visited, fmt.Sprintf("%d/%s", device, ref))
	})
	assert.Equal(t, []string{"1/object-name", "1/present-value", "2/units"}, visited)
}

func TestPropertyValueSetConcurrentPut(t *testing.T) {
	s := NewPropertyValueSet()
	var wg sync.WaitGroup
	for d := 0; d < 8; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Put(DeviceID(d), NewObjectIdentifier(ObjectAnalogValue, uint32(i)), Ref(PropPresentValue), ValueResult(i))
			}
		}(d)
	}
	wg.Wait()
	assert.Equal(t, 400, s.Len())
}

func TestPropertyError(t *testing.T) {
	err := fmt.Errorf("read: %w", &PropertyError{Class: ErrorClassCommunication, Code: ErrorCodeTimeout})
	assert.True(t, IsTimeout(err))
	assert.True(t, errors.Is(err, ErrRemoteTimeout))
	assert.False(t, IsTimeout(&PropertyError{Class: ErrorClassProperty, Code: ErrorCodeUnknownProperty}))
	assert.Equal(t, "property: unknown-property", (&PropertyError{Class: ErrorClassProperty, Code: ErrorCodeUnknownProperty}).Error())

	var pe *PropertyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrorCodeTimeout, pe.Code)
	assert.True(t, ErrorResult(err).IsError())
	assert.False(t, ValueResult(1).IsError())
}

func TestElementAt(t *testing.T) {
	list := []any{"a", "b", "c"}

	v, err := ElementAt(list, NoIndex)
	require.NoError(t, err)
	assert.Equal(t, list, v)

	v, err = ElementAt(list, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = ElementAt([]string{"x", "y"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "y", v)

	_, err = ElementAt(list, 4)
	assert.ErrorIs(t, err, ErrInvalidArrayIndex)

	for _, scalar := range []any{"text", 42, nil, []byte{1, 2}} {
		_, err = ElementAt(scalar, 1)
		assert.ErrorIs(t, err, ErrPropertyNotAList, "%v", scalar)
	}

	assert.Equal(t, ErrorCodePropertyIsNotAnArray, AsPropertyError(ErrPropertyNotAList).Code)
	assert.Equal(t, ErrorCodeInvalidArrayIndex, AsPropertyError(ErrInvalidArrayIndex).Code)
	assert.Same(t, ErrRemoteTimeout, AsPropertyError(ErrRemoteTimeout))
	assert.Equal(t, ErrorClassServices, AsPropertyError(errors.New("x")).Class)
}

func TestCloneValue(t *testing.T) {
	list := []any{"a", []any{int64(1), int64(2)}, map[string]any{"k": []byte{1}}, nil}
	clone := CloneValue(list).([]any)
	require.Equal(t, list, clone)

	clone[0] = "changed"
	clone[1].([]any)[0] = int64(99)
	clone[2].(map[string]any)["k"].([]byte)[0] = 7

	assert.Equal(t, "a", list[0])
	assert.Equal(t, int64(1), list[1].([]any)[0])
	assert.Equal(t, []byte{1}, list[2].(map[string]any)["k"])

	assert.Nil(t, CloneValue(nil))
	assert.Equal(t, 21.5, CloneValue(21.5))
	assert.Equal(t, "text", CloneValue("text"))
	assert.Nil(t, CloneValue([]any(nil)).([]any))
}
