package model

import (
	"errors"
	"reflect"
)

// ElementAt applies an array index to a property value. NoIndex returns the
// value itself, index 0 returns the length as int64, and index i returns the
// i-th element (1-based). Byte strings are octet strings, not lists.
func ElementAt(value any, index ArrayIndex) (any, error) {
	if index == NoIndex {
		return value, nil
	}

	v := reflect.ValueOf(value)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, ErrPropertyNotAList
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return nil, ErrPropertyNotAList
	}

	if index == 0 {
		return int64(v.Len()), nil
	}
	if uint64(index) > uint64(v.Len()) {
		return nil, ErrInvalidArrayIndex
	}
	return v.Index(int(index) - 1).Interface(), nil
}

// CloneValue returns a deep copy of the slices and maps in a property value.
// Scalars are returned as is.
func CloneValue(value any) any {
	if value == nil {
		return nil
	}
	return cloneValue(reflect.ValueOf(value)).Interface()
}

func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	}
	return v
}

// AsPropertyError maps local lookup errors to the protocol error a device
// reports for them.
func AsPropertyError(err error) *PropertyError {
	var pe *PropertyError
	switch {
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, ErrPropertyNotAList):
		return &PropertyError{Class: ErrorClassProperty, Code: ErrorCodePropertyIsNotAnArray}
	case errors.Is(err, ErrInvalidArrayIndex):
		return &PropertyError{Class: ErrorClassProperty, Code: ErrorCodeInvalidArrayIndex}
	}
	return &PropertyError{Class: ErrorClassServices, Code: ErrorCodeOther}
}
