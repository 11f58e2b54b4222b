package rlp

import (
	"io"
	"math/big"
	"reflect"
)

// bigIntType is cached for the reflection fast path in appendValue.
var bigIntType = reflect.TypeOf(big.Int{})

// Encode writes the RLP encoding of val to w. Supported types are bool,
// unsigned and signed integers, *big.Int, []byte, string, slices, arrays,
// and structs (exported fields in declaration order).
func Encode(w io.Writer, val interface{}) error {
	b, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	return appendValue(nil, reflect.ValueOf(val))
}

// appendValue appends the encoding of v to dst. All encoding funnels
// through here so the canonical-form rules live in one place.
func appendValue(dst []byte, v reflect.Value) ([]byte, error) {
	// Unwrap interfaces and pointers; nil encodes as the empty string.
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return append(dst, 0x80), nil
		}
		v = v.Elem()
	}

	if v.Type() == bigIntType {
		return appendBigInt(dst, v.Addr().Interface().(*big.Int)), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(dst, 0x01), nil
		}
		return append(dst, 0x80), nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return AppendUint64(dst, v.Uint()), nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return AppendUint64(dst, uint64(v.Int())), nil

	case reflect.String:
		return AppendBytes(dst, []byte(v.String())), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return AppendBytes(dst, v.Bytes()), nil
		}
		return appendSequence(dst, v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// [N]byte encodes as a string; copy out since Bytes() needs
			// an addressable slice.
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return AppendBytes(dst, b), nil
		}
		return appendSequence(dst, v)

	case reflect.Struct:
		return appendStruct(dst, v)

	case reflect.Invalid:
		return append(dst, 0x80), nil

	default:
		return nil, ErrValueTooLarge
	}
}

// appendBigInt appends a non-negative big integer in its minimal
// big-endian form; zero is the empty string.
func appendBigInt(dst []byte, i *big.Int) []byte {
	if i.Sign() == 0 {
		return append(dst, 0x80)
	}
	return AppendBytes(dst, i.Bytes())
}

// appendSequence encodes a slice or array of non-byte elements as a list.
func appendSequence(dst []byte, v reflect.Value) ([]byte, error) {
	var payload []byte
	var err error
	for i := 0; i < v.Len(); i++ {
		if payload, err = appendValue(payload, v.Index(i)); err != nil {
			return nil, err
		}
	}
	dst = AppendListHeader(dst, len(payload))
	return append(dst, payload...), nil
}

// appendStruct encodes a struct's exported fields, in order, as a list.
func appendStruct(dst []byte, v reflect.Value) ([]byte, error) {
	var payload []byte
	var err error
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		if payload, err = appendValue(payload, v.Field(i)); err != nil {
			return nil, err
		}
	}
	dst = AppendListHeader(dst, len(payload))
	return append(dst, payload...), nil
}

// WrapList wraps an already-encoded RLP payload in a list header.
func WrapList(payload []byte) []byte {
	return append(AppendListHeader(make([]byte, 0, len(payload)+9), len(payload)), payload...)
}
