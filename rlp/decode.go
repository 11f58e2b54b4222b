package rlp

import (
	"bytes"
	"io"
	"math/big"
	"reflect"
)

// Kind classifies the next item in an RLP stream.
type Kind int

const (
	Byte   Kind = iota // single byte in [0x00, 0x7f]
	String             // RLP string, including the empty string
	List               // RLP list
)

// Decode reads an RLP-encoded value from r into the value pointed to by val.
func Decode(r io.Reader, val interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return DecodeBytes(data, val)
}

// DecodeBytes decodes an RLP-encoded byte slice into the value pointed to
// by val.
func DecodeBytes(b []byte, val interface{}) error {
	return NewStreamFromBytes(b).decodeValue(reflect.ValueOf(val))
}

// Stream is a cursor over RLP-encoded data. List establishes a nested
// reading scope; every accessor respects the innermost open list's bounds.
type Stream struct {
	data []byte
	pos  int
	ends []int // exclusive end offsets of open lists, innermost last
}

// NewStream creates a Stream reading everything from r.
func NewStream(r io.Reader) *Stream {
	data, _ := io.ReadAll(r)
	return NewStreamFromBytes(data)
}

// NewStreamFromBytes creates a Stream over an in-memory encoding.
func NewStreamFromBytes(data []byte) *Stream {
	return &Stream{data: data}
}

// limit is the current read boundary: the end of the innermost open list,
// or the end of the data.
func (s *Stream) limit() int {
	if n := len(s.ends); n > 0 {
		return s.ends[n-1]
	}
	return len(s.data)
}

// header describes the next item without consuming it: its kind, the
// offset where its payload starts, and the payload length. Canonical-form
// violations in the size prefix are rejected here.
func (s *Stream) header() (kind Kind, payloadStart, size int, err error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, 0, 0, io.EOF
	}
	prefix := s.data[s.pos]
	switch {
	case prefix <= 0x7f:
		return Byte, s.pos, 1, nil
	case prefix <= 0xb7:
		return String, s.pos + 1, int(prefix - 0x80), nil
	case prefix <= 0xbf:
		start, size, err := s.longSize(int(prefix - 0xb7))
		return String, start, size, err
	case prefix <= 0xf7:
		return List, s.pos + 1, int(prefix - 0xc0), nil
	default:
		start, size, err := s.longSize(int(prefix - 0xf7))
		return List, start, size, err
	}
}

// longSize reads a multi-byte size prefix of lenOfLen bytes following the
// tag at the current position.
func (s *Stream) longSize(lenOfLen int) (payloadStart, size int, err error) {
	if s.pos+1+lenOfLen > s.limit() {
		return 0, 0, io.ErrUnexpectedEOF
	}
	sizeBytes := s.data[s.pos+1 : s.pos+1+lenOfLen]
	if sizeBytes[0] == 0 {
		return 0, 0, ErrCanonInt
	}
	n := readBigEndian(sizeBytes)
	if n <= 55 {
		return 0, 0, ErrNonCanonicalSize
	}
	return s.pos + 1 + lenOfLen, int(n), nil
}

// Kind reports the type tag and payload size of the next value without
// consuming it.
func (s *Stream) Kind() (Kind, uint64, error) {
	kind, _, size, err := s.header()
	if err != nil {
		return 0, 0, err
	}
	if kind == Byte {
		return Byte, 1, nil
	}
	return kind, uint64(size), nil
}

// readItem consumes the next item and returns its payload. For a single
// byte the payload is the byte itself.
func (s *Stream) readItem() (Kind, []byte, error) {
	kind, start, size, err := s.header()
	if err != nil {
		return 0, nil, err
	}
	end := start + size
	if end > s.limit() {
		return 0, nil, io.ErrUnexpectedEOF
	}
	// A one-byte string below 0x80 must use the single-byte form.
	if kind == String && size == 1 && s.data[start] <= 0x7f {
		return 0, nil, ErrCanonSize
	}
	s.pos = end
	return kind, s.data[start:end], nil
}

// Bytes reads the next value as a string payload.
func (s *Stream) Bytes() ([]byte, error) {
	kind, payload, err := s.readItem()
	if err != nil {
		return nil, err
	}
	if kind == List {
		return nil, ErrExpectedString
	}
	return payload, nil
}

// List enters the next value, which must be a list, and returns its
// payload length. Accessors then read items inside it until ListEnd.
func (s *Stream) List() (uint64, error) {
	kind, start, size, err := s.header()
	if err != nil {
		return 0, err
	}
	if kind != List {
		return 0, ErrExpectedList
	}
	end := start + size
	if end > s.limit() {
		return 0, io.ErrUnexpectedEOF
	}
	s.ends = append(s.ends, end)
	s.pos = start
	return uint64(size), nil
}

// ListEnd leaves the innermost list, verifying it was fully consumed.
func (s *Stream) ListEnd() error {
	if len(s.ends) == 0 {
		return ErrExpectedList
	}
	if s.pos != s.ends[len(s.ends)-1] {
		return ErrEOL
	}
	s.ends = s.ends[:len(s.ends)-1]
	return nil
}

// AtListEnd reports whether the cursor has consumed the innermost open
// list entirely. With no open list it reports end-of-data.
func (s *Stream) AtListEnd() bool {
	return s.pos >= s.limit()
}

// Uint64 reads a canonical unsigned integer.
func (s *Stream) Uint64() (uint64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, ErrUint64Range
	}
	if len(b) > 1 && b[0] == 0 {
		return 0, ErrCanonInt
	}
	return readBigEndian(b), nil
}

// BigInt reads a canonical arbitrary-precision integer.
func (s *Stream) BigInt() (*big.Int, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) > 1 && b[0] == 0 {
		return nil, ErrCanonInt
	}
	return new(big.Int).SetBytes(b), nil
}

func readBigEndian(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// --- reflection-driven decoding ---

var bigIntPtrType = reflect.TypeOf((*big.Int)(nil))

// decodeValue decodes the next value into v, which must be a non-nil
// pointer.
func (s *Stream) decodeValue(v reflect.Value) error {
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrExpectedString
	}
	return s.decodeInto(v.Elem())
}

func (s *Stream) decodeInto(v reflect.Value) error {
	if v.Type() == bigIntType {
		bi, err := s.BigInt()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(*bi))
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		if v.Type() == bigIntPtrType {
			bi, err := s.BigInt()
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(bi))
			return nil
		}
		return s.decodeInto(v.Elem())
	}

	switch v.Kind() {
	case reflect.Bool:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		switch {
		case len(b) == 0:
			v.SetBool(false)
		case len(b) == 1 && b[0] == 0x00:
			v.SetBool(false)
		case len(b) == 1 && b[0] == 0x01:
			v.SetBool(true)
		default:
			return ErrCanonInt
		}
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		u, err := s.Uint64()
		if err != nil {
			return err
		}
		v.SetUint(u)
		return nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		u, err := s.Uint64()
		if err != nil {
			return err
		}
		v.SetInt(int64(u))
		return nil

	case reflect.String:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		v.SetString(string(b))
		return nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.Bytes()
			if err != nil {
				return err
			}
			v.SetBytes(bytes.Clone(b))
			return nil
		}
		return s.decodeSequence(v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.Bytes()
			if err != nil {
				return err
			}
			reflect.Copy(v, reflect.ValueOf(b))
			return nil
		}
		return s.decodeSequence(v)

	case reflect.Struct:
		return s.decodeStruct(v)

	default:
		return ErrExpectedString
	}
}

// decodeSequence fills a slice (growing it as needed) or array from the
// next list.
func (s *Stream) decodeSequence(v reflect.Value) error {
	if _, err := s.List(); err != nil {
		return err
	}
	for i := 0; !s.AtListEnd(); i++ {
		if v.Kind() == reflect.Slice && i >= v.Len() {
			v.Set(reflect.Append(v, reflect.New(v.Type().Elem()).Elem()))
		}
		if i < v.Len() {
			if err := s.decodeInto(v.Index(i)); err != nil {
				return err
			}
		} else {
			// Fixed-size array shorter than the list: skip the rest.
			if _, _, err := s.readItem(); err != nil {
				return err
			}
		}
	}
	return s.ListEnd()
}

// decodeStruct fills exported fields, in declaration order, from the next
// list.
func (s *Stream) decodeStruct(v reflect.Value) error {
	if _, err := s.List(); err != nil {
		return err
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		if err := s.decodeInto(v.Field(i)); err != nil {
			return err
		}
	}
	return s.ListEnd()
}
