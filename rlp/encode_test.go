package rlp

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, val interface{}) []byte {
	t.Helper()
	b, err := EncodeToBytes(val)
	if err != nil {
		t.Fatalf("EncodeToBytes(%v): %v", val, err)
	}
	return b
}

func TestEncodeStrings(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"", []byte{0x80}},
		{"a", []byte{'a'}},
		{"dog", []byte{0x83, 'd', 'o', 'g'}},
	}
	for _, tt := range tests {
		if got := mustEncode(t, tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("encode %q = %x, want %x", tt.in, got, tt.want)
		}
	}

	// 56 bytes crosses into the long-string form.
	long := strings.Repeat("x", 56)
	got := mustEncode(t, long)
	if got[0] != 0xb8 || got[1] != 56 || len(got) != 58 {
		t.Errorf("long string header = %x %x, len %d", got[0], got[1], len(got))
	}
}

func TestEncodeUints(t *testing.T) {
	tests := []struct {
		in   uint64
		want []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{256, []byte{0x82, 0x01, 0x00}},
		{1024, []byte{0x82, 0x04, 0x00}},
		{0xffffff, []byte{0x83, 0xff, 0xff, 0xff}},
		{1 << 40, []byte{0x86, 0x01, 0, 0, 0, 0, 0}},
		{^uint64(0), []byte{0x88, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		if got := mustEncode(t, tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("encode %d = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestEncodeBools(t *testing.T) {
	if got := mustEncode(t, true); !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("encode true = %x", got)
	}
	if got := mustEncode(t, false); !bytes.Equal(got, []byte{0x80}) {
		t.Errorf("encode false = %x", got)
	}
}

func TestEncodeByteValues(t *testing.T) {
	// A single byte below 0x80 encodes as itself; 0x80 and up need a
	// one-byte header.
	if got := mustEncode(t, []byte{0x7f}); !bytes.Equal(got, []byte{0x7f}) {
		t.Errorf("encode 0x7f = %x", got)
	}
	if got := mustEncode(t, []byte{0x80}); !bytes.Equal(got, []byte{0x81, 0x80}) {
		t.Errorf("encode 0x80 = %x", got)
	}
	if got := mustEncode(t, []byte{}); !bytes.Equal(got, []byte{0x80}) {
		t.Errorf("encode empty bytes = %x", got)
	}
	if got := mustEncode(t, [3]byte{1, 2, 3}); !bytes.Equal(got, []byte{0x83, 1, 2, 3}) {
		t.Errorf("encode byte array = %x", got)
	}
}

func TestEncodeBigInts(t *testing.T) {
	tests := []struct {
		in   *big.Int
		want []byte
	}{
		{big.NewInt(0), []byte{0x80}},
		{big.NewInt(15), []byte{0x0f}},
		{big.NewInt(1024), []byte{0x82, 0x04, 0x00}},
	}
	for _, tt := range tests {
		if got := mustEncode(t, tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("encode %v = %x, want %x", tt.in, got, tt.want)
		}
	}

	// A nil *big.Int encodes as the empty string, like any nil pointer.
	var nilInt *big.Int
	if got := mustEncode(t, nilInt); !bytes.Equal(got, []byte{0x80}) {
		t.Errorf("encode nil big.Int = %x", got)
	}
}

func TestEncodeLists(t *testing.T) {
	if got := mustEncode(t, []string{}); !bytes.Equal(got, []byte{0xc0}) {
		t.Errorf("encode empty list = %x", got)
	}

	want := []byte{0xc8, 0x83, 'c', 'a', 't', 0x83, 'd', 'o', 'g'}
	if got := mustEncode(t, []string{"cat", "dog"}); !bytes.Equal(got, want) {
		t.Errorf("encode [cat dog] = %x, want %x", got, want)
	}

	if got := mustEncode(t, [][]string{{}, {}}); !bytes.Equal(got, []byte{0xc2, 0xc0, 0xc0}) {
		t.Errorf("encode [[] []] = %x", got)
	}
}

func TestEncodeStructFields(t *testing.T) {
	type item struct {
		Nonce uint64
		Data  []byte
		note  string // unexported, skipped
	}
	got := mustEncode(t, item{Nonce: 1, Data: []byte{0xaa}, note: "x"})
	if !bytes.Equal(got, []byte{0xc3, 0x01, 0x81, 0xaa}) {
		t.Errorf("encode struct = %x", got)
	}
}

func TestEncodeToWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, "dog"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x83, 'd', 'o', 'g'}) {
		t.Errorf("Encode wrote %x", buf.Bytes())
	}
}

func TestWrapList(t *testing.T) {
	if got := WrapList([]byte{0x01, 0x02}); !bytes.Equal(got, []byte{0xc2, 0x01, 0x02}) {
		t.Errorf("WrapList = %x", got)
	}
	// Long form for payloads over 55 bytes.
	got := WrapList(make([]byte, 60))
	if got[0] != 0xf8 || got[1] != 60 {
		t.Errorf("long WrapList header = %x %x", got[0], got[1])
	}
}
