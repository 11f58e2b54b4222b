package types

import (
	"bytes"
	"testing"
)

func TestParseDelegation(t *testing.T) {
	addr := HexToAddress("0x1122334455667788990011223344556677889900")
	code := AddressToDelegation(addr)

	got, ok := ParseDelegation(code)
	if !ok {
		t.Fatal("valid designator rejected")
	}
	if got != addr {
		t.Errorf("parsed %s, want %s", got, addr)
	}

	// The zero address is still a valid designator target.
	if _, ok := ParseDelegation(AddressToDelegation(Address{})); !ok {
		t.Error("zero-address designator rejected")
	}
}

func TestParseDelegationRejectsMalformed(t *testing.T) {
	addr := HexToAddress("0x01")
	valid := AddressToDelegation(addr)

	cases := []struct {
		name string
		code []byte
	}{
		{"empty", nil},
		{"prefix only", DelegationPrefix},
		{"truncated", valid[:len(valid)-1]},
		{"one byte extra", append(append([]byte{}, valid...), 0x00)},
		{"wrong prefix", append([]byte{0xef, 0x01, 0x01}, addr.Bytes()...)},
		{"plain code", bytes.Repeat([]byte{0x60}, 23)},
	}
	for _, tc := range cases {
		if _, ok := ParseDelegation(tc.code); ok {
			t.Errorf("%s: accepted", tc.name)
		}
	}
}

func TestAddressToDelegationLayout(t *testing.T) {
	addr := HexToAddress("0xdeadbeef00000000000000000000000000000001")
	code := AddressToDelegation(addr)

	if len(code) != 23 {
		t.Fatalf("designator length = %d, want 23", len(code))
	}
	if !bytes.Equal(code[:3], []byte{0xef, 0x01, 0x00}) {
		t.Errorf("prefix = %x", code[:3])
	}
	if !bytes.Equal(code[3:], addr.Bytes()) {
		t.Errorf("address part = %x", code[3:])
	}
}

func TestHasDelegationPrefix(t *testing.T) {
	addr := HexToAddress("0x02")
	if !HasDelegationPrefix(AddressToDelegation(addr)) {
		t.Error("designator not recognized")
	}
	// Prefix detection deliberately ignores length.
	if !HasDelegationPrefix(append(AddressToDelegation(addr), 0xff)) {
		t.Error("over-long designator prefix not recognized")
	}
	if HasDelegationPrefix(nil) || HasDelegationPrefix([]byte{0xef, 0x01}) {
		t.Error("short input misrecognized")
	}
	if HasDelegationPrefix([]byte{0x60, 0x01, 0x00}) {
		t.Error("plain code misrecognized")
	}
}

func TestSetCodeConstants(t *testing.T) {
	if AuthMagic != 0x05 {
		t.Errorf("AuthMagic = %#x, want 0x05", AuthMagic)
	}
	if PerAuthBaseCost != 12500 {
		t.Errorf("PerAuthBaseCost = %d", PerAuthBaseCost)
	}
	if PerEmptyAccountCost != 25000 {
		t.Errorf("PerEmptyAccountCost = %d", PerEmptyAccountCost)
	}
}
