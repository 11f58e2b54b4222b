package types

import "bytes"

// EIP-7702 set-code constants.
const (
	// AuthMagic prefixes the authorization signing hash:
	// keccak256(0x05 ‖ rlp([chain_id, address, nonce])).
	AuthMagic byte = 0x05

	// PerAuthBaseCost is charged per authorization-list entry.
	PerAuthBaseCost uint64 = 12500

	// PerEmptyAccountCost is charged additionally when an authorization
	// targets an account that does not exist yet.
	PerEmptyAccountCost uint64 = 25000
)

// DelegationPrefix marks an account's code as an EIP-7702 delegation
// designator rather than executable bytecode.
var DelegationPrefix = []byte{0xef, 0x01, 0x00}

// ParseDelegation extracts the delegate address from designator code.
// Only an exact 23-byte 0xef0100 ‖ address form qualifies.
func ParseDelegation(b []byte) (Address, bool) {
	if len(b) != len(DelegationPrefix)+AddressLength {
		return Address{}, false
	}
	if !bytes.HasPrefix(b, DelegationPrefix) {
		return Address{}, false
	}
	return BytesToAddress(b[len(DelegationPrefix):]), true
}

// AddressToDelegation builds designator code for addr.
func AddressToDelegation(addr Address) []byte {
	code := make([]byte, len(DelegationPrefix)+AddressLength)
	copy(code, DelegationPrefix)
	copy(code[len(DelegationPrefix):], addr[:])
	return code
}

// HasDelegationPrefix reports whether code starts with the designator
// prefix, regardless of total length.
func HasDelegationPrefix(code []byte) bool {
	return bytes.HasPrefix(code, DelegationPrefix)
}
