// Package types defines the core Ethereum data structures shared across
// the execution engine: fixed-width identifiers, accounts, logs, receipts,
// and transactions.
package types

import (
	"encoding/hex"
	"math/big"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
	NonceLength   = 8
)

// Hash is a 32-byte Keccak256 digest.
type Hash [HashLength]byte

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// Bloom is a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// BlockNonce is the 8-byte PoW nonce, always zero post-merge.
type BlockNonce [NonceLength]byte

// BytesToHash converts bytes to a Hash. Input longer than 32 bytes keeps
// its trailing bytes; shorter input is left-padded with zeros.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash parses a hex string (with or without 0x) into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex form.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// SetBytes assigns b, cropping from the left or zero-padding as needed.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero reports whether every byte is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return h.Hex() }

// BytesToAddress converts bytes to an Address with the same cropping and
// padding rules as BytesToHash.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress parses a hex string (with or without 0x) into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex form.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// SetBytes assigns b, cropping from the left or zero-padding as needed.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero reports whether every byte is zero.
func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return a.Hex() }

// Account is one state-trie entry.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     Hash   // storage trie root, EmptyRootHash when storage is empty
	CodeHash []byte // keccak256 of code, EmptyCodeHash for EOAs
}

// NewAccount returns an account with zero balance, no storage, and no code.
func NewAccount() Account {
	return Account{
		Balance:  new(big.Int),
		CodeHash: EmptyCodeHash.Bytes(),
		Root:     EmptyRootHash,
	}
}

// Log is one LOG0..LOG4 event emitted during execution. The first three
// fields are consensus data; the rest locate the log within a block and
// are filled in by the node.
type Log struct {
	Address     Address
	Topics      []Hash
	Data        []byte
	BlockNumber uint64
	TxHash      Hash
	TxIndex     uint
	BlockHash   Hash
	Index       uint
	Removed     bool
}

// Well-known empty-structure hashes.
var (
	// EmptyRootHash is the root of an empty Merkle-Patricia trie.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256 of the empty byte sequence.
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	// EmptyUncleHash is keccak256 of an RLP-encoded empty list.
	EmptyUncleHash = HexToHash("1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
)

// fromHex decodes hex, tolerating a 0x prefix and odd length.
func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}
