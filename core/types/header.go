package types

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Header carries the block-environment fields a transaction handler needs:
// gas accounting (BaseFee, GasLimit, GasUsed), the PREVRANDAO/NUMBER/TIMESTAMP
// opcodes, BLOCKHASH's coinbase and blob-gas context, and the post-execution
// fields (Root, Bloom) an external driver compares its result against.
//
// Block assembly, withdrawals, and beacon-root bookkeeping are out of scope
// here (see spec's block-level execution Non-goal) — Header exists purely as
// the read-only environment a single ApplyTransaction call observes.
type Header struct {
	ParentHash Hash
	Coinbase   Address
	Root       Hash
	Bloom      Bloom
	Number     *big.Int
	GasLimit   uint64
	GasUsed    uint64
	Time       uint64
	BaseFee    *big.Int
	MixDigest  Hash

	// EIP-4844
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64
}

// CreateBloom aggregates the bloom filters of a set of receipts into a
// single combined bloom via bitwise OR.
func CreateBloom(receipts []*Receipt) Bloom {
	var bloom Bloom
	for _, r := range receipts {
		if r == nil {
			continue
		}
		orBloom(&bloom, r.Bloom)
	}
	return bloom
}

// LogsBloom computes the bloom filter for a set of logs: address and each
// topic are hashed and folded into the 2048-bit filter per the usual
// three-hash, three-bit-set construction.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		if log == nil {
			continue
		}
		bloomAdd(&bloom, log.Address.Bytes())
		for _, topic := range log.Topics {
			bloomAdd(&bloom, topic.Bytes())
		}
	}
	return bloom
}

func orBloom(dst *Bloom, src Bloom) {
	for i := range dst {
		dst[i] |= src[i]
	}
}

// bloomPositions returns the three (byte, mask) pairs derived from
// keccak256(data), per the canonical Ethereum bloom construction: each of
// three 11-bit windows of the hash selects bit (2047 - window) of the
// 2048-bit filter.
func bloomPositions(data []byte) (idx [3]uint, mask [3]byte) {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	hash := d.Sum(nil)
	for i := 0; i < 3; i++ {
		bit := (uint(hash[2*i+1]) + (uint(hash[2*i]) << 8)) & 0x7ff
		idx[i] = uint(BloomLength) - 1 - bit/8
		mask[i] = byte(1) << (bit % 8)
	}
	return idx, mask
}

func bloomAdd(b *Bloom, data []byte) {
	idx, mask := bloomPositions(data)
	for i := 0; i < 3; i++ {
		b[idx[i]] |= mask[i]
	}
}

// BloomAdd folds data into the bloom filter.
func BloomAdd(b *Bloom, data []byte) { bloomAdd(b, data) }

// BloomContains reports whether all three bloom bits for data are set.
// False positives are inherent to the structure; false negatives are not
// possible.
func BloomContains(b Bloom, data []byte) bool {
	idx, mask := bloomPositions(data)
	for i := 0; i < 3; i++ {
		if b[idx[i]]&mask[i] == 0 {
			return false
		}
	}
	return true
}
