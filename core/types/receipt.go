package types

import "math/big"

// Post-Byzantium receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt records the outcome of one executed transaction. The consensus
// fields feed the receipt trie; the rest are derived by the node when a
// block is assembled.
type Receipt struct {
	// Consensus fields
	Type              uint8
	PostState         []byte
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Derived fields
	TxHash            Hash
	ContractAddress   Address
	GasUsed           uint64
	EffectiveGasPrice *big.Int

	// EIP-4844 blob transaction fields
	BlobGasUsed  uint64
	BlobGasPrice *big.Int

	// EIP-7706 calldata gas fields
	CalldataGasUsed  uint64
	CalldataGasPrice *big.Int

	// Inclusion information
	BlockHash        Hash
	BlockNumber      *big.Int
	TransactionIndex uint
}

// NewReceipt creates a receipt carrying only the consensus status and
// cumulative gas.
func NewReceipt(status uint64, cumulativeGasUsed uint64) *Receipt {
	return &Receipt{
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
	}
}

// Succeeded reports whether the transaction executed without halting.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// DeriveReceiptFields fills in block context and log indices for a block's
// receipts: block hash and number on every receipt, the owning transaction
// hash, and a block-global running index across all logs.
func DeriveReceiptFields(receipts []*Receipt, blockHash Hash, blockNumber uint64, baseFee *big.Int, txs []*Transaction) {
	var logIndex uint
	num := new(big.Int).SetUint64(blockNumber)

	for i, receipt := range receipts {
		receipt.BlockHash = blockHash
		receipt.BlockNumber = new(big.Int).Set(num)
		receipt.TransactionIndex = uint(i)
		if i < len(txs) {
			receipt.TxHash = txs[i].Hash()
		}

		for _, log := range receipt.Logs {
			log.BlockHash = blockHash
			log.BlockNumber = blockNumber
			log.TxIndex = uint(i)
			log.TxHash = receipt.TxHash
			log.Index = logIndex
			logIndex++
		}
	}
}
