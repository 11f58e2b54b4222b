package vm

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// EIP-7708: ETH transfers and burns emit a log.
//
// A nonzero-value ETH transfer made by CALL or CREATE emits a LOG3 identical
// to an ERC-20 Transfer event. The transaction-level base-fee burn emits a
// LOG2 with a Burn event. Both are emitted from SystemAddress (EIP-4788's
// 0xff...fe). SELFDESTRUCT emits neither log.

var (
	// SystemAddress is the EIP-4788 system address used as the log emitter.
	SystemAddress = types.HexToAddress("0xfffffffffffffffffffffffffffffffffffffffe")

	// TransferEventTopic is keccak256("Transfer(address,address,uint256)").
	TransferEventTopic = types.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

	// BurnEventTopic is keccak256("Burn(address,uint256)").
	BurnEventTopic = types.HexToHash("0xcc16f5dbb4873280815c1ee09dbd06736cffcc184412cf7a71a0fdb75d397ca5")
)

// EmitTransferLog emits an EIP-7708 ETH transfer log (LOG3), for nonzero ETH
// value moved between two accounts.
func EmitTransferLog(statedb StateDB, from, to types.Address, amount *big.Int) {
	if statedb == nil || amount == nil || amount.Sign() <= 0 {
		return
	}

	statedb.AddLog(&types.Log{
		Address: SystemAddress,
		Topics: []types.Hash{
			TransferEventTopic,
			addressToTopic(from),
			addressToTopic(to),
		},
		Data: uint256Bytes(amount),
	})
}

// EmitBurnLog emits an EIP-7708 ETH burn log (LOG2), for ETH removed from
// circulation. Its one caller is the base-fee portion of a transaction's
// payment.
func EmitBurnLog(statedb StateDB, addr types.Address, amount *big.Int) {
	if statedb == nil || amount == nil || amount.Sign() <= 0 {
		return
	}

	statedb.AddLog(&types.Log{
		Address: SystemAddress,
		Topics: []types.Hash{
			BurnEventTopic,
			addressToTopic(addr),
		},
		Data: uint256Bytes(amount),
	})
}

// addressToTopic converts an address to a 32-byte topic (zero-padded on the left).
func addressToTopic(addr types.Address) types.Hash {
	var topic types.Hash
	copy(topic[12:], addr[:])
	return topic
}

// uint256Bytes encodes amount as a big-endian, 32-byte left-padded word.
func uint256Bytes(amount *big.Int) []byte {
	data := make([]byte, 32)
	b := amount.Bytes()
	copy(data[32-len(b):], b)
	return data
}
