package state

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// StateDB is the capability a database backend exposes to the interpreter.
// It knows nothing about gas, opcodes, or call frames; it is a journaled
// key-value view over accounts, storage, logs and the two EIP-2929 access
// sets. Everything above this interface treats it as a black box that can
// be snapshotted and rolled back.
type StateDB interface {
	// Account operations
	CreateAccount(addr types.Address)
	SubBalance(addr types.Address, amount *big.Int)
	AddBalance(addr types.Address, amount *big.Int)
	Transfer(from, to types.Address, amount *big.Int)
	GetBalance(addr types.Address) *big.Int
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash
	GetCodeSize(addr types.Address) int

	// Self-destruct. beneficiary receives the destroyed account's balance;
	// it may equal addr.
	SelfDestruct(addr types.Address, beneficiary types.Address)
	HasSelfDestructed(addr types.Address) bool

	// Storage operations
	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key types.Hash, value types.Hash)
	GetCommittedState(addr types.Address, key types.Hash) types.Hash

	// Account existence and EIP-161 touch tracking
	Exist(addr types.Address) bool
	Empty(addr types.Address) bool
	Touch(addr types.Address)

	// Snapshot and revert for tx-level atomicity
	Snapshot() int
	RevertToSnapshot(id int)

	// Logs
	AddLog(log *types.Log)
	GetLogs(txHash types.Hash) []*types.Log
	SetTxContext(txHash types.Hash, txIndex int)

	// Refund counter
	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	// Access list (EIP-2929 warm/cold tracking)
	AddAddressToAccessList(addr types.Address)
	AddSlotToAccessList(addr types.Address, slot types.Hash)
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool)

	// Transient storage (EIP-1153)
	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key types.Hash, value types.Hash)
	ClearTransientStorage()

	// Finalization
	ClearTouchedEmptyAccounts()
	Commit()
}
