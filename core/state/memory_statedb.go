package state

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

// stateObject represents an Ethereum account with its associated state.
type stateObject struct {
	account          types.Account
	code             []byte
	dirtyStorage     map[types.Hash]types.Hash
	committedStorage map[types.Hash]types.Hash
	selfDestructed   bool
}

func newStateObject() *stateObject {
	return &stateObject{
		account:          types.NewAccount(),
		dirtyStorage:     make(map[types.Hash]types.Hash),
		committedStorage: make(map[types.Hash]types.Hash),
	}
}

// MemoryStateDB is an in-memory implementation of the StateDB interface.
type MemoryStateDB struct {
	stateObjects     map[types.Address]*stateObject
	journal          *journal
	logs             map[types.Hash][]*types.Log
	refund           uint64
	accessList       *accessList
	transientStorage map[types.Address]map[types.Hash]types.Hash
	touched          map[types.Address]struct{}

	// Current transaction context for log attribution.
	txHash  types.Hash
	txIndex int
}

// NewMemoryStateDB creates a new in-memory state database.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		stateObjects:     make(map[types.Address]*stateObject),
		journal:          newJournal(),
		touched:          make(map[types.Address]struct{}),
		logs:             make(map[types.Hash][]*types.Log),
		accessList:       newAccessList(),
		transientStorage: make(map[types.Address]map[types.Hash]types.Hash),
	}
}

func (s *MemoryStateDB) getStateObject(addr types.Address) *stateObject {
	return s.stateObjects[addr]
}

func (s *MemoryStateDB) getOrNewStateObject(addr types.Address) *stateObject {
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	obj := newStateObject()
	s.stateObjects[addr] = obj
	return obj
}

// --- Account operations ---

func (s *MemoryStateDB) CreateAccount(addr types.Address) {
	prev := s.stateObjects[addr] // may be nil
	s.journal.append(journalEntry{kind: entryAccountCreated, address: addr, prevAccount: prev})
	s.stateObjects[addr] = newStateObject()
}

// SubBalance debits amount from addr. Journaled as a one-sided
// BalanceTransfer (gas fee debit, SELFDESTRUCT source). See Transfer for the
// two-sided form used by CALL value transfers.
func (s *MemoryStateDB) SubBalance(addr types.Address, amount *big.Int) {
	obj := s.getOrNewStateObject(addr)
	if amount == nil {
		amount = new(big.Int)
	}
	s.journal.append(journalEntry{kind: entryBalanceTransfer, address: addr, oneSided: true, amount: new(big.Int).Set(amount)})
	obj.account.Balance = new(big.Int).Sub(obj.account.Balance, amount)
}

// AddBalance credits amount to addr. Journaled as a one-sided BalanceTransfer
// (gas refund, beneficiary reward, CREATE/CALL value landing with no debited
// counterpart already tracked separately).
func (s *MemoryStateDB) AddBalance(addr types.Address, amount *big.Int) {
	obj := s.getOrNewStateObject(addr)
	if amount == nil {
		amount = new(big.Int)
	}
	s.journal.append(journalEntry{kind: entryBalanceTransfer, address: addr, oneSided: true, amount: new(big.Int).Neg(amount)})
	obj.account.Balance = new(big.Int).Add(obj.account.Balance, amount)
}

// Transfer moves amount from one account's balance to another atomically,
// recording a single two-sided BalanceTransfer journal entry (the CALL/CREATE
// value-transfer case).
func (s *MemoryStateDB) Transfer(from, to types.Address, amount *big.Int) {
	if amount == nil {
		amount = new(big.Int)
	}
	fromObj := s.getOrNewStateObject(from)
	toObj := s.getOrNewStateObject(to)
	s.journal.append(journalEntry{kind: entryBalanceTransfer, address: from, target: to, amount: new(big.Int).Set(amount)})
	fromObj.account.Balance = new(big.Int).Sub(fromObj.account.Balance, amount)
	toObj.account.Balance = new(big.Int).Add(toObj.account.Balance, amount)
}

func (s *MemoryStateDB) GetBalance(addr types.Address) *big.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return new(big.Int).Set(obj.account.Balance)
	}
	return new(big.Int)
}

func (s *MemoryStateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.account.Nonce
	}
	return 0
}

func (s *MemoryStateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(journalEntry{kind: entryNonceIncremented, address: addr, prevNonce: obj.account.Nonce})
	obj.account.Nonce = nonce
}

func (s *MemoryStateDB) GetCode(addr types.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.code
	}
	return nil
}

func (s *MemoryStateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	prevCode := obj.code
	prevHash := make([]byte, len(obj.account.CodeHash))
	copy(prevHash, obj.account.CodeHash)
	s.journal.append(journalEntry{kind: entryCodeChanged, address: addr, prevCode: prevCode, prevCodeHash: prevHash})
	obj.code = code
	obj.account.CodeHash = crypto.Keccak256(code)
}

func (s *MemoryStateDB) GetCodeHash(addr types.Address) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return types.BytesToHash(obj.account.CodeHash)
	}
	return types.Hash{}
}

func (s *MemoryStateDB) GetCodeSize(addr types.Address) int {
	if obj := s.getStateObject(addr); obj != nil {
		return len(obj.code)
	}
	return 0
}

// --- Self-destruct ---

// SelfDestruct marks addr as destroyed and moves its entire balance to
// beneficiary (which may equal addr, in which case the balance is simply
// burned per EIP-6780 semantics on a non-same-transaction-created account).
func (s *MemoryStateDB) SelfDestruct(addr types.Address, beneficiary types.Address) {
	obj := s.getStateObject(addr)
	if obj == nil {
		return
	}
	balance := new(big.Int).Set(obj.account.Balance)
	wasDestroyed := obj.selfDestructed
	s.journal.append(journalEntry{
		kind:                entryAccountDestroyed,
		address:             addr,
		target:              beneficiary,
		wasAlreadyDestroyed: wasDestroyed,
		balanceBefore:       balance,
	})
	obj.selfDestructed = true
	obj.account.Balance = new(big.Int)
	if beneficiary != addr {
		ben := s.getOrNewStateObject(beneficiary)
		ben.account.Balance = new(big.Int).Add(ben.account.Balance, balance)
	}
}

func (s *MemoryStateDB) HasSelfDestructed(addr types.Address) bool {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.selfDestructed
	}
	return false
}

// --- Storage operations ---

func (s *MemoryStateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		if val, ok := obj.dirtyStorage[key]; ok {
			return val
		}
		return obj.committedStorage[key]
	}
	return types.Hash{}
}

func (s *MemoryStateDB) SetState(addr types.Address, key types.Hash, value types.Hash) {
	obj := s.getOrNewStateObject(addr)
	prev := s.GetState(addr, key)
	s.journal.append(journalEntry{kind: entryStorageChanged, address: addr, key: key, previousValue: prev})
	obj.dirtyStorage[key] = value
}

func (s *MemoryStateDB) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.committedStorage[key]
	}
	return types.Hash{}
}

// Touch marks addr as touched for EIP-161 state-clearing purposes: any
// account that ends a transaction touched and empty is removed. Loading an
// account for a read does not touch it; only accesses that could plausibly
// need to persist it (value transfer, code execution, nonce bump) do.
func (s *MemoryStateDB) Touch(addr types.Address) {
	s.getOrNewStateObject(addr)
	s.journal.append(journalEntry{kind: entryAccountTouched, address: addr})
	s.touched[addr] = struct{}{}
}

// --- Account existence ---

func (s *MemoryStateDB) Exist(addr types.Address) bool {
	return s.stateObjects[addr] != nil
}

func (s *MemoryStateDB) Empty(addr types.Address) bool {
	obj := s.getStateObject(addr)
	if obj == nil {
		return true
	}
	return obj.account.Nonce == 0 &&
		obj.account.Balance.Sign() == 0 &&
		types.BytesToHash(obj.account.CodeHash) == types.EmptyCodeHash
}

// ClearTouchedEmptyAccounts removes every touched account that is empty
// (EIP-161 / EIP-158 state clearing). Call once after a transaction commits
// successfully and is not itself reverted; the pre-Spurious-Dragon caller
// should skip this entirely.
func (s *MemoryStateDB) ClearTouchedEmptyAccounts() {
	for addr := range s.touched {
		if s.Empty(addr) {
			delete(s.stateObjects, addr)
		}
	}
	s.touched = make(map[types.Address]struct{})
}

// --- Snapshot and revert ---

func (s *MemoryStateDB) Snapshot() int {
	return s.journal.snapshot()
}

func (s *MemoryStateDB) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
}

// --- Logs ---

func (s *MemoryStateDB) AddLog(log *types.Log) {
	// Use the current tx context hash so logs are keyed correctly.
	txHash := s.txHash
	log.TxHash = txHash
	log.TxIndex = uint(s.txIndex)
	s.journal.append(journalEntry{kind: entryLogAdded, txHash: txHash, prevLen: len(s.logs[txHash])})
	s.logs[txHash] = append(s.logs[txHash], log)
}

func (s *MemoryStateDB) GetLogs(txHash types.Hash) []*types.Log {
	return s.logs[txHash]
}

// SetTxContext sets the current transaction hash and index for log attribution.
func (s *MemoryStateDB) SetTxContext(txHash types.Hash, txIndex int) {
	s.txHash = txHash
	s.txIndex = txIndex
}

// --- Refund counter ---

func (s *MemoryStateDB) AddRefund(gas uint64) {
	s.journal.append(journalEntry{kind: entryRefundAdjusted, prevLen: int(s.refund)})
	s.refund += gas
}

func (s *MemoryStateDB) SubRefund(gas uint64) {
	s.journal.append(journalEntry{kind: entryRefundAdjusted, prevLen: int(s.refund)})
	s.refund -= gas
}

func (s *MemoryStateDB) GetRefund() uint64 {
	return s.refund
}

// --- Access list (EIP-2929) ---

func (s *MemoryStateDB) AddAddressToAccessList(addr types.Address) {
	if !s.accessList.AddAddress(addr) {
		s.journal.append(journalEntry{kind: entryAccountWarmed, address: addr})
	}
}

func (s *MemoryStateDB) AddSlotToAccessList(addr types.Address, slot types.Hash) {
	addrPresent, slotPresent := s.accessList.AddSlot(addr, slot)
	if !addrPresent {
		s.journal.append(journalEntry{kind: entryAccountWarmed, address: addr})
	}
	if !slotPresent {
		s.journal.append(journalEntry{kind: entryStorageWarmed, address: addr, key: slot})
	}
}

func (s *MemoryStateDB) AddressInAccessList(addr types.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

func (s *MemoryStateDB) SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool) {
	return s.accessList.ContainsSlot(addr, slot)
}

// --- Transient storage (EIP-1153) ---

func (s *MemoryStateDB) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	if slots, ok := s.transientStorage[addr]; ok {
		return slots[key]
	}
	return types.Hash{}
}

func (s *MemoryStateDB) SetTransientState(addr types.Address, key types.Hash, value types.Hash) {
	prev := s.GetTransientState(addr, key)
	s.journal.append(journalEntry{kind: entryTransientStorageChanged, address: addr, key: key, previousValue: prev})
	if _, ok := s.transientStorage[addr]; !ok {
		s.transientStorage[addr] = make(map[types.Hash]types.Hash)
	}
	s.transientStorage[addr][key] = value
}

// ClearTransientStorage resets all transient storage. Per EIP-1153, transient
// storage is cleared at the end of each transaction.
func (s *MemoryStateDB) ClearTransientStorage() {
	s.transientStorage = make(map[types.Address]map[types.Hash]types.Hash)
}

// --- Commit ---

// Commit flushes dirty storage into committed storage for every account and
// deletes any account that was marked self-destructed during the
// transaction. It does not compute a state root: producing the Merkle
// Patricia Trie encoding of world state is a separate concern (trie
// construction, RLP account encoding, proof generation) that sits above
// this capability, not inside it.
func (s *MemoryStateDB) Commit() {
	for addr, obj := range s.stateObjects {
		if obj.selfDestructed {
			delete(s.stateObjects, addr)
			continue
		}
		for key, val := range obj.dirtyStorage {
			if val == (types.Hash{}) {
				delete(obj.committedStorage, key)
			} else {
				obj.committedStorage[key] = val
			}
		}
		obj.dirtyStorage = make(map[types.Hash]types.Hash)
	}
}

// Copy returns a deep copy of the MemoryStateDB. The copy shares no mutable
// state with the original, making it safe to use in parallel goroutines.
func (s *MemoryStateDB) Copy() *MemoryStateDB {
	cp := &MemoryStateDB{
		stateObjects:     make(map[types.Address]*stateObject, len(s.stateObjects)),
		journal:          newJournal(),
		logs:             make(map[types.Hash][]*types.Log, len(s.logs)),
		refund:           s.refund,
		accessList:       s.accessList.Copy(),
		transientStorage: make(map[types.Address]map[types.Hash]types.Hash, len(s.transientStorage)),
		touched:          make(map[types.Address]struct{}, len(s.touched)),
	}
	for addr := range s.touched {
		cp.touched[addr] = struct{}{}
	}

	for addr, obj := range s.stateObjects {
		newObj := &stateObject{
			account: types.Account{
				Nonce:    obj.account.Nonce,
				Balance:  new(big.Int).Set(obj.account.Balance),
				Root:     obj.account.Root,
				CodeHash: make([]byte, len(obj.account.CodeHash)),
			},
			code:             make([]byte, len(obj.code)),
			dirtyStorage:     make(map[types.Hash]types.Hash, len(obj.dirtyStorage)),
			committedStorage: make(map[types.Hash]types.Hash, len(obj.committedStorage)),
			selfDestructed:   obj.selfDestructed,
		}
		copy(newObj.account.CodeHash, obj.account.CodeHash)
		copy(newObj.code, obj.code)
		for k, v := range obj.dirtyStorage {
			newObj.dirtyStorage[k] = v
		}
		for k, v := range obj.committedStorage {
			newObj.committedStorage[k] = v
		}
		cp.stateObjects[addr] = newObj
	}

	for txHash, logs := range s.logs {
		cpLogs := make([]*types.Log, len(logs))
		for i, log := range logs {
			cpLog := *log
			cpLogs[i] = &cpLog
		}
		cp.logs[txHash] = cpLogs
	}

	for addr, slots := range s.transientStorage {
		cpSlots := make(map[types.Hash]types.Hash, len(slots))
		for k, v := range slots {
			cpSlots[k] = v
		}
		cp.transientStorage[addr] = cpSlots
	}

	return cp
}

// FinalizePreState copies current dirty storage into committed storage for all accounts.
// Call this after loading pre-state but before executing transactions, so that
// GetCommittedState returns correct "original" values for SSTORE gas calculations.
func (s *MemoryStateDB) FinalizePreState() {
	for _, obj := range s.stateObjects {
		for key, value := range obj.dirtyStorage {
			obj.committedStorage[key] = value
		}
	}
}

// Verify interface compliance at compile time.
var _ StateDB = (*MemoryStateDB)(nil)
