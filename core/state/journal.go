package state

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// entryKind discriminates the variants of a journalEntry. Reverting a change
// is a single switch over this tag rather than a virtual call, so the set of
// possible state mutations is enumerable by reading this file alone.
type entryKind uint8

const (
	entryAccountWarmed entryKind = iota
	entryAccountTouched
	entryAccountDestroyed
	entryBalanceTransfer
	entryNonceIncremented
	entryAccountCreated
	entryStorageChanged
	entryStorageWarmed
	entryTransientStorageChanged
	entryCodeChanged
	entryLogAdded
	entryRefundAdjusted
)

// journalEntry is a single revertible state change. It is a tagged union,
// not an interface: every field below belongs to exactly one of the
// entryKind variants, and revert() is a plain switch. A new kind of state
// mutation means a new case here, not a new type implementing an interface.
type journalEntry struct {
	kind entryKind

	address types.Address
	target  types.Address // AccountDestroyed: beneficiary. BalanceTransfer: recipient.

	wasAlreadyDestroyed bool     // AccountDestroyed
	balanceBefore       *big.Int // AccountDestroyed: balance moved to target

	amount   *big.Int // BalanceTransfer: amount moved from address to target (or signed delta if oneSided)
	oneSided bool     // BalanceTransfer: true for AddBalance/SubBalance (no real counterparty)

	key           types.Hash // StorageChanged, StorageWarmed, TransientStorageChanged
	previousValue types.Hash // StorageChanged, TransientStorageChanged

	prevCode     []byte // CodeChanged
	prevCodeHash []byte // CodeChanged

	prevAccount *stateObject // AccountCreated: nil if the address did not exist before

	txHash    types.Hash // LogAdded
	prevLen   int        // LogAdded: log count before the append. RefundAdjusted: prior refund counter.
	prevNonce uint64     // NonceIncremented: nonce before the change
}

// journal tracks state modifications since the start of a transaction so
// that any snapshot taken during execution can be unwound on revert.
type journal struct {
	entries   []journalEntry
	snapshots map[int]int // snapshot ID -> entry index at time of snapshot
	nextID    int
}

func newJournal() *journal {
	return &journal{
		snapshots: make(map[int]int),
	}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

// revertToSnapshot unwinds every entry recorded after the given snapshot, in
// reverse order, then discards the entries and any snapshot taken after it.
func (j *journal) revertToSnapshot(id int, s *MemoryStateDB) {
	idx, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.revertEntry(j.entries[i], s)
	}
	j.entries = j.entries[:idx]

	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
}

func (j *journal) revertEntry(e journalEntry, s *MemoryStateDB) {
	switch e.kind {
	case entryAccountWarmed:
		s.accessList.DeleteAddress(e.address)

	case entryAccountTouched:
		// Touching is a pure marker with no prior state to restore; the
		// empty-account sweep at transaction end re-derives emptiness from
		// current balance/nonce/code, so nothing to undo here.

	case entryAccountDestroyed:
		if obj := s.getStateObject(e.address); obj != nil {
			obj.selfDestructed = e.wasAlreadyDestroyed
			obj.account.Balance = new(big.Int).Add(obj.account.Balance, e.balanceBefore)
		}
		if target := s.getStateObject(e.target); target != nil && e.target != e.address {
			target.account.Balance = new(big.Int).Sub(target.account.Balance, e.balanceBefore)
		}

	case entryBalanceTransfer:
		if e.oneSided {
			// amount is signed: positive means it was subtracted from
			// address (undo by adding back); negative means it was added
			// (undo by subtracting the magnitude back out).
			if obj := s.getStateObject(e.address); obj != nil {
				obj.account.Balance = new(big.Int).Add(obj.account.Balance, e.amount)
			}
			return
		}
		if from := s.getStateObject(e.address); from != nil {
			from.account.Balance = new(big.Int).Add(from.account.Balance, e.amount)
		}
		if to := s.getStateObject(e.target); to != nil {
			to.account.Balance = new(big.Int).Sub(to.account.Balance, e.amount)
		}

	case entryNonceIncremented:
		if obj := s.getStateObject(e.address); obj != nil {
			obj.account.Nonce = e.prevNonce
		}

	case entryAccountCreated:
		if e.prevAccount == nil {
			delete(s.stateObjects, e.address)
		} else {
			s.stateObjects[e.address] = e.prevAccount
		}

	case entryStorageChanged:
		if obj := s.getStateObject(e.address); obj != nil {
			if e.previousValue == (types.Hash{}) {
				delete(obj.dirtyStorage, e.key)
			} else {
				obj.dirtyStorage[e.key] = e.previousValue
			}
		}

	case entryStorageWarmed:
		s.accessList.DeleteSlot(e.address, e.key)

	case entryTransientStorageChanged:
		if e.previousValue == (types.Hash{}) {
			delete(s.transientStorage[e.address], e.key)
			if len(s.transientStorage[e.address]) == 0 {
				delete(s.transientStorage, e.address)
			}
		} else {
			if s.transientStorage[e.address] == nil {
				s.transientStorage[e.address] = make(map[types.Hash]types.Hash)
			}
			s.transientStorage[e.address][e.key] = e.previousValue
		}

	case entryCodeChanged:
		if obj := s.getStateObject(e.address); obj != nil {
			obj.code = e.prevCode
			obj.account.CodeHash = e.prevCodeHash
		}

	case entryLogAdded:
		logs := s.logs[e.txHash]
		s.logs[e.txHash] = logs[:e.prevLen]
		if e.prevLen == 0 {
			delete(s.logs, e.txHash)
		}

	case entryRefundAdjusted:
		s.refund = uint64(e.prevLen)
	}
}
