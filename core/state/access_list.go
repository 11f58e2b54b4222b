package state

import "github.com/eth2030/eth2030/core/types"

// accessList is the per-transaction warm set of EIP-2929: which accounts
// and storage slots have been touched so far. An address maps to the set
// of its warmed slots; a nil set means the address itself is warm but no
// slot under it is yet.
type accessList struct {
	entries map[types.Address]map[types.Hash]struct{}
}

func newAccessList() *accessList {
	return &accessList{
		entries: make(map[types.Address]map[types.Hash]struct{}),
	}
}

// AddAddress warms an address, reporting whether it already was.
func (al *accessList) AddAddress(addr types.Address) bool {
	if _, ok := al.entries[addr]; ok {
		return true
	}
	al.entries[addr] = nil
	return false
}

// AddSlot warms a storage slot (and its address), reporting which of the
// two were already warm.
func (al *accessList) AddSlot(addr types.Address, slot types.Hash) (addrPresent bool, slotPresent bool) {
	slots, addrPresent := al.entries[addr]
	if slots == nil {
		slots = make(map[types.Hash]struct{})
		al.entries[addr] = slots
	}
	if _, slotPresent = slots[slot]; !slotPresent {
		slots[slot] = struct{}{}
	}
	return addrPresent, slotPresent
}

// ContainsAddress reports whether the address is warm.
func (al *accessList) ContainsAddress(addr types.Address) bool {
	_, ok := al.entries[addr]
	return ok
}

// ContainsSlot reports warmth of the address and of the slot under it.
func (al *accessList) ContainsSlot(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool) {
	slots, ok := al.entries[addr]
	if !ok {
		return false, false
	}
	if slots == nil {
		return true, false
	}
	_, slotOk = slots[slot]
	return true, slotOk
}

// Copy deep-copies the warm set, for snapshotting callers.
func (al *accessList) Copy() *accessList {
	cp := newAccessList()
	for addr, slots := range al.entries {
		if slots == nil {
			cp.entries[addr] = nil
			continue
		}
		set := make(map[types.Hash]struct{}, len(slots))
		for slot := range slots {
			set[slot] = struct{}{}
		}
		cp.entries[addr] = set
	}
	return cp
}

// DeleteAddress cools an address again; the journal calls this when
// reverting past the entry that warmed it.
func (al *accessList) DeleteAddress(addr types.Address) {
	delete(al.entries, addr)
}

// DeleteSlot cools a single slot, leaving the address warm.
func (al *accessList) DeleteSlot(addr types.Address, slot types.Hash) {
	if slots := al.entries[addr]; slots != nil {
		delete(slots, slot)
	}
}
