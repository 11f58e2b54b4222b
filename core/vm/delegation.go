package vm

import (
	"bytes"

	"github.com/eth2030/eth2030/core/types"
)

// eip7702DelegationPrefix is the EIP-7702 delegation designator prefix
// (0xef0100). An account whose code is exactly prefix||address has
// delegated execution to that address while keeping its own storage,
// balance, and nonce.
var eip7702DelegationPrefix = []byte{0xef, 0x01, 0x00}

const eip7702DelegationCodeLen = 3 + types.AddressLength

// resolveDelegatedTarget returns the delegation target and true if code is
// a well-formed EIP-7702 delegation designator. Resolution is one hop: the
// caller is expected to use the target's code as-is, even if that code is
// itself a delegation designator.
func resolveDelegatedTarget(code []byte) (types.Address, bool) {
	if len(code) != eip7702DelegationCodeLen || !bytes.HasPrefix(code, eip7702DelegationPrefix) {
		return types.Address{}, false
	}
	var addr types.Address
	copy(addr[:], code[len(eip7702DelegationPrefix):])
	return addr, true
}

// loadCallCode fetches the code to execute for a call into addr, following a
// single EIP-7702 delegation hop. The returned codeHash is the hash of the
// code actually executed (the delegate's, when delegated), while storage,
// balance, and nonce addressing remain keyed on addr at every call site.
func (evm *EVM) loadCallCode(addr types.Address) (code []byte, codeHash types.Hash) {
	code = evm.StateDB.GetCode(addr)
	codeHash = evm.StateDB.GetCodeHash(addr)
	if target, ok := resolveDelegatedTarget(code); ok {
		code = evm.StateDB.GetCode(target)
		codeHash = evm.StateDB.GetCodeHash(target)
	}
	return code, codeHash
}
