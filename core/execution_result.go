package core

import "github.com/eth2030/eth2030/core/types"

// ExecutionResult is what a finished state transition hands back to the
// caller: gas consumed, the frame's output bytes, and the halt condition
// if the top-level frame did not succeed. A non-nil Err covers both
// explicit reverts and consensus halts; transaction-level rejections never
// produce an ExecutionResult at all.
type ExecutionResult struct {
	UsedGas         uint64
	BlockGasUsed    uint64 // EIP-7778: pre-refund gas used for block accounting
	Err             error
	ReturnData      []byte
	ContractAddress types.Address // set for contract creation
}

// Unwrap exposes the halt condition for errors.Is / errors.As chains.
func (r *ExecutionResult) Unwrap() error { return r.Err }

// Failed reports whether the top-level frame halted or reverted.
func (r *ExecutionResult) Failed() bool { return r.Err != nil }

// Return yields the output of a successful execution, nil otherwise.
func (r *ExecutionResult) Return() []byte {
	if r.Err != nil {
		return nil
	}
	return r.ReturnData
}

// Revert yields the revert reason carried by a failed execution. Only an
// explicit REVERT preserves output; other halts leave it empty.
func (r *ExecutionResult) Revert() []byte {
	if r.Err == nil {
		return nil
	}
	return r.ReturnData
}
