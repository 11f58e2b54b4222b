package vm

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// CallKind identifies which opcode (or the top-level transaction) opened a
// frame, so an Inspector can distinguish CALL from DELEGATECALL from a
// plain CREATE without re-deriving it from frame state.
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindCallCode
	CallKindDelegateCall
	CallKindStaticCall
	CallKindCreate
	CallKindCreate2
)

// CallInputs describes a frame about to execute, passed to Inspector.OnCall
// and Inspector.OnCreate before any code runs.
type CallInputs struct {
	Kind   CallKind
	Caller types.Address
	Target types.Address // zero for CREATE/CREATE2 until the address is derived
	Input  []byte
	Gas    uint64
	Value  *big.Int
	Code   []byte // init code for CREATE/CREATE2, empty otherwise
}

// CallOutcome is either produced by the real frame execution or supplied by
// an Inspector.OnCall/OnCreate override to bypass it entirely.
type CallOutcome struct {
	Output  []byte
	GasLeft uint64
	Err     error
	Address types.Address // populated for CREATE/CREATE2
}

// Inspector is the frame-lifecycle observer described for the engine's
// tracing seam. All methods have a default no-op via BaseInspector so a
// concrete inspector only needs to implement the hooks it cares about.
// OnCall and OnCreate may return a non-nil *CallOutcome to skip the frame
// entirely -- the frame machine deposits the supplied outcome exactly as if
// the child had run, matching the "inspector as opt-in wrapper" design: the
// plain execution loop never calls into this interface, so attaching no
// inspector costs nothing on the hot path.
type Inspector interface {
	// InitializeInterp is called once before the first frame of a
	// transaction runs.
	InitializeInterp(evm *EVM)

	// Step is called before each opcode dispatch, mirroring
	// EVMLogger.CaptureState but addressed through the Inspector surface.
	Step(pc uint64, op OpCode, gas uint64, depth int, stack *Stack, memory *Memory)
	// StepEnd is called after the opcode has executed.
	StepEnd(pc uint64, op OpCode, gasCost uint64, depth int, err error)

	// OnCall is invoked before a CALL/CALLCODE/DELEGATECALL/STATICCALL
	// frame begins. Returning a non-nil outcome skips execution of the
	// callee and deposits the outcome as the frame's result.
	OnCall(inputs *CallInputs) *CallOutcome
	// OnCallEnd is invoked once the frame (real or overridden) has
	// produced its outcome.
	OnCallEnd(inputs *CallInputs, outcome *CallOutcome)

	// OnCreate is invoked before a CREATE/CREATE2 frame begins; the same
	// override rule as OnCall applies.
	OnCreate(inputs *CallInputs) *CallOutcome
	// OnCreateEnd is invoked once the frame (real or overridden) has
	// produced its outcome, including the final contract address.
	OnCreateEnd(inputs *CallInputs, outcome *CallOutcome)

	// OnLog is invoked for every LOG0..LOG4 emitted, after it has been
	// appended to the journal.
	OnLog(log *types.Log)

	// OnSelfDestruct is invoked when SELFDESTRUCT sweeps an account's
	// balance to a beneficiary, whether or not the account is ultimately
	// deleted at the end of the transaction.
	OnSelfDestruct(addr, beneficiary types.Address, balance *big.Int)
}

// BaseInspector gives every method of Inspector a no-op default; embed it
// and override only the hooks a concrete inspector needs.
type BaseInspector struct{}

func (BaseInspector) InitializeInterp(evm *EVM) {}
func (BaseInspector) Step(pc uint64, op OpCode, gas uint64, depth int, stack *Stack, memory *Memory) {
}
func (BaseInspector) StepEnd(pc uint64, op OpCode, gasCost uint64, depth int, err error) {}
func (BaseInspector) OnCall(inputs *CallInputs) *CallOutcome                             { return nil }
func (BaseInspector) OnCallEnd(inputs *CallInputs, outcome *CallOutcome)                 {}
func (BaseInspector) OnCreate(inputs *CallInputs) *CallOutcome                           { return nil }
func (BaseInspector) OnCreateEnd(inputs *CallInputs, outcome *CallOutcome)               {}
func (BaseInspector) OnLog(log *types.Log)                                               {}
func (BaseInspector) OnSelfDestruct(addr, beneficiary types.Address, balance *big.Int)   {}

var _ Inspector = BaseInspector{}
