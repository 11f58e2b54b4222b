package vm

import (
	"errors"
	"math"
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

var (
	ErrOutOfGas                = errors.New("out of gas")
	ErrStackOverflow           = errors.New("stack overflow")
	ErrStackUnderflow          = errors.New("stack underflow")
	ErrInvalidJump             = errors.New("invalid jump destination")
	ErrWriteProtection         = errors.New("write protection")
	ErrExecutionReverted       = errors.New("execution reverted")
	ErrMaxCallDepthExceeded    = errors.New("max call depth exceeded")
	ErrInvalidOpCode           = errors.New("invalid opcode")
	ErrReturnDataOutOfBounds   = errors.New("return data out of bounds")
	ErrMaxInitCodeSizeExceeded = errors.New("max initcode size exceeded")

	// ErrInvalidCodeFormat is the EIP-3541 halt: from London on, runtime
	// code returned by initcode may not begin with the 0xEF byte, which is
	// reserved for future code formats (and EIP-7702 designators).
	ErrInvalidCodeFormat = errors.New("new contract code starts with 0xef")
)

// GetHashFunc returns the hash of the block with the given number.
type GetHashFunc func(uint64) types.Hash

// BlockContext provides the EVM with block-level information.
type BlockContext struct {
	GetHash     GetHashFunc
	BlockNumber *big.Int
	Time        uint64
	Coinbase    types.Address
	GasLimit    uint64
	BaseFee     *big.Int
	PrevRandao  types.Hash
	BlobBaseFee *big.Int
	SlotNumber  uint64 // EIP-7843: beacon chain slot number
}

// TxContext provides the EVM with transaction-level information.
type TxContext struct {
	Origin     types.Address
	GasPrice   *big.Int
	BlobHashes []types.Hash
}

// StateDB provides the EVM with access to Ethereum world state.
// This interface is defined in the vm package to avoid circular imports
// with core/state. Any implementation of core/state.StateDB satisfies it.
type StateDB interface {
	// Account operations
	CreateAccount(addr types.Address)
	GetBalance(addr types.Address) *big.Int
	AddBalance(addr types.Address, amount *big.Int)
	SubBalance(addr types.Address, amount *big.Int)
	Transfer(from, to types.Address, amount *big.Int)
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash

	GetCodeSize(addr types.Address) int

	// Storage
	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key types.Hash, value types.Hash)
	GetCommittedState(addr types.Address, key types.Hash) types.Hash

	// Transient storage (EIP-1153)
	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key types.Hash, value types.Hash)
	ClearTransientStorage()

	// Self-destruct. beneficiary receives the destroyed account's balance.
	SelfDestruct(addr types.Address, beneficiary types.Address)
	HasSelfDestructed(addr types.Address) bool

	// Account existence and EIP-161 touch tracking
	Exist(addr types.Address) bool
	Empty(addr types.Address) bool
	Touch(addr types.Address)
	ClearTouchedEmptyAccounts()

	// Snapshot and revert
	Snapshot() int
	RevertToSnapshot(id int)

	// Logs
	AddLog(log *types.Log)

	// Refund counter (EIP-3529)
	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	// Access list (EIP-2929 warm/cold tracking)
	AddAddressToAccessList(addr types.Address)
	AddSlotToAccessList(addr types.Address, slot types.Hash)
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool)
}

// Config holds EVM configuration options.
type Config struct {
	Debug        bool
	Tracer       EVMLogger
	Inspector    Inspector
	MaxCallDepth int
}

// frameKind distinguishes how a halted frame's result is reported to its
// parent: CALL-family frames push a success flag and copy return data into
// the parent's memory, CREATE-family frames push the new address instead.
type frameKind uint8

const (
	frameKindCall frameKind = iota
	frameKindCreate
)

// callFrame is one entry on the EVM's explicit call stack. CALL and CREATE
// opcodes push a new frame instead of recursing through the Go call stack,
// so the set of in-flight calls is always a slice the interpreter can walk,
// not a chain of native stack frames.
type callFrame struct {
	contract *Contract
	pc       uint64
	stack    *Stack
	memory   *Memory

	kind     frameKind
	snapshot int
	readOnly bool // static-call status in effect for this frame and its children

	// Where to deliver CALL-family return data in the parent's memory.
	retOffset uint64
	retSize   uint64

	// newAddr is the address under construction; only meaningful for
	// frameKindCreate.
	newAddr types.Address

	// heldGas is the portion of gas EIP-150 withholds from a CREATE's
	// init code (the 1/64 the caller keeps regardless of outcome).
	heldGas uint64

	// inspInputs is non-nil when an Inspector is attached; deliverResult
	// and runLoop use it to fire OnCallEnd/OnCreateEnd once the frame
	// (pushed via pushFrame, not resolved immediately by its preflight)
	// produces a result.
	inspInputs *CallInputs
}

// hasInspector reports whether an Inspector is attached to this EVM.
func (evm *EVM) hasInspector() bool {
	return evm.Config.Inspector != nil
}

// prepareCallInspector builds the CallInputs for a CALL-family opcode about
// to dispatch and, if an Inspector is attached, fires OnCall. inputs is
// always returned non-nil when an Inspector is attached (so the caller can
// stash it on the pushed frame for the later OnCallEnd); outcome is non-nil
// only when the Inspector wants to skip the real frame.
func (evm *EVM) prepareCallInspector(kind CallKind, caller, target types.Address, input []byte, gas uint64, value *big.Int) (inputs *CallInputs, outcome *CallOutcome) {
	if !evm.hasInspector() {
		return nil, nil
	}
	inputs = &CallInputs{Kind: kind, Caller: caller, Target: target, Input: input, Gas: gas, Value: value}
	return inputs, evm.Config.Inspector.OnCall(inputs)
}

// prepareCreateInspector is prepareCallInspector's CREATE-family analogue.
func (evm *EVM) prepareCreateInspector(kind CallKind, caller types.Address, code []byte, gas uint64, value *big.Int) (inputs *CallInputs, outcome *CallOutcome) {
	if !evm.hasInspector() {
		return nil, nil
	}
	inputs = &CallInputs{Kind: kind, Caller: caller, Input: code, Gas: gas, Value: value, Code: code}
	return inputs, evm.Config.Inspector.OnCreate(inputs)
}

// reportFrameEnd fires OnCallEnd or OnCreateEnd for inputs captured at
// frame-start time, once the frame's real outcome (or an override) is
// known.
func (evm *EVM) reportFrameEnd(kind frameKind, inputs *CallInputs, outcome *CallOutcome) {
	if !evm.hasInspector() || inputs == nil {
		return
	}
	if kind == frameKindCreate {
		evm.Config.Inspector.OnCreateEnd(inputs, outcome)
	} else {
		evm.Config.Inspector.OnCallEnd(inputs, outcome)
	}
}

// EVM is the Ethereum Virtual Machine execution environment.
type EVM struct {
	Context     BlockContext
	TxContext   TxContext
	Config      Config
	StateDB     StateDB
	chainID     uint64
	depth       int
	readOnly    bool
	jumpTable   JumpTable
	precompiles map[types.Address]PrecompiledContract
	returnData  []byte             // return data from the last CALL/CREATE
	callGasTemp uint64             // temporary storage for CALL gas (set by dynamic gas, read by opCall)
	witnessGas  *WitnessGasTracker // EIP-4762: witness gas tracking (nil if not Verkle)
	forkRules   ForkRules          // active fork rules for this block
	FrameCtx    *FrameContext      // EIP-8141: frame transaction approval context (nil if not frame tx)

	// frames is the explicit call stack driving nested CALL/CREATE
	// execution. Only the outermost entry into the interpreter (via Call,
	// CallCode, DelegateCall, StaticCall, Create or Create2) recurses
	// through Go; everything nested runs through runLoop's dispatch loop.
	frames      []*callFrame
	pushedFrame bool // set by a CALL/CREATE opcode handler that just pushed a child frame

	// createdContracts tracks accounts created by this transaction so
	// SELFDESTRUCT can apply the EIP-6780 same-transaction rule. A revert
	// past the creation leaves a stale entry, which is harmless: the
	// reverted account has no code to execute a SELFDESTRUCT from.
	createdContracts map[types.Address]struct{}
}

// markCreated records a contract account created in this transaction.
func (evm *EVM) markCreated(addr types.Address) {
	if evm.createdContracts == nil {
		evm.createdContracts = make(map[types.Address]struct{})
	}
	evm.createdContracts[addr] = struct{}{}
}

// createdInThisTx reports whether addr was created by this transaction.
func (evm *EVM) createdInThisTx(addr types.Address) bool {
	_, ok := evm.createdContracts[addr]
	return ok
}

// NewEVM creates a new EVM instance.
func NewEVM(blockCtx BlockContext, txCtx TxContext, config Config) *EVM {
	if config.MaxCallDepth == 0 {
		config.MaxCallDepth = 1024
	}
	return &EVM{
		Context:   blockCtx,
		TxContext: txCtx,
		Config:    config,
		jumpTable: NewCancunJumpTable(),
	}
}

// NewEVMWithState creates a new EVM instance with state access.
func NewEVMWithState(blockCtx BlockContext, txCtx TxContext, config Config, stateDB StateDB) *EVM {
	evm := NewEVM(blockCtx, txCtx, config)
	evm.StateDB = stateDB
	return evm
}

// SetJumpTable replaces the EVM's jump table. Use SelectJumpTable to pick
// the correct table for a given fork.
func (evm *EVM) SetJumpTable(jt JumpTable) {
	evm.jumpTable = jt
}

// SetPrecompiles replaces the EVM's precompile map.
func (evm *EVM) SetPrecompiles(p map[types.Address]PrecompiledContract) {
	evm.precompiles = p
}

// SetForkRules sets the active fork rules for this EVM instance.
func (evm *EVM) SetForkRules(rules ForkRules) {
	evm.forkRules = rules
}

// GetForkRules returns the active fork rules.
func (evm *EVM) GetForkRules() ForkRules {
	return evm.forkRules
}

// SetWitnessGasTracker enables EIP-4762 witness gas tracking. When set, the
// Verkle jump table charges gas based on witness size for state accesses.
func (evm *EVM) SetWitnessGasTracker(t *WitnessGasTracker) {
	evm.witnessGas = t
}

// GetWitnessGasTracker returns the current witness gas tracker (may be nil).
func (evm *EVM) GetWitnessGasTracker() *WitnessGasTracker {
	return evm.witnessGas
}

// precompile returns the precompiled contract at addr, falling back to the
// default Cancun precompile set if no custom map has been set.
func (evm *EVM) precompile(addr types.Address) (PrecompiledContract, bool) {
	m := evm.precompiles
	if m == nil {
		m = PrecompiledContractsCancun
	}
	p, ok := m[addr]
	return p, ok
}

// runPrecompile executes a precompiled contract and returns the output,
// remaining gas, and any error.
func runPrecompile(p PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	gasCost := p.RequiredGas(input)
	if gas < gasCost {
		return nil, 0, ErrOutOfGas
	}
	output, err := p.Run(input)
	return output, gas - gasCost, err
}

// ForkRules mirrors the chain configuration fork flags needed to select
// the correct jump table. The caller (processor) converts ChainConfig.Rules
// into this struct to avoid a circular import.
type ForkRules struct {
	IsVerkle         bool // EIP-4762: statelessness gas cost changes
	IsGlamsterdan    bool
	IsOsaka          bool
	IsPrague         bool
	IsCancun         bool
	IsShanghai       bool
	IsMerge          bool
	IsLondon         bool
	IsBerlin         bool
	IsIstanbul       bool
	IsConstantinople bool
	IsByzantium      bool
	IsHomestead      bool
	IsEIP158         bool // EIP-158: empty account cleanup
	IsEIP7708        bool // EIP-7708: ETH transfers emit a log
	IsEIP7954        bool // EIP-7954: increased max contract code size
}

// SelectPrecompiles returns the correct precompile map for the given fork
// rules, matching each hardfork's historical precompile membership and
// gas pricing.
func SelectPrecompiles(rules ForkRules) map[types.Address]PrecompiledContract {
	switch {
	case rules.IsGlamsterdan:
		return PrecompiledContractsGlamsterdan
	case rules.IsOsaka:
		return PrecompiledContractsOsaka
	case rules.IsPrague:
		return PrecompiledContractsPrague
	case rules.IsCancun:
		return PrecompiledContractsCancun
	case rules.IsBerlin:
		return PrecompiledContractsBerlin
	case rules.IsIstanbul:
		return PrecompiledContractsIstanbul
	case rules.IsByzantium:
		return PrecompiledContractsByzantium
	default:
		return PrecompiledContractsFrontier
	}
}

// SelectJumpTable returns the correct jump table for the given fork rules.
func SelectJumpTable(rules ForkRules) JumpTable {
	switch {
	case rules.IsVerkle:
		return NewVerkleJumpTable()
	case rules.IsGlamsterdan:
		return NewGlamsterdanJumpTable()
	case rules.IsPrague:
		return NewPragueJumpTable()
	case rules.IsCancun:
		return NewCancunJumpTable()
	case rules.IsShanghai:
		return NewShanghaiJumpTable()
	case rules.IsMerge:
		return NewMergeJumpTable()
	case rules.IsLondon:
		return NewLondonJumpTable()
	case rules.IsBerlin:
		return NewBerlinJumpTable()
	case rules.IsIstanbul:
		return NewIstanbulJumpTable()
	case rules.IsConstantinople:
		return NewConstantinopleJumpTable()
	case rules.IsByzantium:
		return NewByzantiumJumpTable()
	case rules.IsHomestead:
		return NewHomesteadJumpTable()
	default:
		return NewFrontierJumpTable()
	}
}

// pushFrame appends frame to the explicit call stack and signals the
// dispatch loop in runLoop that the opcode which just ran did not halt --
// it handed control to a freshly pushed child instead of returning.
func (evm *EVM) pushFrame(frame *callFrame) {
	evm.frames = append(evm.frames, frame)
	evm.pushedFrame = true
}

// writeCallResult copies a CALL-family callee's return data into the
// caller's memory at retOffset, truncated to retSize.
func writeCallResult(memory *Memory, retOffset, retSize uint64, ret []byte) {
	if retSize > 0 && len(ret) > 0 {
		retLen := retSize
		if uint64(len(ret)) < retLen {
			retLen = uint64(len(ret))
		}
		memory.Set(retOffset, retLen, ret[:retLen])
	}
}

// pushCallStatus pushes the CALL-family success flag: 1 on success, 0 on
// any error (including revert).
func pushCallStatus(stack *Stack, err error) {
	if err != nil {
		stack.Push(new(big.Int))
	} else {
		stack.Push(big.NewInt(1))
	}
}

// execStep runs opcodes from frame's current pc until the frame halts
// (STOP/RETURN/REVERT/error) or a CALL/CREATE opcode hands off to a freshly
// pushed child frame. Gas charging order follows go-ethereum: constant gas
// -> dynamic gas (which includes memory expansion cost) -> resize memory ->
// execute.
func (evm *EVM) execStep(frame *callFrame) ([]byte, error, bool) {
	contract := frame.contract
	stack := frame.stack
	mem := frame.memory
	debug := evm.Config.Debug && evm.Config.Tracer != nil

	for {
		op := contract.GetOp(frame.pc)
		operation := evm.jumpTable[op]
		if operation == nil || operation.execute == nil {
			return nil, ErrInvalidOpCode, true
		}

		// Stack validation
		sLen := stack.Len()
		if sLen < operation.minStack {
			return nil, ErrStackUnderflow, true
		}
		if sLen > operation.maxStack {
			return nil, ErrStackOverflow, true
		}

		// Calculate total gas cost for this step (for tracing).
		var stepCost uint64
		gasBefore := contract.Gas

		// Constant gas deduction
		if operation.constantGas > 0 {
			if !contract.UseGas(operation.constantGas) {
				return nil, ErrOutOfGas, true
			}
		}

		// Calculate required memory size (but don't resize yet). Overflow in
		// the size itself saturates to math.MaxUint64, which gasMemExpansion
		// and friends turn into an unaffordable cost below -- there is no
		// separate overflow signal.
		var memorySize uint64
		if operation.memorySize != nil {
			memSize := operation.memorySize(stack)
			if memSize > math.MaxUint64-31 {
				memorySize = math.MaxUint64
			} else if memSize > 0 {
				memorySize = (memSize + 31) / 32 * 32
			}
		}

		// Dynamic gas: includes memory expansion cost + operation-specific costs.
		// This is charged BEFORE memory is actually resized.
		if operation.dynamicGas != nil {
			cost := operation.dynamicGas(evm, contract, stack, mem, memorySize)
			if !contract.UseGas(cost) {
				return nil, ErrOutOfGas, true
			}
		}

		// Resize memory AFTER gas has been charged (by dynamic gas function).
		if memorySize > 0 && uint64(mem.Len()) < memorySize {
			mem.Resize(memorySize)
		}

		stepCost = gasBefore - contract.Gas

		if debug {
			evm.Config.Tracer.CaptureState(frame.pc, op, gasBefore, stepCost, stack, mem, evm.depth, nil)
		}
		if evm.hasInspector() {
			evm.Config.Inspector.Step(frame.pc, op, gasBefore, evm.depth, stack, mem)
		}

		pc := frame.pc
		ret, err := operation.execute(&pc, evm, contract, mem, stack)
		frame.pc = pc

		if evm.hasInspector() {
			evm.Config.Inspector.StepEnd(pc, op, stepCost, evm.depth, err)
		}

		// The opcode was CALL/CREATE-family and pushed a child frame onto
		// evm.frames instead of resolving synchronously. Advance past this
		// opcode (its effects on this frame's stack/memory are already
		// complete -- only the result push remains, which happens when the
		// child is delivered) and let runLoop switch to the new top frame.
		if evm.pushedFrame {
			evm.pushedFrame = false
			frame.pc++
			return nil, nil, false
		}

		if err != nil {
			if errors.Is(err, ErrExecutionReverted) {
				return ret, err, true
			}
			return nil, err, true
		}

		if operation.halts {
			return ret, nil, true
		}
		if operation.jumps {
			continue
		}

		frame.pc++
	}
}

// settleFrame applies revert-on-failure and (for CREATE) code-deposit rules
// once a frame has halted, producing the final (ret, gasLeft, err) for that
// frame.
func (evm *EVM) settleFrame(frame *callFrame, ret []byte, err error) ([]byte, uint64, error) {
	if frame.kind == frameKindCreate {
		return evm.settleCreateFrame(frame, ret, err)
	}

	gasLeft := frame.contract.Gas
	if err != nil && !errors.Is(err, ErrExecutionReverted) {
		if evm.StateDB != nil {
			evm.StateDB.RevertToSnapshot(frame.snapshot)
		}
		gasLeft = 0
	} else if errors.Is(err, ErrExecutionReverted) {
		if evm.StateDB != nil {
			evm.StateDB.RevertToSnapshot(frame.snapshot)
		}
	}
	return ret, gasLeft, err
}

// settleCreateFrame mirrors the post-execution half of the original create()
// helper: EIP-150 gas accounting, the EIP-3541 0xEF prefix ban,
// EIP-170/7954 max code size, and the per-byte code deposit cost.
func (evm *EVM) settleCreateFrame(frame *callFrame, ret []byte, err error) ([]byte, uint64, error) {
	gas := frame.heldGas

	if err != nil {
		evm.StateDB.RevertToSnapshot(frame.snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			// Non-revert error: only the withheld 1/64 is returned.
			return ret, gas, err
		}
		gas += frame.contract.Gas
		return ret, gas, err
	}

	gas += frame.contract.Gas

	if len(ret) > 0 {
		if evm.forkRules.IsLondon && ret[0] == 0xEF {
			evm.StateDB.RevertToSnapshot(frame.snapshot)
			return nil, 0, ErrInvalidCodeFormat
		}
		maxCode := MaxCodeSizeForFork(evm.forkRules)
		if len(ret) > maxCode {
			evm.StateDB.RevertToSnapshot(frame.snapshot)
			return nil, 0, errors.New("max code size exceeded")
		}
		depositCost := uint64(len(ret)) * CreateDataGas
		if gas < depositCost {
			evm.StateDB.RevertToSnapshot(frame.snapshot)
			return nil, 0, ErrOutOfGas
		}
		gas -= depositCost
		evm.StateDB.SetCode(frame.newAddr, ret)
	}

	return ret, gas, nil
}

// deliverResult applies a just-halted child frame's outcome onto its parent:
// gas is refunded, return data is recorded, and the CALL success flag or
// CREATE address is pushed onto the parent's stack.
func (evm *EVM) deliverResult(parent, child *callFrame, ret []byte, gasLeft uint64, err error) {
	parent.contract.Gas += gasLeft
	evm.returnData = ret

	switch child.kind {
	case frameKindCall:
		writeCallResult(parent.memory, child.retOffset, child.retSize, ret)
		pushCallStatus(parent.stack, err)
	case frameKindCreate:
		if err != nil {
			parent.stack.Push(new(big.Int))
		} else {
			parent.stack.Push(new(big.Int).SetBytes(child.newAddr[:]))
		}
	}
}

// runLoop is the only place nested EVM execution recurses through Go: it is
// invoked once per outermost entry (Call, CallCode, DelegateCall,
// StaticCall, Create, Create2) and then drains evm.frames -- including every
// frame pushed by nested CALL/CREATE opcodes -- with a plain loop. Call
// depth is therefore bounded by the length of evm.frames, not by the host
// goroutine's stack.
func (evm *EVM) runLoop(entry *callFrame) ([]byte, uint64, error) {
	prevReadOnly := evm.readOnly
	base := len(evm.frames)
	if base == 0 && evm.hasInspector() {
		evm.Config.Inspector.InitializeInterp(evm)
	}
	evm.frames = append(evm.frames, entry)
	evm.readOnly = entry.readOnly
	evm.depth = len(evm.frames)

	defer func() {
		evm.readOnly = prevReadOnly
		evm.depth = base
	}()

	for {
		top := evm.frames[len(evm.frames)-1]
		ret, err, halted := evm.execStep(top)
		if !halted {
			evm.readOnly = evm.frames[len(evm.frames)-1].readOnly
			evm.depth = len(evm.frames)
			continue
		}

		retOut, gasLeft, errOut := evm.settleFrame(top, ret, err)
		if top.inspInputs != nil {
			outcome := &CallOutcome{Output: retOut, GasLeft: gasLeft, Err: errOut, Address: top.newAddr}
			evm.reportFrameEnd(top.kind, top.inspInputs, outcome)
		}
		evm.frames = evm.frames[:len(evm.frames)-1]
		evm.depth = len(evm.frames)

		if len(evm.frames) == base {
			return retOut, gasLeft, errOut
		}

		parent := evm.frames[len(evm.frames)-1]
		evm.readOnly = parent.readOnly
		evm.deliverResult(parent, top, retOut, gasLeft, errOut)
	}
}

// Run executes contract bytecode directly against a fresh stack and memory,
// bypassing the CALL/CREATE preflight (balance checks, account creation,
// precompile dispatch). It is the low-level entry point used by tests and
// tools that want to drive a hand-built Contract without going through a
// full message call.
func (evm *EVM) Run(contract *Contract, input []byte) ([]byte, error) {
	contract.Input = input
	frame := &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCall,
		readOnly: evm.readOnly,
	}
	ret, _, err := evm.runLoop(frame)
	return ret, err
}

// enterCall performs CALL preflight -- balance check, EIP-158 empty-account
// rule, value transfer, precompile dispatch -- and either resolves
// immediately (done=true) or returns a frame ready to execute bytecode.
func (evm *EVM) enterCall(caller, addr types.Address, input []byte, gas uint64, value *big.Int) (done bool, ret []byte, gasLeft uint64, err error, frame *callFrame) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return true, nil, gas, ErrMaxCallDepthExceeded, nil
	}

	transfersValue := value != nil && value.Sign() > 0
	if transfersValue && evm.StateDB != nil {
		if evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
			return true, nil, gas, errors.New("insufficient balance for transfer"), nil
		}
	}
	if evm.StateDB == nil {
		return true, nil, gas, errors.New("no state database"), nil
	}

	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	if !evm.StateDB.Exist(addr) {
		if !isPrecompile && evm.forkRules.IsEIP158 && !transfersValue {
			// EIP-158: do not create empty accounts for zero-value calls.
			return true, nil, gas, nil, nil
		}
		evm.StateDB.CreateAccount(addr)
	}

	if transfersValue {
		if evm.readOnly {
			return true, nil, gas, ErrWriteProtection, nil
		}
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(addr, value)

		if evm.forkRules.IsEIP7708 && caller != addr {
			EmitTransferLog(evm.StateDB, caller, addr, value)
		}
	}

	if isPrecompile {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return true, ret, gasLeft, err, nil
	}

	code, codeHash := evm.loadCallCode(addr)
	if len(code) == 0 {
		return true, nil, gas, nil, nil
	}

	contract := NewContract(caller, addr, value, gas)
	contract.Code = code
	contract.CodeHash = codeHash
	contract.Input = input

	frame = &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCall,
		snapshot: snapshot,
		readOnly: evm.readOnly,
	}
	return false, nil, 0, nil, frame
}

// Call executes a message call to the given address with the given input, gas, and value.
func (evm *EVM) Call(caller types.Address, addr types.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error) {
	debug := evm.Config.Debug && evm.Config.Tracer != nil
	if debug {
		evm.Config.Tracer.CaptureStart(caller, addr, false, input, gas, value)
	}

	done, ret, gasLeft, err, frame := evm.enterCall(caller, addr, input, gas, value)
	if !done {
		ret, gasLeft, err = evm.runLoop(frame)
	}

	if debug {
		evm.Config.Tracer.CaptureEnd(ret, gas-gasLeft, err)
	}
	return ret, gasLeft, err
}

// enterCallCode performs CALLCODE preflight and either resolves immediately
// or returns a frame that runs the callee's code in the caller's own
// storage context.
func (evm *EVM) enterCallCode(caller, addr types.Address, input []byte, gas uint64, value *big.Int) (done bool, ret []byte, gasLeft uint64, err error, frame *callFrame) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return true, nil, gas, ErrMaxCallDepthExceeded, nil
	}
	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		return true, ret, gasLeft, err, nil
	}
	if evm.StateDB == nil {
		return true, nil, gas, errors.New("no state database"), nil
	}

	snapshot := evm.StateDB.Snapshot()

	code, codeHash := evm.loadCallCode(addr)
	if len(code) == 0 {
		return true, nil, gas, nil, nil
	}

	// CALLCODE executes the callee's code but in the caller's context
	// (caller's address is used for storage and msg.sender).
	contract := NewContract(caller, caller, value, gas)
	contract.Code = code
	contract.CodeHash = codeHash
	contract.Input = input

	frame = &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCall,
		snapshot: snapshot,
		readOnly: evm.readOnly,
	}
	return false, nil, 0, nil, frame
}

// CallCode executes a CALLCODE operation. Runs the callee's code in the caller's context.
func (evm *EVM) CallCode(caller types.Address, addr types.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error) {
	done, ret, gasLeft, err, frame := evm.enterCallCode(caller, addr, input, gas, value)
	if done {
		return ret, gasLeft, err
	}
	return evm.runLoop(frame)
}

// enterDelegateCall performs DELEGATECALL preflight: like CALLCODE, but
// neither the caller nor value changes.
func (evm *EVM) enterDelegateCall(caller, addr types.Address, input []byte, gas uint64) (done bool, ret []byte, gasLeft uint64, err error, frame *callFrame) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return true, nil, gas, ErrMaxCallDepthExceeded, nil
	}
	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		return true, ret, gasLeft, err, nil
	}
	if evm.StateDB == nil {
		return true, nil, gas, errors.New("no state database"), nil
	}

	snapshot := evm.StateDB.Snapshot()

	code, codeHash := evm.loadCallCode(addr)
	if len(code) == 0 {
		return true, nil, gas, nil, nil
	}

	// DELEGATECALL preserves the caller (msg.sender) and value from the
	// current context. Storage operations happen on the caller's storage,
	// not the callee's.
	contract := NewContract(caller, caller, nil, gas)
	contract.Code = code
	contract.CodeHash = codeHash
	contract.Input = input

	frame = &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCall,
		snapshot: snapshot,
		readOnly: evm.readOnly,
	}
	return false, nil, 0, nil, frame
}

// DelegateCall executes a DELEGATECALL operation.
// Like CALLCODE but preserves the original caller and value.
func (evm *EVM) DelegateCall(caller types.Address, addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	done, ret, gasLeft, err, frame := evm.enterDelegateCall(caller, addr, input, gas)
	if done {
		return ret, gasLeft, err
	}
	return evm.runLoop(frame)
}

// enterStaticCall performs STATICCALL preflight and forces read-only mode
// for the pushed frame (and, transitively, anything it calls).
func (evm *EVM) enterStaticCall(caller, addr types.Address, input []byte, gas uint64) (done bool, ret []byte, gasLeft uint64, err error, frame *callFrame) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return true, nil, gas, ErrMaxCallDepthExceeded, nil
	}
	if evm.StateDB == nil {
		return true, nil, gas, errors.New("no state database"), nil
	}

	// We take a snapshot here. Even a staticcall is considered a 'touch'.
	// On mainnet, static calls were introduced after all empty accounts
	// were deleted, so this is not required. However, certain tests (e.g.
	// stRevertTest/RevertPrecompiledTouchExactOOG) require this behavior.
	snapshot := evm.StateDB.Snapshot()

	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return true, ret, gasLeft, err, nil
	}

	code, codeHash := evm.loadCallCode(addr)
	if len(code) == 0 {
		return true, nil, gas, nil, nil
	}

	contract := NewContract(caller, addr, new(big.Int), gas)
	contract.Code = code
	contract.CodeHash = codeHash
	contract.Input = input

	frame = &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCall,
		snapshot: snapshot,
		readOnly: true,
	}
	return false, nil, 0, nil, frame
}

// StaticCall executes a read-only message call. Any state modifications will cause an error.
func (evm *EVM) StaticCall(caller types.Address, addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	done, ret, gasLeft, err, frame := evm.enterStaticCall(caller, addr, input, gas)
	if done {
		return ret, gasLeft, err
	}
	return evm.runLoop(frame)
}

// createAddress computes the address of a contract created with CREATE.
// Per the Yellow Paper: addr = keccak256(rlp([sender, nonce]))[12:]
func createAddress(caller types.Address, nonce uint64) types.Address {
	// RLP-encode the list [sender_address, nonce].
	// sender_address is a 20-byte string, nonce is an integer.
	addrEnc := encodeRLPBytes(caller[:])
	nonceEnc := encodeRLPUint(nonce)

	// Wrap both items in an RLP list.
	payload := append(addrEnc, nonceEnc...)
	data := wrapRLPList(payload)

	hash := crypto.Keccak256(data)
	return types.BytesToAddress(hash[12:])
}

// encodeRLPBytes encodes a byte slice as an RLP string.
func encodeRLPBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	lenBytes := uintToMinBytes(uint64(len(b)))
	header := append([]byte{byte(0xb7 + len(lenBytes))}, lenBytes...)
	return append(header, b...)
}

// encodeRLPUint encodes a uint64 as an RLP integer.
func encodeRLPUint(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	if v < 128 {
		return []byte{byte(v)}
	}
	b := uintToMinBytes(v)
	return append([]byte{byte(0x80 + len(b))}, b...)
}

// wrapRLPList wraps payload bytes in an RLP list header.
func wrapRLPList(payload []byte) []byte {
	if len(payload) < 56 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	lenBytes := uintToMinBytes(uint64(len(payload)))
	header := append([]byte{byte(0xf7 + len(lenBytes))}, lenBytes...)
	return append(header, payload...)
}

// uintToMinBytes encodes a uint64 as big-endian bytes with no leading zeros.
func uintToMinBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
		if buf[i] != 0 || n > 0 {
			n = 8 - i
		}
	}
	return buf[8-n:]
}

// create2Address computes the address of a contract created with CREATE2.
func create2Address(caller types.Address, salt *big.Int, initCodeHash []byte) types.Address {
	// CREATE2 address = keccak256(0xff + caller + salt + keccak256(initCode))[12:]
	saltBytes := make([]byte, 32)
	if salt != nil {
		b := salt.Bytes()
		copy(saltBytes[32-len(b):], b)
	}
	data := make([]byte, 0, 85)
	data = append(data, 0xff)
	data = append(data, caller[:]...)
	data = append(data, saltBytes...)
	data = append(data, initCodeHash...)
	hash := crypto.Keccak256(data)
	return types.BytesToAddress(hash[12:])
}

// PreWarmAccessList pre-warms the access list with the sender, recipient, and
// all precompile addresses (0x01-0x0a) per EIP-2929.
func (evm *EVM) PreWarmAccessList(sender types.Address, to *types.Address) {
	if evm.StateDB == nil {
		return
	}
	// Warm the sender.
	evm.StateDB.AddAddressToAccessList(sender)
	// Warm the recipient (if non-nil, i.e. not a contract creation).
	if to != nil {
		evm.StateDB.AddAddressToAccessList(*to)
	}
	// Warm all precompile addresses (0x01 through 0x13).
	// Includes: ecrecover(1), sha256(2), ripemd160(3), identity(4),
	// modexp(5), bn254add(6), bn254mul(7), bn254pairing(8),
	// blake2f(9), kzg(10), and EIP-2537 BLS12-381 (11-19).
	for i := 1; i <= 0x13; i++ {
		evm.StateDB.AddAddressToAccessList(types.BytesToAddress([]byte{byte(i)}))
	}
}

// gasEIP2929AccountCheck checks whether addr is warm. If cold, it warms the
// address and returns the extra cold gas (ColdAccountAccessCost - WarmStorageReadCost).
// If warm, it returns 0. The caller is expected to charge WarmStorageReadCost
// as the constant gas.
func gasEIP2929AccountCheck(evm *EVM, addr types.Address) uint64 {
	if evm.StateDB == nil {
		return 0
	}
	if evm.StateDB.AddressInAccessList(addr) {
		return 0
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return ColdAccountAccessCost - WarmStorageReadCost
}

// gasEIP2929SlotCheck checks whether (addr, slot) is warm. If cold, it warms
// the slot and returns the extra cold gas (ColdSloadCost - WarmStorageReadCost).
// If warm, it returns 0. The caller is expected to charge WarmStorageReadCost
// as the constant gas.
func gasEIP2929SlotCheck(evm *EVM, addr types.Address, slot types.Hash) uint64 {
	if evm.StateDB == nil {
		return 0
	}
	_, slotWarm := evm.StateDB.SlotInAccessList(addr, slot)
	if slotWarm {
		return 0
	}
	evm.StateDB.AddSlotToAccessList(addr, slot)
	return ColdSloadCost - WarmStorageReadCost
}

// enterCreate performs the preflight shared by CREATE and CREATE2: init
// code size limit, collision detection, access-list warming, account
// creation, value transfer and the EIP-150 63/64 gas split. On success it
// returns a frame ready to run the init code; frame is nil if the call
// resolved (or failed) without needing to execute any code.
func (evm *EVM) enterCreate(caller types.Address, code []byte, gas uint64, value *big.Int, contractAddr types.Address) (frame *callFrame, ret []byte, gasLeft uint64, err error) {
	// EIP-3860 / EIP-7954: max init code size check.
	maxInit := MaxInitCodeSizeForFork(evm.forkRules)
	if len(code) > maxInit {
		return nil, nil, gas, ErrMaxInitCodeSizeExceeded
	}

	// Collision check: fail if address already has non-zero nonce or non-empty code.
	// Per go-ethereum, all gas is consumed on collision.
	contractHash := evm.StateDB.GetCodeHash(contractAddr)
	if evm.StateDB.GetNonce(contractAddr) != 0 ||
		(contractHash != (types.Hash{}) && contractHash != types.EmptyCodeHash) {
		return nil, nil, 0, errors.New("contract address collision")
	}

	// EIP-2929: warm the created contract address BEFORE taking snapshot.
	// Even if the creation fails, the access-list change should not be rolled back.
	evm.StateDB.AddAddressToAccessList(contractAddr)

	snapshot := evm.StateDB.Snapshot()

	// Only create a new account if it doesn't already exist.
	// It's possible the contract code is deployed to a pre-existent
	// account with non-zero balance.
	if !evm.StateDB.Exist(contractAddr) {
		evm.StateDB.CreateAccount(contractAddr)
	}

	// EIP-161: set contract nonce to 1 (post Spurious Dragon).
	evm.StateDB.SetNonce(contractAddr, 1)
	evm.markCreated(contractAddr)

	// Transfer value.
	if value != nil && value.Sign() > 0 {
		if evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
			return nil, nil, gas, errors.New("insufficient balance for transfer")
		}
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(contractAddr, value)

		// EIP-7708: emit transfer log for nonzero-value CREATE.
		if evm.forkRules.IsEIP7708 {
			EmitTransferLog(evm.StateDB, caller, contractAddr, value)
		}
	}

	// GasCreate and InitCodeWordGas are already charged by the jump table's
	// constantGas and dynamicGas functions. Do not charge them again here.

	// Apply the 63/64 rule (EIP-150) to gas available for init code.
	callGas := gas - gas/CallGasFraction
	heldGas := gas - callGas

	contract := NewContract(caller, contractAddr, value, callGas)
	contract.Code = code

	frame = &callFrame{
		contract: contract,
		stack:    NewStack(),
		memory:   NewMemory(),
		kind:     frameKindCreate,
		snapshot: snapshot,
		readOnly: evm.readOnly,
		newAddr:  contractAddr,
		heldGas:  heldGas,
	}
	return frame, nil, 0, nil
}

// doCreate drives enterCreate through to completion for the public Create
// and Create2 entry points.
func (evm *EVM) doCreate(caller types.Address, code []byte, gas uint64, value *big.Int, contractAddr types.Address) ([]byte, types.Address, uint64, error) {
	frame, ret, gasLeft, err := evm.enterCreate(caller, code, gas, value, contractAddr)
	if frame == nil {
		return ret, types.Address{}, gasLeft, err
	}

	ret, gasLeft, err = evm.runLoop(frame)
	addr := types.Address{}
	if err == nil {
		addr = frame.newAddr
	}
	return ret, addr, gasLeft, err
}

// Create creates a new contract with the given code.
func (evm *EVM) Create(caller types.Address, code []byte, gas uint64, value *big.Int) ([]byte, types.Address, uint64, error) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return nil, types.Address{}, gas, ErrMaxCallDepthExceeded
	}
	if evm.readOnly {
		return nil, types.Address{}, gas, ErrWriteProtection
	}
	if evm.StateDB == nil {
		return nil, types.Address{}, gas, errors.New("no state database")
	}

	// Compute the new contract address
	nonce := evm.StateDB.GetNonce(caller)
	evm.StateDB.SetNonce(caller, nonce+1)
	contractAddr := createAddress(caller, nonce)

	return evm.doCreate(caller, code, gas, value, contractAddr)
}

// Create2 creates a new contract using CREATE2 with the given salt.
func (evm *EVM) Create2(caller types.Address, code []byte, gas uint64, endowment *big.Int, salt *big.Int) ([]byte, types.Address, uint64, error) {
	if len(evm.frames) >= evm.Config.MaxCallDepth {
		return nil, types.Address{}, gas, ErrMaxCallDepthExceeded
	}
	if evm.readOnly {
		return nil, types.Address{}, gas, ErrWriteProtection
	}
	if evm.StateDB == nil {
		return nil, types.Address{}, gas, errors.New("no state database")
	}

	initCodeHash := crypto.Keccak256(code)
	contractAddr := create2Address(caller, salt, initCodeHash)

	return evm.doCreate(caller, code, gas, endowment, contractAddr)
}
