// state_transition.go holds the transaction and block checks around the
// Ethereum execution layer state transition: validating transactions against
// the state, computing costs and fees (EIP-1559 base fee, EIP-4844 blob gas),
// and performing post-block validation. Applying a transaction is done by
// applyMessage in processor.go.
package core

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/core/vm"
)

// State transition errors.
var (
	ErrSTBlobGasExceeded     = errors.New("blob gas limit exceeded")
	ErrSTBlobGasUsedInvalid  = errors.New("blob gas used mismatch")
	ErrSTStateRootMismatch   = errors.New("post-state root mismatch")
	ErrSTReceiptRootMismatch = errors.New("receipt root mismatch")
	ErrSTBloomMismatch       = errors.New("logs bloom mismatch")
	ErrSTGasUsedMismatch     = errors.New("gas used mismatch")
	ErrSTInvalidSender       = errors.New("transaction sender not set")
	ErrSTMaxBlobGas          = errors.New("max blob gas per block exceeded")
)

// stBlobGasPerBlob is the gas cost per blob (EIP-4844).
const stBlobGasPerBlob = 131072

// stMaxBlobGasPerBlock is the max blob gas per block (Cancun: 6 blobs).
const stMaxBlobGasPerBlock = 6 * stBlobGasPerBlob

// StateTransition carries the chain config for a single transaction's
// state transition. It has no methods of its own: validation is the
// ValidateTransaction function and execution is applyMessage. Sequencing many transactions into a block and deriving the
// resulting state root is an external driver's concern — see the
// block-level-execution Non-goal.
type StateTransition struct {
	config *ChainConfig
}

// NewStateTransition creates a new StateTransition with the given chain config.
func NewStateTransition(config *ChainConfig) *StateTransition {
	return &StateTransition{config: config}
}

// TransitionResult holds the outputs an external driver accumulates while
// sequencing transactions, for comparison against a block header via
// ValidatePostBlock.
type TransitionResult struct {
	Receipts    []*types.Receipt
	GasUsed     uint64
	BlobGasUsed uint64
	LogsBloom   types.Bloom
	StateRoot   types.Hash
}

// ValidateTransaction performs full validation of a transaction against the
// current state and block header. It checks nonce, balance, gas limits,
// intrinsic gas, EIP-1559 fee caps, and EIP-4844 blob constraints.
func ValidateTransaction(tx *types.Transaction, statedb state.StateDB, header *types.Header, config *ChainConfig) error {
	sender := tx.Sender()
	if sender == nil {
		return ErrSTInvalidSender
	}
	from := *sender

	// Envelope type gating: types beyond the known set are rejected, and
	// the fork-introduced types only exist from their fork on.
	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType:
	case types.BlobTxType:
		if config != nil && !config.IsCancun(header.Time) {
			return ErrBlobTxPreFork
		}
	case types.SetCodeTxType:
		if config != nil && !config.IsPrague(header.Time) {
			return ErrSetCodeTxPreFork
		}
	case uint8(types.FrameTxType):
		if config != nil && !config.IsGlamsterdan(header.Time) {
			return fmt.Errorf("%w: frame transaction before its fork", ErrTxTypeNotSupported)
		}
	default:
		return fmt.Errorf("%w: type %d", ErrTxTypeNotSupported, tx.Type())
	}

	// Chain ID: typed transactions carry it explicitly, EIP-155 legacy
	// transactions fold it into V. A zero derived chain id means a
	// pre-155 signature, which any chain accepts.
	if config != nil && config.ChainID != nil {
		if txChainID := tx.ChainId(); txChainID != nil && txChainID.Sign() > 0 {
			if txChainID.Cmp(config.ChainID) != 0 {
				return fmt.Errorf("%w: tx %s, chain %s", ErrInvalidChainID, txChainID, config.ChainID)
			}
		}
	}

	// Sender must be an EOA: either no code, or an EIP-7702 delegation
	// designator standing in for it.
	if code := statedb.GetCode(from); len(code) > 0 && !types.HasDelegationPrefix(code) {
		return ErrSenderNoEOA
	}

	// Nonce validation, including the EIP-2681 2^64-1 ceiling.
	stateNonce := statedb.GetNonce(from)
	if stateNonce == math.MaxUint64 {
		return ErrNonceMax
	}
	if tx.Nonce() < stateNonce {
		return fmt.Errorf("%w: tx %d, state %d", ErrNonceTooLow, tx.Nonce(), stateNonce)
	}
	if tx.Nonce() > stateNonce {
		return fmt.Errorf("%w: tx %d, state %d", ErrNonceTooHigh, tx.Nonce(), stateNonce)
	}

	// Gas limit validation: tx gas must not exceed the block gas limit,
	// nor the EIP-7825 per-transaction cap once Osaka is live.
	if tx.Gas() > header.GasLimit {
		return fmt.Errorf("%w: tx gas %d > block limit %d",
			ErrGasLimitExceeded, tx.Gas(), header.GasLimit)
	}
	if config != nil && config.IsOsaka(header.Time) && tx.Gas() > TxGasLimitCap {
		return fmt.Errorf("%w: tx gas %d > cap %d", ErrGasLimitTooHigh, tx.Gas(), TxGasLimitCap)
	}

	// EIP-3860: bound the initcode of creation transactions (Shanghai+).
	if tx.To() == nil && config != nil && config.IsShanghai(header.Time) {
		if len(tx.Data()) > vm.MaxInitCodeSize {
			return fmt.Errorf("%w: %d bytes", ErrInitCodeTooLarge, len(tx.Data()))
		}
	}

	// Intrinsic gas, plus the EIP-7623 calldata floor from Prague on.
	igas := txIntrinsicGas(tx)
	if tx.Gas() < igas {
		return fmt.Errorf("%w: have %d, want %d",
			ErrIntrinsicGasTooLow, tx.Gas(), igas)
	}
	if config != nil && config.IsPrague(header.Time) {
		if floor := calldataFloorGas(tx.Data(), tx.To() == nil); tx.Gas() < floor {
			return fmt.Errorf("%w: have %d, floor %d", ErrFloorGasTooLow, tx.Gas(), floor)
		}
	}

	// EIP-1559 fee checks: tip cannot exceed the cap, and the cap must
	// cover the block base fee.
	if tipCap, feeCap := tx.GasTipCap(), tx.GasFeeCap(); tipCap != nil && feeCap != nil {
		if tipCap.Cmp(feeCap) > 0 {
			return fmt.Errorf("%w: tip %s, cap %s", ErrTipAboveFeeCap, tipCap, feeCap)
		}
	}
	if header.BaseFee != nil && header.BaseFee.Sign() > 0 {
		feeCap := tx.GasFeeCap()
		if feeCap != nil && feeCap.Cmp(header.BaseFee) < 0 {
			return fmt.Errorf("%w: cap %s, base fee %s",
				ErrFeeCapTooLow, feeCap, header.BaseFee)
		}
	}

	// The worst-case charge gasLimit * feeCap must stay below 2^256.
	if feeCap := tx.GasFeeCap(); feeCap != nil {
		product := new(big.Int).Mul(feeCap, new(big.Int).SetUint64(tx.Gas()))
		if product.BitLen() > 256 {
			return ErrGasPriceOverflow
		}
	}

	// Balance validation: sender must have enough for value + max gas cost.
	cost := TxCost(tx, header.BaseFee)
	balance := statedb.GetBalance(from)
	if balance.Cmp(cost) < 0 {
		return fmt.Errorf("%w: have %s, want %s",
			ErrInsufficientBalance, balance.String(), cost.String())
	}

	// EIP-4844 blob constraints.
	if tx.Type() == types.BlobTxType {
		if err := validateBlobFields(tx, header); err != nil {
			return err
		}
	}

	// EIP-7702 structural constraints. The wire format already forces a
	// destination, so only the authorization list needs checking here.
	if tx.Type() == types.SetCodeTxType {
		auths := tx.AuthorizationList()
		if len(auths) == 0 {
			return ErrEmptyAuthList
		}
		for i, auth := range auths {
			if auth.R == nil || auth.S == nil || auth.V == nil {
				return fmt.Errorf("%w: entry %d missing signature", ErrAuthListMalformed, i)
			}
		}
	}

	return nil
}

// validateBlobFields applies the type-3 rules: a destination, a non-empty
// in-range blob list with known hash versions, and a fee cap covering the
// current blob base fee.
func validateBlobFields(tx *types.Transaction, header *types.Header) error {
	if tx.To() == nil {
		return ErrBlobTxCreate
	}
	blobHashes := tx.BlobHashes()
	if len(blobHashes) == 0 {
		return ErrNoBlobs
	}
	if uint64(len(blobHashes))*stBlobGasPerBlob > stMaxBlobGasPerBlock {
		return fmt.Errorf("%w: %d blobs", ErrTooManyBlobs, len(blobHashes))
	}
	for i, h := range blobHashes {
		if h[0] != types.VersionedHashVersionKZG {
			return fmt.Errorf("%w: hash %d starts with %#x", ErrInvalidBlobVersionedHash, i, h[0])
		}
	}
	if header.ExcessBlobGas != nil {
		blobBaseFee := calcBlobBaseFee(*header.ExcessBlobGas)
		blobFeeCap := tx.BlobGasFeeCap()
		if blobFeeCap != nil && blobFeeCap.Cmp(blobBaseFee) < 0 {
			return fmt.Errorf("%w: cap %s, base fee %s", ErrBlobFeeCapTooLow, blobFeeCap, blobBaseFee)
		}
	}
	return nil
}

// txIntrinsicGas computes the base gas cost of a transaction before EVM
// execution, accounting for transaction type, data costs, access list,
// and contract creation overhead.
func txIntrinsicGas(tx *types.Transaction) uint64 {
	isCreate := tx.To() == nil
	gas := TxGas
	if isCreate {
		gas += TxCreateGas
	}
	for _, b := range tx.Data() {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGas
		}
	}
	// EIP-2930 access list costs.
	for _, tuple := range tx.AccessList() {
		gas += 2400
		gas += uint64(len(tuple.StorageKeys)) * 1900
	}
	// EIP-7702 authorization list costs.
	if auths := tx.AuthorizationList(); len(auths) > 0 {
		gas += uint64(len(auths)) * PerAuthBaseCost
	}
	return gas
}

// TxCost computes the maximum cost a transaction can incur, including
// value transfer, gas cost at the fee cap, and blob gas cost.
func TxCost(tx *types.Transaction, baseFee *big.Int) *big.Int {
	cost := new(big.Int)
	if tx.Value() != nil {
		cost.Set(tx.Value())
	}
	// Gas cost: gasLimit * gasFeeCap (or gasPrice for legacy).
	gasPrice := tx.GasFeeCap()
	if gasPrice == nil {
		gasPrice = tx.GasPrice()
	}
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas()))
	cost.Add(cost, gasCost)

	// EIP-4844: blob gas cost.
	if blobFeeCap := tx.BlobGasFeeCap(); blobFeeCap != nil {
		blobGas := tx.BlobGas()
		blobCost := new(big.Int).Mul(blobFeeCap, new(big.Int).SetUint64(blobGas))
		cost.Add(cost, blobCost)
	}

	return cost
}

// EffectiveGasPrice computes the actual gas price paid per EIP-1559.
// For legacy transactions it returns GasPrice. For EIP-1559 transactions
// it returns min(GasFeeCap, BaseFee + GasTipCap).
func EffectiveGasPrice(tx *types.Transaction, baseFee *big.Int) *big.Int {
	if baseFee == nil || baseFee.Sign() <= 0 {
		p := tx.GasPrice()
		if p == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(p)
	}
	tip := tx.GasTipCap()
	if tip == nil {
		tip = new(big.Int)
	}
	feeCap := tx.GasFeeCap()
	if feeCap == nil {
		return new(big.Int).Set(baseFee)
	}
	effective := new(big.Int).Add(baseFee, tip)
	if effective.Cmp(feeCap) > 0 {
		effective.Set(feeCap)
	}
	return effective
}

// ValidatePostBlock checks that the block header fields match the computed
// values from execution. It verifies state root, gas used, and logs bloom.
func ValidatePostBlock(header *types.Header, result *TransitionResult) error {
	// Gas used validation.
	if header.GasUsed != result.GasUsed {
		return fmt.Errorf("%w: header %d, computed %d",
			ErrSTGasUsedMismatch, header.GasUsed, result.GasUsed)
	}

	// State root validation.
	if header.Root != result.StateRoot {
		return fmt.Errorf("%w: header %s, computed %s",
			ErrSTStateRootMismatch, header.Root.Hex(), result.StateRoot.Hex())
	}

	// Bloom validation.
	if header.Bloom != result.LogsBloom {
		return ErrSTBloomMismatch
	}

	return nil
}

// NextBlockBaseFee computes the EIP-1559 base fee for the next block given
// the parent header. This is a convenience wrapper around CalcBaseFee.
func NextBlockBaseFee(parent *types.Header) *big.Int {
	return CalcBaseFee(parent)
}

// NextExcessBlobGas computes the excess blob gas for the next block based
// on the parent's fields, per EIP-4844.
func NextExcessBlobGas(parentExcessBlobGas, parentBlobGasUsed uint64) uint64 {
	return CalcExcessBlobGas(parentExcessBlobGas, parentBlobGasUsed)
}

// BlockReward computes the static block reward for the given block number.
// Post-merge (PoS) blocks have zero block reward; the validator is
// compensated through the consensus layer.
func BlockReward(config *ChainConfig, header *types.Header) *big.Int {
	if config != nil && config.IsMerge() {
		return new(big.Int) // no block reward post-merge
	}
	// Pre-merge: 2 ETH per block (post-Constantinople).
	reward := new(big.Int).Mul(big.NewInt(2), new(big.Int).SetUint64(1e18))
	return reward
}
