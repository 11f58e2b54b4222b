package core

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/core/types"
)

// EIP-1559 constants.
const (
	// InitialBaseFee is the initial base fee for EIP-1559 (1 Gwei).
	InitialBaseFee = 1_000_000_000

	// MinBaseFee is the minimum base fee (7 wei, EIP-4844 era minimum).
	// This prevents the base fee from reaching zero during periods of low
	// network activity, ensuring that a minimum cost is always imposed.
	MinBaseFee = 7

	// ElasticityMultiplier is the bound on how much the block gas limit may
	// expand between consecutive blocks relative to the gas target.
	ElasticityMultiplier = 2

	// BaseFeeChangeDenominator bounds the maximum per-block base fee change
	// (1/8 = 12.5%).
	BaseFeeChangeDenominator = 8
)

// EIP-4844 blob gas market constants.
const (
	// blobGasPerBlob is the gas accounted for a single blob.
	blobGasPerBlob = 131072

	// targetBlobGasPerBlock is the per-block blob gas target (3 blobs,
	// Cancun); excess above this target is what the blob base fee responds
	// to, mirroring how ElasticityMultiplier relates gas target to limit.
	targetBlobGasPerBlock = 3 * blobGasPerBlob
)

// CalcExcessBlobGas computes the excess blob gas carried into the next
// block, per EIP-4844: excess_blob_gas = max(0, parent_excess + parent_used
// - target).
func CalcExcessBlobGas(parentExcessBlobGas, parentBlobGasUsed uint64) uint64 {
	excess := parentExcessBlobGas + parentBlobGasUsed
	if excess < targetBlobGasPerBlock {
		return 0
	}
	return excess - targetBlobGasPerBlock
}

// CalcBaseFee calculates the base fee for the next block based on the
// parent's gas usage, following EIP-1559 rules.
//
// Rules:
//   - If parent gas used == target (limit/2): base fee unchanged
//   - If parent gas used > target: increase proportionally (max 12.5%)
//   - If parent gas used < target: decrease proportionally (max 12.5%)
//   - Minimum base fee: 7 wei (EIP-4844 era)
//
// Constants: ElasticityMultiplier=2, BaseFeeChangeDenominator=8
func CalcBaseFee(parent *types.Header) *big.Int {
	if parent.BaseFee == nil {
		return big.NewInt(InitialBaseFee)
	}

	parentGasTarget := parent.GasLimit / ElasticityMultiplier

	// Exactly at target: base fee unchanged.
	if parent.GasUsed == parentGasTarget {
		return new(big.Int).Set(parent.BaseFee)
	}

	if parent.GasUsed > parentGasTarget {
		// Gas used above target: increase base fee.
		gasUsedDelta := parent.GasUsed - parentGasTarget
		baseFeeDelta := new(big.Int).Mul(parent.BaseFee, new(big.Int).SetUint64(gasUsedDelta))
		baseFeeDelta.Div(baseFeeDelta, new(big.Int).SetUint64(parentGasTarget))
		baseFeeDelta.Div(baseFeeDelta, new(big.Int).SetUint64(BaseFeeChangeDenominator))

		// Ensure minimum increase of 1.
		if baseFeeDelta.Sign() == 0 {
			baseFeeDelta.SetInt64(1)
		}
		return new(big.Int).Add(parent.BaseFee, baseFeeDelta)
	}

	// Gas used below target: decrease base fee.
	gasUsedDelta := parentGasTarget - parent.GasUsed
	baseFeeDelta := new(big.Int).Mul(parent.BaseFee, new(big.Int).SetUint64(gasUsedDelta))
	baseFeeDelta.Div(baseFeeDelta, new(big.Int).SetUint64(parentGasTarget))
	baseFeeDelta.Div(baseFeeDelta, new(big.Int).SetUint64(BaseFeeChangeDenominator))

	baseFee := new(big.Int).Sub(parent.BaseFee, baseFeeDelta)

	// Enforce minimum base fee of 7 wei (EIP-4844 era).
	minFee := big.NewInt(MinBaseFee)
	if baseFee.Cmp(minFee) < 0 {
		baseFee.Set(minFee)
	}
	return baseFee
}

// EIP-4844 blob base fee parameters.
const (
	minBlobBaseFee            = 1
	blobBaseFeeUpdateFraction = 3338477
)

// calcBlobBaseFee computes the blob base fee for a block:
// MIN_BLOB_BASE_FEE * e^(excess_blob_gas / BLOB_BASE_FEE_UPDATE_FRACTION),
// using the fake-exponential approximation from the EIP.
func calcBlobBaseFee(excessBlobGas uint64) *big.Int {
	fee := fakeExponential(uint256.NewInt(minBlobBaseFee), uint256.NewInt(blobBaseFeeUpdateFraction), excessBlobGas)
	return fee.ToBig()
}

// fakeExponential approximates factor * e^(excess/denom) by Taylor
// expansion on 256-bit arithmetic. An excess large enough to overflow the
// expansion saturates to the maximum fee, which no transaction can pay.
func fakeExponential(factor, denom *uint256.Int, excess uint64) *uint256.Int {
	numerator := uint256.NewInt(excess)
	output := new(uint256.Int)
	accum := new(uint256.Int).Mul(factor, denom)
	divisor := new(uint256.Int)
	for i := uint64(1); accum.Sign() > 0; i++ {
		if _, overflow := output.AddOverflow(output, accum); overflow {
			return new(uint256.Int).SetAllOne()
		}
		divisor.Mul(denom, uint256.NewInt(i))
		if _, overflow := accum.MulDivOverflow(accum, numerator, divisor); overflow {
			return new(uint256.Int).SetAllOne()
		}
	}
	return output.Div(output, denom)
}
