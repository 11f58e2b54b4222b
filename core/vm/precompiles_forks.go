package vm

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

// --- p256Verify (address 0x0100) - EIP-7212 / RIP-7212 (Osaka) ---
// secp256r1 (P-256) signature verification.

type p256Verify struct{}

const p256VerifyGas = 3450

func (c *p256Verify) RequiredGas(input []byte) uint64 {
	return p256VerifyGas
}

func (c *p256Verify) Run(input []byte) ([]byte, error) {
	// Input: hash(32) || r(32) || s(32) || x(32) || y(32) = 160 bytes.
	if len(input) != 160 {
		return nil, errors.New("p256verify: invalid input length")
	}
	hash := input[0:32]
	r := new(big.Int).SetBytes(input[32:64])
	s := new(big.Int).SetBytes(input[64:96])
	x := new(big.Int).SetBytes(input[96:128])
	y := new(big.Int).SetBytes(input[128:160])

	if !crypto.P256Verify(hash, r, s, x, y) {
		return nil, nil
	}

	out := make([]byte, 32)
	out[31] = 1
	return out, nil
}

// --- repriced variants for the EIP-7904 (Glamsterdan) precompile table ---

// blake2FGlamsterdan reprices blake2F with a fixed per-call base cost on
// top of the per-round cost (EIP-7904).
type blake2FGlamsterdan struct{ blake2F }

func (c *blake2FGlamsterdan) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasBlake2fConstGlamsterdan
	}
	rounds := uint64(binary.BigEndian.Uint32(input[:4]))
	return GasBlake2fConstGlamsterdan + GasBlake2fPerRoundGlamsterdan*rounds
}

// kzgPointEvaluationGlamsterdan reprices the point evaluation precompile
// (EIP-7904).
type kzgPointEvaluationGlamsterdan struct{ kzgPointEvaluation }

func (c *kzgPointEvaluationGlamsterdan) RequiredGas(input []byte) uint64 {
	return GasPointEvalGlamsterdan
}

// bn256AddGlamsterdan reprices bn256Add (EIP-7904).
type bn256AddGlamsterdan struct{ bn256Add }

func (c *bn256AddGlamsterdan) RequiredGas(input []byte) uint64 {
	return GasECADDGlamsterdan
}

// bn256PairingGlamsterdan reprices bn256Pairing (EIP-7904).
type bn256PairingGlamsterdan struct{ bn256Pairing }

func (c *bn256PairingGlamsterdan) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / 192
	return GasECPairingConstGlamsterdan + k*GasECPairingPerPairGlamsterdan
}

// --- hardfork precompile tables ---
//
// Each table is built additively from the previous hardfork's table plus
// the precompiles/repricings introduced at that fork, matching the
// activation schedule in the gas schedule's SpecId ordering.

// PrecompiledContractsFrontier is the original four precompiles present
// since genesis.
var PrecompiledContractsFrontier = map[types.Address]PrecompiledContract{
	types.BytesToAddress([]byte{1}): &ecrecover{},
	types.BytesToAddress([]byte{2}): &sha256hash{},
	types.BytesToAddress([]byte{3}): &ripemd160hash{},
	types.BytesToAddress([]byte{4}): &dataCopy{},
}

// PrecompiledContractsByzantium is the precompile set from Byzantium up to
// (excluding) Istanbul: adds MODEXP, BN254 add/mul/pairing at their
// original (pre-EIP-1108) gas costs.
var PrecompiledContractsByzantium = map[types.Address]PrecompiledContract{
	types.BytesToAddress([]byte{1}): &ecrecover{},
	types.BytesToAddress([]byte{2}): &sha256hash{},
	types.BytesToAddress([]byte{3}): &ripemd160hash{},
	types.BytesToAddress([]byte{4}): &dataCopy{},
	types.BytesToAddress([]byte{5}): &bigModExp{},
	types.BytesToAddress([]byte{6}): &bn256AddByzantium{},
	types.BytesToAddress([]byte{7}): &bn256ScalarMulByzantium{},
	types.BytesToAddress([]byte{8}): &bn256PairingByzantium{},
}

// PrecompiledContractsIstanbul adds BLAKE2F (EIP-152) and reprices BN254
// operations (EIP-1108).
var PrecompiledContractsIstanbul = map[types.Address]PrecompiledContract{
	types.BytesToAddress([]byte{1}): &ecrecover{},
	types.BytesToAddress([]byte{2}): &sha256hash{},
	types.BytesToAddress([]byte{3}): &ripemd160hash{},
	types.BytesToAddress([]byte{4}): &dataCopy{},
	types.BytesToAddress([]byte{5}): &bigModExp{},
	types.BytesToAddress([]byte{6}): &bn256Add{},
	types.BytesToAddress([]byte{7}): &bn256ScalarMul{},
	types.BytesToAddress([]byte{8}): &bn256Pairing{},
	types.BytesToAddress([]byte{9}): &blake2F{},
}

// PrecompiledContractsBerlin is identical in membership to Istanbul; EIP-2929
// only changes opcode/account access pricing, not the precompile table
// itself (MODEXP gas formula was repriced by EIP-2565 within bigModExp).
var PrecompiledContractsBerlin = PrecompiledContractsIstanbul

// PrecompiledContractsPrague adds the BLS12-381 suite (EIP-2537) on top of
// the Cancun table (which already carries KZG point evaluation).
var PrecompiledContractsPrague = func() map[types.Address]PrecompiledContract {
	m := make(map[types.Address]PrecompiledContract, len(PrecompiledContractsCancun)+9)
	for addr, p := range PrecompiledContractsCancun {
		m[addr] = p
	}
	m[types.BytesToAddress([]byte{0x0b})] = &bls12G1Add{}
	m[types.BytesToAddress([]byte{0x0c})] = &bls12G1Mul{}
	m[types.BytesToAddress([]byte{0x0d})] = &bls12G1MSM{}
	m[types.BytesToAddress([]byte{0x0e})] = &bls12G2Add{}
	m[types.BytesToAddress([]byte{0x0f})] = &bls12G2Mul{}
	m[types.BytesToAddress([]byte{0x10})] = &bls12G2MSM{}
	m[types.BytesToAddress([]byte{0x11})] = &bls12Pairing{}
	m[types.BytesToAddress([]byte{0x12})] = &bls12MapFpToG1{}
	m[types.BytesToAddress([]byte{0x13})] = &bls12MapFp2ToG2{}
	return m
}()

// p256VerifyAddress is the fixed address for the P256VERIFY precompile
// (0x0000...0100), distinct from the single-byte 0x01-0x13 range used by
// every other precompile.
var p256VerifyAddress = types.BytesToAddress([]byte{0x01, 0x00})

// PrecompiledContractsOsaka adds P256VERIFY (EIP-7212/RIP-7212) on top of
// Prague.
var PrecompiledContractsOsaka = func() map[types.Address]PrecompiledContract {
	m := make(map[types.Address]PrecompiledContract, len(PrecompiledContractsPrague)+1)
	for addr, p := range PrecompiledContractsPrague {
		m[addr] = p
	}
	m[p256VerifyAddress] = &p256Verify{}
	return m
}()

// PrecompiledContractsGlamsterdan carries the EIP-7904 precompile gas
// repricings (BN254 add/pairing, BLAKE2F, KZG point evaluation) on top of
// the Osaka precompile membership.
var PrecompiledContractsGlamsterdan = func() map[types.Address]PrecompiledContract {
	m := make(map[types.Address]PrecompiledContract, len(PrecompiledContractsOsaka))
	for addr, p := range PrecompiledContractsOsaka {
		m[addr] = p
	}
	m[types.BytesToAddress([]byte{6})] = &bn256AddGlamsterdan{}
	m[types.BytesToAddress([]byte{8})] = &bn256PairingGlamsterdan{}
	m[types.BytesToAddress([]byte{9})] = &blake2FGlamsterdan{}
	m[types.BytesToAddress([]byte{0x0a})] = &kzgPointEvaluationGlamsterdan{}
	return m
}()
