package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth2030/eth2030/rlp"
	"golang.org/x/crypto/sha3"
)

// EIP-8141 frame transaction constants.
const (
	FrameTxType          byte   = 0x06
	FrameTxIntrinsicCost uint64 = 15000
	MaxFrames            int    = 1000

	// Frame execution modes.
	ModeDefault uint8 = 0
	ModeVerify  uint8 = 1
	ModeSender  uint8 = 2
)

// EntryPointAddress is the canonical caller for DEFAULT and VERIFY frames.
var EntryPointAddress = HexToAddress("0x00000000000000000000000000000000000000aa")

// Frame is one execution step of a frame transaction.
type Frame struct {
	Mode     uint8
	Target   *Address // nil targets the sender itself
	GasLimit uint64
	Data     []byte
}

// FrameTx is the EIP-8141 (type 0x06) multi-frame transaction. Its gas
// limit is not a field but derived from the frames.
type FrameTx struct {
	ChainID              *big.Int
	Nonce                uint64
	Sender               Address
	Frames               []Frame
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	MaxFeePerBlobGas     *big.Int
	BlobVersionedHashes  []Hash
}

func (tx *FrameTx) txType() byte           { return FrameTxType }
func (tx *FrameTx) chainID() *big.Int      { return tx.ChainID }
func (tx *FrameTx) accessList() AccessList { return nil }
func (tx *FrameTx) data() []byte           { return nil }
func (tx *FrameTx) gas() uint64            { return CalcFrameTxGas(tx) }
func (tx *FrameTx) gasPrice() *big.Int     { return tx.MaxFeePerGas }
func (tx *FrameTx) gasTipCap() *big.Int    { return tx.MaxPriorityFeePerGas }
func (tx *FrameTx) gasFeeCap() *big.Int    { return tx.MaxFeePerGas }
func (tx *FrameTx) value() *big.Int        { return new(big.Int) }
func (tx *FrameTx) nonce() uint64          { return tx.Nonce }
func (tx *FrameTx) to() *Address           { return nil }

func (tx *FrameTx) copy() TxData {
	cpy := &FrameTx{
		ChainID:              copyBig(tx.ChainID),
		Nonce:                tx.Nonce,
		Sender:               tx.Sender,
		MaxPriorityFeePerGas: copyBig(tx.MaxPriorityFeePerGas),
		MaxFeePerGas:         copyBig(tx.MaxFeePerGas),
		MaxFeePerBlobGas:     copyBig(tx.MaxFeePerBlobGas),
	}
	if tx.Frames != nil {
		cpy.Frames = make([]Frame, len(tx.Frames))
		for i, f := range tx.Frames {
			cpy.Frames[i] = Frame{
				Mode:     f.Mode,
				Target:   copyAddressPtr(f.Target),
				GasLimit: f.GasLimit,
				Data:     copyBytes(f.Data),
			}
		}
	}
	if tx.BlobVersionedHashes != nil {
		cpy.BlobVersionedHashes = make([]Hash, len(tx.BlobVersionedHashes))
		copy(cpy.BlobVersionedHashes, tx.BlobVersionedHashes)
	}
	return cpy
}

// frameRLP: [mode, target, gas_limit, data]; target is empty for nil.
type frameRLP struct {
	Mode     uint8
	Target   []byte
	GasLimit uint64
	Data     []byte
}

// frameTxRLP: [chain_id, nonce, sender, frames, max_priority_fee_per_gas,
// max_fee_per_gas, max_fee_per_blob_gas, blob_versioned_hashes]
type frameTxRLP struct {
	ChainID              *big.Int
	Nonce                uint64
	Sender               Address
	Frames               []frameRLP
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	MaxFeePerBlobGas     *big.Int
	BlobVersionedHashes  []Hash
}

func (tx *FrameTx) toRLP(elideVerifyData bool) frameTxRLP {
	frames := make([]frameRLP, len(tx.Frames))
	for i, f := range tx.Frames {
		frames[i] = frameRLP{
			Mode:     f.Mode,
			Target:   addressPtrToBytes(f.Target),
			GasLimit: f.GasLimit,
			Data:     f.Data,
		}
		if elideVerifyData && f.Mode == ModeVerify {
			frames[i].Data = []byte{}
		}
	}
	enc := frameTxRLP{
		ChainID:              bigOrZero(tx.ChainID),
		Nonce:                tx.Nonce,
		Sender:               tx.Sender,
		Frames:               frames,
		MaxPriorityFeePerGas: bigOrZero(tx.MaxPriorityFeePerGas),
		MaxFeePerGas:         bigOrZero(tx.MaxFeePerGas),
		MaxFeePerBlobGas:     bigOrZero(tx.MaxFeePerBlobGas),
		BlobVersionedHashes:  tx.BlobVersionedHashes,
	}
	if enc.BlobVersionedHashes == nil {
		enc.BlobVersionedHashes = []Hash{}
	}
	return enc
}

// EncodeFrameTx produces the typed envelope 0x06 ‖ RLP([...]).
func EncodeFrameTx(tx *FrameTx) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(tx.toRLP(false))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(payload))
	out[0] = FrameTxType
	copy(out[1:], payload)
	return out, nil
}

// DecodeFrameTx decodes the RLP payload following the type byte.
func DecodeFrameTx(data []byte) (*FrameTx, error) {
	var dec frameTxRLP
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return nil, fmt.Errorf("decode frame tx: %w", err)
	}
	frames := make([]Frame, len(dec.Frames))
	for i, f := range dec.Frames {
		frames[i] = Frame{
			Mode:     f.Mode,
			Target:   bytesToAddressPtr(f.Target),
			GasLimit: f.GasLimit,
			Data:     f.Data,
		}
	}
	return &FrameTx{
		ChainID:              dec.ChainID,
		Nonce:                dec.Nonce,
		Sender:               dec.Sender,
		Frames:               frames,
		MaxPriorityFeePerGas: dec.MaxPriorityFeePerGas,
		MaxFeePerGas:         dec.MaxFeePerGas,
		MaxFeePerBlobGas:     dec.MaxFeePerBlobGas,
		BlobVersionedHashes:  dec.BlobVersionedHashes,
	}, nil
}

// ComputeFrameSigHash is the canonical signature hash:
// keccak256(0x06 ‖ rlp(tx)) with VERIFY frame payloads elided, so a
// verifier's calldata can be filled in after signing.
func ComputeFrameSigHash(tx *FrameTx) Hash {
	payload, err := rlp.EncodeToBytes(tx.toRLP(true))
	if err != nil {
		return Hash{}
	}
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte{FrameTxType})
	d.Write(payload)
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}

// ValidateFrameTx applies the static EIP-8141 constraints.
func ValidateFrameTx(tx *FrameTx) error {
	if len(tx.Frames) == 0 {
		return errors.New("frame tx: must have at least one frame")
	}
	if len(tx.Frames) > MaxFrames {
		return fmt.Errorf("frame tx: too many frames (%d > %d)", len(tx.Frames), MaxFrames)
	}
	if tx.ChainID != nil && tx.ChainID.Sign() < 0 {
		return errors.New("frame tx: negative chain ID")
	}
	for i, f := range tx.Frames {
		if f.Mode > ModeSender {
			return fmt.Errorf("frame %d: invalid mode %d", i, f.Mode)
		}
	}
	if len(tx.BlobVersionedHashes) == 0 {
		if tx.MaxFeePerBlobGas != nil && tx.MaxFeePerBlobGas.Sign() > 0 {
			return errors.New("frame tx: max_fee_per_blob_gas must be 0 when no blobs")
		}
	}
	return nil
}

// CalcFrameTxGas derives the transaction's total gas limit:
// intrinsic cost + calldata cost of the encoded frames + per-frame limits.
func CalcFrameTxGas(tx *FrameTx) uint64 {
	gas := FrameTxIntrinsicCost
	if encoded, err := rlp.EncodeToBytes(tx.toRLP(false).Frames); err == nil {
		gas += calldataTokenGas(encoded)
	}
	for _, f := range tx.Frames {
		gas += f.GasLimit
	}
	return gas
}

// calldataTokenGas prices bytes the way intrinsic gas does: 4 gas per
// zero byte, 16 per non-zero byte.
func calldataTokenGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += 4
		} else {
			gas += 16
		}
	}
	return gas
}
