package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth2030/eth2030/rlp"
	"golang.org/x/crypto/sha3"
)

var (
	errUnknownTxType = errors.New("unknown transaction type")
	errShortTypedTx  = errors.New("typed transaction too short")
)

// Wire layouts. Field order is consensus-critical; the RLP encoder walks
// exported struct fields in declaration order, so these structs ARE the
// encoding.

// legacyTxWire: [nonce, gasPrice, gasLimit, to, value, data, v, r, s]
type legacyTxWire struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte // empty for contract creation, 20 bytes otherwise
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// accessListTxWire: [chainID, nonce, gasPrice, gasLimit, to, value, data,
// accessList, v, r, s]
type accessListTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleWire
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// dynamicFeeTxWire: [chainID, nonce, maxPriorityFeePerGas, maxFeePerGas,
// gasLimit, to, value, data, accessList, v, r, s]
type dynamicFeeTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleWire
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// blobTxWire: the dynamic-fee layout plus [maxFeePerBlobGas,
// blobVersionedHashes] before the signature. To is a bare address since
// blob transactions cannot create.
type blobTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleWire
	BlobFeeCap *big.Int
	BlobHashes []Hash
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// setCodeTxWire: the dynamic-fee layout plus the authorization list.
type setCodeTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleWire
	AuthList   []authorizationWire
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

type accessTupleWire struct {
	Address     Address
	StorageKeys []Hash
}

type authorizationWire struct {
	ChainID *big.Int
	Address Address
	Nonce   uint64
	V       *big.Int
	R       *big.Int
	S       *big.Int
}

// wirePayload builds the RLP-ready representation of a typed payload.
func wirePayload(inner TxData) (interface{}, error) {
	switch tx := inner.(type) {
	case *AccessListTx:
		return accessListTxWire{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasPrice:   bigOrZero(tx.GasPrice),
			Gas:        tx.Gas,
			To:         addressPtrToBytes(tx.To),
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: wireAccessList(tx.AccessList),
			V:          bigOrZero(tx.V),
			R:          bigOrZero(tx.R),
			S:          bigOrZero(tx.S),
		}, nil
	case *DynamicFeeTx:
		return dynamicFeeTxWire{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasTipCap:  bigOrZero(tx.GasTipCap),
			GasFeeCap:  bigOrZero(tx.GasFeeCap),
			Gas:        tx.Gas,
			To:         addressPtrToBytes(tx.To),
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: wireAccessList(tx.AccessList),
			V:          bigOrZero(tx.V),
			R:          bigOrZero(tx.R),
			S:          bigOrZero(tx.S),
		}, nil
	case *BlobTx:
		return blobTxWire{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasTipCap:  bigOrZero(tx.GasTipCap),
			GasFeeCap:  bigOrZero(tx.GasFeeCap),
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: wireAccessList(tx.AccessList),
			BlobFeeCap: bigOrZero(tx.BlobFeeCap),
			BlobHashes: tx.BlobHashes,
			V:          bigOrZero(tx.V),
			R:          bigOrZero(tx.R),
			S:          bigOrZero(tx.S),
		}, nil
	case *SetCodeTx:
		return setCodeTxWire{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasTipCap:  bigOrZero(tx.GasTipCap),
			GasFeeCap:  bigOrZero(tx.GasFeeCap),
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: wireAccessList(tx.AccessList),
			AuthList:   wireAuthList(tx.AuthorizationList),
			V:          bigOrZero(tx.V),
			R:          bigOrZero(tx.R),
			S:          bigOrZero(tx.S),
		}, nil
	default:
		return nil, errUnknownTxType
	}
}

// EncodeRLP returns the envelope encoding: the bare RLP list for legacy
// transactions, type_byte ‖ RLP([...]) for typed ones.
func (tx *Transaction) EncodeRLP() ([]byte, error) {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		return rlp.EncodeToBytes(legacyTxWire{
			Nonce:    inner.Nonce,
			GasPrice: bigOrZero(inner.GasPrice),
			Gas:      inner.Gas,
			To:       addressPtrToBytes(inner.To),
			Value:    bigOrZero(inner.Value),
			Data:     inner.Data,
			V:        bigOrZero(inner.V),
			R:        bigOrZero(inner.R),
			S:        bigOrZero(inner.S),
		})
	case *FrameTx:
		return EncodeFrameTx(inner)
	default:
		wire, err := wirePayload(inner)
		if err != nil {
			return nil, err
		}
		payload, err := rlp.EncodeToBytes(wire)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 1+len(payload))
		out[0] = inner.txType()
		copy(out[1:], payload)
		return out, nil
	}
}

// DecodeTxRLP decodes an envelope encoding. A leading byte at or below
// 0x7f selects a typed transaction; a list prefix selects legacy.
func DecodeTxRLP(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, errors.New("empty transaction data")
	}
	if data[0] <= 0x7f && data[0] != 0 {
		return decodeTypedTx(data[0], data[1:])
	}
	if data[0] >= 0xc0 {
		return decodeLegacyTx(data)
	}
	// A 0x00 lead byte is tolerated as an informal type-0 envelope.
	if data[0] == 0x00 {
		if len(data) < 2 {
			return nil, errShortTypedTx
		}
		return decodeLegacyTx(data[1:])
	}
	return nil, fmt.Errorf("invalid transaction encoding, first byte: 0x%02x", data[0])
}

func decodeLegacyTx(data []byte) (*Transaction, error) {
	var dec legacyTxWire
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return nil, fmt.Errorf("decode legacy tx: %w", err)
	}
	return NewTransaction(&LegacyTx{
		Nonce:    dec.Nonce,
		GasPrice: dec.GasPrice,
		Gas:      dec.Gas,
		To:       bytesToAddressPtr(dec.To),
		Value:    dec.Value,
		Data:     dec.Data,
		V:        dec.V,
		R:        dec.R,
		S:        dec.S,
	}), nil
}

func decodeTypedTx(txType byte, payload []byte) (*Transaction, error) {
	if len(payload) == 0 {
		return nil, errShortTypedTx
	}
	switch txType {
	case AccessListTxType:
		var dec accessListTxWire
		if err := rlp.DecodeBytes(payload, &dec); err != nil {
			return nil, fmt.Errorf("decode access list tx: %w", err)
		}
		return NewTransaction(&AccessListTx{
			ChainID:    dec.ChainID,
			Nonce:      dec.Nonce,
			GasPrice:   dec.GasPrice,
			Gas:        dec.Gas,
			To:         bytesToAddressPtr(dec.To),
			Value:      dec.Value,
			Data:       dec.Data,
			AccessList: unwireAccessList(dec.AccessList),
			V:          dec.V,
			R:          dec.R,
			S:          dec.S,
		}), nil
	case DynamicFeeTxType:
		var dec dynamicFeeTxWire
		if err := rlp.DecodeBytes(payload, &dec); err != nil {
			return nil, fmt.Errorf("decode dynamic fee tx: %w", err)
		}
		return NewTransaction(&DynamicFeeTx{
			ChainID:    dec.ChainID,
			Nonce:      dec.Nonce,
			GasTipCap:  dec.GasTipCap,
			GasFeeCap:  dec.GasFeeCap,
			Gas:        dec.Gas,
			To:         bytesToAddressPtr(dec.To),
			Value:      dec.Value,
			Data:       dec.Data,
			AccessList: unwireAccessList(dec.AccessList),
			V:          dec.V,
			R:          dec.R,
			S:          dec.S,
		}), nil
	case BlobTxType:
		var dec blobTxWire
		if err := rlp.DecodeBytes(payload, &dec); err != nil {
			return nil, fmt.Errorf("decode blob tx: %w", err)
		}
		return NewTransaction(&BlobTx{
			ChainID:    dec.ChainID,
			Nonce:      dec.Nonce,
			GasTipCap:  dec.GasTipCap,
			GasFeeCap:  dec.GasFeeCap,
			Gas:        dec.Gas,
			To:         dec.To,
			Value:      dec.Value,
			Data:       dec.Data,
			AccessList: unwireAccessList(dec.AccessList),
			BlobFeeCap: dec.BlobFeeCap,
			BlobHashes: dec.BlobHashes,
			V:          dec.V,
			R:          dec.R,
			S:          dec.S,
		}), nil
	case SetCodeTxType:
		var dec setCodeTxWire
		if err := rlp.DecodeBytes(payload, &dec); err != nil {
			return nil, fmt.Errorf("decode set code tx: %w", err)
		}
		return NewTransaction(&SetCodeTx{
			ChainID:           dec.ChainID,
			Nonce:             dec.Nonce,
			GasTipCap:         dec.GasTipCap,
			GasFeeCap:         dec.GasFeeCap,
			Gas:               dec.Gas,
			To:                dec.To,
			Value:             dec.Value,
			Data:              dec.Data,
			AccessList:        unwireAccessList(dec.AccessList),
			AuthorizationList: unwireAuthList(dec.AuthList),
			V:                 dec.V,
			R:                 dec.R,
			S:                 dec.S,
		}), nil
	case FrameTxType:
		inner, err := DecodeFrameTx(payload)
		if err != nil {
			return nil, err
		}
		return NewTransaction(inner), nil
	default:
		return nil, fmt.Errorf("unsupported transaction type: 0x%02x", txType)
	}
}

// ---- Access list / authorization wire conversion ----

func wireAccessList(al AccessList) []accessTupleWire {
	if al == nil {
		return nil
	}
	out := make([]accessTupleWire, len(al))
	for i, t := range al {
		out[i] = accessTupleWire{Address: t.Address, StorageKeys: t.StorageKeys}
	}
	return out
}

func unwireAccessList(al []accessTupleWire) AccessList {
	if al == nil {
		return nil
	}
	out := make(AccessList, len(al))
	for i, t := range al {
		out[i] = AccessTuple{Address: t.Address, StorageKeys: t.StorageKeys}
	}
	return out
}

func wireAuthList(auths []Authorization) []authorizationWire {
	if auths == nil {
		return nil
	}
	out := make([]authorizationWire, len(auths))
	for i, a := range auths {
		out[i] = authorizationWire{
			ChainID: bigOrZero(a.ChainID),
			Address: a.Address,
			Nonce:   a.Nonce,
			V:       bigOrZero(a.V),
			R:       bigOrZero(a.R),
			S:       bigOrZero(a.S),
		}
	}
	return out
}

func unwireAuthList(auths []authorizationWire) []Authorization {
	if auths == nil {
		return nil
	}
	out := make([]Authorization, len(auths))
	for i, a := range auths {
		out[i] = Authorization{
			ChainID: a.ChainID,
			Address: a.Address,
			Nonce:   a.Nonce,
			V:       a.V,
			R:       a.R,
			S:       a.S,
		}
	}
	return out
}

// ---- Small helpers shared with the signing-hash builders ----

func addressPtrToBytes(a *Address) []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

func bytesToAddressPtr(b []byte) *Address {
	if len(b) == 0 {
		return nil
	}
	a := BytesToAddress(b)
	return &a
}

// bigOrZero substitutes a zero for nil so the encoder never sees a nil
// *big.Int in a consensus field.
func bigOrZero(i *big.Int) *big.Int {
	if i != nil {
		return i
	}
	return new(big.Int)
}

// ---- Hashing ----

// hashRLP is keccak256 of the envelope encoding.
func (tx *Transaction) hashRLP() Hash {
	enc, err := tx.EncodeRLP()
	if err != nil {
		return Hash{}
	}
	return keccakHash(enc)
}

func keccakHash(chunks ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		d.Write(c)
	}
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}

// SigningHash returns the hash the sender signed:
// legacy pre-EIP-155: keccak256(RLP([nonce, gasPrice, gas, to, value, data]))
// legacy EIP-155:     ... with [chainID, 0, 0] appended
// typed:              keccak256(type ‖ RLP([fields without v, r, s]))
func (tx *Transaction) SigningHash() Hash {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return signingHashLegacy(t)
	case *AccessListTx:
		return signingHashAccessList(t)
	case *DynamicFeeTx:
		return signingHashDynamicFee(t)
	case *BlobTx:
		return signingHashBlob(t)
	case *SetCodeTx:
		return signingHashSetCode(t)
	case *FrameTx:
		return ComputeFrameSigHash(t)
	default:
		return Hash{}
	}
}

func signingHashLegacy(tx *LegacyTx) Hash {
	toBytes := make([]byte, 0)
	if tx.To != nil {
		toBytes = tx.To[:]
	}
	payload := encodeUnsignedFields(tx.Nonce, tx.GasPrice, tx.Gas, toBytes, tx.Value, tx.Data)

	if chainID := deriveChainID(tx.V); chainID != nil && chainID.Sign() > 0 {
		payload = append(payload, encodeUnsignedFields(chainID, uint(0), uint(0))...)
	}
	return keccakHash(rlp.WrapList(payload))
}

func signingHashAccessList(tx *AccessListTx) Hash {
	toBytes := make([]byte, 0)
	if tx.To != nil {
		toBytes = tx.To[:]
	}
	payload := encodeUnsignedFields(
		tx.ChainID, tx.Nonce, tx.GasPrice, tx.Gas, toBytes, tx.Value, tx.Data,
	)
	payload = append(payload, encodeAccessListBytes(tx.AccessList)...)
	return typedSigningHash(AccessListTxType, payload)
}

func signingHashDynamicFee(tx *DynamicFeeTx) Hash {
	toBytes := make([]byte, 0)
	if tx.To != nil {
		toBytes = tx.To[:]
	}
	payload := encodeUnsignedFields(
		tx.ChainID, tx.Nonce, tx.GasTipCap, tx.GasFeeCap, tx.Gas, toBytes, tx.Value, tx.Data,
	)
	payload = append(payload, encodeAccessListBytes(tx.AccessList)...)
	return typedSigningHash(DynamicFeeTxType, payload)
}

func signingHashBlob(tx *BlobTx) Hash {
	payload := encodeUnsignedFields(
		tx.ChainID, tx.Nonce, tx.GasTipCap, tx.GasFeeCap, tx.Gas, tx.To[:], tx.Value, tx.Data,
	)
	payload = append(payload, encodeAccessListBytes(tx.AccessList)...)
	payload = append(payload, encodeUnsignedFields(tx.BlobFeeCap)...)
	payload = append(payload, encodeHashList(tx.BlobHashes)...)
	return typedSigningHash(BlobTxType, payload)
}

func signingHashSetCode(tx *SetCodeTx) Hash {
	payload := encodeUnsignedFields(
		tx.ChainID, tx.Nonce, tx.GasTipCap, tx.GasFeeCap, tx.Gas, tx.To[:], tx.Value, tx.Data,
	)
	payload = append(payload, encodeAccessListBytes(tx.AccessList)...)
	payload = append(payload, encodeAuthListBytes(tx.AuthorizationList)...)
	return typedSigningHash(SetCodeTxType, payload)
}

// encodeUnsignedFields RLP-encodes each value and concatenates the
// results into a list payload.
func encodeUnsignedFields(vals ...interface{}) []byte {
	var payload []byte
	for _, v := range vals {
		b, _ := rlp.EncodeToBytes(v)
		payload = append(payload, b...)
	}
	return payload
}

// typedSigningHash is keccak256(type ‖ list(payload)).
func typedSigningHash(txType byte, payload []byte) Hash {
	return keccakHash([]byte{txType}, rlp.WrapList(payload))
}

func encodeAccessListBytes(list AccessList) []byte {
	var inner []byte
	for _, tuple := range list {
		item := append([]byte{}, rlp.EncodeBytes20(tuple.Address)...)
		item = append(item, encodeHashList(tuple.StorageKeys)...)
		inner = append(inner, rlp.WrapList(item)...)
	}
	return rlp.WrapList(inner)
}

func encodeHashList(hashes []Hash) []byte {
	var inner []byte
	for _, h := range hashes {
		inner = append(inner, rlp.EncodeBytes32(h)...)
	}
	return rlp.WrapList(inner)
}

func encodeAuthListBytes(list []Authorization) []byte {
	var inner []byte
	for _, auth := range list {
		item := encodeUnsignedFields(auth.ChainID, auth.Address[:], auth.Nonce)
		inner = append(inner, rlp.WrapList(item)...)
	}
	return rlp.WrapList(inner)
}
