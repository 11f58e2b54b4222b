package types

import (
	"math/big"
	"sync/atomic"
	"unsafe"
)

// Transaction envelope type bytes.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01 // EIP-2930
	DynamicFeeTxType = 0x02 // EIP-1559
	BlobTxType       = 0x03 // EIP-4844
	SetCodeTxType    = 0x04 // EIP-7702
)

// BlobGasPerBlob is the gas consumed by each blob (2^17).
const BlobGasPerBlob = 131072

// VersionedHashVersionKZG is the required lead byte of an EIP-4844
// versioned hash: sha256(kzg_commitment) with the first byte replaced.
const VersionedHashVersionKZG byte = 0x01

// Transaction wraps one of the typed payloads behind a uniform accessor
// surface, caching the hash and recovered sender.
type Transaction struct {
	inner TxData
	hash  atomic.Pointer[Hash]
	size  atomic.Uint64
	from  atomic.Pointer[Address]
}

// SetSender caches the recovered sender address.
func (tx *Transaction) SetSender(addr Address) {
	a := addr
	tx.from.Store(&a)
}

// Sender returns the cached sender address, nil if never recovered.
func (tx *Transaction) Sender() *Address {
	return tx.from.Load()
}

// TxData is the payload behind a Transaction, one implementation per
// envelope type.
type TxData interface {
	txType() byte
	chainID() *big.Int
	accessList() AccessList
	data() []byte
	gas() uint64
	gasPrice() *big.Int
	gasTipCap() *big.Int
	gasFeeCap() *big.Int
	value() *big.Int
	nonce() uint64
	to() *Address

	copy() TxData
}

// AccessList pre-declares the accounts and slots a transaction intends to
// touch (EIP-2930); entries are warmed before execution.
type AccessList []AccessTuple

// AccessTuple is one account with its declared storage keys.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// Authorization is one EIP-7702 delegation: the signing EOA authorizes
// Address to act as its code.
type Authorization struct {
	ChainID *big.Int
	Address Address
	Nonce   uint64
	V       *big.Int
	R       *big.Int
	S       *big.Int
}

func (a *Authorization) copy() Authorization {
	return Authorization{
		ChainID: copyBig(a.ChainID),
		Address: a.Address,
		Nonce:   a.Nonce,
		V:       copyBig(a.V),
		R:       copyBig(a.R),
		S:       copyBig(a.S),
	}
}

// LegacyTx is the original untyped transaction shape.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

func (tx *LegacyTx) txType() byte           { return LegacyTxType }
func (tx *LegacyTx) chainID() *big.Int      { return deriveChainID(tx.V) }
func (tx *LegacyTx) accessList() AccessList { return nil }
func (tx *LegacyTx) data() []byte           { return tx.Data }
func (tx *LegacyTx) gas() uint64            { return tx.Gas }
func (tx *LegacyTx) gasPrice() *big.Int     { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *big.Int    { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *big.Int    { return tx.GasPrice }
func (tx *LegacyTx) value() *big.Int        { return tx.Value }
func (tx *LegacyTx) nonce() uint64          { return tx.Nonce }
func (tx *LegacyTx) to() *Address           { return tx.To }

func (tx *LegacyTx) copy() TxData {
	return &LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: copyBig(tx.GasPrice),
		Gas:      tx.Gas,
		To:       copyAddressPtr(tx.To),
		Value:    copyBig(tx.Value),
		Data:     copyBytes(tx.Data),
		V:        copyBig(tx.V),
		R:        copyBig(tx.R),
		S:        copyBig(tx.S),
	}
}

// AccessListTx is the EIP-2930 typed transaction.
type AccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *AccessListTx) txType() byte           { return AccessListTxType }
func (tx *AccessListTx) chainID() *big.Int      { return tx.ChainID }
func (tx *AccessListTx) accessList() AccessList { return tx.AccessList }
func (tx *AccessListTx) data() []byte           { return tx.Data }
func (tx *AccessListTx) gas() uint64            { return tx.Gas }
func (tx *AccessListTx) gasPrice() *big.Int     { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *big.Int    { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *big.Int    { return tx.GasPrice }
func (tx *AccessListTx) value() *big.Int        { return tx.Value }
func (tx *AccessListTx) nonce() uint64          { return tx.Nonce }
func (tx *AccessListTx) to() *Address           { return tx.To }

func (tx *AccessListTx) copy() TxData {
	return &AccessListTx{
		ChainID:    copyBig(tx.ChainID),
		Nonce:      tx.Nonce,
		GasPrice:   copyBig(tx.GasPrice),
		Gas:        tx.Gas,
		To:         copyAddressPtr(tx.To),
		Value:      copyBig(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          copyBig(tx.V),
		R:          copyBig(tx.R),
		S:          copyBig(tx.S),
	}
}

// DynamicFeeTx is the EIP-1559 typed transaction.
type DynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int // maxPriorityFeePerGas
	GasFeeCap  *big.Int // maxFeePerGas
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *DynamicFeeTx) txType() byte           { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *big.Int      { return tx.ChainID }
func (tx *DynamicFeeTx) accessList() AccessList { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte           { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64            { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *big.Int        { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64          { return tx.Nonce }
func (tx *DynamicFeeTx) to() *Address           { return tx.To }

func (tx *DynamicFeeTx) copy() TxData {
	return &DynamicFeeTx{
		ChainID:    copyBig(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyBig(tx.GasTipCap),
		GasFeeCap:  copyBig(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         copyAddressPtr(tx.To),
		Value:      copyBig(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          copyBig(tx.V),
		R:          copyBig(tx.R),
		S:          copyBig(tx.S),
	}
}

// BlobTx is the EIP-4844 typed transaction. To is not a pointer: blob
// transactions cannot create contracts.
type BlobTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *big.Int
	BlobHashes []Hash
	V, R, S    *big.Int
}

func (tx *BlobTx) txType() byte           { return BlobTxType }
func (tx *BlobTx) chainID() *big.Int      { return tx.ChainID }
func (tx *BlobTx) accessList() AccessList { return tx.AccessList }
func (tx *BlobTx) data() []byte           { return tx.Data }
func (tx *BlobTx) gas() uint64            { return tx.Gas }
func (tx *BlobTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *BlobTx) value() *big.Int        { return tx.Value }
func (tx *BlobTx) nonce() uint64          { return tx.Nonce }
func (tx *BlobTx) to() *Address           { addr := tx.To; return &addr }

func (tx *BlobTx) copy() TxData {
	cpy := &BlobTx{
		ChainID:    copyBig(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyBig(tx.GasTipCap),
		GasFeeCap:  copyBig(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         tx.To,
		Value:      copyBig(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		BlobFeeCap: copyBig(tx.BlobFeeCap),
		V:          copyBig(tx.V),
		R:          copyBig(tx.R),
		S:          copyBig(tx.S),
	}
	if tx.BlobHashes != nil {
		cpy.BlobHashes = make([]Hash, len(tx.BlobHashes))
		copy(cpy.BlobHashes, tx.BlobHashes)
	}
	return cpy
}

// SetCodeTx is the EIP-7702 typed transaction. Like BlobTx it always has
// a destination.
type SetCodeTx struct {
	ChainID           *big.Int
	Nonce             uint64
	GasTipCap         *big.Int
	GasFeeCap         *big.Int
	Gas               uint64
	To                Address
	Value             *big.Int
	Data              []byte
	AccessList        AccessList
	AuthorizationList []Authorization
	V, R, S           *big.Int
}

func (tx *SetCodeTx) txType() byte           { return SetCodeTxType }
func (tx *SetCodeTx) chainID() *big.Int      { return tx.ChainID }
func (tx *SetCodeTx) accessList() AccessList { return tx.AccessList }
func (tx *SetCodeTx) data() []byte           { return tx.Data }
func (tx *SetCodeTx) gas() uint64            { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *SetCodeTx) value() *big.Int        { return tx.Value }
func (tx *SetCodeTx) nonce() uint64          { return tx.Nonce }
func (tx *SetCodeTx) to() *Address           { addr := tx.To; return &addr }

func (tx *SetCodeTx) copy() TxData {
	cpy := &SetCodeTx{
		ChainID:    copyBig(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyBig(tx.GasTipCap),
		GasFeeCap:  copyBig(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         tx.To,
		Value:      copyBig(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          copyBig(tx.V),
		R:          copyBig(tx.R),
		S:          copyBig(tx.S),
	}
	if tx.AuthorizationList != nil {
		cpy.AuthorizationList = make([]Authorization, len(tx.AuthorizationList))
		for i := range tx.AuthorizationList {
			cpy.AuthorizationList[i] = tx.AuthorizationList[i].copy()
		}
	}
	return cpy
}

// NewTransaction wraps a deep copy of inner in a Transaction envelope.
func NewTransaction(inner TxData) *Transaction {
	return &Transaction{inner: inner.copy()}
}

// Type returns the envelope type byte.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// ChainId returns the chain the transaction is bound to. Legacy
// transactions derive it from V; pre-EIP-155 signatures yield zero.
func (tx *Transaction) ChainId() *big.Int { return tx.inner.chainID() }

// AccessList returns the declared access list, nil for legacy txs.
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList() }

// Data returns the calldata (or initcode, for creations).
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// Gas returns the gas limit.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the legacy gas price; for dynamic-fee types this is
// the fee cap.
func (tx *Transaction) GasPrice() *big.Int { return tx.inner.gasPrice() }

// GasTipCap returns maxPriorityFeePerGas.
func (tx *Transaction) GasTipCap() *big.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns maxFeePerGas.
func (tx *Transaction) GasFeeCap() *big.Int { return tx.inner.gasFeeCap() }

// Value returns the amount of ether transferred.
func (tx *Transaction) Value() *big.Int { return tx.inner.value() }

// Nonce returns the sender nonce.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// To returns the destination, nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// AuthorizationList returns the EIP-7702 authorizations; nil for every
// type but SetCodeTx.
func (tx *Transaction) AuthorizationList() []Authorization {
	if setCode, ok := tx.inner.(*SetCodeTx); ok {
		return setCode.AuthorizationList
	}
	return nil
}

// BlobGasFeeCap returns maxFeePerBlobGas; nil for non-blob types.
func (tx *Transaction) BlobGasFeeCap() *big.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// BlobHashes returns the versioned blob hashes; nil for non-blob types.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// BlobGas returns the blob gas this transaction consumes.
func (tx *Transaction) BlobGas() uint64 {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return uint64(len(blob.BlobHashes)) * BlobGasPerBlob
	}
	return 0
}

// RawSignatureValues returns the V, R, S components as signed.
func (tx *Transaction) RawSignatureValues() (v, r, s *big.Int) {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.V, t.R, t.S
	case *AccessListTx:
		return t.V, t.R, t.S
	case *DynamicFeeTx:
		return t.V, t.R, t.S
	case *BlobTx:
		return t.V, t.R, t.S
	case *SetCodeTx:
		return t.V, t.R, t.S
	default:
		return nil, nil, nil
	}
}

// Hash returns the transaction hash (keccak256 of the signed encoding),
// computed once.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := tx.hashRLP()
	tx.hash.Store(&h)
	return h
}

// Size returns an approximate in-memory footprint.
func (tx *Transaction) Size() uint64 {
	if cached := tx.size.Load(); cached != 0 {
		return cached
	}
	size := uint64(unsafe.Sizeof(*tx))
	tx.size.Store(size)
	return size
}

func copyBig(i *big.Int) *big.Int {
	if i == nil {
		return nil
	}
	return new(big.Int).Set(i)
}

func copyAddressPtr(a *Address) *Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: make([]Hash, len(tuple.StorageKeys)),
		}
		copy(cpy[i].StorageKeys, tuple.StorageKeys)
	}
	return cpy
}

// deriveChainID recovers the chain id folded into a legacy V value:
// EIP-155 sets v = chainID*2 + 35 + recovery, while pre-155 signatures
// use 27/28 and carry no chain id.
func deriveChainID(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	if v.BitLen() <= 8 {
		val := v.Uint64()
		if val == 27 || val == 28 {
			return new(big.Int)
		}
	}
	chainID := new(big.Int).Sub(v, big.NewInt(35))
	chainID.Div(chainID, big.NewInt(2))
	return chainID
}
