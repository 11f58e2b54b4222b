package types

import (
	"bytes"
	"math/big"
	"testing"
)

func roundTrip(t *testing.T, tx *Transaction) *Transaction {
	t.Helper()
	enc, err := tx.EncodeRLP()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := DecodeTxRLP(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Type() != tx.Type() {
		t.Fatalf("type changed across round trip: %d -> %d", tx.Type(), dec.Type())
	}
	// The envelope re-encoding must be byte-identical.
	enc2, err := dec.EncodeRLP()
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(enc, enc2) {
		t.Fatalf("encoding not stable:\n %x\n %x", enc, enc2)
	}
	if dec.Hash() != tx.Hash() {
		t.Fatal("hash changed across round trip")
	}
	return dec
}

func TestLegacyTxEnvelope(t *testing.T) {
	to := HexToAddress("0x42")
	tx := NewTransaction(&LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(2_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(123),
		Data:     []byte{0xca, 0xfe},
		V:        big.NewInt(37),
		R:        big.NewInt(10),
		S:        big.NewInt(11),
	})
	enc, err := tx.EncodeRLP()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Legacy transactions are a bare RLP list, no type byte.
	if enc[0] < 0xc0 {
		t.Errorf("legacy envelope should start with a list prefix, got %#x", enc[0])
	}

	dec := roundTrip(t, tx)
	if dec.Nonce() != 7 || dec.Gas() != 21000 || dec.Value().Int64() != 123 {
		t.Error("fields lost in round trip")
	}
	v, r, s := dec.RawSignatureValues()
	if v.Int64() != 37 || r.Int64() != 10 || s.Int64() != 11 {
		t.Error("signature lost in round trip")
	}
}

func TestTypedTxEnvelopes(t *testing.T) {
	to := HexToAddress("0x99")
	al := AccessList{{Address: HexToAddress("0x0a"), StorageKeys: []Hash{HexToHash("0x01")}}}

	txs := []*Transaction{
		NewTransaction(&AccessListTx{
			ChainID: big.NewInt(1), Nonce: 1, GasPrice: big.NewInt(5), Gas: 30000,
			To: &to, Value: big.NewInt(9), AccessList: al,
			V: big.NewInt(1), R: big.NewInt(2), S: big.NewInt(3),
		}),
		NewTransaction(&DynamicFeeTx{
			ChainID: big.NewInt(1), Nonce: 2, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(20),
			Gas: 40000, To: &to, Value: big.NewInt(8), AccessList: al,
			V: big.NewInt(0), R: big.NewInt(4), S: big.NewInt(5),
		}),
		NewTransaction(&BlobTx{
			ChainID: big.NewInt(1), Nonce: 3, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(20),
			Gas: 50000, To: to, Value: big.NewInt(7), AccessList: al,
			BlobFeeCap: big.NewInt(30), BlobHashes: []Hash{HexToHash("0x0101")},
			V: big.NewInt(1), R: big.NewInt(6), S: big.NewInt(7),
		}),
		NewTransaction(&SetCodeTx{
			ChainID: big.NewInt(1), Nonce: 4, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(20),
			Gas: 60000, To: to, Value: big.NewInt(6),
			AuthorizationList: []Authorization{{
				ChainID: big.NewInt(1), Address: HexToAddress("0xaa"), Nonce: 1,
				V: big.NewInt(0), R: big.NewInt(8), S: big.NewInt(9),
			}},
			V: big.NewInt(1), R: big.NewInt(10), S: big.NewInt(11),
		}),
	}

	for _, tx := range txs {
		enc, err := tx.EncodeRLP()
		if err != nil {
			t.Fatalf("type %d encode: %v", tx.Type(), err)
		}
		if enc[0] != tx.Type() {
			t.Errorf("type %d envelope starts with %#x", tx.Type(), enc[0])
		}
		roundTrip(t, tx)
	}
}

func TestTypedTxFieldsSurvive(t *testing.T) {
	to := HexToAddress("0x99")
	tx := NewTransaction(&BlobTx{
		ChainID: big.NewInt(5), Nonce: 3, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(20),
		Gas: 50000, To: to, Value: big.NewInt(7),
		BlobFeeCap: big.NewInt(30), BlobHashes: []Hash{HexToHash("0x0102")},
		V: big.NewInt(1), R: big.NewInt(6), S: big.NewInt(7),
	})
	dec := roundTrip(t, tx)
	if dec.ChainId().Int64() != 5 {
		t.Error("chain id lost")
	}
	if dec.BlobGasFeeCap().Int64() != 30 || len(dec.BlobHashes()) != 1 {
		t.Error("blob fields lost")
	}
	if *dec.To() != to {
		t.Error("destination lost")
	}

	sc := NewTransaction(&SetCodeTx{
		ChainID: big.NewInt(1), Gas: 60000, To: to,
		AuthorizationList: []Authorization{{
			ChainID: big.NewInt(1), Address: HexToAddress("0xaa"), Nonce: 12,
			V: big.NewInt(1), R: big.NewInt(8), S: big.NewInt(9),
		}},
		V: big.NewInt(1), R: big.NewInt(10), S: big.NewInt(11),
	})
	decSc := roundTrip(t, sc)
	auths := decSc.AuthorizationList()
	if len(auths) != 1 || auths[0].Nonce != 12 || auths[0].Address != HexToAddress("0xaa") {
		t.Errorf("authorization list lost: %+v", auths)
	}
}

func TestContractCreationRoundTrip(t *testing.T) {
	// nil To encodes as the empty string and must decode back to nil.
	tx := NewTransaction(&LegacyTx{
		Nonce: 1, GasPrice: big.NewInt(10), Gas: 100000,
		Value: big.NewInt(0), Data: []byte{0x60, 0x00},
		V: big.NewInt(27), R: big.NewInt(1), S: big.NewInt(1),
	})
	if dec := roundTrip(t, tx); dec.To() != nil {
		t.Error("creation tx decoded with a destination")
	}

	dyn := NewTransaction(&DynamicFeeTx{
		ChainID: big.NewInt(1), Gas: 100000, GasFeeCap: big.NewInt(10),
		GasTipCap: big.NewInt(1), Data: []byte{0x60, 0x00},
		V: big.NewInt(0), R: big.NewInt(1), S: big.NewInt(1),
	})
	if dec := roundTrip(t, dyn); dec.To() != nil {
		t.Error("typed creation tx decoded with a destination")
	}
}

func TestTransactionHashProperties(t *testing.T) {
	tx := NewTransaction(&LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000})
	h1 := tx.Hash()
	if h1.IsZero() {
		t.Fatal("hash is zero")
	}
	if tx.Hash() != h1 {
		t.Error("hash not stable across calls")
	}

	// A different nonce must hash differently.
	other := NewTransaction(&LegacyTx{Nonce: 2, GasPrice: big.NewInt(1), Gas: 21000})
	if other.Hash() == h1 {
		t.Error("distinct transactions share a hash")
	}
}

func TestSigningHashExcludesSignature(t *testing.T) {
	base := &DynamicFeeTx{
		ChainID: big.NewInt(1), Nonce: 1, GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(10), Gas: 21000,
	}
	signed := *base
	signed.V, signed.R, signed.S = big.NewInt(1), big.NewInt(2), big.NewInt(3)

	h1 := NewTransaction(base).SigningHash()
	h2 := NewTransaction(&signed).SigningHash()
	if h1 != h2 {
		t.Error("signature values leaked into the signing hash")
	}

	// But the envelope hash differs.
	if NewTransaction(base).Hash() == NewTransaction(&signed).Hash() {
		t.Error("signature values missing from the envelope hash")
	}
}

func TestDecodeRejectsMalformedEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bare type byte", []byte{0x02}},
		{"unknown type", []byte{0x7a, 0xc0}},
		{"garbage prefix", []byte{0xb5, 0x01}},
		{"truncated list", []byte{0xc9, 0x01}},
	}
	for _, tc := range cases {
		if _, err := DecodeTxRLP(tc.data); err == nil {
			t.Errorf("%s: decoded without error", tc.name)
		}
	}
}
