package types

import (
	"math/big"
	"testing"
)

func TestNewReceipt(t *testing.T) {
	r := NewReceipt(ReceiptStatusSuccessful, 21000)
	if !r.Succeeded() {
		t.Error("status 1 receipt should report success")
	}
	if r.CumulativeGasUsed != 21000 {
		t.Errorf("cumulative gas = %d", r.CumulativeGasUsed)
	}

	if NewReceipt(ReceiptStatusFailed, 0).Succeeded() {
		t.Error("status 0 receipt should not report success")
	}
}

func TestDeriveReceiptFields(t *testing.T) {
	tx1 := NewTransaction(&LegacyTx{Nonce: 0, Gas: 21000, Value: big.NewInt(1)})
	tx2 := NewTransaction(&LegacyTx{Nonce: 1, Gas: 21000, Value: big.NewInt(2)})

	r1 := NewReceipt(ReceiptStatusSuccessful, 21000)
	r1.Logs = []*Log{{Address: HexToAddress("0x01")}, {Address: HexToAddress("0x02")}}
	r2 := NewReceipt(ReceiptStatusSuccessful, 42000)
	r2.Logs = []*Log{{Address: HexToAddress("0x03")}}

	blockHash := HexToHash("0xbb")
	DeriveReceiptFields([]*Receipt{r1, r2}, blockHash, 7, big.NewInt(1000), []*Transaction{tx1, tx2})

	for i, r := range []*Receipt{r1, r2} {
		if r.BlockHash != blockHash {
			t.Errorf("receipt %d block hash = %s", i, r.BlockHash)
		}
		if r.BlockNumber.Uint64() != 7 {
			t.Errorf("receipt %d block number = %v", i, r.BlockNumber)
		}
		if r.TransactionIndex != uint(i) {
			t.Errorf("receipt %d tx index = %d", i, r.TransactionIndex)
		}
	}
	if r1.TxHash != tx1.Hash() || r2.TxHash != tx2.Hash() {
		t.Error("receipt tx hashes not derived from the transaction list")
	}

	// Log indices run block-globally: 0, 1 in the first receipt, 2 in the
	// second.
	wantIdx := uint(0)
	for _, r := range []*Receipt{r1, r2} {
		for _, l := range r.Logs {
			if l.Index != wantIdx {
				t.Errorf("log index = %d, want %d", l.Index, wantIdx)
			}
			if l.BlockHash != blockHash || l.BlockNumber != 7 {
				t.Error("log block context not derived")
			}
			if l.TxHash != r.TxHash {
				t.Error("log tx hash not derived")
			}
			wantIdx++
		}
	}
}

func TestDeriveReceiptFieldsEmpty(t *testing.T) {
	// No receipts: must not panic.
	DeriveReceiptFields(nil, Hash{}, 0, nil, nil)
}

func TestReceiptBloomFromLogs(t *testing.T) {
	addr := HexToAddress("0x1111")
	topic := HexToHash("0x2222")
	logs := []*Log{{Address: addr, Topics: []Hash{topic}}}

	bloom := LogsBloom(logs)
	if !BloomContains(bloom, addr.Bytes()) {
		t.Error("bloom should contain the log address")
	}
	if !BloomContains(bloom, topic.Bytes()) {
		t.Error("bloom should contain the topic")
	}
	if BloomContains(bloom, HexToAddress("0xdead").Bytes()) {
		t.Error("bloom reports an address that never logged")
	}
}
