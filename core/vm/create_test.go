package vm

import (
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
)

func TestCreateAddressDerivationIsStable(t *testing.T) {
	caller := types.Address{0x11}
	a1 := createAddress(caller, 5)
	a2 := createAddress(caller, 5)
	if a1 != a2 {
		t.Error("CREATE address must be deterministic in (sender, nonce)")
	}
	if createAddress(caller, 6) == a1 {
		t.Error("different nonce must derive a different address")
	}
}

func TestCreateCollisionHalts(t *testing.T) {
	evm, sdb := newTestEVMWithState()

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)
	sdb.AddBalance(caller, big.NewInt(1_000_000))
	sdb.SetNonce(caller, 5)

	// Pre-plant an account with non-zero nonce at the address CREATE with
	// nonce 5 will derive.
	target := createAddress(caller, 5)
	sdb.CreateAccount(target)
	sdb.SetNonce(target, 1)

	_, _, gasLeft, err := evm.Create(caller, []byte{byte(STOP)}, 100000, big.NewInt(0))
	if err == nil {
		t.Fatal("expected collision error")
	}
	// All forwarded gas is consumed on collision.
	if gasLeft != 0 {
		t.Errorf("gas left = %d, want 0", gasLeft)
	}
	// The caller's nonce still advanced.
	if sdb.GetNonce(caller) != 6 {
		t.Errorf("caller nonce = %d, want 6", sdb.GetNonce(caller))
	}
	// The second identical attempt derives a new address (nonce moved on)
	// and succeeds.
	_, addr, _, err := evm.Create(caller, []byte{byte(STOP)}, 100000, big.NewInt(0))
	if err != nil {
		t.Fatalf("follow-up create failed: %v", err)
	}
	if addr == target {
		t.Error("follow-up create reused the colliding address")
	}
}

func TestCreate2SameInputsCollide(t *testing.T) {
	evm, sdb := newTestEVMWithState()

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)
	sdb.AddBalance(caller, big.NewInt(1_000_000))

	initcode := []byte{byte(STOP)} // deploys empty code
	salt := big.NewInt(7)

	_, addr, _, err := evm.Create2(caller, initcode, 100000, big.NewInt(0), salt)
	if err != nil {
		t.Fatalf("first create2: %v", err)
	}
	if addr == (types.Address{}) {
		t.Fatal("no address returned")
	}

	// Identical (sender, salt, initcode) derives the identical address,
	// which now has nonce 1 -- the second attempt must collide.
	_, _, gasLeft, err := evm.Create2(caller, initcode, 100000, big.NewInt(0), salt)
	if err == nil {
		t.Fatal("expected deterministic collision")
	}
	if gasLeft != 0 {
		t.Errorf("gas left = %d, want 0", gasLeft)
	}
}

// selfdestructTo builds runtime code that SELFDESTRUCTs to the given
// beneficiary.
func selfdestructTo(beneficiary types.Address) []byte {
	code := []byte{byte(PUSH20)}
	code = append(code, beneficiary[:]...)
	return append(code, byte(SELFDESTRUCT))
}

func TestSelfdestructPreCancunDestroys(t *testing.T) {
	evm, sdb := newTestEVMWithState()
	// Zero-value fork rules: Cancun off.

	contract := types.Address{0x05}
	sdb.CreateAccount(contract)
	sdb.AddBalance(contract, big.NewInt(500))
	sdb.SetCode(contract, selfdestructTo(types.Address{0x09}))

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)

	if _, _, err := evm.Call(caller, contract, nil, 100000, big.NewInt(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !sdb.HasSelfDestructed(contract) {
		t.Error("pre-Cancun SELFDESTRUCT should mark the account destroyed")
	}
	if got := sdb.GetBalance(types.Address{0x09}); got.Int64() != 500 {
		t.Errorf("beneficiary balance = %v, want 500", got)
	}
}

func TestSelfdestructCancunSweepsOnly(t *testing.T) {
	evm, sdb := newTestEVMWithState()
	evm.SetForkRules(ForkRules{IsEIP158: true, IsCancun: true})

	contract := types.Address{0x05}
	sdb.CreateAccount(contract)
	sdb.AddBalance(contract, big.NewInt(500))
	sdb.SetCode(contract, selfdestructTo(types.Address{0x09}))

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)

	if _, _, err := evm.Call(caller, contract, nil, 100000, big.NewInt(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if sdb.HasSelfDestructed(contract) {
		t.Error("EIP-6780: a pre-existing account must not be destroyed")
	}
	if got := sdb.GetBalance(types.Address{0x09}); got.Int64() != 500 {
		t.Errorf("beneficiary balance = %v, want 500", got)
	}
	if got := sdb.GetBalance(contract); got.Sign() != 0 {
		t.Errorf("contract balance = %v, want 0", got)
	}
}

func TestSelfdestructCancunSameTxDestroys(t *testing.T) {
	evm, sdb := newTestEVMWithState()
	evm.SetForkRules(ForkRules{IsEIP158: true, IsCancun: true})

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)
	sdb.AddBalance(caller, big.NewInt(1_000))

	// Initcode that immediately SELFDESTRUCTs to 0x09:
	// PUSH20 <beneficiary> SELFDESTRUCT
	initcode := selfdestructTo(types.Address{0x09})

	_, addr, _, err := evm.Create(caller, initcode, 200000, big.NewInt(300))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sdb.HasSelfDestructed(addr) {
		t.Error("EIP-6780: an account destroyed in its creating transaction is deleted")
	}
	if got := sdb.GetBalance(types.Address{0x09}); got.Int64() != 300 {
		t.Errorf("beneficiary balance = %v, want 300", got)
	}
}

// returnEFInitcode deploys the single runtime byte 0xEF:
// PUSH1 0xEF PUSH1 0 MSTORE8 PUSH1 1 PUSH1 0 RETURN
var returnEFInitcode = []byte{
	byte(PUSH1), 0xEF,
	byte(PUSH1), 0,
	byte(MSTORE8),
	byte(PUSH1), 1,
	byte(PUSH1), 0,
	byte(RETURN),
}

func TestCreateRejectsEFPrefixPostLondon(t *testing.T) {
	evm, sdb := newTestEVMWithState()
	evm.SetForkRules(ForkRules{IsEIP158: true, IsLondon: true})

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)
	sdb.AddBalance(caller, big.NewInt(1_000))

	_, _, _, err := evm.Create(caller, returnEFInitcode, 100000, big.NewInt(0))
	if err != ErrInvalidCodeFormat {
		t.Fatalf("err = %v, want ErrInvalidCodeFormat", err)
	}
}

func TestCreateAllowsEFPrefixPreLondon(t *testing.T) {
	evm, sdb := newTestEVMWithState()
	evm.SetForkRules(ForkRules{IsEIP158: true})

	caller := types.Address{0x01}
	sdb.CreateAccount(caller)
	sdb.AddBalance(caller, big.NewInt(1_000))

	_, addr, _, err := evm.Create(caller, returnEFInitcode, 100000, big.NewInt(0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if code := sdb.GetCode(addr); len(code) != 1 || code[0] != 0xEF {
		t.Errorf("deployed code = %x, want ef", code)
	}
}
