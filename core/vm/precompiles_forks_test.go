package vm

import (
	"testing"

	"github.com/eth2030/eth2030/core/types"
)

func TestSelectPrecompilesOsakaIncludesP256Verify(t *testing.T) {
	rules := ForkRules{IsPrague: true, IsOsaka: true}
	m := SelectPrecompiles(rules)
	if _, ok := m[p256VerifyAddress]; !ok {
		t.Fatal("expected P256VERIFY at 0x0100 to be registered under Osaka rules")
	}
}

func TestSelectPrecompilesPragueExcludesP256Verify(t *testing.T) {
	rules := ForkRules{IsPrague: true}
	m := SelectPrecompiles(rules)
	if _, ok := m[p256VerifyAddress]; ok {
		t.Fatal("P256VERIFY must not be reachable before Osaka")
	}
}

func TestSelectPrecompilesGlamsterdanIncludesP256Verify(t *testing.T) {
	rules := ForkRules{IsPrague: true, IsGlamsterdan: true}
	m := SelectPrecompiles(rules)
	if _, ok := m[p256VerifyAddress]; !ok {
		t.Fatal("a later speculative fork must still carry the Osaka precompile set")
	}
	if _, ok := m[types.BytesToAddress([]byte{9})]; !ok {
		t.Fatal("expected Glamsterdan's repriced BLAKE2F to be registered")
	}
}
