package core

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/rlp"
)

// Authorization rejection reasons. An invalid authorization is skipped,
// never fatal to the transaction, so these surface only through the debug
// log and the unit tests.
var (
	ErrAuthChainID      = errors.New("authorization chain ID mismatch")
	ErrAuthNonce        = errors.New("authorization nonce mismatch")
	ErrAuthNonceMax     = errors.New("authorization nonce at maximum")
	ErrAuthSignature    = errors.New("authorization signature recovery failed")
	ErrAuthInvalidSig   = errors.New("authorization signature values invalid")
	ErrAuthorityHasCode = errors.New("authority has non-delegation code")
)

// ProcessAuthorizations applies the authorization list of a SetCode
// transaction: each valid entry turns the signing EOA's code into a
// delegation designator for the authorized address (or clears it, for the
// zero address). Per EIP-7702, invalid entries are skipped without
// failing the transaction.
func ProcessAuthorizations(statedb state.StateDB, authorizations []types.Authorization, chainID *big.Int) error {
	for i := range authorizations {
		if err := processOneAuthorization(statedb, &authorizations[i], chainID); err != nil {
			coreLog.Debug("skipping invalid authorization", "index", i, "err", err)
		}
	}
	return nil
}

// processOneAuthorization validates and applies a single entry.
func processOneAuthorization(statedb state.StateDB, auth *types.Authorization, chainID *big.Int) error {
	// Chain binding: zero means any chain, anything else must match.
	if auth.ChainID != nil && auth.ChainID.Sign() != 0 {
		if chainID == nil || auth.ChainID.Cmp(chainID) != 0 {
			return ErrAuthChainID
		}
	}

	// An authorization signed at the nonce ceiling could never be applied:
	// the increment below would wrap (EIP-2681).
	if auth.Nonce == math.MaxUint64 {
		return ErrAuthNonceMax
	}

	// Signature sanity: v in {0, 1}, r and s canonical low-s.
	v := byte(0)
	if auth.V != nil {
		if !auth.V.IsUint64() || auth.V.Uint64() > 1 {
			return ErrAuthInvalidSig
		}
		v = byte(auth.V.Uint64())
	}
	if !crypto.ValidateSignatureValues(v, auth.R, auth.S, true) {
		return ErrAuthInvalidSig
	}

	authority, err := recoverAuthority(auth, v)
	if err != nil {
		return err
	}

	// The authority must look like an EOA: no code, or code that is
	// itself a delegation designator being replaced.
	if code := statedb.GetCode(authority); len(code) > 0 && !types.HasDelegationPrefix(code) {
		return ErrAuthorityHasCode
	}

	// The signed nonce must be the authority's current nonce.
	currentNonce := statedb.GetNonce(authority)
	if auth.Nonce != currentNonce {
		return ErrAuthNonce
	}

	// An authority that already exists in state refunds the difference
	// between the empty-account charge and the base charge.
	if !statedb.Empty(authority) {
		statedb.AddRefund(types.PerEmptyAccountCost - types.PerAuthBaseCost)
	}

	// Install the designator; the zero address clears any delegation.
	if auth.Address == (types.Address{}) {
		statedb.SetCode(authority, nil)
	} else {
		statedb.SetCode(authority, types.AddressToDelegation(auth.Address))
	}
	statedb.SetNonce(authority, currentNonce+1)

	return nil
}

// recoverAuthority recovers the signing EOA from an authorization entry.
func recoverAuthority(auth *types.Authorization, v byte) (types.Address, error) {
	var sig [65]byte
	if auth.R != nil {
		auth.R.FillBytes(sig[:32])
	}
	if auth.S != nil {
		auth.S.FillBytes(sig[32:64])
	}
	sig[64] = v

	pubBytes, err := crypto.Ecrecover(computeAuthorizationHash(auth), sig[:])
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrAuthSignature, err)
	}
	return types.BytesToAddress(crypto.Keccak256(pubBytes[1:])[12:]), nil
}

// computeAuthorizationHash is the EIP-7702 signing hash:
// keccak256(0x05 ‖ rlp([chain_id, address, nonce])).
func computeAuthorizationHash(auth *types.Authorization) []byte {
	chainEnc, _ := rlp.EncodeToBytes(auth.ChainID)

	var payload []byte
	payload = append(payload, chainEnc...)
	payload = append(payload, rlp.EncodeBytes20(auth.Address)...)
	payload = rlp.AppendUint64(payload, auth.Nonce)

	return crypto.Keccak256([]byte{types.AuthMagic}, rlp.WrapList(payload))
}

// IsDelegated reports whether code carries the EIP-7702 designator prefix.
func IsDelegated(code []byte) bool {
	return types.HasDelegationPrefix(code)
}

// ResolveDelegation extracts the delegate address from designator code;
// ok is false unless code is an exact 23-byte designator.
func ResolveDelegation(code []byte) (types.Address, bool) {
	return types.ParseDelegation(code)
}
