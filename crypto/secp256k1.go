package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/eth2030/eth2030/core/types"
)

// SignatureLength is the byte length of a recoverable ECDSA signature:
// 32-byte R, 32-byte S, one-byte recovery id.
const SignatureLength = 65

// DigestLength is the required byte length of a message hash.
const DigestLength = 32

// secp256k1N is the order of the secp256k1 curve.
var secp256k1N = secp256k1.S256().N

// secp256k1halfN is half the order, used for the Homestead low-S check.
var secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)

var (
	errInvalidSigLen  = errors.New("signature must be 65 bytes [R || S || V]")
	errInvalidHashLen = errors.New("hash must be 32 bytes")
	errInvalidPrivKey = errors.New("invalid secp256k1 private key")
)

// S256 returns an instance of the secp256k1 curve.
func S256() elliptic.Curve {
	return secp256k1.S256()
}

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(S256(), rand.Reader)
}

// Sign calculates a recoverable ECDSA signature over a 32-byte hash.
// The result is in the [R || S || V] format with V equal to 0 or 1 and S
// normalized to the lower half of the curve order per EIP-2.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != DigestLength {
		return nil, fmt.Errorf("hash is required to be exactly %d bytes (%d)", DigestLength, len(hash))
	}
	if prv == nil || prv.D == nil {
		return nil, errInvalidPrivKey
	}
	var priv secp256k1.PrivateKey
	if overflow := priv.Key.SetByteSlice(prv.D.Bytes()); overflow || priv.Key.IsZero() {
		return nil, errInvalidPrivKey
	}
	defer priv.Zero()
	// SignCompact places the recovery id at the front; rotate it to the
	// Ethereum trailing-V layout.
	sig := decredecdsa.SignCompact(&priv, hash, false)
	v := sig[0] - 27
	copy(sig, sig[1:])
	sig[64] = v
	return sig, nil
}

// Ecrecover recovers the uncompressed 65-byte public key that produced
// the given [R || S || V] signature over hash.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := recoverPubkey(hash, sig)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// SigToPub recovers the signing public key as a stdlib ecdsa.PublicKey.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	pub, err := recoverPubkey(hash, sig)
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

func recoverPubkey(hash, sig []byte) (*secp256k1.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errInvalidSigLen
	}
	if len(hash) != DigestLength {
		return nil, errInvalidHashLen
	}
	// RecoverCompact wants the recovery id first, offset by 27.
	compact := make([]byte, SignatureLength)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig)
	pub, _, err := decredecdsa.RecoverCompact(compact, hash)
	return pub, err
}

// ValidateSignatureValues checks r, s, v for validity per Homestead rules.
// If homestead is true, s must be in the lower half of the curve order.
func ValidateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	if r == nil || s == nil {
		return false
	}
	if v > 1 {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}
	if homestead && s.Cmp(secp256k1halfN) > 0 {
		return false
	}
	return true
}

// PubkeyToAddress derives the Ethereum address from a public key.
// Address = Keccak256(pubkey[1:])[12:]
func PubkeyToAddress(p ecdsa.PublicKey) types.Address {
	pubBytes := FromECDSAPub(&p)
	if pubBytes == nil {
		return types.Address{}
	}
	hash := Keccak256(pubBytes[1:])
	return types.BytesToAddress(hash[12:])
}

// CompressPubkey compresses a public key to the 33-byte SEC 1 form.
func CompressPubkey(pubkey *ecdsa.PublicKey) []byte {
	if pubkey == nil || pubkey.X == nil || pubkey.Y == nil {
		return nil
	}
	var x, y secp256k1.FieldVal
	x.SetByteSlice(pubkey.X.Bytes())
	y.SetByteSlice(pubkey.Y.Bytes())
	return secp256k1.NewPublicKey(&x, &y).SerializeCompressed()
}

// DecompressPubkey parses a 33-byte compressed public key.
func DecompressPubkey(pubkey []byte) (*ecdsa.PublicKey, error) {
	if len(pubkey) != 33 {
		return nil, errors.New("invalid compressed public key length")
	}
	pub, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

// FromECDSAPub serializes a public key into the 65-byte uncompressed
// SEC 1 form (0x04 prefix, 32-byte X, 32-byte Y).
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	out := make([]byte, 65)
	out[0] = 4
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:65])
	return out
}
