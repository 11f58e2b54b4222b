package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
)

// P256Verify checks an ECDSA signature over the NIST P-256 curve, the
// core of the P256VERIFY precompile (EIP-7212/RIP-7212). hash is the
// 32-byte message digest, (r, s) the signature, and (x, y) the affine
// public key coordinates. Malformed keys verify as false rather than
// erroring, matching the precompile's all-or-nothing output.
func P256Verify(hash []byte, r, s, x, y *big.Int) bool {
	if r == nil || s == nil || x == nil || y == nil {
		return false
	}
	curve := elliptic.P256()
	if x.Sign() == 0 && y.Sign() == 0 {
		return false
	}
	if !curve.IsOnCurve(x, y) {
		return false
	}
	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return ecdsa.Verify(pub, hash, r, s)
}
