package crypto

// BLS12-381 precompile backends, EIP-2537.
//
// Group arithmetic, multi-scalar multiplication, pairings, and the SSWU
// map-to-curve are delegated to gnark-crypto. This file owns the EIP-2537
// wire format: field elements padded to 64 bytes, G1 points as 128 bytes,
// G2 points as 256 bytes, Fp2 coefficients real-part-first, and all-zero
// encodings standing for the point at infinity.
//
// Subgroup checks follow the EIP: ADD accepts any on-curve point, while
// MUL, MSM, and PAIRING reject points outside the r-order subgroup.

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

var (
	errBLS12InvalidPoint  = errors.New("bls12-381: invalid point")
	errBLS12InvalidG2     = errors.New("bls12-381: invalid G2 point")
	errBLS12NotOnCurve    = errors.New("bls12-381: point not on curve")
	errBLS12NotInSubgroup = errors.New("bls12-381: point not in subgroup")
	errBLS12InvalidField  = errors.New("bls12-381: invalid field element")
)

// BLS12-381 precompile encoding sizes.
const (
	blsFpEncSize  = 64  // field element padded to 64 bytes
	blsG1EncSize  = 128 // G1 point: 2 * 64 bytes
	blsG2EncSize  = 256 // G2 point: 2 * 128 bytes
	blsScalarSize = 32  // Fr scalar
)

// decodeBLSFp reads a 64-byte padded field element. The top 16 bytes must
// be zero and the low 48 bytes must be a canonical Fp value.
func decodeBLSFp(data []byte) (fp.Element, error) {
	var e fp.Element
	if len(data) != blsFpEncSize {
		return e, errBLS12InvalidField
	}
	for i := 0; i < 16; i++ {
		if data[i] != 0 {
			return e, errBLS12InvalidField
		}
	}
	if err := e.SetBytesCanonical(data[16:]); err != nil {
		return e, errBLS12InvalidField
	}
	return e, nil
}

// encodeBLSFp writes a field element as 64 bytes (big-endian, zero-padded).
func encodeBLSFp(dst []byte, e *fp.Element) {
	b := e.Bytes()
	copy(dst[16:blsFpEncSize], b[:])
}

// decodeBLSG1 reads a 128-byte G1 point. All zeros decodes to the point
// at infinity. checkSubgroup additionally requires membership in the
// r-order subgroup (G1 has a non-trivial cofactor on this curve).
func decodeBLSG1(data []byte, checkSubgroup bool) (*bls12381.G1Affine, error) {
	if len(data) != blsG1EncSize {
		return nil, errBLS12InvalidPoint
	}
	var p bls12381.G1Affine
	var err error
	if p.X, err = decodeBLSFp(data[:blsFpEncSize]); err != nil {
		return nil, err
	}
	if p.Y, err = decodeBLSFp(data[blsFpEncSize:]); err != nil {
		return nil, err
	}
	if p.X.IsZero() && p.Y.IsZero() {
		return &p, nil
	}
	if !p.IsOnCurve() {
		return nil, errBLS12NotOnCurve
	}
	if checkSubgroup && !p.IsInSubGroup() {
		return nil, errBLS12NotInSubgroup
	}
	return &p, nil
}

// encodeBLSG1 writes a G1 point as 128 bytes.
func encodeBLSG1(p *bls12381.G1Affine) []byte {
	out := make([]byte, blsG1EncSize)
	if p.IsInfinity() {
		return out
	}
	encodeBLSFp(out[:blsFpEncSize], &p.X)
	encodeBLSFp(out[blsFpEncSize:], &p.Y)
	return out
}

// decodeBLSG2 reads a 256-byte G2 point. Each Fp2 coefficient is encoded
// real part first, then imaginary, per EIP-2537.
func decodeBLSG2(data []byte, checkSubgroup bool) (*bls12381.G2Affine, error) {
	if len(data) != blsG2EncSize {
		return nil, errBLS12InvalidG2
	}
	var p bls12381.G2Affine
	var err error
	if p.X.A0, err = decodeBLSFp(data[0:blsFpEncSize]); err != nil {
		return nil, err
	}
	if p.X.A1, err = decodeBLSFp(data[blsFpEncSize : 2*blsFpEncSize]); err != nil {
		return nil, err
	}
	if p.Y.A0, err = decodeBLSFp(data[2*blsFpEncSize : 3*blsFpEncSize]); err != nil {
		return nil, err
	}
	if p.Y.A1, err = decodeBLSFp(data[3*blsFpEncSize:]); err != nil {
		return nil, err
	}
	if p.X.IsZero() && p.Y.IsZero() {
		return &p, nil
	}
	if !p.IsOnCurve() {
		return nil, errBLS12NotOnCurve
	}
	if checkSubgroup && !p.IsInSubGroup() {
		return nil, errBLS12NotInSubgroup
	}
	return &p, nil
}

// encodeBLSG2 writes a G2 point as 256 bytes.
func encodeBLSG2(p *bls12381.G2Affine) []byte {
	out := make([]byte, blsG2EncSize)
	if p.X.IsZero() && p.Y.IsZero() {
		return out
	}
	encodeBLSFp(out[0:blsFpEncSize], &p.X.A0)
	encodeBLSFp(out[blsFpEncSize:2*blsFpEncSize], &p.X.A1)
	encodeBLSFp(out[2*blsFpEncSize:3*blsFpEncSize], &p.Y.A0)
	encodeBLSFp(out[3*blsFpEncSize:], &p.Y.A1)
	return out
}

// --- Precompile entry points ---

// BLS12G1Add performs G1 point addition (precompile 0x0b).
func BLS12G1Add(input []byte) ([]byte, error) {
	if len(input) != 2*blsG1EncSize {
		return nil, errBLS12InvalidPoint
	}
	p1, err := decodeBLSG1(input[:blsG1EncSize], false)
	if err != nil {
		return nil, err
	}
	p2, err := decodeBLSG1(input[blsG1EncSize:], false)
	if err != nil {
		return nil, err
	}
	var r bls12381.G1Affine
	r.Add(p1, p2)
	return encodeBLSG1(&r), nil
}

// BLS12G1Mul performs G1 scalar multiplication (precompile 0x0c).
func BLS12G1Mul(input []byte) ([]byte, error) {
	if len(input) != blsG1EncSize+blsScalarSize {
		return nil, errBLS12InvalidPoint
	}
	p, err := decodeBLSG1(input[:blsG1EncSize], true)
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[blsG1EncSize:])
	var r bls12381.G1Affine
	r.ScalarMultiplication(p, scalar)
	return encodeBLSG1(&r), nil
}

// BLS12G1MSM performs G1 multi-scalar multiplication (precompile 0x0d).
func BLS12G1MSM(input []byte) ([]byte, error) {
	pairSize := blsG1EncSize + blsScalarSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, errBLS12InvalidPoint
	}
	k := len(input) / pairSize
	points := make([]bls12381.G1Affine, k)
	scalars := make([]fr.Element, k)
	for i := 0; i < k; i++ {
		off := i * pairSize
		p, err := decodeBLSG1(input[off:off+blsG1EncSize], true)
		if err != nil {
			return nil, err
		}
		points[i] = *p
		scalars[i].SetBytes(input[off+blsG1EncSize : off+pairSize])
	}
	var r bls12381.G1Affine
	if _, err := r.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return nil, errBLS12InvalidPoint
	}
	return encodeBLSG1(&r), nil
}

// BLS12G2Add performs G2 point addition (precompile 0x0e).
func BLS12G2Add(input []byte) ([]byte, error) {
	if len(input) != 2*blsG2EncSize {
		return nil, errBLS12InvalidG2
	}
	p1, err := decodeBLSG2(input[:blsG2EncSize], false)
	if err != nil {
		return nil, err
	}
	p2, err := decodeBLSG2(input[blsG2EncSize:], false)
	if err != nil {
		return nil, err
	}
	var r bls12381.G2Affine
	r.Add(p1, p2)
	return encodeBLSG2(&r), nil
}

// BLS12G2Mul performs G2 scalar multiplication (precompile 0x0f).
func BLS12G2Mul(input []byte) ([]byte, error) {
	if len(input) != blsG2EncSize+blsScalarSize {
		return nil, errBLS12InvalidG2
	}
	p, err := decodeBLSG2(input[:blsG2EncSize], true)
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[blsG2EncSize:])
	var r bls12381.G2Affine
	r.ScalarMultiplication(p, scalar)
	return encodeBLSG2(&r), nil
}

// BLS12G2MSM performs G2 multi-scalar multiplication (precompile 0x10).
func BLS12G2MSM(input []byte) ([]byte, error) {
	pairSize := blsG2EncSize + blsScalarSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, errBLS12InvalidG2
	}
	k := len(input) / pairSize
	points := make([]bls12381.G2Affine, k)
	scalars := make([]fr.Element, k)
	for i := 0; i < k; i++ {
		off := i * pairSize
		p, err := decodeBLSG2(input[off:off+blsG2EncSize], true)
		if err != nil {
			return nil, err
		}
		points[i] = *p
		scalars[i].SetBytes(input[off+blsG2EncSize : off+pairSize])
	}
	var r bls12381.G2Affine
	if _, err := r.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return nil, errBLS12InvalidG2
	}
	return encodeBLSG2(&r), nil
}

// BLS12Pairing performs the pairing check (precompile 0x11).
// Input: k * 384 bytes (k pairs of G1 + G2 points, both subgroup-checked).
// Output: 32 bytes, 1 if the product of pairings is the identity in GT,
// 0 otherwise.
func BLS12Pairing(input []byte) ([]byte, error) {
	pairSize := blsG1EncSize + blsG2EncSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, errBLS12InvalidPoint
	}
	k := len(input) / pairSize
	g1Points := make([]bls12381.G1Affine, k)
	g2Points := make([]bls12381.G2Affine, k)
	for i := 0; i < k; i++ {
		off := i * pairSize
		p, err := decodeBLSG1(input[off:off+blsG1EncSize], true)
		if err != nil {
			return nil, err
		}
		q, err := decodeBLSG2(input[off+blsG1EncSize:off+pairSize], true)
		if err != nil {
			return nil, err
		}
		g1Points[i] = *p
		g2Points[i] = *q
	}

	ok, err := bls12381.PairingCheck(g1Points, g2Points)
	if err != nil {
		return nil, errBLS12InvalidPoint
	}
	return blsPairingResult(ok), nil
}

// BLS12MapFpToG1 maps a field element to G1 (precompile 0x12). The SSWU
// map includes cofactor clearing, so the result is always in the subgroup.
func BLS12MapFpToG1(input []byte) ([]byte, error) {
	if len(input) != blsFpEncSize {
		return nil, errBLS12InvalidField
	}
	u, err := decodeBLSFp(input)
	if err != nil {
		return nil, err
	}
	p := bls12381.MapToG1(u)
	return encodeBLSG1(&p), nil
}

// BLS12MapFp2ToG2 maps an Fp2 element to G2 (precompile 0x13).
func BLS12MapFp2ToG2(input []byte) ([]byte, error) {
	if len(input) != 2*blsFpEncSize {
		return nil, errBLS12InvalidField
	}
	c0, err := decodeBLSFp(input[:blsFpEncSize])
	if err != nil {
		return nil, err
	}
	c1, err := decodeBLSFp(input[blsFpEncSize:])
	if err != nil {
		return nil, err
	}
	p := bls12381.MapToG2(bls12381.E2{A0: c0, A1: c1})
	return encodeBLSG2(&p), nil
}

// blsPairingResult encodes a pairing result as 32 bytes.
func blsPairingResult(ok bool) []byte {
	out := make([]byte, 32)
	if ok {
		out[31] = 1
	}
	return out
}
