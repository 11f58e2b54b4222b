package crypto

// BN254 (alt_bn128) precompile backends, EIP-196/EIP-197.
//
// Point arithmetic and pairings are delegated to gnark-crypto; this file
// owns only the EVM wire format: 32-byte big-endian coordinates, (0,0) as
// the point at infinity, and right-zero-padding of short inputs.

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

var (
	errBN254InvalidPoint  = errors.New("bn254: invalid point")
	errBN254InvalidG2     = errors.New("bn254: invalid G2 point")
	errBN254InvalidLength = errors.New("bn254: invalid input length")
)

// bn254DecodeG1 reads a 64-byte (x ‖ y) affine G1 point. Coordinates must
// be canonical field elements; (0,0) decodes to the point at infinity.
// BN254 G1 has cofactor 1, so on-curve implies in-subgroup.
func bn254DecodeG1(in []byte) (*bn254.G1Affine, error) {
	var p bn254.G1Affine
	if err := p.X.SetBytesCanonical(in[:32]); err != nil {
		return nil, errBN254InvalidPoint
	}
	if err := p.Y.SetBytesCanonical(in[32:64]); err != nil {
		return nil, errBN254InvalidPoint
	}
	if p.X.IsZero() && p.Y.IsZero() {
		return &p, nil
	}
	if !p.IsOnCurve() {
		return nil, errBN254InvalidPoint
	}
	return &p, nil
}

// bn254DecodeG2 reads a 128-byte G2 point in EVM coefficient order:
// x_imag ‖ x_real ‖ y_imag ‖ y_real. Unlike G1, the G2 cofactor is
// non-trivial, so membership in the r-torsion subgroup is checked.
func bn254DecodeG2(in []byte) (*bn254.G2Affine, error) {
	var p bn254.G2Affine
	if err := p.X.A1.SetBytesCanonical(in[:32]); err != nil {
		return nil, errBN254InvalidG2
	}
	if err := p.X.A0.SetBytesCanonical(in[32:64]); err != nil {
		return nil, errBN254InvalidG2
	}
	if err := p.Y.A1.SetBytesCanonical(in[64:96]); err != nil {
		return nil, errBN254InvalidG2
	}
	if err := p.Y.A0.SetBytesCanonical(in[96:128]); err != nil {
		return nil, errBN254InvalidG2
	}
	if p.X.IsZero() && p.Y.IsZero() {
		return &p, nil
	}
	if !p.IsOnCurve() {
		return nil, errBN254InvalidG2
	}
	if !p.IsInSubGroup() {
		return nil, errBN254InvalidG2
	}
	return &p, nil
}

// bn254EncodeG1 writes an affine G1 point as 64 bytes. The gnark zero
// value (the point at infinity) serializes to all zeros, as the EVM
// format requires.
func bn254EncodeG1(p *bn254.G1Affine) []byte {
	out := make([]byte, 64)
	if p.IsInfinity() {
		return out
	}
	x := p.X.Bytes()
	y := p.Y.Bytes()
	copy(out[:32], x[:])
	copy(out[32:], y[:])
	return out
}

// BN254Add performs point addition on the BN254 curve (precompile 0x06).
// Input: 128 bytes (x1, y1, x2, y2) as 32-byte big-endian integers.
// Short input is right-padded with zeros.
// Output: 64 bytes (x3, y3).
func BN254Add(input []byte) ([]byte, error) {
	input = bn254PadRight(input, 128)

	p1, err := bn254DecodeG1(input[:64])
	if err != nil {
		return nil, err
	}
	p2, err := bn254DecodeG1(input[64:128])
	if err != nil {
		return nil, err
	}

	var r bn254.G1Affine
	r.Add(p1, p2)
	return bn254EncodeG1(&r), nil
}

// BN254ScalarMul performs scalar multiplication on the BN254 curve
// (precompile 0x07).
// Input: 96 bytes (x, y, s) as 32-byte big-endian integers.
// Short input is right-padded with zeros.
// Output: 64 bytes (x', y').
func BN254ScalarMul(input []byte) ([]byte, error) {
	input = bn254PadRight(input, 96)

	p, err := bn254DecodeG1(input[:64])
	if err != nil {
		return nil, err
	}
	s := new(big.Int).SetBytes(input[64:96])

	var r bn254.G1Affine
	r.ScalarMultiplication(p, s)
	return bn254EncodeG1(&r), nil
}

// BN254PairingCheck performs the pairing check (precompile 0x08).
// Input: k * 192 bytes, each chunk holding a G1 point followed by a G2
// point. Output: 32 bytes, 1 if the product of pairings is the identity
// in GT, 0 otherwise. An empty input is the empty product, which is 1.
func BN254PairingCheck(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errBN254InvalidLength
	}
	k := len(input) / 192
	if k == 0 {
		return bn254PairingResult(true), nil
	}

	g1Points := make([]bn254.G1Affine, k)
	g2Points := make([]bn254.G2Affine, k)
	for i := 0; i < k; i++ {
		chunk := input[i*192 : (i+1)*192]
		p, err := bn254DecodeG1(chunk[:64])
		if err != nil {
			return nil, err
		}
		q, err := bn254DecodeG2(chunk[64:192])
		if err != nil {
			return nil, err
		}
		g1Points[i] = *p
		g2Points[i] = *q
	}

	ok, err := bn254.PairingCheck(g1Points, g2Points)
	if err != nil {
		return nil, errBN254InvalidPoint
	}
	return bn254PairingResult(ok), nil
}

// bn254PairingResult encodes a pairing check result as 32 bytes.
func bn254PairingResult(ok bool) []byte {
	out := make([]byte, 32)
	if ok {
		out[31] = 1
	}
	return out
}

// bn254PadRight pads data with zeros on the right to reach minLen.
func bn254PadRight(data []byte, minLen int) []byte {
	if len(data) >= minLen {
		return data[:minLen]
	}
	padded := make([]byte, minLen)
	copy(padded, data)
	return padded
}
