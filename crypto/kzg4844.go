package crypto

// KZG commitment operations for EIP-4844 blobs, backed by the
// crate-crypto/go-eth-kzg library with the embedded mainnet trusted setup.
//
// The context is initialized lazily: loading the ceremony SRS takes a few
// seconds, and callers that never touch blob transactions or the point
// evaluation precompile should not pay for it.

import (
	"errors"
	"sync"

	gokzg4844 "github.com/crate-crypto/go-eth-kzg"
)

// BlobSize is the byte length of a full EIP-4844 data blob:
// 4096 field elements of 32 bytes each.
const BlobSize = 4096 * 32

// Blob is a full EIP-4844 data blob.
type Blob [BlobSize]byte

// KZGCommitment is a serialized commitment to a blob polynomial.
type KZGCommitment [48]byte

// KZGProof is a serialized opening proof.
type KZGProof [48]byte

// KZGPoint is an evaluation point, a 32-byte BLS field element.
type KZGPoint [32]byte

// KZGClaim is a claimed evaluation value at a KZGPoint.
type KZGClaim [32]byte

var (
	kzgCtxOnce sync.Once
	kzgCtx     *gokzg4844.Context
)

func kzgContext() *gokzg4844.Context {
	kzgCtxOnce.Do(func() {
		ctx, err := gokzg4844.NewContext4096Secure()
		if err != nil {
			// The setup is compiled into the library; failing to parse it
			// is unrecoverable.
			panic("kzg: failed to load trusted setup: " + err.Error())
		}
		kzgCtx = ctx
	})
	return kzgCtx
}

var errKZGVerifyFailed = errors.New("kzg: proof verification failed")

// KZGBlobToCommitment computes the commitment for a blob.
func KZGBlobToCommitment(blob *Blob) (KZGCommitment, error) {
	c, err := kzgContext().BlobToKZGCommitment((*gokzg4844.Blob)(blob), 0)
	if err != nil {
		return KZGCommitment{}, err
	}
	return KZGCommitment(c), nil
}

// KZGComputeProof computes the opening proof for a blob at the given
// point, returning the proof and the claimed evaluation value.
func KZGComputeProof(blob *Blob, point KZGPoint) (KZGProof, KZGClaim, error) {
	proof, claim, err := kzgContext().ComputeKZGProof((*gokzg4844.Blob)(blob), gokzg4844.Scalar(point), 0)
	if err != nil {
		return KZGProof{}, KZGClaim{}, err
	}
	return KZGProof(proof), KZGClaim(claim), nil
}

// KZGVerifyProof verifies that the polynomial behind commitment evaluates
// to claim at point, as attested by proof.
func KZGVerifyProof(commitment KZGCommitment, point KZGPoint, claim KZGClaim, proof KZGProof) error {
	err := kzgContext().VerifyKZGProof(
		gokzg4844.KZGCommitment(commitment),
		gokzg4844.Scalar(point),
		gokzg4844.Scalar(claim),
		gokzg4844.KZGProof(proof),
	)
	if err != nil {
		return errKZGVerifyFailed
	}
	return nil
}

// KZGComputeBlobProof computes the whole-blob proof used by the blob
// sidecar verification flow.
func KZGComputeBlobProof(blob *Blob, commitment KZGCommitment) (KZGProof, error) {
	proof, err := kzgContext().ComputeBlobKZGProof((*gokzg4844.Blob)(blob), gokzg4844.KZGCommitment(commitment), 0)
	if err != nil {
		return KZGProof{}, err
	}
	return KZGProof(proof), nil
}

// KZGVerifyBlobProof verifies a whole-blob proof against a commitment.
func KZGVerifyBlobProof(blob *Blob, commitment KZGCommitment, proof KZGProof) error {
	err := kzgContext().VerifyBlobKZGProof((*gokzg4844.Blob)(blob), gokzg4844.KZGCommitment(commitment), gokzg4844.KZGProof(proof))
	if err != nil {
		return errKZGVerifyFailed
	}
	return nil
}
