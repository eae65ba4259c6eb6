// Package pow implements the admission client-puzzle from spec §4.10.
// The puzzle itself is intentionally simple — a SHA-256 leading-zero
// search — grounded in the teacher's consensus.AntiDRDoSManager
// challenge/response pattern (crypto/rand nonce, sha256, hex digest)
// adapted from a stateful tester/candidate challenge into a
// stateless, cross-implementation-reproducible client puzzle.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Proof is the in-memory result of a completed search. ElapsedMs is a
// local-only field: Compute does not fill it in, and codec.PoWProof has
// no field for it, so it never reaches the wire (spec §4.10:
// "elapsed_ms MUST NOT appear on the wire").
type Proof struct {
	K         int
	Nonce     int64
	Hash      string
	ElapsedMs float64
}

// input builds the exact byte sequence hashed for PoW: nodeID + ":" +
// decimal(nonce), ASCII. This concrete form is fixed by spec §4.10 so
// proofs are reproducible across implementations.
func input(nodeID string, nonce int64) []byte {
	return []byte(nodeID + ":" + strconv.FormatInt(nonce, 10))
}

func leadingZeroHexCount(digest string, k int) bool {
	if len(digest) < k {
		return false
	}
	for i := 0; i < k; i++ {
		if digest[i] != '0' {
			return false
		}
	}
	return true
}

// Compute performs a linear scan over nonce = 0, 1, 2, … until it finds
// a SHA-256 digest whose hex encoding has k leading zero characters.
// k == 0 is handled by the caller (admission disabled); Compute itself
// always does real work if asked, since it has no opinion on policy.
//
// Compute is CPU-bound and expected to run off the actor loop (spec
// §4.10's "execution contract"); ctx lets the caller cancel a search
// that's taking too long or whose engine is shutting down.
func Compute(ctx context.Context, nodeID string, k int) (Proof, error) {
	if k < 0 {
		return Proof{}, fmt.Errorf("pow: negative difficulty %d", k)
	}
	var nonce int64
	for {
		select {
		case <-ctx.Done():
			return Proof{}, ctx.Err()
		default:
		}

		sum := sha256.Sum256(input(nodeID, nonce))
		digest := hex.EncodeToString(sum[:])
		if leadingZeroHexCount(digest, k) {
			return Proof{K: k, Nonce: nonce, Hash: digest}, nil
		}
		nonce++
	}
}

// Validate re-derives SHA-256(sender_id + ":" + nonce) and checks it
// against the claimed hash and the leading-zero condition, per spec
// §4.10's validation steps. Validate also rejects proof.K < requiredK
// itself; only the "missing pow object" check is left to the caller.
func Validate(nodeID string, proof Proof, requiredK int) bool {
	if proof.K < requiredK {
		return false
	}
	sum := sha256.Sum256(input(nodeID, proof.Nonce))
	digest := hex.EncodeToString(sum[:])
	if digest != proof.Hash {
		return false
	}
	return leadingZeroHexCount(digest, requiredK)
}

// CommitmentHash derives a BLAKE2b-256 fingerprint of a node identity.
// Nothing in this repository calls it: the engine's msg_id derivation
// hashes with blake2b directly, and it plays no role in puzzle
// validation (the puzzle is fixed to SHA-256 by spec §4.10).
func CommitmentHash(nodeID string) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(nodeID))
	return h.Sum(nil)
}
