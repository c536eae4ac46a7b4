package btcprimitives

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
)

// MaxAnchoringKeys is the largest validator set this package can compile a
// redeem script for. OP_CHECKMULTISIG only supports up to 16 pushed data
// items on the stack for N, so the spec fixes N <= 15 (§4.1).
const MaxAnchoringKeys = 15

// Threshold computes the Byzantine quorum size M = floor(2N/3) + 1 for a
// validator set of size N.
func Threshold(n int) int {
	return (2*n)/3 + 1
}

// CompressedPubKey is the 33-byte compressed secp256k1 encoding used
// throughout this package for validator Bitcoin keys.
type CompressedPubKey [33]byte

// ParseCompressedPubKey decodes a 33-byte compressed public key.
func ParseCompressedPubKey(b []byte) (CompressedPubKey, error) {
	var out CompressedPubKey
	if len(b) != 33 {
		return out, fmt.Errorf("%w: compressed pubkey must be 33 bytes, got %d", ErrInvalidEncoding, len(b))
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	copy(out[:], b)
	return out, nil
}

// PublicKey parses the pubkey bytes into a usable secp256k1 point.
func (k CompressedPubKey) PublicKey() (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(k[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return pub, nil
}

// BuildRedeemScript compiles the ordered validator pubkeys and threshold M
// into the P2WSH witness script:
//
//	OP_M OP_PUSH(pk_1) ... OP_PUSH(pk_N) OP_N OP_CHECKMULTISIG
//
// Key order matters: it defines both the script bytes and the validator
// index every signature is keyed by (§3, §4.3).
func BuildRedeemScript(pubkeys []CompressedPubKey, threshold int) ([]byte, error) {
	n := len(pubkeys)
	if n == 0 || n > MaxAnchoringKeys {
		return nil, fmt.Errorf("%w: n=%d (want 1..%d)", ErrBadThreshold, n, MaxAnchoringKeys)
	}
	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("%w: m=%d n=%d", ErrBadThreshold, threshold, n)
	}

	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(threshold))
	for _, pk := range pubkeys {
		builder.AddData(pk[:])
	}
	builder.AddInt64(int64(n))
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: building redeem script: %v", ErrInvalidEncoding, err)
	}
	return script, nil
}

// RedeemScriptHash returns the SHA256 hash of a witness script, as used for
// both the P2WSH witness program and the Transition payload's
// prev_redeem_script_hash field (§3).
func RedeemScriptHash(redeemScript []byte) [32]byte {
	return sha256Sum(redeemScript)
}
