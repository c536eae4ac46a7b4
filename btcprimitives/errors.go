// Package btcprimitives implements the pure Bitcoin building blocks the
// anchoring service needs: redeem-script compilation, P2WSH address
// derivation, transaction serialization/hashing, BIP143 sighash computation
// and secp256k1 signing/verification. Nothing here touches a network or a
// clock — every function is deterministic given its arguments.
package btcprimitives

import "errors"

// Sentinel errors returned by this package. Callers that need to distinguish
// kinds should use errors.Is.
var (
	// ErrInvalidEncoding is returned when a key, signature, script or
	// transaction fails to parse.
	ErrInvalidEncoding = errors.New("btcprimitives: invalid encoding")

	// ErrInvalidSignature is returned when a signature fails verification.
	ErrInvalidSignature = errors.New("btcprimitives: invalid signature")

	// ErrBadThreshold is returned when the multisig threshold M and key
	// count N do not satisfy 1 <= M <= N <= 15.
	ErrBadThreshold = errors.New("btcprimitives: bad multisig threshold")
)
