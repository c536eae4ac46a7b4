// Package sigstore collects per-input witness signatures for anchoring
// proposals and detects when a proposal has reached Byzantine quorum
// (§4.3). It is the only piece of the deterministic core that mutates
// shared state across validators' submitted transactions, so every insert
// is ordered by the host consensus that calls it and every rejection is a
// plain returned error, never a panic.
package sigstore

import "errors"

var (
	ErrInvalidSignature   = errors.New("sigstore: invalid signature")
	ErrStaleSigner        = errors.New("sigstore: validator slot changed since proposal")
	ErrDuplicateSignature = errors.New("sigstore: signature already recorded")
	ErrUnknownInput       = errors.New("sigstore: input index out of range for proposal")
	ErrUnknownValidator   = errors.New("sigstore: validator index out of range for config")
)
