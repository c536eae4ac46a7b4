// Package proposal deterministically assembles the next unsigned anchoring
// transaction from on-chain state (§4.2). Given identical inputs, Build
// must produce byte-identical output on every validator; it performs no
// I/O, reads no wall clock, and makes no random choices.
package proposal

import "errors"

// ErrInsufficientFunds is returned when the computed fee would leave the
// P2WSH output at or below the dust threshold.
var ErrInsufficientFunds = errors.New("proposal: insufficient funds")
