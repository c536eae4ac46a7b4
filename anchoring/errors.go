// Package anchoring holds the versioned on-chain configuration, the
// OP_RETURN payload format, and the persisted index types of the anchoring
// chain: the schema every other package reads and writes (§3, §4.5).
package anchoring

import "errors"

// Error kinds raised by this package, per the error-kind taxonomy (§7).
var (
	ErrInvalidEncoding      = errors.New("anchoring: invalid encoding")
	ErrBadThreshold         = errors.New("anchoring: bad multisig threshold")
	ErrConfigImmutableField = errors.New("anchoring: immutable config field changed")
	ErrChainMismatch        = errors.New("anchoring: input does not spend recorded tip")
)
