// Package storage gives the deterministic core a minimal, pluggable
// key/value view of the persisted state layout (§6): anchored_txs,
// signatures, config_history, tip, following_config. The core depends on
// the Store interface only, never on a concrete database, so the
// state machine stays testable without standing up goleveldb.
package storage

import "errors"

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store is the byte-oriented key/value surface every persisted index in
// this service is built on (§6 "Persisted state layout").
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every key with the given prefix, in ascending
	// key order, until fn returns false or the prefix is exhausted.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	// Batch applies writes atomically: either all keys change or none do.
	// Used at finalization, where appending anchored_txs, pruning
	// signatures, and advancing tip must not be observed half-done.
	Batch(fn func(b WriteBatch) error) error
}

// WriteBatch accumulates writes for one atomic Batch call.
type WriteBatch interface {
	Set(key, value []byte)
	Delete(key []byte)
}
