package btcprimitives

import "crypto/sha256"

// sha256Sum is a tiny wrapper kept in one place so every SHA256 call in this
// package is visibly the same primitive (no double-SHA256 mixed in by
// accident — txids use chainhash.DoubleHashB, script hashes use single
// SHA256 per BIP141).
func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}
