package btcprimitives

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SigHashAll is the only sighash flag the anchoring protocol uses (§6).
const SigHashAll = txscript.SigHashAll

// PrevOutput carries the value and scriptPubKey of a transaction input's
// spent output, which BIP143 mixes into the sighash.
type PrevOutput struct {
	Value    int64
	PkScript []byte
}

// WitnessSigHash computes the BIP143 segwit signature hash for input idx of
// tx, given the redeem script it spends and the value of the output it
// consumes. Every validator computes this independently and must arrive at
// the same 32 bytes (§4.1, §8 invariant 5).
func WitnessSigHash(tx *wire.MsgTx, idx int, redeemScript []byte, inputValue int64) ([]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, fmt.Errorf("%w: input index %d out of range", ErrInvalidEncoding, idx)
	}
	sigHashes := txscript.NewTxSigHashes(tx, emptyPrevOutputFetcher{})
	hash, err := txscript.CalcWitnessSigHash(redeemScript, sigHashes, SigHashAll, tx, idx, inputValue)
	if err != nil {
		return nil, fmt.Errorf("%w: computing witness sighash: %v", ErrInvalidEncoding, err)
	}
	return hash, nil
}

// emptyPrevOutputFetcher satisfies txscript.PrevOutputFetcher. BIP143
// sighash for legacy-compatible P2WSH inputs only needs the value and
// script of the input being signed, which CalcWitnessSigHash already takes
// explicitly; no other input's previous output is consulted for SIGHASH_ALL
// over a single input script, so a fetcher returning zero values for all
// other inputs is safe here.
type emptyPrevOutputFetcher struct{}

func (emptyPrevOutputFetcher) FetchPrevOutput(wire.OutPoint) *wire.TxOut {
	return &wire.TxOut{Value: 0, PkScript: nil}
}
