package btcprimitives

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DustThreshold is the minimum value, in satoshis, a P2WSH output may carry
// before Bitcoin Core's relay policy treats it as dust (§4.2). An anchoring
// transaction whose output 0 would carry this value or less is not built:
// proposal.Build returns ErrInsufficientFunds instead.
const DustThreshold = 546

// TxID returns the transaction's non-witness double-SHA256 identifier. This
// is the identifier recorded in anchored_txs and tx_chain_tip; it does not
// change when inputs are signed (§3).
func TxID(tx *wire.MsgTx) chainhash.Hash {
	return tx.TxHash()
}

// Serialize returns the full witness serialization of tx, the form
// broadcast to the Bitcoin network and stored as FundingTx.Raw.
func Serialize(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: serializing transaction: %v", ErrInvalidEncoding, err)
	}
	return buf.Bytes(), nil
}

// Deserialize parses a raw transaction in wire format, as accepted by the
// AddFunds host-chain transaction (§5).
func Deserialize(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: deserializing transaction: %v", ErrInvalidEncoding, err)
	}
	return tx, nil
}

// VirtualSize estimates the BIP141 virtual size of tx once every input
// carries a full M-of-N multisig witness (M DER signatures plus the redeem
// script). The proposal builder needs this before any signature exists in
// order to compute the transaction fee deterministically (§4.2), so the
// witness is a synthetic placeholder of the correct byte length rather than
// tx's actual (possibly partial) witness data.
func VirtualSize(tx *wire.MsgTx, redeemScriptLen, threshold int) int64 {
	clone := tx.Copy()
	placeholderSig := make([]byte, 72) // worst-case DER signature + sighash byte
	placeholderScript := make([]byte, redeemScriptLen)
	for i := range clone.TxIn {
		witness := make(wire.TxWitness, 0, threshold+2)
		witness = append(witness, nil) // OP_CHECKMULTISIG off-by-one dummy element
		for j := 0; j < threshold; j++ {
			witness = append(witness, placeholderSig)
		}
		witness = append(witness, placeholderScript)
		clone.TxIn[i].Witness = witness
	}
	return weightToVSize(txWeight(clone))
}

// txWeight implements BIP141: weight = 3*base_size + total_size, where
// base_size excludes witness data and total_size includes it.
func txWeight(tx *wire.MsgTx) int64 {
	baseSize := tx.SerializeSizeStripped()
	totalSize := tx.SerializeSize()
	return int64(3*baseSize + totalSize)
}

// weightToVSize converts weight units to virtual bytes, rounding up per
// BIP141.
func weightToVSize(weight int64) int64 {
	return (weight + 3) / 4
}

// EstimateFee returns the fee, in satoshis, for a transaction of the given
// virtual size at feeRate satoshis-per-vbyte.
func EstimateFee(vsize int64, feeRate int64) int64 {
	return vsize * feeRate
}

// AssembleWitness builds the P2WSH multisig witness stack: an empty dummy
// element (OP_CHECKMULTISIG's historical off-by-one bug), the ordered
// signatures, and the redeem script. orderedSigs must already be sorted by
// ascending validator index and contain exactly threshold signatures.
func AssembleWitness(orderedSigs [][]byte, redeemScript []byte, threshold int) (wire.TxWitness, error) {
	if len(orderedSigs) != threshold {
		return nil, fmt.Errorf("%w: have %d signatures, need %d", ErrInvalidSignature, len(orderedSigs), threshold)
	}
	witness := make(wire.TxWitness, 0, threshold+2)
	witness = append(witness, nil)
	witness = append(witness, orderedSigs...)
	witness = append(witness, redeemScript)
	return witness, nil
}
