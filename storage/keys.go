package storage

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Key-building helpers for the persisted layout of §6:
// anchored_txs/<u64-be>, signatures/<txid>/<input-index>/<validator-index>,
// config_history/<height-u64-be>, tip, following_config.

func AnchoredTxKey(sequence uint64) []byte {
	key := make([]byte, len("anchored_txs/")+8)
	n := copy(key, "anchored_txs/")
	binary.BigEndian.PutUint64(key[n:], sequence)
	return key
}

func SignatureKey(txid chainhash.Hash, inputIndex uint32, validatorIndex uint16) []byte {
	key := make([]byte, 0, len("signatures/")+32+4+2)
	key = append(key, "signatures/"...)
	key = append(key, txid[:]...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], inputIndex)
	key = append(key, idx[:]...)
	var vidx [2]byte
	binary.BigEndian.PutUint16(vidx[:], validatorIndex)
	key = append(key, vidx[:]...)
	return key
}

func SignaturePrefix(txid chainhash.Hash, inputIndex uint32) []byte {
	key := make([]byte, 0, len("signatures/")+32+4)
	key = append(key, "signatures/"...)
	key = append(key, txid[:]...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], inputIndex)
	key = append(key, idx[:]...)
	return key
}

func ConfigHistoryKey(activationHeight uint64) []byte {
	key := make([]byte, len("config_history/")+8)
	n := copy(key, "config_history/")
	binary.BigEndian.PutUint64(key[n:], activationHeight)
	return key
}

func ConfigHistoryPrefix() []byte {
	return []byte("config_history/")
}

func AnchoredTxPrefix() []byte {
	return []byte("anchored_txs/")
}

func TipKey() []byte {
	return []byte("tip")
}

func FollowingConfigKey() []byte {
	return []byte("following_config")
}

// FundingPoolKey holds the mutable list of confirmed, not-yet-consumed
// funding transactions accumulated via AddFunds (§4.5), kept separate from
// the immutable AnchoringConfig snapshots in config_history.
func FundingPoolKey() []byte {
	return []byte("funding_pool")
}

// PendingProposalKey tracks the most recently built, not-yet-finalized
// proposal's trigger height and txid, so a validator re-entering the Sign
// state can tell whether the in-flight proposal has aged past its
// abandonment window (§4.4 "Transitions and tie-breaks"). Not part of the
// literal key list in §6, but required to make that rule deterministic and
// restart-safe rather than held only in memory.
func PendingProposalKey() []byte {
	return []byte("pending_proposal")
}
