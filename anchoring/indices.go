package anchoring

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// SignatureKey identifies one row of the signatures index: a witness
// signature from a single validator for a single input of a single
// proposal (§3, §6 persisted state layout
// signatures/<txid>/<input-index>/<validator-index>).
type SignatureKey struct {
	ProposalTxID   chainhash.Hash
	InputIndex     uint32
	ValidatorIndex uint16
}

// AnchoredTx is one finalized entry of anchored_txs: the full signed
// transaction body plus the host-chain height it committed (§3).
type AnchoredTx struct {
	Sequence uint64
	Height   uint64
	TxID     chainhash.Hash
	Raw      []byte
}

// Encode serializes an AnchoredTx for persistence under anchored_txs/<seq>:
// sequence(8) | height(8) | txid(32) | raw-len(4) | raw.
func (a AnchoredTx) Encode() []byte {
	buf := appendUint64(nil, a.Sequence)
	buf = appendUint64(buf, a.Height)
	buf = append(buf, a.TxID[:]...)
	buf = appendUint32(buf, uint32(len(a.Raw)))
	buf = append(buf, a.Raw...)
	return buf
}

// DecodeAnchoredTx parses the wire form produced by Encode.
func DecodeAnchoredTx(data []byte) (AnchoredTx, error) {
	var a AnchoredTx
	r := byteReader{buf: data}

	var err error
	if a.Sequence, err = r.uint64(); err != nil {
		return a, err
	}
	if a.Height, err = r.uint64(); err != nil {
		return a, err
	}
	txid, err := r.bytes(32)
	if err != nil {
		return a, err
	}
	copy(a.TxID[:], txid)

	rawLen, err := r.uint32()
	if err != nil {
		return a, err
	}
	raw, err := r.bytes(int(rawLen))
	if err != nil {
		return a, err
	}
	a.Raw = append([]byte(nil), raw...)

	if !r.exhausted() {
		return a, fmt.Errorf("%w: trailing bytes after anchored tx", ErrInvalidEncoding)
	}
	return a, nil
}

// ChainTip identifies the latest finalized anchoring transaction, the
// spendable custody UTXO for the next proposal (§3, "Tip" in GLOSSARY).
type ChainTip struct {
	Sequence uint64
	TxID     chainhash.Hash
}

// ConfigHistory is config_history: an append-only, height-ordered list of
// configuration activations (§3, §4.5). Entries must be appended in
// increasing ActivationHeight order; ActiveAt relies on that invariant for
// its binary search.
type ConfigHistory struct {
	entries []configEntry
}

type configEntry struct {
	ActivationHeight uint64
	Config           AnchoringConfig
}

// Append records a new configuration taking effect at activationHeight.
// Callers must ensure activationHeight is strictly greater than every
// previously appended height; violating this breaks ActiveAt's binary
// search.
func (h *ConfigHistory) Append(activationHeight uint64, cfg AnchoringConfig) {
	h.entries = append(h.entries, configEntry{ActivationHeight: activationHeight, Config: cfg})
}

// ActiveAt returns the configuration active at host-chain height H: the
// entry with the greatest ActivationHeight <= H (§4.5). The second return
// value is false if no configuration has activated by H yet.
func (h *ConfigHistory) ActiveAt(height uint64) (AnchoringConfig, bool) {
	// entries is kept in increasing ActivationHeight order by Append, so a
	// binary search finds the rightmost entry not exceeding height.
	idx := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].ActivationHeight > height
	})
	if idx == 0 {
		return AnchoringConfig{}, false
	}
	return h.entries[idx-1].Config, true
}

// Following returns the next configuration scheduled to activate after
// height, if any — the "following_config" used during rollover (§4.4,
// §6 persisted state layout).
func (h *ConfigHistory) Following(height uint64) (AnchoringConfig, uint64, bool) {
	idx := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].ActivationHeight > height
	})
	if idx >= len(h.entries) {
		return AnchoringConfig{}, 0, false
	}
	return h.entries[idx].Config, h.entries[idx].ActivationHeight, true
}
