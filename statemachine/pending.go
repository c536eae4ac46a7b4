package statemachine

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/storage"
)

// PendingProposal records the one outstanding, not-yet-finalized proposal a
// validator is tracking: the trigger height and block hash it was built
// from, and its serialized unsigned transaction, so that a validator
// re-entering the Sign state can re-derive the proposal and check
// byte-identity instead of trusting a remote copy (§4.4 "Sign").
type PendingProposal struct {
	TriggerHeight uint64
	BlockHash     [32]byte
	TxID          chainhash.Hash
	Raw           []byte
}

func (p PendingProposal) encode() []byte {
	buf := make([]byte, 0, 8+32+32+4+len(p.Raw))
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], p.TriggerHeight)
	buf = append(buf, tmp8[:]...)
	buf = append(buf, p.BlockHash[:]...)
	buf = append(buf, p.TxID[:]...)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(p.Raw)))
	buf = append(buf, tmp4[:]...)
	buf = append(buf, p.Raw...)
	return buf
}

func decodePendingProposal(data []byte) (PendingProposal, error) {
	var p PendingProposal
	if len(data) < 8+32+32+4 {
		return p, fmt.Errorf("statemachine: pending proposal record truncated")
	}
	p.TriggerHeight = binary.LittleEndian.Uint64(data[:8])
	copy(p.BlockHash[:], data[8:40])
	copy(p.TxID[:], data[40:72])
	rawLen := binary.LittleEndian.Uint32(data[72:76])
	if len(data) != 76+int(rawLen) {
		return p, fmt.Errorf("statemachine: pending proposal record length mismatch")
	}
	p.Raw = append([]byte(nil), data[76:]...)
	return p, nil
}

// LoadPendingProposal returns the outstanding proposal record, or nil if
// none is pending. Exported for the private HTTP API's GET /proposal.
func LoadPendingProposal(store storage.Store) (*PendingProposal, error) {
	raw, err := store.Get(storage.PendingProposalKey())
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	p, err := decodePendingProposal(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func StorePendingProposal(batch storage.WriteBatch, p PendingProposal) {
	batch.Set(storage.PendingProposalKey(), p.encode())
}

func ClearPendingProposal(batch storage.WriteBatch) {
	batch.Delete(storage.PendingProposalKey())
}

// LoadFollowingConfig returns the rollover target resolved when the
// current pending proposal was first recorded, or nil if this proposal
// does not redirect funds to a following configuration (§6 persisted
// state layout, following_config).
func LoadFollowingConfig(store storage.Store) (*anchoring.AnchoringConfig, error) {
	raw, err := store.Get(storage.FollowingConfigKey())
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	cfg, err := anchoring.DecodeAnchoringConfig(raw)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func StoreFollowingConfig(batch storage.WriteBatch, cfg anchoring.AnchoringConfig) error {
	encoded, err := cfg.Encode()
	if err != nil {
		return err
	}
	batch.Set(storage.FollowingConfigKey(), encoded)
	return nil
}

func ClearFollowingConfig(batch storage.WriteBatch) {
	batch.Delete(storage.FollowingConfigKey())
}
