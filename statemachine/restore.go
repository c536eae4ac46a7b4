package statemachine

import (
	"encoding/binary"

	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/sigstore"
	"github.com/ironpeg/btcanchor/storage"
)

// Restore rehydrates the in-memory signature aggregator from persisted
// state after a process restart. The aggregator itself holds no durable
// state; every signature accepted by ExecuteTx is also written under its
// signatures/<txid>/<input>/<validator> key, so a fresh Aggregator can be
// rebuilt by replaying whatever the pending proposal's rows still say
// (§5 "Shared resources").
func (s *Service) Restore(store storage.Store) error {
	pending, err := LoadPendingProposal(store)
	if err != nil || pending == nil {
		return err
	}

	history, err := LoadConfigHistory(store)
	if err != nil {
		return err
	}
	targetConfig, ok := history.ActiveAt(pending.TriggerHeight)
	if !ok {
		return ErrNoActiveConfig
	}

	msgTx, err := btcprimitives.Deserialize(pending.Raw)
	if err != nil {
		return err
	}
	redeemScript, err := targetConfig.RedeemScript()
	if err != nil {
		return err
	}

	tip, err := LoadTip(store)
	if err != nil {
		return err
	}
	pool, err := LoadFundingPool(store)
	if err != nil {
		return err
	}
	inputValues, err := ResolveInputValues(store, tip, pool, msgTx)
	if err != nil {
		return err
	}

	sigHashes := make([][]byte, len(msgTx.TxIn))
	for i := range msgTx.TxIn {
		hash, err := btcprimitives.WitnessSigHash(msgTx, i, redeemScript, inputValues[i])
		if err != nil {
			return err
		}
		sigHashes[i] = hash
	}
	ctx := sigstore.ProposalContext{
		SigHashes:    sigHashes,
		RedeemScript: redeemScript,
		Threshold:    targetConfig.Threshold(),
		Pubkeys:      targetConfig.BitcoinPubKeys(),
		TargetHeight: pending.TriggerHeight,
	}

	for i := range msgTx.TxIn {
		prefix := storage.SignaturePrefix(pending.TxID, uint32(i))
		err := store.Iterate(prefix, func(key, value []byte) bool {
			validatorIndex := binary.BigEndian.Uint16(key[len(prefix):])
			// Ignore errors from a stale or tampered row: a restart must
			// not fail outright over one bad entry, and ExecuteTx already
			// validated every signature before it was persisted.
			_ = s.Aggregator.Insert(pending.TxID, ctx, targetConfig.BitcoinPubKeys(), i, validatorIndex, value)
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}
