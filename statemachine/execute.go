package statemachine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/sigstore"
	"github.com/ironpeg/btcanchor/storage"
)

// ExecuteTx applies one committed host-chain transaction: SignInput records
// and verifies a witness signature and finalizes the proposal once quorum
// is reached on every input; AddFunds accumulates a validator attestation
// toward a funding transaction's quorum (§4.3, §4.5, §6). height is the
// height of the block committing tx, used to resolve the config active for
// staleness checks independently of the proposal's own TargetHeight.
func (s *Service) ExecuteTx(height uint64, store storage.Store, batch storage.WriteBatch, tx hostchain.Tx) error {
	switch {
	case tx.SignInput != nil:
		return s.executeSignInput(height, store, batch, *tx.SignInput)
	case tx.AddFunds != nil:
		return s.executeAddFunds(height, store, batch, *tx.AddFunds)
	default:
		return fmt.Errorf("statemachine: empty host-chain transaction")
	}
}

func (s *Service) executeSignInput(height uint64, store storage.Store, batch storage.WriteBatch, in hostchain.SignInput) error {
	history, err := LoadConfigHistory(store)
	if err != nil {
		return err
	}
	currentConfig, ok := history.ActiveAt(height)
	if !ok {
		return ErrNoActiveConfig
	}
	targetConfig, ok := history.ActiveAt(in.TargetHeight)
	if !ok {
		targetConfig = currentConfig
	}

	msgTx, err := btcprimitives.Deserialize(in.Proposal)
	if err != nil {
		return err
	}
	txid := btcprimitives.TxID(msgTx)

	tip, err := LoadTip(store)
	if err != nil {
		return err
	}
	if tip != nil {
		if len(msgTx.TxIn) == 0 || msgTx.TxIn[0].PreviousOutPoint.Hash != tip.TxID {
			return ErrChainMismatch
		}
	}

	pool, err := LoadFundingPool(store)
	if err != nil {
		return err
	}
	redeemScript, err := targetConfig.RedeemScript()
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
		TargetHeight: in.TargetHeight,
	}

	err = s.Aggregator.Insert(txid, ctx, currentConfig.BitcoinPubKeys(), int(in.InputIndex), in.ValidatorIndex, in.Signature)
	switch {
	case err == nil:
		// recorded.
	case errors.Is(err, sigstore.ErrDuplicateSignature):
		return nil
	default:
		return err
	}
	batch.Set(storage.SignatureKey(txid, in.InputIndex, in.ValidatorIndex), in.Signature)

	if pending, err := LoadPendingProposal(store); err != nil {
		return err
	} else if pending == nil {
		payload, err := extractPayload(msgTx)
		if err != nil {
			return err
		}
		StorePendingProposal(batch, PendingProposal{
			TriggerHeight: in.TargetHeight,
			BlockHash:     payload.BlockHash,
			TxID:          txid,
			Raw:           in.Proposal,
		})
		if following := followingConfig(history, targetConfig, in.TargetHeight, s.SafetyMargin); following != nil {
			if err := StoreFollowingConfig(batch, *following); err != nil {
				return err
			}
		}
	}

	finalizable, witnesses, fctx := s.Aggregator.Finalizable(txid)
	if !finalizable {
		return nil
	}

	for i, w := range witnesses {
		msgTx.TxIn[i].Witness = w
	}
	finalRaw, err := btcprimitives.Serialize(msgTx)
	if err != nil {
		return err
	}

	sequence := uint64(0)
	if tip != nil {
		sequence = tip.Sequence + 1
	}
	batch.Set(storage.AnchoredTxKey(sequence), anchoring.AnchoredTx{
		Sequence: sequence,
		Height:   fctx.TargetHeight,
		TxID:     txid,
		Raw:      finalRaw,
	}.Encode())
	StoreTip(batch, anchoring.ChainTip{Sequence: sequence, TxID: txid})
	ClearPendingProposal(batch)
	ClearFollowingConfig(batch)
	s.Metrics.TransactionFinalized(sequence)
	log.Infof("anchoring transaction finalized: sequence=%d txid=%s", sequence, txid)

	for i := range msgTx.TxIn {
		for _, validatorIdx := range s.Aggregator.SignedIndices(txid, i) {
			batch.Delete(storage.SignatureKey(txid, uint32(i), validatorIdx))
		}
	}
	s.Aggregator.Prune(txid)

	remaining := removeConsumedFunding(pool, msgTx)
	if err := StoreFundingPool(batch, remaining); err != nil {
		return err
	}

	return nil
}

func (s *Service) executeAddFunds(height uint64, store storage.Store, batch storage.WriteBatch, add hostchain.AddFunds) error {
	history, err := LoadConfigHistory(store)
	if err != nil {
		return err
	}
	active, ok := history.ActiveAt(height)
	if !ok {
		return ErrNoActiveConfig
	}

	msgTx, err := btcprimitives.Deserialize(add.RawTx)
	if err != nil {
		return err
	}
	wantScript, err := active.RedeemScript()
	if err != nil {
		return err
	}
	wantPkScript, err := btcprimitives.P2WSHScriptPubKey(wantScript, active.Network)
	if err != nil {
		return err
	}

	outputIndex := -1
	for i, out := range msgTx.TxOut {
		if bytes.Equal(out.PkScript, wantPkScript) {
			outputIndex = i
			break
		}
	}
	if outputIndex < 0 {
		return fmt.Errorf("%w: raw tx does not pay the current anchoring address", anchoring.ErrInvalidEncoding)
	}

	pool, err := LoadFundingPool(store)
	if err != nil {
		return err
	}

	txid := btcprimitives.TxID(msgTx)
	idx := -1
	for i, f := range pool {
		existing, err := btcprimitives.Deserialize(f.Raw)
		if err != nil {
			continue
		}
		if btcprimitives.TxID(existing) == txid {
			idx = i
			break
		}
	}

	if idx < 0 {
		pool = append(pool, anchoring.FundingTx{
			Raw:         add.RawTx,
			OutputIndex: uint32(outputIndex),
			AttestedBy:  []uint16{add.ValidatorIndex},
		})
	} else {
		already := false
		for _, v := range pool[idx].AttestedBy {
			if v == add.ValidatorIndex {
				already = true
				break
			}
		}
		if !already {
			pool[idx].AttestedBy = append(pool[idx].AttestedBy, add.ValidatorIndex)
		}
	}

	return StoreFundingPool(batch, pool)
}

// ResolveInputValues recovers the spent value of every input of msgTx from
// the committed tip and funding pool, needed to recompute the BIP143
// sighash a SignInput's signature was produced against. Exported for the
// private HTTP API's GET /proposal, which reports per-input values
// alongside the unsigned proposal.
func ResolveInputValues(store storage.Store, tip *anchoring.ChainTip, pool []anchoring.FundingTx, msgTx *wire.MsgTx) ([]int64, error) {
	values := make([]int64, len(msgTx.TxIn))
	for i, in := range msgTx.TxIn {
		if tip != nil && in.PreviousOutPoint.Hash == tip.TxID {
			anchored, err := LoadAnchoredTip(store, *tip)
			if err != nil {
				return nil, err
			}
			prevTx, err := btcprimitives.Deserialize(anchored.Raw)
			if err != nil {
				return nil, err
			}
			values[i] = prevTx.TxOut[in.PreviousOutPoint.Index].Value
			continue
		}

		found := false
		for _, f := range pool {
			fundingTx, err := btcprimitives.Deserialize(f.Raw)
			if err != nil {
				continue
			}
			if btcprimitives.TxID(fundingTx) == in.PreviousOutPoint.Hash && f.OutputIndex == in.PreviousOutPoint.Index {
				values[i] = fundingTx.TxOut[f.OutputIndex].Value
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: input %d spends unknown outpoint", anchoring.ErrInvalidEncoding, i)
		}
	}
	return values, nil
}

// removeConsumedFunding drops from pool every funding transaction that
// msgTx just spent, once it finalizes.
func removeConsumedFunding(pool []anchoring.FundingTx, msgTx *wire.MsgTx) []anchoring.FundingTx {
	spent := make(map[chainhash.Hash]struct{}, len(msgTx.TxIn))
	for _, in := range msgTx.TxIn {
		spent[in.PreviousOutPoint.Hash] = struct{}{}
	}
	var remaining []anchoring.FundingTx
	for _, f := range pool {
		fundingTx, err := btcprimitives.Deserialize(f.Raw)
		if err != nil {
			continue
		}
		if _, consumed := spent[btcprimitives.TxID(fundingTx)]; consumed {
			continue
		}
		remaining = append(remaining, f)
	}
	return remaining
}

// extractPayload parses the OP_RETURN output of a proposal transaction.
func extractPayload(msgTx *wire.MsgTx) (anchoring.Payload, error) {
	if len(msgTx.TxOut) < 2 {
		return anchoring.Payload{}, fmt.Errorf("%w: proposal missing OP_RETURN output", anchoring.ErrInvalidEncoding)
	}
	data, err := opReturnData(msgTx.TxOut[1].PkScript)
	if err != nil {
		return anchoring.Payload{}, err
	}
	return anchoring.DecodePayload(data)
}

func opReturnData(pkScript []byte) ([]byte, error) {
	if len(pkScript) < 2 || pkScript[0] != 0x6a {
		return nil, fmt.Errorf("%w: not an OP_RETURN script", anchoring.ErrInvalidEncoding)
	}
	if pkScript[1] == 0x4c {
		if len(pkScript) < 3 {
			return nil, fmt.Errorf("%w: truncated OP_PUSHDATA1 script", anchoring.ErrInvalidEncoding)
		}
		length := int(pkScript[2])
		data := pkScript[3:]
		if len(data) != length {
			return nil, fmt.Errorf("%w: OP_RETURN length mismatch", anchoring.ErrInvalidEncoding)
		}
		return data, nil
	}
	length := int(pkScript[1])
	data := pkScript[2:]
	if len(data) != length {
		return nil, fmt.Errorf("%w: OP_RETURN length mismatch", anchoring.ErrInvalidEncoding)
	}
	return data, nil
}
